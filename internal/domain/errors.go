package domain

import "errors"

// Transport faults: logged, session moves to errored/closed, no retry.
var (
	ErrNoIdentity    = errors.New("ciphercomm: local identity not initialised")
	ErrEmptyPeer     = errors.New("ciphercomm: peer id must not be empty")
	ErrSessionActive = errors.New("ciphercomm: a session with this peer is already active")
	ErrNotConnected  = errors.New("ciphercomm: no open connection to peer")
	ErrNoFriendKey   = errors.New("ciphercomm: peer public key not yet received")
)

// Ledger and verification faults.
var (
	ErrEmptyLog          = errors.New("ciphercomm: cannot finalize an empty chat log")
	ErrLedgerUnavailable = errors.New("ciphercomm: ledger unavailable")
)

// Storage faults: scoped to one file transfer, user-retryable.
var (
	ErrBlobTooLarge = errors.New("ciphercomm: file exceeds the transfer size ceiling")
	ErrPeerNotFound = errors.New("ciphercomm: peer not registered in directory")
)
