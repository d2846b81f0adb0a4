package domain

import (
	"context"

	"github.com/ipfs/go-cid"
)

// Signer is the external wallet identity. Signing the fixed login
// challenge is the only operation the core needs from it.
type Signer interface {
	Address() PartyID
	SignMessage(ctx context.Context, msg string) ([]byte, error)
}

// Ledger is the external anchoring oracle.
//
// SubmitAnchor submits a transaction carrying hash and blocks until the
// ledger confirms or rejects it. IsAnchored is the read-only
// verification predicate; implementations must return an error (not
// false) when the ledger is unreachable or the contract is absent, so
// callers can distinguish "unknown" from a definitive no.
type Ledger interface {
	SubmitAnchor(ctx context.Context, hash Digest) (TxHash, error)
	IsAnchored(ctx context.Context, hash Digest) (bool, error)
}

// BlobStore is the content-addressed store holding encrypted file blobs.
type BlobStore interface {
	Upload(ctx context.Context, data []byte, name string) (cid.Cid, error)
	Fetch(ctx context.Context, c cid.Cid) ([]byte, error)
}

// Directory maps a stable party identifier to its ephemeral transport
// address. Resolve returns ErrPeerNotFound when no mapping exists.
type Directory interface {
	Register(ctx context.Context, party PartyID, addr PeerAddr) error
	Resolve(ctx context.Context, party PartyID) (PeerAddr, error)
}

// Conn is an established, ordered, reliable, message-oriented channel
// to one counterpart. ReadMessage blocks until the next message or
// connection close.
type Conn interface {
	WriteMessage(b []byte) error
	ReadMessage() ([]byte, error)
	Close() error
	Remote() string
}

// Listener accepts inbound peer connections.
type Listener interface {
	Accept(ctx context.Context) (Conn, error)
	Close() error
	Addr() PeerAddr
}

// Transport establishes connections; its mechanics (reconnection,
// NAT traversal, framing) are outside the core.
type Transport interface {
	Dial(ctx context.Context, addr PeerAddr) (Conn, error)
	Listen(addr PeerAddr) (Listener, error)
}
