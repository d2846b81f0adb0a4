// Package domain defines the core types shared across CipherComm:
// identities, sessions, chat log entries, wire envelopes, finalization
// records, and the interfaces of the external collaborators (ledger,
// blob store, peer directory, transport, wallet signer).
//
// It contains no behaviour beyond small invariant-preserving helpers;
// all protocol logic lives in internal/protocol and internal/services.
package domain
