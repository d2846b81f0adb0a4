// Package finalize drives the propose → anchor → announce →
// cross-verify protocol over the chat fingerprint engine and the
// external ledger oracle.
//
// The proposer anchors the fingerprint on the ledger, then announces it
// to the peer. The receiver runs two independent checks, a local
// recomputation and the ledger predicate, merging each result into the
// session's finalization record. The combined verdict is true only when
// both checks definitively pass; an unreachable ledger leaves it
// pending, never false. A mismatch is terminal and requires a fresh
// proposal to supersede it.
package finalize
