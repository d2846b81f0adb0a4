// Package ledger adapts the external anchoring oracle to domain.Ledger.
//
// The HTTP client speaks to an anchoring bridge that fronts the actual
// chain: submission blocks until the bridge reports confirmation, and
// the read-only predicate distinguishes a definitive "not anchored"
// from the bridge being unreachable.
package ledger
