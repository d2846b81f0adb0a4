// Package directory adapts the party registry to domain.Directory.
//
// Resolution prefers the registry's direct lookup and falls back to
// scanning its append-only registration event log, which keeps lookups
// working when the indexed view lags behind recent registrations.
package directory
