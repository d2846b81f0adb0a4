// Package session owns the lifecycle of peer connections and the
// append-only chat log of each conversation.
//
// A session walks Idle → Connecting → Open → KeyExchanged → Closed,
// with Errored reachable from any non-terminal state. Transport events
// for one session are consumed by a single goroutine, so handlers never
// interleave mid-mutation and the log stays consistent without external
// locking. All other components mutate session state only through the
// narrow accessors exposed here.
package session
