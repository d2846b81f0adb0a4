// Package transport provides the peer connection adapters behind
// domain.Transport: a WebSocket implementation for real deployments and
// an in-memory implementation used by tests and local runs.
//
// Both deliver an ordered, reliable, message-oriented stream once open;
// connection establishment mechanics beyond that are out of the core's
// scope.
package transport
