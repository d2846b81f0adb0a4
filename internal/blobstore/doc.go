// Package blobstore provides the content-addressed stores behind
// domain.BlobStore: an HTTP gateway client for pinning services and an
// in-memory store minting real CIDs, used by tests and local runs.
package blobstore
