// Package filetransfer layers an encrypted, content-addressed file
// exchange on top of the envelope protocol, sharing the session's
// connection and public-key material.
//
// File bytes are sealed with a fresh symmetric key and parked in the
// blob store; only the key is asymmetrically wrapped for the recipient
// and sent alongside the content address. A failure in any one transfer
// flags just that transfer and its log entry; other transfers and the
// session carry on.
package filetransfer
