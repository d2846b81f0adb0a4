// Package envelope encodes and decodes the typed units exchanged over a
// peer connection, performing per-type encryption and decryption.
//
// Key-exchange and finalize-recorded envelopes travel in the clear (key
// material is public, a fingerprint is already a commitment). Message
// envelopes are asymmetric-encrypted for the recipient and stamped with
// the sender-assigned id/ts that both peers later use as ordering keys.
package envelope
