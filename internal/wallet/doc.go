// Package wallet holds the local signing key behind domain.Signer.
//
// The key is an Ed25519 pair kept on disk under a passphrase. The
// party address is derived from the public key the same way the rest
// of the system derives digests, so the address is stable across
// sessions and machines that share the keystore.
package wallet
