// Package crypto exposes the primitives used by CipherComm.
//
// Contents
//
//   - Deterministic identity derivation from a wallet signature
//     (DeriveIdentity) over the fixed login challenge
//   - ECIES-style per-message encryption producing the wire cipher
//     payload {ciphertext, iv, ephemPublicKey, mac} (Encrypt, Decrypt)
//   - Keccak-256 hashing and 0x-hex digests (Keccak256, HexDigest)
//   - Best-effort memory wiping for sensitive byte slices (Wipe)
//
// # Notes
//
// Key material uses fixed-size array types defined in internal/domain to
// avoid accidental reallocations. Callers should treat returned secrets
// as sensitive and rely on Wipe when practical to reduce their lifetime
// in memory.
package crypto
