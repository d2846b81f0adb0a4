package crypto

import (
	"encoding/hex"

	"golang.org/x/crypto/sha3"

	"ciphercomm/internal/domain"
)

// Keccak256 hashes the concatenation of the inputs with legacy Keccak-256,
// the digest the counterpart implementation uses for fingerprints.
func Keccak256(data ...[]byte) []byte {
	h := sha3.NewLegacyKeccak256()
	for _, d := range data {
		h.Write(d)
	}
	return h.Sum(nil)
}

// HexDigest renders a Keccak-256 sum as a 0x-prefixed hex digest.
func HexDigest(sum []byte) domain.Digest {
	return domain.Digest("0x" + hex.EncodeToString(sum))
}
