package domain

import (
	"encoding/hex"
	"fmt"
)

// PublicKey is a Curve25519 public key used for per-message encryption.
type PublicKey [32]byte

func (p PublicKey) Slice() []byte  { return p[:] }
func (p PublicKey) String() string { return hex.EncodeToString(p[:]) }

// PrivateKey is a Curve25519 private scalar.
type PrivateKey [32]byte

func (k PrivateKey) Slice() []byte { return k[:] }

// Identity is the chat keypair derived from the wallet's signature over
// the login challenge. It lives only for the lifetime of the process;
// re-signing the same challenge reproduces the identical keypair.
type Identity struct {
	Private PrivateKey
	Public  PublicKey
}

// ParsePublicKey decodes a hex-encoded Curve25519 public key.
func ParsePublicKey(s string) (PublicKey, error) {
	var pub PublicKey
	raw, err := hex.DecodeString(s)
	if err != nil {
		return pub, fmt.Errorf("parse public key: %w", err)
	}
	if len(raw) != len(pub) {
		return pub, fmt.Errorf("parse public key: want %d bytes, got %d", len(pub), len(raw))
	}
	copy(pub[:], raw)
	return pub, nil
}
