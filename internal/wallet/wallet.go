package wallet

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"

	"ciphercomm/internal/crypto"
	"ciphercomm/internal/domain"
)

// Wallet is a local signer. Signatures are deterministic for a given
// key and message, which the login-derived identity depends on.
type Wallet struct {
	priv ed25519.PrivateKey
	addr domain.PartyID
}

// Generate creates a fresh wallet.
func Generate() (*Wallet, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, err
	}
	return &Wallet{priv: priv, addr: addressOf(pub)}, nil
}

// FromSeed rebuilds a wallet from a stored 32-byte seed.
func FromSeed(seed []byte) *Wallet {
	priv := ed25519.NewKeyFromSeed(seed)
	return &Wallet{priv: priv, addr: addressOf(priv.Public().(ed25519.PublicKey))}
}

// Seed exposes the private seed for keystore persistence.
func (w *Wallet) Seed() []byte { return w.priv.Seed() }

func (w *Wallet) Address() domain.PartyID { return w.addr }

func (w *Wallet) SignMessage(ctx context.Context, msg string) ([]byte, error) {
	return ed25519.Sign(w.priv, []byte(msg)), nil
}

// addressOf hashes the public key and keeps the trailing 20 bytes,
// rendered as a 0x-prefixed hex string.
func addressOf(pub ed25519.PublicKey) domain.PartyID {
	sum := crypto.Keccak256(pub)
	return domain.PartyID("0x" + hex.EncodeToString(sum[12:]))
}

var _ domain.Signer = (*Wallet)(nil)
