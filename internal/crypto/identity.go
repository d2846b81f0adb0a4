package crypto

import (
	"errors"

	"golang.org/x/crypto/curve25519"

	"ciphercomm/internal/domain"
)

// LoginChallenge is the fixed, human-readable string the wallet signs to
// derive the chat identity. Changing it breaks re-login key recovery.
const LoginChallenge = "Login to CipherComm"

// ErrEmptySignature is returned when the wallet produced no signature.
var ErrEmptySignature = errors.New("crypto: empty login signature")

// DeriveIdentity turns a wallet signature over LoginChallenge into the
// session keypair. The private scalar is the Keccak-256 of the signature
// bytes, clamped per RFC 7748; the public key follows from the scalar.
// The derivation is a pure function of the signature, which is what lets
// a party log back in without persisted key storage.
func DeriveIdentity(signature []byte) (domain.Identity, error) {
	if len(signature) == 0 {
		return domain.Identity{}, ErrEmptySignature
	}

	var priv domain.PrivateKey
	copy(priv[:], Keccak256(signature))
	clamp(&priv)

	var pub [32]byte
	curve25519.ScalarBaseMult(&pub, (*[32]byte)(&priv))

	return domain.Identity{Private: priv, Public: domain.PublicKey(pub)}, nil
}

func clamp(k *domain.PrivateKey) {
	k[0] &= 248
	k[31] &= 127
	k[31] |= 64
}
