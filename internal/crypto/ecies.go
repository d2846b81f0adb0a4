package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"fmt"

	"golang.org/x/crypto/curve25519"

	"ciphercomm/internal/domain"
	"ciphercomm/internal/util/memzero"
)

const ivBytes = aes.BlockSize

var (
	// ErrMACMismatch is returned when authentication fails, typically
	// because the message was encrypted for a different private key.
	ErrMACMismatch = errors.New("crypto: message authentication failed")
	// ErrBadCipherField is returned when a cipher payload field is not
	// valid hex of the expected length.
	ErrBadCipherField = errors.New("crypto: malformed cipher payload field")
)

// Encrypt seals plaintext for the holder of pub.
//
// A fresh ephemeral X25519 pair is generated per message; the shared
// secret is expanded with SHA-512 into an AES-256-CTR key and an
// HMAC-SHA256 key, and the MAC covers iv || ephemPublicKey || ciphertext.
// The resulting fields are exactly the ones that must round-trip
// verbatim to the peer for fingerprinting.
func Encrypt(pub domain.PublicKey, plaintext []byte) (domain.CipherPayload, error) {
	var ephPriv domain.PrivateKey
	if _, err := rand.Read(ephPriv[:]); err != nil {
		return domain.CipherPayload{}, err
	}
	clamp(&ephPriv)

	var ephPub [32]byte
	curve25519.ScalarBaseMult(&ephPub, (*[32]byte)(&ephPriv))

	encKey, macKey, err := deriveKeys(ephPriv, pub)
	if err != nil {
		return domain.CipherPayload{}, err
	}
	defer memzero.Zero(encKey)
	defer memzero.Zero(macKey)

	iv := make([]byte, ivBytes)
	if _, err := rand.Read(iv); err != nil {
		return domain.CipherPayload{}, err
	}

	block, err := aes.NewCipher(encKey)
	if err != nil {
		return domain.CipherPayload{}, err
	}
	ct := make([]byte, len(plaintext))
	cipher.NewCTR(block, iv).XORKeyStream(ct, plaintext)

	return domain.CipherPayload{
		Ciphertext:     hex.EncodeToString(ct),
		IV:             hex.EncodeToString(iv),
		EphemPublicKey: hex.EncodeToString(ephPub[:]),
		MAC:            hex.EncodeToString(authTag(macKey, iv, ephPub[:], ct)),
	}, nil
}

// Decrypt opens a cipher payload with the local private key. A MAC
// failure yields ErrMACMismatch, never a silent wrong plaintext.
func Decrypt(priv domain.PrivateKey, c domain.CipherPayload) ([]byte, error) {
	iv, err := fieldBytes(c.IV, ivBytes)
	if err != nil {
		return nil, err
	}
	ephRaw, err := fieldBytes(c.EphemPublicKey, 32)
	if err != nil {
		return nil, err
	}
	mac, err := fieldBytes(c.MAC, sha256.Size)
	if err != nil {
		return nil, err
	}
	ct, err := hex.DecodeString(c.Ciphertext)
	if err != nil {
		return nil, fmt.Errorf("%w: ciphertext", ErrBadCipherField)
	}

	var ephPub domain.PublicKey
	copy(ephPub[:], ephRaw)

	encKey, macKey, err := deriveKeys(priv, ephPub)
	if err != nil {
		return nil, err
	}
	defer memzero.Zero(encKey)
	defer memzero.Zero(macKey)

	if !hmac.Equal(mac, authTag(macKey, iv, ephRaw, ct)) {
		return nil, ErrMACMismatch
	}

	block, err := aes.NewCipher(encKey)
	if err != nil {
		return nil, err
	}
	plain := make([]byte, len(ct))
	cipher.NewCTR(block, iv).XORKeyStream(plain, ct)
	return plain, nil
}

// deriveKeys runs X25519 and splits the SHA-512 of the shared secret
// into a 32-byte encryption key and a 32-byte MAC key.
func deriveKeys(priv domain.PrivateKey, pub domain.PublicKey) (encKey, macKey []byte, err error) {
	shared, err := curve25519.X25519(priv.Slice(), pub.Slice())
	if err != nil {
		return nil, nil, err
	}
	defer memzero.Zero(shared)

	sum := sha512.Sum512(shared)
	encKey = append([]byte(nil), sum[:32]...)
	macKey = append([]byte(nil), sum[32:]...)
	memzero.Zero(sum[:])
	return encKey, macKey, nil
}

func authTag(macKey, iv, ephPub, ct []byte) []byte {
	m := hmac.New(sha256.New, macKey)
	m.Write(iv)
	m.Write(ephPub)
	m.Write(ct)
	return m.Sum(nil)
}

func fieldBytes(s string, want int) ([]byte, error) {
	raw, err := hex.DecodeString(s)
	if err != nil || len(raw) != want {
		return nil, fmt.Errorf("%w: want %d bytes", ErrBadCipherField, want)
	}
	return raw, nil
}
