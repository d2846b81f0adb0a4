package envelope

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"ciphercomm/internal/crypto"
	"ciphercomm/internal/domain"
)

// Marshal renders an envelope to its wire bytes.
func Marshal(env domain.Envelope) ([]byte, error) {
	return json.Marshal(env)
}

// Unmarshal parses wire bytes and validates the type tag.
func Unmarshal(b []byte) (domain.Envelope, error) {
	var env domain.Envelope
	if err := json.Unmarshal(b, &env); err != nil {
		return domain.Envelope{}, fmt.Errorf("envelope: decode: %w", err)
	}
	switch env.Type {
	case domain.TypeKeyExchange, domain.TypeMessage, domain.TypeFile, domain.TypeFinalizeRecorded:
		return env, nil
	default:
		return domain.Envelope{}, fmt.Errorf("envelope: unknown type %q", env.Type)
	}
}

// KeyExchange builds the handshake envelope carrying our public key.
func KeyExchange(pub domain.PublicKey) domain.Envelope {
	payload, _ := json.Marshal(pub.String())
	return domain.Envelope{Type: domain.TypeKeyExchange, Payload: payload}
}

// PublicKeyFrom extracts the peer key from a key-exchange envelope.
func PublicKeyFrom(env domain.Envelope) (domain.PublicKey, error) {
	var hexKey string
	if err := json.Unmarshal(env.Payload, &hexKey); err != nil {
		return domain.PublicKey{}, fmt.Errorf("envelope: key-exchange payload: %w", err)
	}
	return domain.ParsePublicKey(hexKey)
}

// File builds a file-pointer envelope.
func File(p domain.FilePayload) (domain.Envelope, error) {
	payload, err := json.Marshal(p)
	if err != nil {
		return domain.Envelope{}, err
	}
	return domain.Envelope{Type: domain.TypeFile, Payload: payload}, nil
}

// FileFrom extracts the file pointer from a file envelope.
func FileFrom(env domain.Envelope) (domain.FilePayload, error) {
	var p domain.FilePayload
	if err := json.Unmarshal(env.Payload, &p); err != nil {
		return domain.FilePayload{}, fmt.Errorf("envelope: file payload: %w", err)
	}
	return p, nil
}

// Finalize builds the announcement envelope for an anchored fingerprint.
func Finalize(sender domain.PartyID, hash domain.Digest, tx domain.TxHash) domain.Envelope {
	payload, _ := json.Marshal(domain.FinalizePayload{Hash: hash, TxHash: tx})
	return domain.Envelope{
		Type:    domain.TypeFinalizeRecorded,
		Sender:  sender.String(),
		Payload: payload,
	}
}

// FinalizeFrom extracts the announcement from a finalize-recorded envelope.
func FinalizeFrom(env domain.Envelope) (domain.FinalizePayload, error) {
	var p domain.FinalizePayload
	if err := json.Unmarshal(env.Payload, &p); err != nil {
		return domain.FinalizePayload{}, fmt.Errorf("envelope: finalize payload: %w", err)
	}
	return p, nil
}

// Sealer produces message envelopes for one local sender. It owns the
// sender's logical clock: stamps are the current wall time in
// milliseconds, forced strictly monotonic so ids stay unique per sender.
type Sealer struct {
	sender domain.PartyID

	mu   sync.Mutex
	last int64
	now  func() int64
}

// NewSealer returns a Sealer stamping envelopes as sender.
func NewSealer(sender domain.PartyID) *Sealer {
	return &Sealer{
		sender: sender,
		now:    func() int64 { return time.Now().UnixMilli() },
	}
}

// WithClock overrides the wall clock. Intended for tests.
func (s *Sealer) WithClock(now func() int64) *Sealer {
	s.now = now
	return s
}

// SealText encrypts plaintext for the recipient and returns both the
// wire envelope and the matching local log entry. The envelope's
// id/ts/sender/cipher fields are exactly what must round-trip verbatim
// to the peer for fingerprinting.
func (s *Sealer) SealText(recipient domain.PublicKey, plaintext string) (domain.Envelope, domain.ChatMessage, error) {
	cipher, err := crypto.Encrypt(recipient, []byte(plaintext))
	if err != nil {
		return domain.Envelope{}, domain.ChatMessage{}, fmt.Errorf("envelope: seal: %w", err)
	}

	stamp := s.nextStamp()
	payload, err := json.Marshal(cipher)
	if err != nil {
		return domain.Envelope{}, domain.ChatMessage{}, err
	}

	env := domain.Envelope{
		Type:    domain.TypeMessage,
		ID:      stamp,
		TS:      stamp,
		Sender:  s.sender.String(),
		Payload: payload,
	}
	msg := domain.ChatMessage{
		ID:     stamp,
		TS:     stamp,
		Sender: s.sender,
		Text:   plaintext,
		Cipher: &cipher,
	}
	return env, msg, nil
}

// Stamp returns the next sender-assigned id/ts value. File transfers use
// it for their local placeholder entries.
func (s *Sealer) Stamp() int64 { return s.nextStamp() }

func (s *Sealer) nextStamp() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	stamp := s.now()
	if stamp <= s.last {
		stamp = s.last + 1
	}
	s.last = stamp
	return stamp
}

// OpenMessage decrypts a message envelope with the local private key and
// converts it to a log entry, copying the sender-assigned id/ts/sender
// verbatim. On decryption failure the entry is still returned, flagged
// and with the cipher fields intact, alongside the error: a single bad
// message must not tear down the session, and the encrypted fields stay
// fingerprint-relevant either way.
func OpenMessage(priv domain.PrivateKey, env domain.Envelope) (domain.ChatMessage, error) {
	var cipher domain.CipherPayload
	if err := json.Unmarshal(env.Payload, &cipher); err != nil {
		return domain.ChatMessage{}, fmt.Errorf("envelope: message payload: %w", err)
	}

	msg := domain.ChatMessage{
		ID:     env.ID,
		TS:     env.TS,
		Sender: domain.PartyID(env.Sender),
		Cipher: &cipher,
	}

	plain, err := crypto.Decrypt(priv, cipher)
	if err != nil {
		msg.Failed = true
		msg.Error = err.Error()
		return msg, fmt.Errorf("envelope: open: %w", err)
	}
	msg.Text = string(plain)
	msg.Verified = true
	return msg, nil
}
