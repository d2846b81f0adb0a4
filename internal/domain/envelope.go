package domain

import "encoding/json"

// Envelope kinds exchanged over the peer connection. The strings are
// wire-relevant and must match the counterpart implementation exactly.
const (
	TypeKeyExchange      = "key-exchange"
	TypeMessage          = "message"
	TypeFile             = "file"
	TypeFinalizeRecorded = "finalize-recorded"
)

// Envelope is one discrete typed unit on the wire. Message envelopes
// carry the sender-assigned id/ts/sender inline; the payload shape
// depends on Type. Envelopes are never mutated after creation.
type Envelope struct {
	Type    string          `json:"type"`
	ID      int64           `json:"id,omitempty"`
	TS      int64           `json:"ts,omitempty"`
	Sender  string          `json:"sender,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// FilePayload points at a symmetric-encrypted blob in the content store.
// Only the symmetric key is asymmetrically wrapped for the recipient.
type FilePayload struct {
	CID        string        `json:"cid"`
	WrappedKey CipherPayload `json:"wrappedKey"`
	Name       string        `json:"name"`
}

// FinalizePayload announces an anchored chat fingerprint to the peer.
// The hash is already a commitment, so nothing here is encrypted.
type FinalizePayload struct {
	Hash   Digest `json:"hash"`
	TxHash TxHash `json:"txHash"`
}
