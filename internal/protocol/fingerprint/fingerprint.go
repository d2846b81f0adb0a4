// Package fingerprint canonicalizes the full message log into one
// deterministic Keccak-256 digest both peers can independently
// recompute. The digest is a pure function of the message set: any
// local arrival order yields the same hash.
package fingerprint

import (
	"encoding/json"
	"sort"

	"ciphercomm/internal/crypto"
	"ciphercomm/internal/domain"
)

// entry is the canonical tuple for one message. Fields are declared in
// alphabetical key order so encoding/json emits a stable, sorted-key,
// whitespace-free serialization that independent implementations can
// reproduce byte for byte.
type entry struct {
	Ciphertext     string         `json:"ciphertext"`
	EphemPublicKey string         `json:"ephemPublicKey"`
	ID             int64          `json:"id"`
	IV             string         `json:"iv"`
	MAC            string         `json:"mac"`
	Sender         domain.PartyID `json:"sender"`
	TS             int64          `json:"ts"`
}

// Compute returns the fingerprint of the message set.
//
// File placeholders are skipped: their ids are locally assigned rather
// than sender-assigned, so they cannot be part of a cross-peer
// canonical set. Missing cipher subfields become empty strings. Entries
// sort by (ts, id); a collision between distinct messages is a
// data-integrity anomaly, resolved deterministically by comparing the
// serialized tuples so both peers still agree.
func Compute(messages []domain.ChatMessage) domain.Digest {
	entries := make([]entry, 0, len(messages))
	for _, m := range messages {
		if m.IsFile {
			continue
		}
		e := entry{ID: m.ID, TS: m.TS, Sender: m.Sender}
		if m.Cipher != nil {
			e.Ciphertext = m.Cipher.Ciphertext
			e.IV = m.Cipher.IV
			e.EphemPublicKey = m.Cipher.EphemPublicKey
			e.MAC = m.Cipher.MAC
		}
		entries = append(entries, e)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.TS != b.TS {
			return a.TS < b.TS
		}
		if a.ID != b.ID {
			return a.ID < b.ID
		}
		return less(a, b)
	})

	serialized, err := json.Marshal(entries)
	if err != nil {
		// Only string and int64 fields are involved; Marshal cannot fail.
		panic("fingerprint: canonical serialization: " + err.Error())
	}
	return crypto.HexDigest(crypto.Keccak256(serialized))
}

// less orders two entries with identical (ts, id) by their remaining
// fields. Genuinely identical entries compare equal and keep their
// relative order, which is then irrelevant to the serialization.
func less(a, b entry) bool {
	if a.Sender != b.Sender {
		return a.Sender < b.Sender
	}
	if a.Ciphertext != b.Ciphertext {
		return a.Ciphertext < b.Ciphertext
	}
	if a.IV != b.IV {
		return a.IV < b.IV
	}
	if a.EphemPublicKey != b.EphemPublicKey {
		return a.EphemPublicKey < b.EphemPublicKey
	}
	return a.MAC < b.MAC
}
