package domain

// PartyID is the stable identifier of a chat participant, typically the
// wallet address that signed the login challenge.
type PartyID string

func (p PartyID) String() string { return string(p) }

// PeerAddr is the ephemeral transport address a party is reachable at.
// The peer directory maps PartyID to PeerAddr.
type PeerAddr string

func (a PeerAddr) String() string { return string(a) }

// Digest is a 0x-prefixed hex Keccak-256 digest, e.g. a chat fingerprint.
type Digest string

func (d Digest) String() string { return string(d) }

// TxHash identifies an anchoring transaction on the external ledger.
type TxHash string

func (t TxHash) String() string { return string(t) }
