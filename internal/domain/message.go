package domain

// CipherPayload is the asymmetric ciphertext attached to a chat message.
// Field names and casing are wire- and fingerprint-relevant; both peers
// must serialize them identically. All values are plain hex strings.
type CipherPayload struct {
	Ciphertext     string `json:"ciphertext"`
	IV             string `json:"iv"`
	EphemPublicKey string `json:"ephemPublicKey"`
	MAC            string `json:"mac"`
}

// ChatMessage is one entry of the append-only chat log.
//
// ID and TS are assigned by the sender and copied verbatim by the
// receiver so both peers derive identical ordering keys. Text is a local
// convenience; the cipher fields are the durable, fingerprint-relevant
// ones. File entries carry no cipher payload and locally assigned
// timestamps, so they are excluded from fingerprinting.
type ChatMessage struct {
	ID       int64
	TS       int64
	Sender   PartyID
	Text     string
	Cipher   *CipherPayload
	IsFile   bool
	Verified bool

	// FileName and FileData are populated on file entries once the
	// transfer pipeline has decrypted the blob.
	FileName string
	FileData []byte

	// Failed marks an entry whose decryption (or file transfer) failed.
	// The entry stays in the log; Error records the cause.
	Failed bool
	Error  string
}
