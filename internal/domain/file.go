package domain

// FileStatus is the lifecycle position of one file transfer.
type FileStatus uint8

const (
	FileUploading FileStatus = iota
	FileSent
	FileFetching
	FileDecrypted
	FileFailed
)

func (s FileStatus) String() string {
	switch s {
	case FileUploading:
		return "uploading"
	case FileSent:
		return "sent"
	case FileFetching:
		return "fetching"
	case FileDecrypted:
		return "decrypted"
	case FileFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// FileTransferState tracks one in-flight file, keyed by a locally
// generated temporary id until a content address is assigned. A failure
// flags only this transfer; other transfers and the session continue.
type FileTransferState struct {
	TempID     string
	CID        string
	WrappedKey CipherPayload
	Name       string
	Status     FileStatus
	Error      string
}
