package app

import (
	"ciphercomm/internal/domain"
	"ciphercomm/internal/services/filetransfer"
	"ciphercomm/internal/services/finalize"
	"ciphercomm/internal/services/session"
)

// Chat is the per-login service stack: session management, the file
// pipeline, and the finalization coordinator, sharing one identity.
type Chat struct {
	Party     domain.PartyID
	Manager   *session.Manager
	Files     *filetransfer.Service
	Finalizer *finalize.Coordinator
}

// NewChat assembles the service stack for an unlocked identity. The
// file pipeline borrows the manager's logical clock, so the manager
// reference inside the stamp closure resolves lazily.
func (w *Wire) NewChat(id domain.Identity, self domain.PartyID, hooks session.Hooks) *Chat {
	chat := &Chat{Party: self}
	chat.Files = filetransfer.New(w.Logger, w.Blobs, id, self,
		func() int64 { return chat.Manager.Sealer().Stamp() })
	chat.Finalizer = finalize.NewCoordinator(w.Logger, w.Ledger, self)
	chat.Manager = session.NewManager(w.Logger, id, self, w.Transport,
		chat.Files, chat.Finalizer, hooks)
	return chat
}
