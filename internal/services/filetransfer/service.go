package filetransfer

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/ipfs/go-cid"
	"go.uber.org/zap"
	"golang.org/x/crypto/chacha20poly1305"

	"ciphercomm/internal/crypto"
	"ciphercomm/internal/domain"
	"ciphercomm/internal/protocol/envelope"
	"ciphercomm/internal/services/session"
)

// DefaultMaxFileBytes is the transfer size ceiling, checked before any
// network activity.
const DefaultMaxFileBytes = 50 << 20

// ErrBadBlob is returned when a fetched blob is too short or fails
// authenticated decryption.
var ErrBadBlob = errors.New("filetransfer: malformed or tampered blob")

// Service is the file transfer pipeline for one local party.
type Service struct {
	logger  *zap.Logger
	store   domain.BlobStore
	id      domain.Identity
	self    domain.PartyID
	maxSize int64
	stamp   func() int64

	// OnUpdate observes file log entries as they are created and
	// updated in place. Called from transfer goroutines; must not block.
	OnUpdate func(s *session.Session, m domain.ChatMessage)

	mu        sync.Mutex
	transfers map[string]*domain.FileTransferState
}

// New returns a pipeline storing blobs in store. stamp supplies the
// sender's logical clock for local placeholder entries.
func New(logger *zap.Logger, store domain.BlobStore, id domain.Identity, self domain.PartyID, stamp func() int64) *Service {
	return &Service{
		logger:    logger,
		store:     store,
		id:        id,
		self:      self,
		maxSize:   DefaultMaxFileBytes,
		stamp:     stamp,
		transfers: make(map[string]*domain.FileTransferState),
	}
}

// WithMaxSize overrides the transfer size ceiling.
func (svc *Service) WithMaxSize(n int64) *Service {
	svc.maxSize = n
	return svc
}

// Transfers returns a snapshot of all transfer states.
func (svc *Service) Transfers() []domain.FileTransferState {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	out := make([]domain.FileTransferState, 0, len(svc.transfers))
	for _, st := range svc.transfers {
		out = append(out, *st)
	}
	return out
}

// Send encrypts data under a fresh symmetric key, uploads the
// ciphertext, wraps the key for the recipient, and emits the file
// pointer envelope. The size ceiling is enforced before anything
// touches the network.
func (svc *Service) Send(ctx context.Context, s *session.Session, name string, data []byte) (domain.FileTransferState, error) {
	friendKey, ok := s.FriendKey()
	if !ok {
		return domain.FileTransferState{}, domain.ErrNoFriendKey
	}
	if int64(len(data)) > svc.maxSize {
		return domain.FileTransferState{}, fmt.Errorf("%w: %d bytes", domain.ErrBlobTooLarge, len(data))
	}

	state := svc.track(&domain.FileTransferState{
		TempID: uuid.NewString(),
		Name:   name,
		Status: domain.FileUploading,
	})

	stamp := svc.stamp()
	entry := domain.ChatMessage{
		ID:       stamp,
		TS:       stamp,
		Sender:   svc.self,
		Text:     fmt.Sprintf("[Uploading %q]", name),
		IsFile:   true,
		FileName: name,
	}
	s.Append(entry)
	svc.notify(s, entry)

	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := rand.Read(key); err != nil {
		return svc.fail(s, state, entry.ID, err)
	}
	sealed, err := sealBlob(key, data)
	if err != nil {
		return svc.fail(s, state, entry.ID, err)
	}

	blobCID, err := svc.store.Upload(ctx, sealed, name+".enc")
	if err != nil {
		return svc.fail(s, state, entry.ID, fmt.Errorf("upload %q: %w", name, err))
	}
	wrappedKey, err := crypto.Encrypt(friendKey, []byte(hex.EncodeToString(key)))
	if err != nil {
		return svc.fail(s, state, entry.ID, err)
	}

	env, err := envelope.File(domain.FilePayload{
		CID:        blobCID.String(),
		WrappedKey: wrappedKey,
		Name:       name,
	})
	if err != nil {
		return svc.fail(s, state, entry.ID, err)
	}
	if err := s.Send(env); err != nil {
		return svc.fail(s, state, entry.ID, fmt.Errorf("send pointer for %q: %w", name, err))
	}

	svc.mu.Lock()
	state.CID = blobCID.String()
	state.WrappedKey = wrappedKey
	state.Status = domain.FileSent
	snapshot := *state
	svc.mu.Unlock()

	svc.updateEntry(s, entry.ID, func(m *domain.ChatMessage) {
		m.Text = fmt.Sprintf("[You sent file: %q]", name)
	})
	return snapshot, nil
}

// HandleIncoming reacts to a file pointer from the peer: a placeholder
// log entry appears immediately, then unwrap, fetch, and decrypt run in
// the background and replace the placeholder in place.
func (svc *Service) HandleIncoming(ctx context.Context, s *session.Session, p domain.FilePayload) {
	stamp := svc.stamp()
	entry := domain.ChatMessage{
		ID:       stamp,
		TS:       stamp,
		Sender:   domain.PartyID(s.Peer()),
		Text:     fmt.Sprintf("[Receiving file %q - downloading...]", p.Name),
		IsFile:   true,
		FileName: p.Name,
	}
	s.Append(entry)
	svc.notify(s, entry)

	state := svc.track(&domain.FileTransferState{
		TempID:     uuid.NewString(),
		CID:        p.CID,
		WrappedKey: p.WrappedKey,
		Name:       p.Name,
		Status:     domain.FileFetching,
	})

	go svc.fetch(ctx, s, state, entry.ID, p)
}

func (svc *Service) fetch(ctx context.Context, s *session.Session, state *domain.FileTransferState, entryID int64, p domain.FilePayload) {
	keyHex, err := crypto.Decrypt(svc.id.Private, p.WrappedKey)
	if err != nil {
		svc.failAsync(s, state, entryID, fmt.Errorf("unwrap key for %q: %w", p.Name, err))
		return
	}
	key, err := hex.DecodeString(string(keyHex))
	if err != nil || len(key) != chacha20poly1305.KeySize {
		svc.failAsync(s, state, entryID, fmt.Errorf("unwrap key for %q: %w", p.Name, ErrBadBlob))
		return
	}

	blobCID, err := cid.Decode(p.CID)
	if err != nil {
		svc.failAsync(s, state, entryID, fmt.Errorf("content address %q: %w", p.CID, err))
		return
	}
	sealed, err := svc.store.Fetch(ctx, blobCID)
	if err != nil {
		svc.failAsync(s, state, entryID, fmt.Errorf("fetch %s: %w", p.CID, err))
		return
	}
	plain, err := openBlob(key, sealed)
	if err != nil {
		svc.failAsync(s, state, entryID, fmt.Errorf("decrypt %q: %w", p.Name, err))
		return
	}

	svc.mu.Lock()
	state.Status = domain.FileDecrypted
	svc.mu.Unlock()

	svc.updateEntry(s, entryID, func(m *domain.ChatMessage) {
		m.Text = fmt.Sprintf("[File received: %q]", p.Name)
		m.FileData = plain
		m.Verified = true
	})
}

func (svc *Service) track(state *domain.FileTransferState) *domain.FileTransferState {
	svc.mu.Lock()
	svc.transfers[state.TempID] = state
	svc.mu.Unlock()
	return state
}

// fail flags the transfer and its log entry, leaving every other
// transfer and the session untouched.
func (svc *Service) fail(s *session.Session, state *domain.FileTransferState, entryID int64, err error) (domain.FileTransferState, error) {
	svc.failAsync(s, state, entryID, err)
	svc.mu.Lock()
	snapshot := *state
	svc.mu.Unlock()
	return snapshot, err
}

func (svc *Service) failAsync(s *session.Session, state *domain.FileTransferState, entryID int64, err error) {
	svc.logger.Warn("file transfer failed",
		zap.String("name", state.Name), zap.Error(err))
	svc.mu.Lock()
	state.Status = domain.FileFailed
	state.Error = err.Error()
	svc.mu.Unlock()

	svc.updateEntry(s, entryID, func(m *domain.ChatMessage) {
		m.Failed = true
		m.Error = err.Error()
		m.Text = fmt.Sprintf("[File transfer failed: %q]", state.Name)
	})
}

func (svc *Service) updateEntry(s *session.Session, id int64, fn func(*domain.ChatMessage)) {
	var updated domain.ChatMessage
	found := s.Update(id, func(m *domain.ChatMessage) {
		fn(m)
		updated = *m
	})
	if found {
		svc.notify(s, updated)
	}
}

func (svc *Service) notify(s *session.Session, m domain.ChatMessage) {
	if svc.OnUpdate != nil {
		svc.OnUpdate(s, m)
	}
}

// sealBlob encrypts file bytes as nonce || ciphertext.
func sealBlob(key, plain []byte) ([]byte, error) {
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, chacha20poly1305.NonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}
	return append(nonce, aead.Seal(nil, nonce, plain, nil)...), nil
}

func openBlob(key, blob []byte) ([]byte, error) {
	if len(blob) < chacha20poly1305.NonceSize {
		return nil, ErrBadBlob
	}
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, err
	}
	plain, err := aead.Open(nil, blob[:chacha20poly1305.NonceSize], blob[chacha20poly1305.NonceSize:], nil)
	if err != nil {
		return nil, ErrBadBlob
	}
	return plain, nil
}

var _ session.FileHandler = (*Service)(nil)
