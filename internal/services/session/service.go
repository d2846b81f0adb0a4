package session

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"ciphercomm/internal/domain"
	"ciphercomm/internal/protocol/envelope"
)

// FileHandler consumes incoming file-pointer envelopes. Implemented by
// the file transfer pipeline; wired in by the application.
type FileHandler interface {
	HandleIncoming(ctx context.Context, s *Session, p domain.FilePayload)
}

// FinalizeHandler consumes incoming finalize-recorded envelopes.
// Implemented by the finalization coordinator. from is the announcing
// party as stamped on the envelope.
type FinalizeHandler interface {
	HandleAnnouncement(ctx context.Context, s *Session, from domain.PartyID, p domain.FinalizePayload)
}

// Hooks notify the caller/UI layer. All fields are optional; handlers
// run on the session's event goroutine and must not block.
type Hooks struct {
	OnState   func(s *Session, state domain.SessionState)
	OnMessage func(s *Session, m domain.ChatMessage)
}

// Manager owns every peer session: connection lifecycle, the initial
// key-exchange handshake, and message send/receive.
//
// Exactly one active session per peer pair is supported. A second
// connect or accept while a session is Open/KeyExchanged is rejected and
// the existing session stays; the counterpart has to close first.
type Manager struct {
	logger    *zap.Logger
	id        domain.Identity
	self      domain.PartyID
	transport domain.Transport
	sealer    *envelope.Sealer
	files     FileHandler
	finalizer FinalizeHandler
	hooks     Hooks

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewManager wires a session manager for the local identity. files and
// finalizer may be nil, in which case the matching envelope kinds are
// logged and dropped.
func NewManager(
	logger *zap.Logger,
	id domain.Identity,
	self domain.PartyID,
	transport domain.Transport,
	files FileHandler,
	finalizer FinalizeHandler,
	hooks Hooks,
) *Manager {
	return &Manager{
		logger:    logger,
		id:        id,
		self:      self,
		transport: transport,
		sealer:    envelope.NewSealer(self),
		files:     files,
		finalizer: finalizer,
		hooks:     hooks,
		sessions:  make(map[string]*Session),
	}
}

// Sealer exposes the sender's logical clock so sibling pipelines stamp
// their local log entries consistently.
func (m *Manager) Sealer() *envelope.Sealer { return m.sealer }

// Self returns the local party identifier.
func (m *Manager) Self() domain.PartyID { return m.self }

// Session returns the session for peer, if one exists.
func (m *Manager) Session(peer string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[peer]
	return s, ok
}

// Connect dials peer and starts the handshake. Valid only when no
// active session with this peer exists.
func (m *Manager) Connect(ctx context.Context, peer string) (*Session, error) {
	if peer == "" {
		return nil, domain.ErrEmptyPeer
	}
	if m.id.Public == (domain.PublicKey{}) {
		return nil, domain.ErrNoIdentity
	}

	s, err := m.reserve(peer)
	if err != nil {
		return nil, err
	}
	s.setState(domain.SessionConnecting)
	m.notifyState(s)

	conn, err := m.transport.Dial(ctx, domain.PeerAddr(peer))
	if err != nil {
		s.setState(domain.SessionErrored)
		m.notifyState(s)
		return nil, fmt.Errorf("connect %s: %w", peer, err)
	}
	return s, m.open(s, conn)
}

// Accept adopts an inbound connection; downstream handling is identical
// to Connect. The connection is closed when a session is already active.
func (m *Manager) Accept(conn domain.Conn) (*Session, error) {
	if m.id.Public == (domain.PublicKey{}) {
		conn.Close()
		return nil, domain.ErrNoIdentity
	}
	s, err := m.reserve(conn.Remote())
	if err != nil {
		conn.Close()
		return nil, err
	}
	return s, m.open(s, conn)
}

// Serve accepts inbound connections until the listener fails or ctx is
// cancelled.
func (m *Manager) Serve(ctx context.Context, ln domain.Listener) error {
	for {
		conn, err := ln.Accept(ctx)
		if err != nil {
			return err
		}
		if _, err := m.Accept(conn); err != nil {
			m.logger.Warn("inbound connection rejected",
				zap.String("peer", conn.Remote()), zap.Error(err))
		}
	}
}

// SendText encrypts plaintext for the peer, appends the local log entry,
// and emits the message envelope. Sending requires the peer's public
// key; it does not wait for evidence the peer received ours.
func (m *Manager) SendText(s *Session, text string) (domain.ChatMessage, error) {
	friendKey, ok := s.FriendKey()
	if !ok {
		return domain.ChatMessage{}, domain.ErrNoFriendKey
	}
	env, msg, err := m.sealer.SealText(friendKey, text)
	if err != nil {
		return domain.ChatMessage{}, err
	}
	s.Append(msg)
	if err := s.Send(env); err != nil {
		m.logger.Error("send message", zap.String("peer", s.Peer()), zap.Error(err))
		return msg, fmt.Errorf("send to %s: %w", s.Peer(), err)
	}
	return msg, nil
}

// reserve registers a fresh session for peer, enforcing the single
// active session policy.
func (m *Manager) reserve(peer string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.sessions[peer]; ok && !existing.State().Terminal() {
		return nil, domain.ErrSessionActive
	}
	s := newSession(peer)
	m.sessions[peer] = s
	return s, nil
}

// open attaches the transport connection, announces our public key, and
// starts the session's single event-consuming goroutine.
func (m *Manager) open(s *Session, conn domain.Conn) error {
	s.attach(conn)
	s.setState(domain.SessionOpen)
	m.notifyState(s)

	if err := s.Send(envelope.KeyExchange(m.id.Public)); err != nil {
		m.logger.Error("key exchange send", zap.String("peer", s.Peer()), zap.Error(err))
		s.setState(domain.SessionErrored)
		m.notifyState(s)
		conn.Close()
		return fmt.Errorf("key exchange with %s: %w", s.Peer(), err)
	}

	go m.run(s, conn)
	return nil
}

// run is the per-session event queue: transport messages are processed
// to completion, one at a time, until the connection closes.
func (m *Manager) run(s *Session, conn domain.Conn) {
	for {
		raw, err := conn.ReadMessage()
		if err != nil {
			// Transport close (or terminal error). The pending finalize
			// proposal, if any, keeps running and records its result.
			m.logger.Info("connection closed",
				zap.String("peer", s.Peer()), zap.Error(err))
			s.drop()
			m.notifyState(s)
			return
		}
		env, err := envelope.Unmarshal(raw)
		if err != nil {
			m.logger.Warn("bad envelope", zap.String("peer", s.Peer()), zap.Error(err))
			continue
		}
		m.handle(s, env)
	}
}

func (m *Manager) handle(s *Session, env domain.Envelope) {
	switch env.Type {
	case domain.TypeKeyExchange:
		pub, err := envelope.PublicKeyFrom(env)
		if err != nil {
			m.logger.Warn("key exchange payload", zap.String("peer", s.Peer()), zap.Error(err))
			return
		}
		s.setFriendKey(pub)
		m.notifyState(s)

	case domain.TypeMessage:
		msg, err := envelope.OpenMessage(m.id.Private, env)
		if err != nil {
			// Scoped to this one message: the flagged entry still joins
			// the log with its cipher fields intact.
			m.logger.Warn("message decrypt", zap.String("peer", s.Peer()), zap.Error(err))
		}
		if msg.Cipher == nil {
			return // payload did not even parse
		}
		s.Append(msg)
		m.notifyMessage(s, msg)

	case domain.TypeFile:
		if m.files == nil {
			m.logger.Warn("file envelope dropped, no pipeline wired", zap.String("peer", s.Peer()))
			return
		}
		p, err := envelope.FileFrom(env)
		if err != nil {
			m.logger.Warn("file payload", zap.String("peer", s.Peer()), zap.Error(err))
			return
		}
		m.files.HandleIncoming(context.Background(), s, p)

	case domain.TypeFinalizeRecorded:
		if m.finalizer == nil {
			m.logger.Warn("finalize envelope dropped, no coordinator wired", zap.String("peer", s.Peer()))
			return
		}
		p, err := envelope.FinalizeFrom(env)
		if err != nil {
			m.logger.Warn("finalize payload", zap.String("peer", s.Peer()), zap.Error(err))
			return
		}
		m.finalizer.HandleAnnouncement(context.Background(), s, domain.PartyID(env.Sender), p)
	}
}

func (m *Manager) notifyState(s *Session) {
	if m.hooks.OnState != nil {
		m.hooks.OnState(s, s.State())
	}
}

func (m *Manager) notifyMessage(s *Session, msg domain.ChatMessage) {
	if m.hooks.OnMessage != nil {
		m.hooks.OnMessage(s, msg)
	}
}
