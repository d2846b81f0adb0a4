package session

import (
	"sync"

	"ciphercomm/internal/domain"
	"ciphercomm/internal/protocol/envelope"
)

// Session is the explicit state bundle for one counterpart, owned by the
// Manager. The chat log is append-only: entries are never reordered or
// deleted, only appended or updated in place to attach derived fields.
type Session struct {
	peer string

	mu        sync.Mutex
	state     domain.SessionState
	conn      domain.Conn
	friendKey *domain.PublicKey
	log       []domain.ChatMessage
	record    *domain.FinalizationRecord
}

func newSession(peer string) *Session {
	return &Session{peer: peer, state: domain.SessionIdle}
}

// Peer returns the counterpart's identifier.
func (s *Session) Peer() string { return s.peer }

// State returns the current lifecycle state.
func (s *Session) State() domain.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) setState(st domain.SessionState) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

func (s *Session) attach(conn domain.Conn) {
	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()
}

// drop clears the connection handle and friend key on transport close.
func (s *Session) drop() {
	s.mu.Lock()
	s.conn = nil
	s.friendKey = nil
	s.state = domain.SessionClosed
	s.mu.Unlock()
}

// FriendKey returns the peer's public key once the handshake delivered it.
func (s *Session) FriendKey() (domain.PublicKey, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.friendKey == nil {
		return domain.PublicKey{}, false
	}
	return *s.friendKey, true
}

func (s *Session) setFriendKey(pub domain.PublicKey) {
	s.mu.Lock()
	s.friendKey = &pub
	s.state = domain.SessionKeyExchanged
	s.mu.Unlock()
}

// Send marshals and writes an envelope on the session's connection.
func (s *Session) Send(env domain.Envelope) error {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		return domain.ErrNotConnected
	}
	b, err := envelope.Marshal(env)
	if err != nil {
		return err
	}
	return conn.WriteMessage(b)
}

// Close tears down the transport connection; the session's read loop
// observes the close and performs the state transition.
func (s *Session) Close() error {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		return nil
	}
	return conn.Close()
}

// Append adds one entry to the chat log.
func (s *Session) Append(m domain.ChatMessage) {
	s.mu.Lock()
	s.log = append(s.log, m)
	s.mu.Unlock()
}

// Update replaces the entry with the given id in place, preserving its
// position. It reports whether the entry was found.
func (s *Session) Update(id int64, fn func(*domain.ChatMessage)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.log {
		if s.log[i].ID == id {
			fn(&s.log[i])
			return true
		}
	}
	return false
}

// Messages returns a snapshot of the chat log.
func (s *Session) Messages() []domain.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.ChatMessage(nil), s.log...)
}

// MergeFinalization folds an update into the session's finalization
// record, creating it on first use, and returns the merged copy. The
// merge is idempotent, so independently completing verification tasks
// can call it in any interleaving.
func (s *Session) MergeFinalization(u domain.FinalizationRecord) domain.FinalizationRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.record == nil {
		s.record = &domain.FinalizationRecord{}
	}
	s.record.Merge(u)
	return s.record.Clone()
}

// ResetFinalization discards the current record so a fresh proposal can
// supersede a mismatch. The previous outcome is returned if present.
func (s *Session) ResetFinalization() (domain.FinalizationRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.record == nil {
		return domain.FinalizationRecord{}, false
	}
	old := s.record.Clone()
	s.record = nil
	return old, true
}

// Finalization returns the current record, if any.
func (s *Session) Finalization() (domain.FinalizationRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.record == nil {
		return domain.FinalizationRecord{}, false
	}
	return s.record.Clone(), true
}
