package finalize

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"ciphercomm/internal/domain"
	"ciphercomm/internal/protocol/envelope"
	"ciphercomm/internal/protocol/fingerprint"
	"ciphercomm/internal/services/session"
)

// Coordinator anchors and cross-verifies chat fingerprints. One
// coordinator serves all sessions of the local party.
type Coordinator struct {
	logger *zap.Logger
	ledger domain.Ledger
	self   domain.PartyID

	// OnUpdate, when set, observes every merge into a finalization
	// record. Called from verification goroutines; must not block.
	OnUpdate func(s *session.Session, r domain.FinalizationRecord)
}

// NewCoordinator returns a coordinator anchoring through ledger.
func NewCoordinator(logger *zap.Logger, ledger domain.Ledger, self domain.PartyID) *Coordinator {
	return &Coordinator{logger: logger, ledger: ledger, self: self}
}

// Propose fingerprints the local log, anchors the digest on the ledger,
// and announces the recorded hash to the peer. It blocks until the
// ledger confirms; closing the session meanwhile does not cancel the
// submission. An anchoring failure is recoverable: the proposal may be
// retried from scratch.
func (c *Coordinator) Propose(ctx context.Context, s *session.Session) (domain.FinalizationRecord, error) {
	messages := s.Messages()
	if len(messages) == 0 {
		return domain.FinalizationRecord{}, domain.ErrEmptyLog
	}
	hash := fingerprint.Compute(messages)

	c.logger.Info("anchoring chat fingerprint",
		zap.String("peer", s.Peer()), zap.String("hash", hash.String()))
	tx, err := c.ledger.SubmitAnchor(ctx, hash)
	if err != nil {
		return domain.FinalizationRecord{}, fmt.Errorf("anchor %s: %w", hash, err)
	}

	// A fresh proposal supersedes any earlier record, including a
	// terminal mismatch.
	if old, ok := s.ResetFinalization(); ok {
		c.logger.Info("superseding finalization record",
			zap.String("peer", s.Peer()), zap.String("old_hash", old.Hash.String()))
	}
	merged := s.MergeFinalization(domain.NewFinalizationRecord(hash, tx, c.self))
	c.notify(s, merged)

	if err := s.Send(envelope.Finalize(c.self, hash, tx)); err != nil {
		// The anchor exists either way; the record stays so the peer can
		// still verify out of band or after a reconnect.
		return merged, fmt.Errorf("announce %s: %w", hash, err)
	}
	return merged, nil
}

// HandleAnnouncement reacts to a peer's finalize-recorded envelope. The
// local recomputation and the ledger cross-check run as independent
// tasks, each merging its verdict into the record; neither is cancelled
// by the session closing.
func (c *Coordinator) HandleAnnouncement(ctx context.Context, s *session.Session, from domain.PartyID, p domain.FinalizePayload) {
	// A new announcement supersedes any concluded record, including a
	// terminal mismatch that re-announces the same hash after the peer
	// caught up. Only a still-pending record for the same hash keeps
	// accumulating verdicts.
	if old, ok := s.Finalization(); ok && (old.Hash != p.Hash || old.Verified != domain.VerdictPending) {
		s.ResetFinalization()
	}
	confirmed := map[domain.PartyID]struct{}{c.self: {}}
	if from != "" {
		confirmed[from] = struct{}{}
	}
	merged := s.MergeFinalization(domain.FinalizationRecord{
		Hash:        p.Hash,
		TxHash:      p.TxHash,
		ConfirmedBy: confirmed,
	})
	c.notify(s, merged)

	go c.verifyLocal(s, p.Hash)
	go c.verifyOnLedger(ctx, s, p.Hash)
}

// verifyLocal recomputes the fingerprint over our own log and compares
// it to the announced hash. A mismatch is definitive and terminal: a
// message still in flight when the proposer hashed is an expected,
// surfaced disagreement, not something to paper over.
func (c *Coordinator) verifyLocal(s *session.Session, announced domain.Digest) {
	verdict := domain.VerdictFail
	if fingerprint.Compute(s.Messages()) == announced {
		verdict = domain.VerdictPass
	}
	merged := s.MergeFinalization(domain.FinalizationRecord{VerifiedLocally: verdict})
	if verdict == domain.VerdictFail {
		c.logger.Warn("local fingerprint disagrees with announcement",
			zap.String("peer", s.Peer()), zap.String("announced", announced.String()))
	}
	c.notify(s, merged)
}

// verifyOnLedger asks the oracle whether the announced hash is
// anchored. An unreachable ledger or absent contract is unknown, not
// false: the verdict stays pending and a later check may settle it.
func (c *Coordinator) verifyOnLedger(ctx context.Context, s *session.Session, announced domain.Digest) {
	anchored, err := c.ledger.IsAnchored(ctx, announced)
	if err != nil {
		c.logger.Warn("ledger cross-check unavailable",
			zap.String("peer", s.Peer()), zap.Error(err))
		return
	}
	verdict := domain.VerdictFail
	if anchored {
		verdict = domain.VerdictPass
	}
	merged := s.MergeFinalization(domain.FinalizationRecord{VerifiedOnChain: verdict})
	c.notify(s, merged)
}

func (c *Coordinator) notify(s *session.Session, r domain.FinalizationRecord) {
	if c.OnUpdate != nil {
		c.OnUpdate(s, r)
	}
}

var _ session.FinalizeHandler = (*Coordinator)(nil)
