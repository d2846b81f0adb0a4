package finalize_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"ciphercomm/internal/crypto"
	"ciphercomm/internal/domain"
	"ciphercomm/internal/services/finalize"
	"ciphercomm/internal/services/session"
	"ciphercomm/internal/transport"
)

// fakeLedger remembers anchored digests in process.
type fakeLedger struct {
	mu        sync.Mutex
	anchored  map[domain.Digest]bool
	submitErr error
	checkErr  error
	submits   int
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{anchored: make(map[domain.Digest]bool)}
}

func (l *fakeLedger) SubmitAnchor(ctx context.Context, hash domain.Digest) (domain.TxHash, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.submitErr != nil {
		return "", l.submitErr
	}
	l.submits++
	l.anchored[hash] = true
	return domain.TxHash(fmt.Sprintf("0xtx%04d", l.submits)), nil
}

func (l *fakeLedger) IsAnchored(ctx context.Context, hash domain.Digest) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.checkErr != nil {
		return false, l.checkErr
	}
	return l.anchored[hash], nil
}

var _ domain.Ledger = (*fakeLedger)(nil)

// pair is two connected parties with finalize coordinators wired in.
type pair struct {
	sessionA, sessionB *session.Session
	coordA, coordB     *finalize.Coordinator
	updatesB           chan domain.FinalizationRecord
}

// newPair brings up two managers over an in-process transport, completes
// the handshake, and exchanges one message each way so both logs agree.
func newPair(t *testing.T, ledgerA, ledgerB domain.Ledger) *pair {
	t.Helper()
	ctx := context.Background()
	tr := transport.NewMemory()

	p := &pair{updatesB: make(chan domain.FinalizationRecord, 32)}
	p.coordA = finalize.NewCoordinator(zap.NewNop(), ledgerA, "alice")
	p.coordB = finalize.NewCoordinator(zap.NewNop(), ledgerB, "bob")
	p.coordB.OnUpdate = func(_ *session.Session, r domain.FinalizationRecord) {
		p.updatesB <- r
	}

	keyedA := make(chan *session.Session, 4)
	keyedB := make(chan *session.Session, 4)
	gotB := make(chan domain.ChatMessage, 4)
	gotA := make(chan domain.ChatMessage, 4)

	idA, err := crypto.DeriveIdentity([]byte("alice-login-signature"))
	if err != nil {
		t.Fatalf("derive identity: %v", err)
	}
	idB, err := crypto.DeriveIdentity([]byte("bob-login-signature"))
	if err != nil {
		t.Fatalf("derive identity: %v", err)
	}

	mgrA := session.NewManager(zap.NewNop(), idA, "alice", tr, nil, p.coordA, session.Hooks{
		OnState: func(s *session.Session, st domain.SessionState) {
			if st == domain.SessionKeyExchanged {
				keyedA <- s
			}
		},
		OnMessage: func(_ *session.Session, m domain.ChatMessage) { gotA <- m },
	})
	mgrB := session.NewManager(zap.NewNop(), idB, "bob", tr, nil, p.coordB, session.Hooks{
		OnState: func(s *session.Session, st domain.SessionState) {
			if st == domain.SessionKeyExchanged {
				keyedB <- s
			}
		},
		OnMessage: func(_ *session.Session, m domain.ChatMessage) { gotB <- m },
	})

	ln, err := tr.Listen("bob")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	go mgrB.Serve(ctx, ln)

	if _, err := mgrA.Connect(ctx, "bob"); err != nil {
		t.Fatalf("connect: %v", err)
	}
	p.sessionA = recvSession(t, keyedA)
	p.sessionB = recvSession(t, keyedB)

	if _, err := mgrA.SendText(p.sessionA, "hello"); err != nil {
		t.Fatalf("send: %v", err)
	}
	recvMessage(t, gotB)
	if _, err := mgrB.SendText(p.sessionB, "hi back"); err != nil {
		t.Fatalf("reply: %v", err)
	}
	recvMessage(t, gotA)
	return p
}

func recvSession(t *testing.T, ch chan *session.Session) *session.Session {
	t.Helper()
	select {
	case s := <-ch:
		return s
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for session")
		return nil
	}
}

func recvMessage(t *testing.T, ch chan domain.ChatMessage) domain.ChatMessage {
	t.Helper()
	select {
	case m := <-ch:
		return m
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for message")
		return domain.ChatMessage{}
	}
}

// waitRecord drains updates until pred holds or the deadline hits.
func waitRecord(t *testing.T, ch chan domain.FinalizationRecord, pred func(domain.FinalizationRecord) bool) domain.FinalizationRecord {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case r := <-ch:
			if pred(r) {
				return r
			}
		case <-deadline:
			t.Fatal("timed out waiting for finalization record")
			return domain.FinalizationRecord{}
		}
	}
}

func TestPropose_MatchingLogsVerify(t *testing.T) {
	ledger := newFakeLedger()
	p := newPair(t, ledger, ledger)

	rec, err := p.coordA.Propose(context.Background(), p.sessionA)
	if err != nil {
		t.Fatalf("propose: %v", err)
	}
	if rec.Hash == "" || rec.TxHash == "" {
		t.Fatalf("proposal record incomplete: %+v", rec)
	}
	if _, ok := rec.ConfirmedBy["alice"]; !ok {
		t.Fatal("proposer missing from ConfirmedBy")
	}

	final := waitRecord(t, p.updatesB, func(r domain.FinalizationRecord) bool {
		return r.Verified != domain.VerdictPending
	})
	if final.Verified != domain.VerdictPass {
		t.Fatalf("combined verdict = %s, want pass (%+v)", final.Verified, final)
	}
	if final.VerifiedLocally != domain.VerdictPass || final.VerifiedOnChain != domain.VerdictPass {
		t.Fatalf("checks = local %s, chain %s, want both pass",
			final.VerifiedLocally, final.VerifiedOnChain)
	}
	if final.Hash != rec.Hash {
		t.Fatalf("peer verified %s, proposer anchored %s", final.Hash, rec.Hash)
	}
	if _, ok := final.ConfirmedBy["bob"]; !ok {
		t.Fatal("receiver missing from ConfirmedBy")
	}
	if _, ok := final.ConfirmedBy["alice"]; !ok {
		t.Fatal("proposer dropped from ConfirmedBy on the receiving side")
	}
}

func TestPropose_PeerMissingMessage(t *testing.T) {
	ledger := newFakeLedger()
	p := newPair(t, ledger, ledger)

	// An entry the peer never received: the proposer's fingerprint
	// covers it, the peer's recomputation cannot.
	other, err := crypto.DeriveIdentity([]byte("charlie-login-signature"))
	if err != nil {
		t.Fatalf("derive identity: %v", err)
	}
	cipher, err := crypto.Encrypt(other.Public, []byte("unsent"))
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	p.sessionA.Append(domain.ChatMessage{
		ID: 9_999_999_999_999, TS: 9_999_999_999_999,
		Sender: "alice", Text: "unsent", Cipher: &cipher,
	})

	if _, err := p.coordA.Propose(context.Background(), p.sessionA); err != nil {
		t.Fatalf("propose: %v", err)
	}
	final := waitRecord(t, p.updatesB, func(r domain.FinalizationRecord) bool {
		return r.VerifiedLocally != domain.VerdictPending &&
			r.VerifiedOnChain != domain.VerdictPending
	})
	if final.VerifiedLocally != domain.VerdictFail {
		t.Fatalf("local verdict = %s, want fail", final.VerifiedLocally)
	}
	// The anchor itself is genuine, so the ledger check passes while the
	// combined verdict still fails.
	if final.VerifiedOnChain != domain.VerdictPass {
		t.Fatalf("chain verdict = %s, want pass", final.VerifiedOnChain)
	}
	if final.Verified != domain.VerdictFail {
		t.Fatalf("combined verdict = %s, want fail", final.Verified)
	}
}

func TestPropose_AnchorMissingOnPeerLedger(t *testing.T) {
	// Separate ledgers: the peer's oracle definitively reports the hash
	// as not anchored even though the logs agree.
	p := newPair(t, newFakeLedger(), newFakeLedger())

	if _, err := p.coordA.Propose(context.Background(), p.sessionA); err != nil {
		t.Fatalf("propose: %v", err)
	}
	final := waitRecord(t, p.updatesB, func(r domain.FinalizationRecord) bool {
		return r.VerifiedLocally != domain.VerdictPending &&
			r.VerifiedOnChain != domain.VerdictPending
	})
	if final.VerifiedLocally != domain.VerdictPass {
		t.Fatalf("local verdict = %s, want pass", final.VerifiedLocally)
	}
	if final.VerifiedOnChain != domain.VerdictFail {
		t.Fatalf("chain verdict = %s, want fail", final.VerifiedOnChain)
	}
	if final.Verified != domain.VerdictFail {
		t.Fatalf("combined verdict = %s, want fail", final.Verified)
	}
}

func TestPropose_LedgerUnreachableStaysPending(t *testing.T) {
	ledgerA := newFakeLedger()
	ledgerB := newFakeLedger()
	ledgerB.checkErr = domain.ErrLedgerUnavailable
	p := newPair(t, ledgerA, ledgerB)

	if _, err := p.coordA.Propose(context.Background(), p.sessionA); err != nil {
		t.Fatalf("propose: %v", err)
	}
	waitRecord(t, p.updatesB, func(r domain.FinalizationRecord) bool {
		return r.VerifiedLocally == domain.VerdictPass
	})

	// Give the ledger check time to run; an unreachable oracle must not
	// produce a definitive verdict.
	time.Sleep(100 * time.Millisecond)
	rec, ok := p.sessionB.Finalization()
	if !ok {
		t.Fatal("no finalization record on peer")
	}
	if rec.VerifiedOnChain != domain.VerdictPending {
		t.Fatalf("chain verdict = %s, want pending", rec.VerifiedOnChain)
	}
	if rec.Verified != domain.VerdictPending {
		t.Fatalf("combined verdict = %s, want pending", rec.Verified)
	}
}

func TestPropose_EmptyLog(t *testing.T) {
	coord := finalize.NewCoordinator(zap.NewNop(), newFakeLedger(), "alice")
	s := emptySession(t)
	if _, err := coord.Propose(context.Background(), s); !errors.Is(err, domain.ErrEmptyLog) {
		t.Fatalf("expected ErrEmptyLog, got %v", err)
	}
}

// emptySession returns a key-exchanged session with an empty log.
func emptySession(t *testing.T) *session.Session {
	t.Helper()
	ctx := context.Background()
	tr := transport.NewMemory()

	idA, _ := crypto.DeriveIdentity([]byte("alice-login-signature"))
	idB, _ := crypto.DeriveIdentity([]byte("bob-login-signature"))

	keyed := make(chan *session.Session, 4)
	mgrA := session.NewManager(zap.NewNop(), idA, "alice", tr, nil, nil, session.Hooks{
		OnState: func(s *session.Session, st domain.SessionState) {
			if st == domain.SessionKeyExchanged {
				keyed <- s
			}
		},
	})
	mgrB := session.NewManager(zap.NewNop(), idB, "bob", tr, nil, nil, session.Hooks{})

	ln, err := tr.Listen("bob")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	go mgrB.Serve(ctx, ln)
	if _, err := mgrA.Connect(ctx, "bob"); err != nil {
		t.Fatalf("connect: %v", err)
	}
	return recvSession(t, keyed)
}

func TestPropose_SubmitFailure(t *testing.T) {
	ledger := newFakeLedger()
	p := newPair(t, ledger, ledger)

	ledger.mu.Lock()
	ledger.submitErr = domain.ErrLedgerUnavailable
	ledger.mu.Unlock()

	if _, err := p.coordA.Propose(context.Background(), p.sessionA); err == nil {
		t.Fatal("propose succeeded with failing ledger")
	}
	if _, ok := p.sessionA.Finalization(); ok {
		t.Fatal("failed proposal left a finalization record")
	}
}

func TestPropose_SupersedesMismatch(t *testing.T) {
	ledger := newFakeLedger()
	p := newPair(t, ledger, ledger)

	// First round: peer log diverges, verification fails.
	other, err := crypto.DeriveIdentity([]byte("charlie-login-signature"))
	if err != nil {
		t.Fatalf("derive identity: %v", err)
	}
	cipher, err := crypto.Encrypt(other.Public, []byte("late"))
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	extra := domain.ChatMessage{
		ID: 9_999_999_999_999, TS: 9_999_999_999_999,
		Sender: "alice", Text: "late", Cipher: &cipher,
	}
	p.sessionA.Append(extra)
	if _, err := p.coordA.Propose(context.Background(), p.sessionA); err != nil {
		t.Fatalf("propose: %v", err)
	}
	stuck := waitRecord(t, p.updatesB, func(r domain.FinalizationRecord) bool {
		return r.VerifiedLocally != domain.VerdictPending &&
			r.VerifiedOnChain != domain.VerdictPending
	})
	if stuck.Verified != domain.VerdictFail {
		t.Fatalf("first round verdict = %s, want fail", stuck.Verified)
	}

	// The peer catches up and a fresh proposal replaces the mismatch.
	// The re-proposal carries the identical hash: the proposer's log did
	// not change, only the peer's did. Round two is told apart by its
	// anchoring transaction.
	p.sessionB.Append(extra)
	rec, err := p.coordA.Propose(context.Background(), p.sessionA)
	if err != nil {
		t.Fatalf("second propose: %v", err)
	}
	if rec.Hash != stuck.Hash {
		t.Fatalf("re-proposal hash changed: %s vs %s", rec.Hash, stuck.Hash)
	}
	if rec.TxHash == stuck.TxHash {
		t.Fatalf("re-proposal reused transaction %s", rec.TxHash)
	}
	final := waitRecord(t, p.updatesB, func(r domain.FinalizationRecord) bool {
		return r.TxHash == rec.TxHash && r.Verified != domain.VerdictPending
	})
	if final.Verified != domain.VerdictPass {
		t.Fatalf("superseding verdict = %s, want pass", final.Verified)
	}
	if final.VerifiedLocally != domain.VerdictPass {
		t.Fatalf("superseding local verdict = %s, want pass", final.VerifiedLocally)
	}
}
