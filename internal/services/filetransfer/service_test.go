package filetransfer_test

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ipfs/go-cid"
	"go.uber.org/zap"

	"ciphercomm/internal/blobstore"
	"ciphercomm/internal/crypto"
	"ciphercomm/internal/domain"
	"ciphercomm/internal/services/filetransfer"
	"ciphercomm/internal/services/session"
	"ciphercomm/internal/transport"
)

// party bundles one side's manager, file pipeline, and observation
// channels.
type party struct {
	mgr     *session.Manager
	files   *filetransfer.Service
	keyed   chan *session.Session
	entries chan domain.ChatMessage
}

func newParty(t *testing.T, name string, tr domain.Transport, store domain.BlobStore) *party {
	t.Helper()
	id, err := crypto.DeriveIdentity([]byte(name + "-login-signature"))
	if err != nil {
		t.Fatalf("derive identity: %v", err)
	}

	p := &party{
		keyed:   make(chan *session.Session, 4),
		entries: make(chan domain.ChatMessage, 32),
	}

	// The pipeline borrows the manager's logical clock, so the manager
	// reference is resolved lazily.
	p.files = filetransfer.New(zap.NewNop(), store, id, domain.PartyID(name),
		func() int64 { return p.mgr.Sealer().Stamp() })
	p.files.OnUpdate = func(_ *session.Session, m domain.ChatMessage) {
		p.entries <- m
	}
	p.mgr = session.NewManager(zap.NewNop(), id, domain.PartyID(name), tr,
		p.files, nil, session.Hooks{
			OnState: func(s *session.Session, st domain.SessionState) {
				if st == domain.SessionKeyExchanged {
					p.keyed <- s
				}
			},
		})
	return p
}

func connect(t *testing.T, tr *transport.Memory, alice, bob *party) (*session.Session, *session.Session) {
	t.Helper()
	ctx := context.Background()

	ln, err := tr.Listen("bob")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	go bob.mgr.Serve(ctx, ln)
	if _, err := alice.mgr.Connect(ctx, "bob"); err != nil {
		t.Fatalf("connect: %v", err)
	}

	wait := func(ch chan *session.Session) *session.Session {
		select {
		case s := <-ch:
			return s
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for key exchange")
			return nil
		}
	}
	return wait(alice.keyed), wait(bob.keyed)
}

func waitEntry(t *testing.T, ch chan domain.ChatMessage, pred func(domain.ChatMessage) bool) domain.ChatMessage {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case m := <-ch:
			if pred(m) {
				return m
			}
		case <-deadline:
			t.Fatal("timed out waiting for file log entry")
			return domain.ChatMessage{}
		}
	}
}

func TestSend_RoundTrip(t *testing.T) {
	tr := transport.NewMemory()
	store := blobstore.NewMemory()
	alice := newParty(t, "alice", tr, store)
	bob := newParty(t, "bob", tr, store)
	sA, _ := connect(t, tr, alice, bob)

	payload := []byte("attachment bytes, definitely not plaintext on the wire")
	state, err := alice.files.Send(context.Background(), sA, "notes.txt", payload)
	if err != nil {
		t.Fatalf("send file: %v", err)
	}
	if state.Status != domain.FileSent || state.CID == "" {
		t.Fatalf("sender state = %+v, want sent with cid", state)
	}

	got := waitEntry(t, bob.entries, func(m domain.ChatMessage) bool {
		return m.Verified && m.FileData != nil
	})
	if !bytes.Equal(got.FileData, payload) {
		t.Fatal("decrypted file differs from original")
	}
	if got.FileName != "notes.txt" || !got.IsFile {
		t.Fatalf("entry metadata wrong: %+v", got)
	}

	// The stored blob must not contain the plaintext.
	blobCID, err := cid.Decode(state.CID)
	if err != nil {
		t.Fatalf("decode cid: %v", err)
	}
	raw, err := store.Fetch(context.Background(), blobCID)
	if err != nil {
		t.Fatalf("fetch blob: %v", err)
	}
	if bytes.Contains(raw, payload) {
		t.Fatal("blob store holds plaintext")
	}

	// Sender's placeholder was replaced in place.
	var fileEntries int
	for _, m := range sA.Messages() {
		if m.IsFile {
			fileEntries++
			if m.Failed {
				t.Fatalf("sender entry flagged failed: %+v", m)
			}
		}
	}
	if fileEntries != 1 {
		t.Fatalf("sender log has %d file entries, want 1", fileEntries)
	}
	// Receiver's pipeline reports the transfer as decrypted.
	var decrypted int
	for _, st := range bob.files.Transfers() {
		if st.Status == domain.FileDecrypted {
			decrypted++
		}
	}
	if decrypted != 1 {
		t.Fatalf("receiver tracks %d decrypted transfers, want 1", decrypted)
	}
}

func TestSend_TooLarge(t *testing.T) {
	tr := transport.NewMemory()
	store := blobstore.NewMemory()
	alice := newParty(t, "alice", tr, store)
	bob := newParty(t, "bob", tr, store)
	sA, sB := connect(t, tr, alice, bob)

	alice.files.WithMaxSize(16)
	_, err := alice.files.Send(context.Background(), sA, "huge.bin", make([]byte, 17))
	if !errors.Is(err, domain.ErrBlobTooLarge) {
		t.Fatalf("expected ErrBlobTooLarge, got %v", err)
	}

	// Rejected before any side effect: no log entry, no transfer state,
	// nothing for the peer.
	if n := len(sA.Messages()); n != 0 {
		t.Fatalf("oversize send appended %d log entries", n)
	}
	if n := len(alice.files.Transfers()); n != 0 {
		t.Fatalf("oversize send tracked %d transfers", n)
	}
	if n := len(sB.Messages()); n != 0 {
		t.Fatalf("peer saw %d entries", n)
	}
}

func TestSend_BeforeKeyExchange(t *testing.T) {
	tr := transport.NewMemory()
	alice := newParty(t, "alice", tr, blobstore.NewMemory())
	conn, _ := transport.NewPipe("alice", "silent-peer")
	s, err := alice.mgr.Accept(conn)
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	if _, err := alice.files.Send(context.Background(), s, "f.txt", []byte("x")); !errors.Is(err, domain.ErrNoFriendKey) {
		t.Fatalf("expected ErrNoFriendKey, got %v", err)
	}
}

func TestFetch_FailureIsScoped(t *testing.T) {
	tr := transport.NewMemory()
	// Disjoint stores: the receiver cannot resolve the sender's blob.
	alice := newParty(t, "alice", tr, blobstore.NewMemory())
	bob := newParty(t, "bob", tr, blobstore.NewMemory())
	sA, sB := connect(t, tr, alice, bob)

	if _, err := alice.files.Send(context.Background(), sA, "gone.txt", []byte("data")); err != nil {
		t.Fatalf("send file: %v", err)
	}
	failed := waitEntry(t, bob.entries, func(m domain.ChatMessage) bool {
		return m.Failed
	})
	if failed.FileData != nil {
		t.Fatal("failed transfer still carries file data")
	}

	// The session survives: a normal message still goes through.
	done := make(chan domain.ChatMessage, 1)
	if _, err := alice.mgr.SendText(sA, "still here"); err != nil {
		t.Fatalf("send text after failed transfer: %v", err)
	}
	go func() {
		deadline := time.After(2 * time.Second)
		for {
			select {
			case <-deadline:
				close(done)
				return
			default:
			}
			for _, m := range sB.Messages() {
				if m.Text == "still here" && m.Verified {
					done <- m
					return
				}
			}
			time.Sleep(10 * time.Millisecond)
		}
	}()
	if m, ok := <-done; !ok || m.Text != "still here" {
		t.Fatal("text message after failed transfer never arrived")
	}
}
