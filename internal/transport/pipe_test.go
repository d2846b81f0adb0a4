package transport_test

import (
	"bytes"
	"context"
	"io"
	"testing"
	"time"

	"ciphercomm/internal/transport"
)

func TestPipe_DeliversInOrder(t *testing.T) {
	a, b := transport.NewPipe("alice", "bob")

	for _, msg := range []string{"one", "two", "three"} {
		if err := a.WriteMessage([]byte(msg)); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	for _, want := range []string{"one", "two", "three"} {
		got, err := b.ReadMessage()
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		if !bytes.Equal(got, []byte(want)) {
			t.Fatalf("read %q, want %q", got, want)
		}
	}
}

func TestPipe_CloseDrainsThenEOF(t *testing.T) {
	a, b := transport.NewPipe("alice", "bob")

	if err := a.WriteMessage([]byte("parting words")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := a.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	// Buffered message survives the close; the next read reports EOF.
	got, err := b.ReadMessage()
	if err != nil {
		t.Fatalf("read after close: %v", err)
	}
	if !bytes.Equal(got, []byte("parting words")) {
		t.Fatalf("read %q, want %q", got, "parting words")
	}
	if _, err := b.ReadMessage(); err != io.EOF {
		t.Fatalf("expected EOF, got %v", err)
	}
	if err := b.WriteMessage([]byte("late")); err == nil {
		t.Fatal("write after close succeeded")
	}
}

func TestMemory_DialListen(t *testing.T) {
	tr := transport.NewMemory()
	ln, err := tr.Listen("bob")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	if ln.Addr() != "bob" {
		t.Fatalf("addr = %s, want bob", ln.Addr())
	}

	ctx := context.Background()
	dialed, err := tr.Dial(ctx, "bob")
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	accepted, err := ln.Accept(ctx)
	if err != nil {
		t.Fatalf("accept: %v", err)
	}

	if err := dialed.WriteMessage([]byte("ping")); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := accepted.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !bytes.Equal(got, []byte("ping")) {
		t.Fatalf("read %q, want ping", got)
	}
}

func TestMemory_DialNoListener(t *testing.T) {
	tr := transport.NewMemory()
	if _, err := tr.Dial(context.Background(), "nobody"); err == nil {
		t.Fatal("dial with no listener succeeded")
	}
}

func TestMemory_AcceptHonoursContext(t *testing.T) {
	tr := transport.NewMemory()
	ln, err := tr.Listen("bob")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := ln.Accept(ctx); err == nil {
		t.Fatal("accept returned without a connection")
	}
}
