package transport

import (
	"context"
	"fmt"
	"io"
	"net"
	"sync"

	"ciphercomm/internal/domain"
)

// NewPipe returns two connected in-memory conns. Closing either side
// ends both directions.
func NewPipe(remoteA, remoteB string) (domain.Conn, domain.Conn) {
	ab := make(chan []byte, 64)
	ba := make(chan []byte, 64)
	done := make(chan struct{})
	once := &sync.Once{}

	a := &pipeConn{remote: remoteB, send: ab, recv: ba, done: done, once: once}
	b := &pipeConn{remote: remoteA, send: ba, recv: ab, done: done, once: once}
	return a, b
}

type pipeConn struct {
	remote string
	send   chan<- []byte
	recv   <-chan []byte
	done   chan struct{}
	once   *sync.Once
}

func (c *pipeConn) WriteMessage(b []byte) error {
	// Check done first: with buffer capacity free, a two-way select
	// would pick a winner at random and let a write past a closed pipe.
	select {
	case <-c.done:
		return net.ErrClosed
	default:
	}
	msg := append([]byte(nil), b...)
	select {
	case <-c.done:
		return net.ErrClosed
	case c.send <- msg:
		return nil
	}
}

func (c *pipeConn) ReadMessage() ([]byte, error) {
	// Drain buffered messages before honouring close.
	select {
	case b := <-c.recv:
		return b, nil
	default:
	}
	select {
	case b := <-c.recv:
		return b, nil
	case <-c.done:
		return nil, io.EOF
	}
}

func (c *pipeConn) Close() error {
	c.once.Do(func() { close(c.done) })
	return nil
}

func (c *pipeConn) Remote() string { return c.remote }

// Memory is an in-process transport: listeners register under an
// address and dials hand them one end of a fresh pipe.
type Memory struct {
	mu        sync.Mutex
	listeners map[domain.PeerAddr]*memListener
}

func NewMemory() *Memory {
	return &Memory{listeners: make(map[domain.PeerAddr]*memListener)}
}

func (t *Memory) Listen(addr domain.PeerAddr) (domain.Listener, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.listeners[addr]; ok {
		return nil, fmt.Errorf("transport: address %s already in use", addr)
	}
	ln := &memListener{addr: addr, backlog: make(chan domain.Conn, 8), parent: t}
	t.listeners[addr] = ln
	return ln, nil
}

func (t *Memory) Dial(ctx context.Context, addr domain.PeerAddr) (domain.Conn, error) {
	t.mu.Lock()
	ln, ok := t.listeners[addr]
	t.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("transport: no listener at %s", addr)
	}
	local, remote := NewPipe("dialer", addr.String())
	select {
	case ln.backlog <- remote:
		return local, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (t *Memory) remove(addr domain.PeerAddr) {
	t.mu.Lock()
	delete(t.listeners, addr)
	t.mu.Unlock()
}

type memListener struct {
	addr    domain.PeerAddr
	backlog chan domain.Conn
	parent  *Memory
	once    sync.Once
}

func (l *memListener) Accept(ctx context.Context) (domain.Conn, error) {
	select {
	case conn := <-l.backlog:
		return conn, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (l *memListener) Close() error {
	l.once.Do(func() { l.parent.remove(l.addr) })
	return nil
}

func (l *memListener) Addr() domain.PeerAddr { return l.addr }
