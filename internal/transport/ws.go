package transport

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"ciphercomm/internal/domain"
)

// WS carries envelopes over WebSocket text messages. Dial addresses are
// ws:// URLs; listen addresses are host:port.
type WS struct {
	dialer   *websocket.Dialer
	upgrader websocket.Upgrader
}

func NewWS() *WS {
	return &WS{dialer: websocket.DefaultDialer}
}

func (t *WS) Dial(ctx context.Context, addr domain.PeerAddr) (domain.Conn, error) {
	c, resp, err := t.dialer.DialContext(ctx, addr.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("transport: dial %s: %w", addr, err)
	}
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	return &wsConn{conn: c}, nil
}

func (t *WS) Listen(addr domain.PeerAddr) (domain.Listener, error) {
	tcp, err := net.Listen("tcp", addr.String())
	if err != nil {
		return nil, fmt.Errorf("transport: listen %s: %w", addr, err)
	}
	ln := &wsListener{
		addr:    domain.PeerAddr(tcp.Addr().String()),
		backlog: make(chan domain.Conn, 8),
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		c, err := t.upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		ln.backlog <- &wsConn{conn: c}
	})
	ln.srv = &http.Server{Handler: mux}
	go ln.srv.Serve(tcp)
	return ln, nil
}

type wsConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *wsConn) WriteMessage(b []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, b)
}

func (c *wsConn) ReadMessage() ([]byte, error) {
	_, b, err := c.conn.ReadMessage()
	return b, err
}

func (c *wsConn) Close() error   { return c.conn.Close() }
func (c *wsConn) Remote() string { return c.conn.RemoteAddr().String() }

type wsListener struct {
	addr    domain.PeerAddr
	backlog chan domain.Conn
	srv     *http.Server
	once    sync.Once
}

func (l *wsListener) Accept(ctx context.Context) (domain.Conn, error) {
	select {
	case conn := <-l.backlog:
		return conn, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (l *wsListener) Close() error {
	var err error
	l.once.Do(func() { err = l.srv.Close() })
	return err
}

func (l *wsListener) Addr() domain.PeerAddr { return l.addr }
