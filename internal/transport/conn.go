// ABOUTME: Websocket connection wrapper implementing the registry Sender interface
// ABOUTME: Serializes writes with a per-connection mutex as gorilla/websocket requires

package transport

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/2389/wallboard-relay/internal/protocol"
)

const (
	// writeWait bounds how long a single frame write may take.
	writeWait = 10 * time.Second

	// pongWait is how long we wait for any traffic before dropping the peer.
	pongWait = 60 * time.Second

	// pingPeriod must be shorter than pongWait.
	pingPeriod = (pongWait * 9) / 10
)

// wsConn wraps a websocket connection with a write mutex. gorilla/websocket
// allows only one concurrent writer, and the relay fan-out can hit the same
// connection from several goroutines.
type wsConn struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func newWSConn(conn *websocket.Conn) *wsConn {
	return &wsConn{conn: conn}
}

// Send writes one event frame. Implements registry.Sender.
func (c *wsConn) Send(ev protocol.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteJSON(ev)
}

// ping sends a websocket-level ping frame.
func (c *wsConn) ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
}

// closeWith sends a close frame with the given code and reason.
func (c *wsConn) closeWith(code int, reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason))
}
