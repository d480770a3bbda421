package ws

import (
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/jweese001/threejs-ide/internal/bridge"
	"github.com/jweese001/threejs-ide/internal/logging"
)

const (
	// maxMessageSize bounds one inbound frame; captured frames are the
	// largest legitimate payload.
	maxMessageSize = 1 << 20

	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// NewUpgrader builds an upgrader whose origin check matches the Origin
// header against doublestar glob patterns, e.g. "https://*.example.dev".
// Rejected upgrades are logged with the offending origin.
func NewUpgrader(allowedOrigins []string, log *logging.Logger) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			for _, pattern := range allowedOrigins {
				if ok, err := doublestar.Match(pattern, origin); err == nil && ok {
					return true
				}
			}
			log.Warn("rejected WebSocket upgrade", zap.String("origin", origin))
			return false
		},
	}
}

// Conn wraps one WebSocket connection. It satisfies bridge.Transport on
// the send side and pumps origin-stamped envelopes on the read side.
type Conn struct {
	conn   *websocket.Conn
	origin string
	log    *logging.Logger

	send   chan []byte
	closed chan struct{}
	once   sync.Once
}

// NewConn adopts an upgraded connection. Origin is the validated handshake
// origin; it stamps every envelope this connection produces.
func NewConn(conn *websocket.Conn, origin string, log *logging.Logger) *Conn {
	c := &Conn{
		conn:   conn,
		origin: origin,
		log:    log.Named("ws"),
		send:   make(chan []byte, 64),
		closed: make(chan struct{}),
	}
	go c.writeLoop()
	return c
}

// Send queues one outbound message. Satisfies bridge.Transport.
func (c *Conn) Send(data []byte) error {
	select {
	case <-c.closed:
		return errors.New("connection closed")
	case c.send <- data:
		return nil
	default:
		return errors.New("send buffer full")
	}
}

// Close tears the connection down. Satisfies bridge.Transport.
func (c *Conn) Close() error {
	c.once.Do(func() { close(c.closed) })
	return c.conn.Close()
}

// Done signals transport teardown so the owning session can unwind.
func (c *Conn) Done() <-chan struct{} {
	return c.closed
}

// ReadLoop pumps inbound frames to handle until the connection dies. Runs
// on the caller's goroutine; returns after Close or a read error.
func (c *Conn) ReadLoop(handle func(bridge.Envelope)) {
	defer c.Close()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Warn("WebSocket read error", zap.Error(err))
			}
			return
		}
		handle(bridge.Envelope{Origin: c.origin, Data: data})
	}
}

// writeLoop is the single writer for the connection.
func (c *Conn) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-c.closed:
			c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			return
		case data := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				c.log.Warn("WebSocket write error", zap.Error(err))
				c.Close()
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.Close()
				return
			}
		}
	}
}
