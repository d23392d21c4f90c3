// Package ws exposes the three owners over websocket endpoints. One
// connection is one participant's notification handle; the connection
// doubles as the command channel for that owner's mutating operations.
package ws

import (
	"board-lab/domain/event"
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	maxMsgSize = 512 * 1024
)

// Envelope is the server-to-client frame: the event kind plus its payload.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Conn adapts one websocket connection into a contract.EventSink. Writes
// are serialized with a mutex because the registry pump, the ping loop and
// the error path on the read side all write to the same connection.
type Conn struct {
	log      *slog.Logger
	conn     *websocket.Conn
	userID   string
	username string

	writeMu   sync.Mutex
	closeOnce sync.Once
	closed    chan struct{}
}

func NewConn(log *slog.Logger, conn *websocket.Conn, userID, username string) *Conn {
	c := &Conn{
		log:      log,
		conn:     conn,
		userID:   userID,
		username: username,
		closed:   make(chan struct{}),
	}
	go c.pingLoop()
	return c
}

// Consume delivers one event to the remote participant. A write error is
// reported to the registry, which evicts this handle.
func (c *Conn) Consume(_ context.Context, e event.DomainEvent) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return c.write(Envelope{Type: e.Kind(), Payload: payload})
}

// SendError pushes a server-error envelope to this participant only.
func (c *Conn) SendError(text string) {
	payload, err := json.Marshal(event.ServerError{Text: text})
	if err != nil {
		return
	}
	if err := c.write(Envelope{Type: event.ServerError{}.Kind(), Payload: payload}); err != nil {
		c.log.Debug("Failed to send error frame", "user", c.userID, "err", err)
	}
}

func (c *Conn) write(env Envelope) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteJSON(env)
}

func (c *Conn) ping() error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(websocket.PingMessage, nil)
}

func (c *Conn) pingLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-c.closed:
			return
		case <-ticker.C:
			if err := c.ping(); err != nil {
				return
			}
		}
	}
}

// Close tears down the connection; safe to call more than once.
func (c *Conn) Close() {
	c.closeOnce.Do(func() {
		close(c.closed)
		_ = c.conn.Close()
	})
}

// readLoop feeds incoming command frames to handle until the connection
// drops, then runs the cleanup.
func (c *Conn) readLoop(handle func(raw []byte), cleanup func()) {
	defer func() {
		cleanup()
		c.Close()
	}()

	c.conn.SetReadLimit(maxMsgSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, payload, err := c.conn.ReadMessage()
		if err != nil {
			// read error ends the loop so the deferred cleanup can fire.
			return
		}
		handle(payload)
	}
}
