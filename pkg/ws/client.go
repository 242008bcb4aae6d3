// Package ws is the websocket transport in front of the hub: one Client per
// persistent connection, with the usual gorilla read/write pump pair.
package ws

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/bucarabus/fleethub/internal/hub"
)

const (
	// writeWait is the deadline for a single outbound write.
	writeWait = 10 * time.Second

	// pongWait is how long a connection may stay silent before the read
	// pump gives up; pingPeriod keeps pongs coming. Liveness is inferred
	// solely from this ping/pong cycle; the hub layer has no freshness
	// timeout of its own.
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	maxMessageSize = 4096
	sendBufferSize = 256
)

var connSeq atomic.Uint64

// Client is one websocket session. It implements hub.Sender: the hub hands
// it marshaled frames and the write pump drains them.
type Client struct {
	id     string
	hub    *hub.Hub
	conn   *websocket.Conn
	logger *zap.Logger

	send      chan []byte
	closeOnce sync.Once
}

// NewClient wraps an upgraded connection. Call Start to register with the
// hub and begin pumping.
func NewClient(h *hub.Hub, conn *websocket.Conn, logger *zap.Logger) *Client {
	return &Client{
		id:     fmt.Sprintf("conn-%d", connSeq.Add(1)),
		hub:    h,
		conn:   conn,
		logger: logger,
		send:   make(chan []byte, sendBufferSize),
	}
}

// ID returns the session identifier the hub knows this client by.
func (c *Client) ID() string {
	return c.id
}

// Send queues a frame for delivery. Never blocks; reports false when the
// buffer is full so the hub can drop the slow consumer.
func (c *Client) Send(frame []byte) bool {
	select {
	case c.send <- frame:
		return true
	default:
		return false
	}
}

// Close shuts the outbound channel, ending the write pump. Safe to call
// more than once; the hub calls it from the disconnect cascade.
func (c *Client) Close() {
	c.closeOnce.Do(func() { close(c.send) })
}

// Start registers with the hub and runs both pumps.
func (c *Client) Start() {
	c.hub.Connect(c.id, c)
	go c.writePump()
	go c.readPump()
}

// readPump feeds inbound frames to the hub until the connection dies, then
// reports the disconnect. Events from one connection reach the hub in
// arrival order because this is the only goroutine reading from it.
func (c *Client) readPump() {
	defer func() {
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, frame, err := c.conn.ReadMessage()
		if err != nil {
			reason := "client closed"
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				reason = err.Error()
			}
			c.hub.Disconnect(c.id, reason)
			return
		}
		c.hub.HandleFrame(c.id, frame)
	}
}

// writePump drains the send buffer and keeps the connection alive with
// pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				c.logger.Debug("websocket write failed",
					zap.String("conn_id", c.id), zap.Error(err))
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
