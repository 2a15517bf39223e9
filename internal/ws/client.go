package ws

import (
	"context"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/behark/car-wash-premium-migrated-sub002/internal/dto"
	"github.com/behark/car-wash-premium-migrated-sub002/pkg/logger"
)

const (
	// writeWait is the deadline for a single write
	writeWait = 10 * time.Second
	// pongWait is how long to wait for a pong before dropping the peer
	pongWait = 60 * time.Second
	// pingPeriod must be shorter than pongWait
	pingPeriod = (pongWait * 9) / 10
	// maxMessageSize bounds inbound frames
	maxMessageSize = 4096
	// sendBufferSize bounds the outbound queue per connection
	sendBufferSize = 64
)

// Client pumps frames between one websocket peer and its Session.
// Outbound delivery is non-blocking: when the send buffer is full the
// message is dropped and the subscriber catches up on the next update.
type Client struct {
	id   string
	conn *websocket.Conn
	send chan dto.Outbound
	done chan struct{}
	log  *logger.Logger
}

// NewClient wraps an upgraded websocket connection
func NewClient(id string, conn *websocket.Conn) *Client {
	return &Client{
		id:   id,
		conn: conn,
		send: make(chan dto.Outbound, sendBufferSize),
		done: make(chan struct{}),
		log:  logger.Get().With(zap.String("connection_id", id)),
	}
}

// ID returns the connection id
func (c *Client) ID() string { return c.id }

// Send queues a message for delivery, reporting false when dropped
func (c *Client) Send(msg dto.Outbound) bool {
	select {
	case <-c.done:
		return false
	default:
	}

	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

// ReadPump reads frames and hands them to the session until the peer
// goes away. It must run on the connection's goroutine.
func (c *Client) ReadPump(ctx context.Context, session *Session) {
	defer func() {
		session.Close()
		close(c.done)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Warn("unexpected close", zap.Error(err))
			}
			return
		}
		session.HandleMessage(ctx, raw)
	}
}

// WritePump drains the send queue and keeps the connection alive with
// pings. Runs on its own goroutine.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				c.log.Debug("write failed", zap.Error(err))
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.done:
			return
		}
	}
}
