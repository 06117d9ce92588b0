package engine

import (
	"encoding/json"
	"errors"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait    = 10 * time.Second
	maxFrameSize = 8192
)

// client is one live attached connection. The registry fields (role, side,
// muted, warnings, closed) are guarded by the owning room's mutex; the pumps
// only touch conn and the send channel.
type client struct {
	id       uuid.UUID
	identity Identity
	role     Role
	side     Side
	joinedAt time.Time
	muted    bool
	warnings int

	room *room
	conn Conn
	send chan []byte
	part *ParticipationRecord

	// closed is set under the room mutex before the send channel is shut,
	// so enqueue never races a close.
	closed    bool
	closeOnce sync.Once
	closeCode int
}

func newClient(r *room, conn Conn, identity Identity, role Role, side Side) *client {
	return &client{
		id:       uuid.New(),
		identity: identity,
		role:     role,
		side:     side,
		joinedAt: time.Now(),
		room:     r,
		conn:     conn,
		send:     make(chan []byte, r.opts.SendQueueDepth),
	}
}

// enqueue offers a frame to the outbound queue without blocking. A false
// return means the consumer is not keeping up and must be detached. Callers
// hold the room mutex.
func (c *client) enqueue(data []byte) bool {
	if c.closed {
		return true
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

// shutdown closes the outbound queue exactly once, recording the close code
// the write pump will hand to the peer.
func (c *client) shutdown(code int) {
	c.closeOnce.Do(func() {
		c.closeCode = code
		close(c.send)
	})
}

// readPump reads inbound frames until the transport fails or is closed.
// A read error is an implicit detach: other connections only observe it as a
// normal user_left. An expired read deadline is the idle window running out,
// reported to the peer with its own close code.
func (c *client) readPump() {
	code := CloseNormal
	defer func() {
		c.room.detach(c, code)
		c.conn.Close()
	}()

	idle := c.room.opts.IdleTimeout
	c.conn.SetReadLimit(maxFrameSize)
	c.conn.SetReadDeadline(time.Now().Add(idle))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(idle))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				code = CloseIdleTimeout
			}
			return
		}
		c.conn.SetReadDeadline(time.Now().Add(idle))

		var cmd Command
		if err := json.Unmarshal(data, &cmd); err != nil {
			c.room.unicastError(c, "protocol_error", "malformed frame")
			continue
		}
		c.room.handleCommand(c, cmd)
	}
}

// writePump serves the outbound queue and keeps the transport alive with
// pings. Network writes never happen under the room mutex.
func (c *client) writePump() {
	pingPeriod := c.room.opts.IdleTimeout * 9 / 10
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				msg := websocket.FormatCloseMessage(c.closeCode, "")
				c.conn.WriteMessage(websocket.CloseMessage, msg)
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *client) rosterEntry() RosterEntry {
	return RosterEntry{
		UserID:   c.identity.ID,
		Username: c.identity.Username,
		Role:     c.role,
		Side:     c.side,
		Muted:    c.muted,
		Warnings: c.warnings,
		JoinedAt: c.joinedAt,
	}
}
