package transport

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
)

// wire is the subset of *websocket.Conn the transport relies on,
// narrowed so tests can drive a connection without a network socket.
type wire interface {
	ReadMessage() (int, []byte, error)
	WriteMessage(messageType int, data []byte) error
	SetReadLimit(limit int64)
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetPongHandler(h func(string) error)
	Close() error
}

// MessageHandler receives one decoded client frame. The ack callback
// delivers the operation's result object back to the requester; it is
// a no-op when the client did not ask for one.
type MessageHandler func(event string, data json.RawMessage, ack func(payload any))

// CloseHandler fires exactly once when the connection goes away, with
// an informational reason (network drop, explicit close, or heartbeat
// timeout all end up here).
type CloseHandler func(reason string)

// Conn is one client connection. Outbound frames go through a
// buffered send channel drained by a single writer goroutine; a full
// buffer drops the frame rather than block a broadcast.
type Conn struct {
	id  string
	hub *Hub
	ws  wire
	log *slog.Logger

	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once

	onMessage MessageHandler
	onClose   CloseHandler
}

func (c *Conn) ID() string { return c.id }

// OnMessage sets the frame handler. Must be called before Start.
func (c *Conn) OnMessage(h MessageHandler) { c.onMessage = h }

// OnClose sets the disconnect hook. Must be called before Start.
func (c *Conn) OnClose(h CloseHandler) { c.onClose = h }

// Start launches the read and write pumps. The caller configures
// handlers first; frames arriving before Start are held by the kernel.
func (c *Conn) Start() {
	go c.writePump()
	go c.readPump()
}

// Emit pushes a fire-and-forget notification to this connection.
func (c *Conn) Emit(eventName string, payload any) {
	c.enqueue(frame{Event: eventName, Data: payload})
}

// JoinGroup adds this connection to a channel's broadcast group.
func (c *Conn) JoinGroup(channelID string) {
	c.hub.join(c, channelID)
}

// LeaveGroup removes this connection from a channel's broadcast group.
func (c *Conn) LeaveGroup(channelID string) {
	c.hub.leave(c, channelID)
}

func (c *Conn) ack(id *int64, payload any) {
	if id == nil {
		return
	}
	c.enqueue(frame{Event: ackEvent, Data: payload, AckID: id})
}

func (c *Conn) enqueue(f frame) {
	raw, err := json.Marshal(f)
	if err != nil {
		c.log.Error("Frame marshalling failed", "conn", c.id, "event", f.Event, "err", err)
		return
	}
	select {
	case <-c.done:
	case c.send <- raw:
	default:
		// Slow consumer: losing a frame beats stalling every other connection.
		c.hub.monitor.FrameDropped()
		c.log.Warn("Send buffer full, dropping frame", "conn", c.id, "event", f.Event)
	}
}

func (c *Conn) readPump() {
	reason := "connection closed"
	defer func() {
		c.shutdown(reason)
	}()

	c.ws.SetReadLimit(maxMessageSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				reason = fmt.Sprintf("transport error: %v", err)
			}
			return
		}

		var env Envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			c.log.Warn("Undecodable frame", "conn", c.id, "err", err)
			continue
		}
		if c.onMessage != nil {
			ackID := env.AckID
			c.onMessage(env.Event, env.Data, func(payload any) {
				c.ack(ackID, payload)
			})
		}
	}
}

func (c *Conn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.ws.Close()
	}()

	for {
		select {
		case <-c.done:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.ws.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case raw := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, raw); err != nil {
				c.hub.monitor.DeliveryFailure()
				c.log.Warn("Write failed", "conn", c.id, "err", err)
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// shutdown runs the teardown path exactly once, no matter how many
// racing failures try to trigger it.
func (c *Conn) shutdown(reason string) {
	c.closeOnce.Do(func() {
		c.hub.remove(c)
		close(c.done)
		if c.onClose != nil {
			c.onClose(reason)
		}
	})
}

// Close tears the connection down from the server side.
func (c *Conn) Close(reason string) {
	_ = c.ws.Close()
	c.shutdown(reason)
}
