// Package transport carries relay traffic over websockets. The Hub
// groups live connections by channel id and exposes a single group
// broadcast primitive; sessions and the dispatcher never touch a raw
// socket.
package transport

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"discord-relay/observability"
)

// Hub owns every live connection and the channel broadcast groups.
type Hub struct {
	log     *slog.Logger
	monitor *observability.Monitor

	mu     sync.RWMutex
	conns  map[string]*Conn
	groups map[string]map[string]*Conn

	upgrader   websocket.Upgrader
	sendBuffer int
}

func NewHub(log *slog.Logger, monitor *observability.Monitor, sendBuffer int) *Hub {
	return &Hub{
		log:     log,
		monitor: monitor,
		conns:   make(map[string]*Conn),
		groups:  make(map[string]map[string]*Conn),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// The browser app is served from its own origin.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		sendBuffer: sendBuffer,
	}
}

// Upgrade turns an authenticated HTTP request into a tracked
// connection. The caller wires handlers and then calls Start.
func (h *Hub) Upgrade(w http.ResponseWriter, r *http.Request) (*Conn, error) {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, err
	}
	return h.attach(ws), nil
}

// attach registers a connection over any wire, real or fake.
func (h *Hub) attach(ws wire) *Conn {
	c := &Conn{
		id:   uuid.NewString(),
		hub:  h,
		ws:   ws,
		log:  h.log,
		send: make(chan []byte, h.sendBuffer),
		done: make(chan struct{}),
	}

	h.mu.Lock()
	h.conns[c.id] = c
	h.mu.Unlock()
	h.monitor.ConnectionOpened()

	return c
}

// Publish delivers one payload to every connection currently in the
// channel's group. The frame is marshalled once, not per subscriber.
func (h *Hub) Publish(channelID, eventName string, payload any) {
	raw, err := json.Marshal(frame{Event: eventName, Data: payload})
	if err != nil {
		h.monitor.DeliveryFailure()
		h.log.Error("Broadcast marshalling failed", "channel", channelID, "event", eventName, "err", err)
		return
	}

	h.mu.RLock()
	members := make([]*Conn, 0, len(h.groups[channelID]))
	for _, c := range h.groups[channelID] {
		members = append(members, c)
	}
	h.mu.RUnlock()

	for _, c := range members {
		select {
		case <-c.done:
		case c.send <- raw:
		default:
			h.monitor.FrameDropped()
			h.log.Warn("Send buffer full during broadcast", "conn", c.id, "channel", channelID, "event", eventName)
		}
	}
}

func (h *Hub) join(c *Conn, channelID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.groups[channelID]; !ok {
		h.groups[channelID] = make(map[string]*Conn)
	}
	h.groups[channelID][c.id] = c
}

func (h *Hub) leave(c *Conn, channelID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeFromGroup(c, channelID)
}

// remove drops a connection from the hub and every group it is in.
func (h *Hub) remove(c *Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.conns[c.id]; !ok {
		return
	}
	delete(h.conns, c.id)
	for channelID := range h.groups {
		h.removeFromGroup(c, channelID)
	}
	h.monitor.ConnectionClosed()
}

// removeFromGroup must be called with the lock held. Empty groups are
// deleted so the map mirrors the registry's no-dangling-topics rule.
func (h *Hub) removeFromGroup(c *Conn, channelID string) {
	members, ok := h.groups[channelID]
	if !ok {
		return
	}
	delete(members, c.id)
	if len(members) == 0 {
		delete(h.groups, channelID)
	}
}

// GroupSize reports how many connections are in a channel's group.
func (h *Hub) GroupSize(channelID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.groups[channelID])
}

// ConnectionCount reports the number of live connections.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}
