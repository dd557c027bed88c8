// Package upstream adapts the external gateway collaborator: the
// websocket feed of normalized events it pushes, and the REST surface
// the relay queries for channel lists and profiles. Nothing in here
// knows about subscriptions or sessions.
package upstream

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"

	"discord-relay/domain"
	"discord-relay/domain/event"
)

// Gateway consumes the normalized event feed and pushes decoded
// events into the dispatcher's channel. It reconnects forever; the
// feed dropping is an upstream problem, not a relay crash.
type Gateway struct {
	log               *slog.Logger
	url               string
	events            chan<- event.DomainEvent
	reconnectInterval time.Duration
	dialer            *websocket.Dialer
}

func NewGateway(log *slog.Logger, url string, events chan<- event.DomainEvent,
	reconnectInterval time.Duration) *Gateway {
	return &Gateway{
		log:               log,
		url:               url,
		events:            events,
		reconnectInterval: reconnectInterval,
		dialer:            websocket.DefaultDialer,
	}
}

func (g *Gateway) Run(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return nil
		}

		conn, _, err := g.dialer.DialContext(ctx, g.url, nil)
		if err != nil {
			g.log.Warn("Gateway dial failed", "url", g.url, "err", err)
		} else {
			g.log.Info("Gateway feed connected", "url", g.url)
			g.consume(ctx, conn)
			_ = conn.Close()
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(g.reconnectInterval):
		}
	}
}

// consume reads frames until the feed errors or the context ends.
func (g *Gateway) consume(ctx context.Context, conn *websocket.Conn) {
	// ReadMessage has no context support; closing the socket from the
	// side unblocks it when the relay shuts down.
	readDone := make(chan struct{})
	defer close(readDone)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-readDone:
		}
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				g.log.Warn("Gateway feed lost", "err", err)
			}
			return
		}

		evt, ok := g.decode(raw)
		if !ok {
			continue
		}
		select {
		case <-ctx.Done():
			return
		case g.events <- evt:
		}
	}
}

// gatewayFrame is one feed frame: an op name plus its payload.
type gatewayFrame struct {
	Op   string          `json:"op"`
	Data json.RawMessage `json:"data"`
}

// wireUpdate extends the message shape with the partial marker the
// gateway sets when it could not fully load the edited record.
type wireUpdate struct {
	domain.Message
	Partial bool `json:"partial"`
}

func (g *Gateway) decode(raw []byte) (event.DomainEvent, bool) {
	var frame gatewayFrame
	if err := json.Unmarshal(raw, &frame); err != nil {
		g.log.Warn("Undecodable gateway frame", "err", err)
		return nil, false
	}

	switch frame.Op {
	case "message_create":
		var msg domain.Message
		if err := json.Unmarshal(frame.Data, &msg); err != nil {
			g.log.Warn("Bad message_create payload", "err", err)
			return nil, false
		}
		return event.MessageCreated{Message: msg}, true

	case "message_update":
		var upd wireUpdate
		if err := json.Unmarshal(frame.Data, &upd); err != nil {
			g.log.Warn("Bad message_update payload", "err", err)
			return nil, false
		}
		return event.MessageUpdated{
			Message:  upd.Message,
			EditedAt: parseEditedAt(upd.EditedTimestamp),
			Partial:  upd.Partial,
		}, true

	case "message_delete":
		var del domain.Deletion
		if err := json.Unmarshal(frame.Data, &del); err != nil {
			g.log.Warn("Bad message_delete payload", "err", err)
			return nil, false
		}
		return event.MessageDeleted{MessageID: del.MessageID, Channel: del.ChannelID}, true

	default:
		g.log.Debug("Ignoring gateway op", "op", frame.Op)
		return nil, false
	}
}

func parseEditedAt(timestamp string) time.Time {
	if ts, err := time.Parse(time.RFC3339, timestamp); err == nil {
		return ts
	}
	return time.Now().UTC()
}
