// Package workers contains the supervised long-running loops of the
// relay: upstream event dispatch and the supervisor that keeps them
// alive.
package workers

import (
	"context"
	"log/slog"
	"time"

	"discord-relay/contract"
	"discord-relay/domain"
	"discord-relay/domain/event"
	"discord-relay/observability"
)

// DispatchWorker drains the normalized upstream event stream and fans
// each event out to the channel's transport group. A single goroutine
// runs the loop, so events for a given channel reach subscribers in
// the order the upstream emitted them.
type DispatchWorker struct {
	log       *slog.Logger
	registry  contract.IRegistry
	publisher contract.Publisher
	formatter contract.Formatter
	monitor   *observability.Monitor

	events        <-chan event.DomainEvent
	formatTimeout time.Duration
}

func NewDispatchWorker(log *slog.Logger, registry contract.IRegistry,
	publisher contract.Publisher, formatter contract.Formatter,
	monitor *observability.Monitor, events <-chan event.DomainEvent,
	formatTimeout time.Duration) *DispatchWorker {
	return &DispatchWorker{
		log:           log,
		registry:      registry,
		publisher:     publisher,
		formatter:     formatter,
		monitor:       monitor,
		events:        events,
		formatTimeout: formatTimeout,
	}
}

func (w *DispatchWorker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping dispatcher")
			return nil
		case evt := <-w.events:
			w.relay(ctx, evt)
		}
	}
}

// relay handles exactly one event. Failures are contained here: a
// malformed event is logged and dropped, and the loop moves on to the
// next one for every other channel.
func (w *DispatchWorker) relay(ctx context.Context, evt event.DomainEvent) {
	defer func() {
		if r := recover(); r != nil {
			w.monitor.FormatFailure()
			w.log.Error("Panic while relaying event", "channel", evt.ChannelID(), "panic", r)
		}
	}()

	switch e := evt.(type) {
	case event.MessageCreated:
		w.relayMessage(ctx, e.Message, contract.EventMessage, "")
	case event.MessageUpdated:
		if e.Partial {
			// Half-loaded source records are never forwarded.
			w.monitor.EventDropped()
			return
		}
		w.relayMessage(ctx, e.Message, contract.EventMessageUpdate,
			e.EditedAt.UTC().Format(time.RFC3339))
	case event.MessageDeleted:
		if !w.hasSubscribers(e.Channel) {
			return
		}
		w.publisher.Publish(e.Channel, contract.EventMessageDelete, domain.Deletion{
			MessageID: e.MessageID,
			ChannelID: e.Channel,
		})
		w.monitor.EventRelayed()
	default:
		w.log.Warn("Unknown upstream event kind", "channel", evt.ChannelID())
	}
}

func (w *DispatchWorker) relayMessage(ctx context.Context, msg domain.Message,
	eventName, editedTimestamp string) {
	// The relay's own gateway identity is a bot author; forwarding its
	// traffic would loop events straight back at it.
	if msg.Author.Bot {
		w.monitor.EventDropped()
		return
	}
	if !w.hasSubscribers(msg.ChannelID) {
		return
	}

	formatCtx, cancel := context.WithTimeout(ctx, w.formatTimeout)
	defer cancel()

	formatted, err := w.formatter.Format(formatCtx, msg)
	if err != nil {
		w.monitor.FormatFailure()
		w.log.Error("Formatting failed, dropping event",
			"channel", msg.ChannelID, "message", msg.ID, "err", err)
		return
	}

	if editedTimestamp != "" {
		formatted.Edited = true
		formatted.EditedTimestamp = editedTimestamp
	} else {
		formatted.Edited = false
	}

	w.publisher.Publish(msg.ChannelID, eventName, formatted)
	w.monitor.EventRelayed()
}

// hasSubscribers is the fan-out short-circuit: with nobody listening,
// no formatting work happens at all.
func (w *DispatchWorker) hasSubscribers(channelID string) bool {
	if len(w.registry.SubscribersOf(channelID)) == 0 {
		w.monitor.EventDropped()
		return false
	}
	return true
}
