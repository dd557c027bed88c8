package workers

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"discord-relay/domain"
	"discord-relay/domain/event"
	"discord-relay/observability"
	"discord-relay/runtime"
)

type recordingPublisher struct {
	mu        sync.Mutex
	published []publication
}

type publication struct {
	channel string
	event   string
	payload any
}

func (p *recordingPublisher) Publish(channelID, eventName string, payload any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.published = append(p.published, publication{channel: channelID, event: eventName, payload: payload})
}

func (p *recordingPublisher) all() []publication {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]publication(nil), p.published...)
}

// countingFormatter makes formatting work observable, so the
// zero-subscribers short-circuit can be asserted directly.
type countingFormatter struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (f *countingFormatter) Format(_ context.Context, msg domain.Message) (domain.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return domain.Message{}, f.err
	}
	return msg, nil
}

func (f *countingFormatter) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func newTestDispatcher() (*DispatchWorker, *runtime.Registry, *recordingPublisher, *countingFormatter, chan event.DomainEvent) {
	registry := runtime.NewRegistry()
	publisher := &recordingPublisher{}
	formatter := &countingFormatter{}
	events := make(chan event.DomainEvent, 16)
	worker := NewDispatchWorker(slog.Default(), registry, publisher, formatter,
		observability.NewMonitor(), events, time.Second)
	return worker, registry, publisher, formatter, events
}

func created(channelID, messageID, content string) event.MessageCreated {
	return event.MessageCreated{Message: domain.Message{
		ID:        messageID,
		Content:   content,
		Author:    domain.Author{ID: "author-1", Username: "ada"},
		ChannelID: channelID,
	}}
}

func TestDispatcher_Skips_All_Formatting_Without_Subscribers(t *testing.T) {
	req := require.New(t)
	worker, _, publisher, formatter, _ := newTestDispatcher()

	// Given a channel nobody subscribed to
	worker.relay(context.Background(), created("empty", "m1", "hello"))

	// Then zero formatting side effects happened
	req.Zero(formatter.count())
	req.Empty(publisher.all())
}

func TestDispatcher_Created_Reaches_Subscriber(t *testing.T) {
	req := require.New(t)
	worker, registry, publisher, _, _ := newTestDispatcher()

	// Given U1 joined "general"
	registry.Subscribe("general", "U1")

	// When a created event with content "hello" arrives
	worker.relay(context.Background(), created("general", "m1", "hello"))

	// Then exactly one message notification goes out, unedited
	published := publisher.all()
	req.Len(published, 1)
	req.Equal("general", published[0].channel)
	req.Equal("message", published[0].event)

	msg, ok := published[0].payload.(domain.Message)
	req.True(ok)
	req.Equal("hello", msg.Content)
	req.False(msg.Edited)
}

func TestDispatcher_Filters_Bot_Authors_Before_Formatting(t *testing.T) {
	req := require.New(t)
	worker, registry, publisher, formatter, _ := newTestDispatcher()

	registry.Subscribe("general", "U1")

	evt := created("general", "m1", "beep")
	evt.Message.Author.Bot = true
	worker.relay(context.Background(), evt)

	req.Zero(formatter.count())
	req.Empty(publisher.all())
}

func TestDispatcher_Updated_Carries_Edit_Timestamp(t *testing.T) {
	req := require.New(t)
	worker, registry, publisher, _, _ := newTestDispatcher()

	registry.Subscribe("general", "U1")

	editedAt := time.Date(2025, 6, 1, 12, 30, 0, 0, time.UTC)
	worker.relay(context.Background(), event.MessageUpdated{
		Message:  created("general", "m1", "hello again").Message,
		EditedAt: editedAt,
	})

	published := publisher.all()
	req.Len(published, 1)
	req.Equal("message_update", published[0].event)

	msg := published[0].payload.(domain.Message)
	req.True(msg.Edited)
	req.Equal("2025-06-01T12:30:00Z", msg.EditedTimestamp)
}

func TestDispatcher_Drops_Partial_Updates_Silently(t *testing.T) {
	req := require.New(t)
	worker, registry, publisher, formatter, _ := newTestDispatcher()

	registry.Subscribe("general", "U1")

	worker.relay(context.Background(), event.MessageUpdated{
		Message: created("general", "m1", "half-loaded").Message,
		Partial: true,
	})

	req.Zero(formatter.count())
	req.Empty(publisher.all())
}

func TestDispatcher_Deleted_Sends_Minimal_Payload(t *testing.T) {
	req := require.New(t)
	worker, registry, publisher, formatter, _ := newTestDispatcher()

	registry.Subscribe("general", "U1")

	worker.relay(context.Background(), event.MessageDeleted{MessageID: "m1", Channel: "general"})

	published := publisher.all()
	req.Len(published, 1)
	req.Equal("message_delete", published[0].event)
	req.Equal(domain.Deletion{MessageID: "m1", ChannelID: "general"}, published[0].payload)

	// Deletions never touch the formatter
	req.Zero(formatter.count())
}

func TestDispatcher_Format_Failure_Does_Not_Halt_Dispatch(t *testing.T) {
	req := require.New(t)
	worker, registry, publisher, formatter, _ := newTestDispatcher()

	registry.Subscribe("general", "U1")
	registry.Subscribe("random", "U2")

	// Given the formatter rejects the first event
	formatter.err = fmt.Errorf("malformed upstream payload")
	worker.relay(context.Background(), created("general", "m1", "bad"))
	req.Empty(publisher.all())

	// When a healthy event follows on another channel
	formatter.err = nil
	worker.relay(context.Background(), created("random", "m2", "good"))

	// Then it is relayed as if nothing happened
	published := publisher.all()
	req.Len(published, 1)
	req.Equal("random", published[0].channel)
}

func TestDispatcher_Survivor_Still_Receives_After_Peer_Leaves(t *testing.T) {
	req := require.New(t)
	worker, registry, publisher, _, _ := newTestDispatcher()

	// Given U1 and U2 both in "general", then U1 disconnects
	registry.Subscribe("general", "U1")
	registry.Subscribe("general", "U2")
	registry.Unsubscribe("general", "U1")

	worker.relay(context.Background(), created("general", "m1", "hello"))

	// Then the event still goes out once and U2 remains listed
	req.Len(publisher.all(), 1)
	req.Equal([]string{"U2"}, registry.SubscribersOf("general"))
}

func TestDispatcher_Run_Drains_Event_Stream_In_Order(t *testing.T) {
	req := require.New(t)
	worker, registry, publisher, _, events := newTestDispatcher()

	registry.Subscribe("general", "U1")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		_ = worker.Run(ctx)
		close(done)
	}()

	events <- created("general", "m1", "first")
	events <- created("general", "m2", "second")

	req.Eventually(func() bool {
		return len(publisher.all()) == 2
	}, time.Second, 10*time.Millisecond)

	published := publisher.all()
	req.Equal("first", published[0].payload.(domain.Message).Content)
	req.Equal("second", published[1].payload.(domain.Message).Content)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		req.Fail("Dispatcher should stop when the context is canceled")
	}
}
