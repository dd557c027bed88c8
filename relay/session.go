// Package relay binds authenticated client connections to the
// subscription registry: sessions track which channels one connection
// joined, and the manager turns socket operations into session calls.
package relay

import (
	"log/slog"
	"sync"

	"discord-relay/contract"
	"discord-relay/domain"
	"discord-relay/errors"
)

// Session is the relay-side state of one client connection. The
// joined set is strictly per connection; registry membership is
// reference-counted per identity, so two tabs of the same user can
// overlap without one disconnect tearing the other's subscription down.
type Session struct {
	mu sync.Mutex

	log       *slog.Logger
	socket    contract.Socket
	publisher contract.Publisher
	registry  contract.IRegistry

	subscriberID string
	user         domain.UserRef

	joined map[string]struct{}
	closed bool
}

func NewSession(log *slog.Logger, socket contract.Socket, publisher contract.Publisher,
	registry contract.IRegistry, subscriberID string, user domain.UserRef) *Session {
	return &Session{
		log:          log,
		socket:       socket,
		publisher:    publisher,
		registry:     registry,
		subscriberID: subscriberID,
		user:         user,
		joined:       make(map[string]struct{}),
	}
}

func (s *Session) SubscriberID() string { return s.subscriberID }

// Join subscribes this connection to a channel. A repeat join of the
// same channel by the same connection reports alreadyJoined instead
// of stacking a duplicate subscription. A join after disconnect is
// rejected so a late frame cannot resurrect registry state.
func (s *Session) Join(channelID string) (alreadyJoined bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false, errors.ErrSessionClosed
	}
	if _, ok := s.joined[channelID]; ok {
		return true, nil
	}

	s.socket.JoinGroup(channelID)
	s.joined[channelID] = struct{}{}
	s.registry.Subscribe(channelID, s.subscriberID)

	s.publisher.Publish(channelID, contract.EventUserJoined, Presence{
		ChannelID: channelID,
		User:      s.user,
	})
	s.log.Info("Joined channel", "subscriber", s.subscriberID, "channel", channelID)
	return false, nil
}

// Leave unsubscribes this connection from a channel. Leaving a
// channel that was never joined is a silent success: no registry
// mutation, no notification.
func (s *Session) Leave(channelID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	if _, ok := s.joined[channelID]; !ok {
		return nil
	}

	s.unwind(channelID)
	s.log.Info("Left channel", "subscriber", s.subscriberID, "channel", channelID)
	return nil
}

// Disconnect unwinds every membership this connection holds. It runs
// once per connection lifetime; the reason is informational only.
// Afterwards the session is inert and further calls are no-ops.
func (s *Session) Disconnect(reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true

	for channelID := range s.joined {
		s.unwind(channelID)
	}
	s.log.Info("Disconnected", "subscriber", s.subscriberID, "reason", reason)
}

// unwind must be called with the lock held. The user_left broadcast
// is best-effort: a failed notification never rolls back the leave.
func (s *Session) unwind(channelID string) {
	s.socket.LeaveGroup(channelID)
	delete(s.joined, channelID)
	s.registry.Unsubscribe(channelID, s.subscriberID)

	s.publisher.Publish(channelID, contract.EventUserLeft, Presence{
		ChannelID: channelID,
		User:      s.user,
	})
}
