// Package event defines the normalized events the upstream gateway
// feeds into the relay. Every event is keyed by the channel it
// happened in; the dispatcher uses that key for fan-out.
package event

import (
	"time"

	"discord-relay/domain"
)

// DomainEvent is anything the dispatcher can relay to subscribers.
type DomainEvent interface {
	ChannelID() string
}

// MessageCreated is a brand new message in a channel.
type MessageCreated struct {
	Message domain.Message
}

func (e MessageCreated) ChannelID() string {
	return e.Message.ChannelID
}

// MessageUpdated is an edit of an existing message. Partial marks
// records the gateway could not fully load; those are never relayed.
type MessageUpdated struct {
	Message  domain.Message
	EditedAt time.Time
	Partial  bool
}

func (e MessageUpdated) ChannelID() string {
	return e.Message.ChannelID
}

// MessageDeleted carries only identifiers. Content of deleted
// messages is gone and stays gone.
type MessageDeleted struct {
	MessageID string
	Channel   string
}

func (e MessageDeleted) ChannelID() string {
	return e.Channel
}
