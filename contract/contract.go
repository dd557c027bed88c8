//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"reflect"

	"discord-relay/domain"
)

// WorkerName identifies a worker in supervision logs.
type WorkerName string

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker initialization
// or lifecycle events, avoiding the need for manual naming in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// IRegistry is the authoritative channel membership map. Subscriptions
// are keyed by subscriber identity and reference-counted, so two live
// connections from the same identity hold the entry until both let go.
type IRegistry interface {
	Subscribe(channelID, subscriberID string)
	Unsubscribe(channelID, subscriberID string)
	SubscribersOf(channelID string) []string
	Contains(channelID, subscriberID string) bool
	Stats() domain.RegistryStats
}

// Outbound event names shared by the dispatcher and the sessions.
const (
	EventChannels      = "channels"
	EventUserInfo      = "user_info"
	EventMessage       = "message"
	EventMessageUpdate = "message_update"
	EventMessageDelete = "message_delete"
	EventUserJoined    = "user_joined"
	EventUserLeft      = "user_left"
	EventError         = "error"
)

// Publisher delivers a payload to every connection currently in a
// channel group. It is the only broadcast primitive the relay uses.
type Publisher interface {
	Publish(channelID, eventName string, payload any)
}

// Socket is one client connection as seen by a session: targeted
// pushes plus channel group membership.
type Socket interface {
	ID() string
	Emit(eventName string, payload any)
	JoinGroup(channelID string)
	LeaveGroup(channelID string)
}

// Formatter turns a raw upstream message into the wire shape sent to
// browsers. Implementations may call out to the directory, so every
// call is bounded by the given context.
type Formatter interface {
	Format(ctx context.Context, msg domain.Message) (domain.Message, error)
}

// Directory is the upstream lookup collaborator. Channel lists come
// back already filtered by the collaborator's own visibility rules;
// the relay treats them as authoritative.
type Directory interface {
	UserChannels(ctx context.Context, subscriberID string) ([]domain.Channel, error)
	UserInfo(ctx context.Context, subscriberID string) (domain.UserProfile, error)
}
