package runtime

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestRegistry_Subscribe_One_Channel_One_Subscriber(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	subscriberID := uuid.NewString()

	// Given an empty registry
	req.Empty(registry.SubscribersOf("general"))

	// When a subscriber joins a channel
	registry.Subscribe("general", subscriberID)

	// Then the channel lists exactly that subscriber
	req.Equal([]string{subscriberID}, registry.SubscribersOf("general"))
	req.True(registry.Contains("general", subscriberID))
}

func TestRegistry_Subscribe_One_Channel_Multiple_Subscribers(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	subscriberID1 := uuid.NewString()
	subscriberID2 := uuid.NewString()

	// When two subscribers join the same channel
	registry.Subscribe("general", subscriberID1)
	registry.Subscribe("general", subscriberID2)

	// Then both are listed
	req.Len(registry.SubscribersOf("general"), 2)
	req.Contains(registry.SubscribersOf("general"), subscriberID1)
	req.Contains(registry.SubscribersOf("general"), subscriberID2)
}

func TestRegistry_Unsubscribe_Removes_Empty_Channel(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	subscriberID := uuid.NewString()

	// Given a subscriber in a channel
	registry.Subscribe("general", subscriberID)

	// When the subscriber leaves
	registry.Unsubscribe("general", subscriberID)

	// Then the channel entry is gone, not just empty
	req.Empty(registry.SubscribersOf("general"))
	req.Zero(registry.Stats().TopicCount)
}

func TestRegistry_Unsubscribe_Is_Idempotent(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	subscriberID := uuid.NewString()

	registry.Subscribe("general", subscriberID)

	// When unsubscribe is called twice in a row
	registry.Unsubscribe("general", subscriberID)
	registry.Unsubscribe("general", subscriberID)

	// Then the state equals a single unsubscribe
	req.Empty(registry.SubscribersOf("general"))
	req.Zero(registry.Stats().TopicCount)
}

func TestRegistry_Unsubscribe_Unknown_Channel_Is_Noop(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()

	// When a stale client leaves a channel that never existed
	registry.Unsubscribe("ghost", uuid.NewString())

	// Then nothing happens
	req.Zero(registry.Stats().TopicCount)
}

func TestRegistry_Unsubscribe_Keeps_Remaining_Subscribers(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	subscriberID1 := uuid.NewString()
	subscriberID2 := uuid.NewString()

	registry.Subscribe("general", subscriberID1)
	registry.Subscribe("general", subscriberID2)

	// When one subscriber leaves
	registry.Unsubscribe("general", subscriberID1)

	// Then the other still holds the channel open
	req.Equal([]string{subscriberID2}, registry.SubscribersOf("general"))
}

func TestRegistry_RefCount_Shared_Identity_Survives_One_Disconnect(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	subscriberID := uuid.NewString()

	// Given the same identity subscribed through two connections
	registry.Subscribe("general", subscriberID)
	registry.Subscribe("general", subscriberID)

	// When the first connection unwinds
	registry.Unsubscribe("general", subscriberID)

	// Then the identity is still subscribed via the second connection
	req.True(registry.Contains("general", subscriberID))

	// And the entry disappears only after the last reference drops
	registry.Unsubscribe("general", subscriberID)
	req.False(registry.Contains("general", subscriberID))
	req.Empty(registry.SubscribersOf("general"))
}

func TestRegistry_Stats_Counts_Distinct_Subscribers(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	subscriberID := uuid.NewString()

	// Given one identity twice in a channel and another identity elsewhere
	registry.Subscribe("general", subscriberID)
	registry.Subscribe("general", subscriberID)
	registry.Subscribe("random", uuid.NewString())

	stats := registry.Stats()

	// Then references never inflate the counts
	req.Equal(2, stats.TopicCount)
	req.Equal(2, stats.TotalSubscriptions)
	req.Len(stats.PerTopic, 2)
	req.Equal("general", stats.PerTopic[0].ChannelID)
	req.Equal(1, stats.PerTopic[0].Subscribers)
}
