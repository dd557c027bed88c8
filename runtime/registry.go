package runtime

import (
	"sort"
	"sync"

	"github.com/samber/lo"

	"discord-relay/domain"
)

// Registry maps channel ids to the identities subscribed to them.
// Entries are reference-counted per (channel, subscriber) pair: each
// live connection of an identity holds one reference, and the identity
// stays listed until its last connection unsubscribes. A channel with
// no subscribers is removed outright, so the map never accumulates
// empty entries as users hop through transient channels.
type Registry struct {
	mu       sync.RWMutex
	channels map[string]map[string]int
}

func NewRegistry() *Registry {
	return &Registry{
		channels: make(map[string]map[string]int),
	}
}

// Subscribe adds one reference for subscriberID on channelID,
// creating the channel entry on first use. Duplicate calls are never
// an error; they stack references that Unsubscribe unwinds.
func (r *Registry) Subscribe(channelID, subscriberID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.channels[channelID]; !ok {
		r.channels[channelID] = make(map[string]int)
	}
	r.channels[channelID][subscriberID]++
}

// Unsubscribe drops one reference for subscriberID on channelID.
// The subscriber disappears at zero references, and the channel entry
// is deleted once its last subscriber is gone. Unknown channels and
// subscribers are silent no-ops: a stale leave from a client must
// never surface as an error.
func (r *Registry) Unsubscribe(channelID, subscriberID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	members, ok := r.channels[channelID]
	if !ok {
		return
	}

	if refs, ok := members[subscriberID]; ok {
		if refs <= 1 {
			delete(members, subscriberID)
		} else {
			members[subscriberID] = refs - 1
		}
	}

	// If no one is left in the channel, remove the entry entirely
	if len(members) == 0 {
		delete(r.channels, channelID)
	}
}

// SubscribersOf returns a snapshot of the identities subscribed to a
// channel. Unknown channels yield an empty slice.
func (r *Registry) SubscribersOf(channelID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members, ok := r.channels[channelID]
	if !ok {
		return nil
	}
	return lo.Keys(members)
}

// Contains reports whether subscriberID currently holds at least one
// reference on channelID.
func (r *Registry) Contains(channelID, subscriberID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members, ok := r.channels[channelID]
	if !ok {
		return false
	}
	_, ok = members[subscriberID]
	return ok
}

// Stats snapshots the registry for the observability endpoints.
// Counts are distinct subscribers, not references. Per-channel rows
// are sorted so the output is stable across calls.
func (r *Registry) Stats() domain.RegistryStats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := domain.RegistryStats{
		PerTopic: make([]domain.ChannelCount, 0, len(r.channels)),
	}
	for channelID, members := range r.channels {
		stats.TopicCount++
		stats.TotalSubscriptions += len(members)
		stats.PerTopic = append(stats.PerTopic, domain.ChannelCount{
			ChannelID:   channelID,
			Subscribers: len(members),
		})
	}
	sort.Slice(stats.PerTopic, func(i, j int) bool {
		return stats.PerTopic[i].ChannelID < stats.PerTopic[j].ChannelID
	})
	return stats
}
