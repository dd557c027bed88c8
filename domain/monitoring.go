package domain

// ChannelCount is one channel's live subscriber count.
type ChannelCount struct {
	ChannelID   string `json:"channelId"`
	Subscribers int    `json:"subscriberCount"`
}

// RegistryStats is a point-in-time snapshot of the subscription
// registry, consumed by the observability endpoints only.
type RegistryStats struct {
	TopicCount         int            `json:"totalChannels"`
	TotalSubscriptions int            `json:"totalSubscribers"`
	PerTopic           []ChannelCount `json:"channelDetails"`
}
