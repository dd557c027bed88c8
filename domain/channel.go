package domain

// ChannelPermissions reflects what the authenticated user may do in a
// channel, as computed by the upstream directory. The relay never
// re-derives these.
type ChannelPermissions struct {
	CanRead   bool `json:"canRead"`
	CanWrite  bool `json:"canWrite"`
	CanManage bool `json:"canManage"`
}

// Channel describes one relayable text channel.
type Channel struct {
	ID          string             `json:"id"`
	Name        string             `json:"name"`
	Type        string             `json:"type"`
	ServerID    string             `json:"serverId"`
	ServerName  string             `json:"serverName"`
	Position    int                `json:"position"`
	Permissions ChannelPermissions `json:"permissions"`
}

// UserProfile is the resolved identity sent to a freshly connected client.
type UserProfile struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"displayName,omitempty"`
	Avatar      string `json:"avatar,omitempty"`
	IsBot       bool   `json:"isBot"`
	CreatedAt   string `json:"createdAt,omitempty"`
}

// UserRef is the short identity embedded in presence notifications.
type UserRef struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}
