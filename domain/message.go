// Package domain contains core concepts of the relay.
// This file defines the wire shape of a relayed chat message.
// Messages are immutable snapshots of what the upstream gateway reported.
package domain

// Author identifies who wrote a message on the upstream server.
type Author struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"displayName,omitempty"`
	Avatar      string `json:"avatar,omitempty"`
	Bot         bool   `json:"bot"`
}

// Attachment is a file attached to a message.
type Attachment struct {
	ID          string `json:"id"`
	Filename    string `json:"filename"`
	URL         string `json:"url"`
	ProxyURL    string `json:"proxyUrl"`
	Size        int64  `json:"size"`
	ContentType string `json:"contentType,omitempty"`
	Width       int    `json:"width,omitempty"`
	Height      int    `json:"height,omitempty"`
}

// EmbedMedia is a thumbnail or image slot inside an embed.
type EmbedMedia struct {
	URL string `json:"url"`
}

// EmbedAuthor is the author block of an embed.
type EmbedAuthor struct {
	Name    string `json:"name"`
	IconURL string `json:"iconUrl,omitempty"`
}

// EmbedField is one name/value pair of an embed.
type EmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

// Embed is a rich-content card attached to a message.
type Embed struct {
	Title       string       `json:"title,omitempty"`
	Description string       `json:"description,omitempty"`
	URL         string       `json:"url,omitempty"`
	Color       int          `json:"color"`
	Thumbnail   EmbedMedia   `json:"thumbnail"`
	Image       EmbedMedia   `json:"image"`
	Author      EmbedAuthor  `json:"author"`
	Fields      []EmbedField `json:"fields"`
}

// Reaction aggregates one emoji's reactions on a message.
type Reaction struct {
	Emoji string   `json:"emoji"`
	Count int      `json:"count"`
	Users []string `json:"users"`
}

// Message is the full payload pushed to subscribed clients for
// created and updated messages. Timestamps are ISO8601 strings so the
// browser never has to guess a format.
type Message struct {
	ID              string       `json:"id"`
	Content         string       `json:"content"`
	Author          Author       `json:"author"`
	Timestamp       string       `json:"timestamp"`
	ChannelID       string       `json:"channelId"`
	ServerID        string       `json:"serverId"`
	Attachments     []Attachment `json:"attachments"`
	Embeds          []Embed      `json:"embeds"`
	Reactions       []Reaction   `json:"reactions"`
	Edited          bool         `json:"edited"`
	EditedTimestamp string       `json:"editedTimestamp,omitempty"`
}

// Deletion is the minimal payload for a deleted message. The relay
// never tries to reconstruct deleted content.
type Deletion struct {
	MessageID string `json:"messageId"`
	ChannelID string `json:"channelId"`
}
