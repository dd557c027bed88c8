package relay

import (
	"github.com/go-playground/validator/v10"

	"discord-relay/domain"
)

var validate = validator.New()

// Inbound operation names. The dispatch table for each session is
// built once from these; clients cannot register anything else.
const (
	opGetChannels  = "get_channels"
	opJoinChannel  = "join_channel"
	opLeaveChannel = "leave_channel"
)

// JoinChannelRequest is the payload of a join_channel operation.
type JoinChannelRequest struct {
	ChannelID string `json:"channelId" validate:"required"`
}

// LeaveChannelRequest is the payload of a leave_channel operation.
type LeaveChannelRequest struct {
	ChannelID string `json:"channelId" validate:"required"`
}

// ChannelsResult answers a get_channels operation.
type ChannelsResult struct {
	Success  bool             `json:"success"`
	Channels []domain.Channel `json:"channels"`
	Error    string           `json:"error,omitempty"`
}

// JoinResult answers a join_channel operation.
type JoinResult struct {
	Success       bool   `json:"success"`
	ChannelID     string `json:"channelId,omitempty"`
	AlreadyJoined bool   `json:"alreadyJoined,omitempty"`
	Error         string `json:"error,omitempty"`
}

// LeaveResult answers a leave_channel operation.
type LeaveResult struct {
	Success   bool   `json:"success"`
	ChannelID string `json:"channelId,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Presence announces a subscriber entering or leaving a channel.
type Presence struct {
	ChannelID string         `json:"channelId"`
	User      domain.UserRef `json:"user"`
}

// Error severities, mirrored by the browser's toast styling.
const (
	SeverityLow    = "LOW"
	SeverityMedium = "MEDIUM"
	SeverityHigh   = "HIGH"
)

// ErrorNotice is the out-of-band error notification pushed to exactly
// one connection. It never carries internal error text.
type ErrorNotice struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Severity string `json:"severity"`
}
