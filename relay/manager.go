package relay

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"discord-relay/auth"
	"discord-relay/contract"
	"discord-relay/domain"
	"discord-relay/transport"
)

// opHandler executes one client operation and delivers its result
// object through the ack callback.
type opHandler func(data json.RawMessage, ack func(payload any))

// Manager accepts new connections: it authenticates the handshake,
// builds a Session per connection, wires the dispatch table and the
// disconnect hook, and sends the initial state. Operation failures
// are answered to the one requester and never leak to other clients.
type Manager struct {
	log       *slog.Logger
	verifier  *auth.Verifier
	hub       *transport.Hub
	registry  contract.IRegistry
	directory contract.Directory

	upstreamTimeout time.Duration
}

func NewManager(log *slog.Logger, verifier *auth.Verifier, hub *transport.Hub,
	registry contract.IRegistry, directory contract.Directory,
	upstreamTimeout time.Duration) *Manager {
	return &Manager{
		log:             log,
		verifier:        verifier,
		hub:             hub,
		registry:        registry,
		directory:       directory,
		upstreamTimeout: upstreamTimeout,
	}
}

// HandleWS is the websocket entry point. Authentication runs before
// any session state exists: a missing, malformed, or expired
// credential refuses the connection with that exact reason.
func (m *Manager) HandleWS(w http.ResponseWriter, r *http.Request) {
	claims, err := m.verifier.Verify(bearerToken(r))
	if err != nil {
		m.log.Warn("Connection refused", "reason", err, "remote", r.RemoteAddr)
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}

	conn, err := m.hub.Upgrade(w, r)
	if err != nil {
		// Upgrade already wrote the HTTP error response.
		m.log.Warn("Upgrade failed", "subscriber", claims.SubscriberID, "err", err)
		return
	}

	m.attach(conn, claims)
	conn.Start()
	m.log.Info("Connected", "subscriber", claims.SubscriberID, "username", claims.Username, "conn", conn.ID())
}

// bearerToken pulls the credential from the query string (browser
// websocket clients cannot set headers) or an Authorization header.
func bearerToken(r *http.Request) string {
	if token := r.URL.Query().Get("token"); token != "" {
		return token
	}
	return strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
}

func (m *Manager) attach(conn *transport.Conn, claims *auth.CustomClaims) {
	user := domain.UserRef{ID: claims.SubscriberID, Username: claims.Username}
	sess := NewSession(m.log, conn, m.hub, m.registry, claims.SubscriberID, user)
	table := m.dispatchTable(sess, conn)

	conn.OnMessage(func(event string, data json.RawMessage, ack func(any)) {
		handler, ok := table[event]
		if !ok {
			m.log.Warn("Unknown operation", "operation", event, "subscriber", sess.SubscriberID())
			conn.Emit(contract.EventError, ErrorNotice{
				Code:     "UNKNOWN_OPERATION",
				Message:  "Unsupported operation",
				Severity: SeverityLow,
			})
			return
		}
		handler(data, ack)
	})
	conn.OnClose(func(reason string) {
		sess.Disconnect(reason)
	})

	m.sendInitialData(conn, claims)
}

// dispatchTable enumerates every operation a session supports. It is
// constructed once per connection; nothing is registered dynamically
// afterwards.
func (m *Manager) dispatchTable(sess *Session, socket contract.Socket) map[string]opHandler {
	return map[string]opHandler{
		opGetChannels:  m.handleGetChannels(sess, socket),
		opJoinChannel:  m.handleJoinChannel(sess, socket),
		opLeaveChannel: m.handleLeaveChannel(sess, socket),
	}
}

func (m *Manager) handleGetChannels(sess *Session, socket contract.Socket) opHandler {
	return func(_ json.RawMessage, ack func(any)) {
		ctx, cancel := context.WithTimeout(context.Background(), m.upstreamTimeout)
		defer cancel()

		channels, err := m.directory.UserChannels(ctx, sess.SubscriberID())
		if err != nil {
			m.opFailure(socket, "get_channels", sess.SubscriberID(), err, ErrorNotice{
				Code:     "CHANNELS_FETCH_FAILED",
				Message:  "Unable to fetch channels",
				Severity: SeverityMedium,
			})
			ack(ChannelsResult{Success: false, Error: "Failed to fetch channels", Channels: []domain.Channel{}})
			return
		}

		socket.Emit(contract.EventChannels, channels)
		ack(ChannelsResult{Success: true, Channels: channels})
	}
}

func (m *Manager) handleJoinChannel(sess *Session, socket contract.Socket) opHandler {
	return func(data json.RawMessage, ack func(any)) {
		var req JoinChannelRequest
		if err := decodeRequest(data, &req); err != nil {
			m.opFailure(socket, "join_channel", sess.SubscriberID(), err, ErrorNotice{
				Code:     "INVALID_REQUEST",
				Message:  "join_channel requires a channelId",
				Severity: SeverityLow,
			})
			ack(JoinResult{Success: false, Error: "Invalid join request"})
			return
		}

		alreadyJoined, err := sess.Join(req.ChannelID)
		if err != nil {
			m.opFailure(socket, "join_channel", sess.SubscriberID(), err, ErrorNotice{
				Code:     "JOIN_FAILED",
				Message:  "Failed to join channel",
				Severity: SeverityMedium,
			})
			ack(JoinResult{Success: false, Error: "Failed to join channel"})
			return
		}

		ack(JoinResult{Success: true, ChannelID: req.ChannelID, AlreadyJoined: alreadyJoined})
	}
}

func (m *Manager) handleLeaveChannel(sess *Session, socket contract.Socket) opHandler {
	return func(data json.RawMessage, ack func(any)) {
		var req LeaveChannelRequest
		if err := decodeRequest(data, &req); err != nil {
			m.opFailure(socket, "leave_channel", sess.SubscriberID(), err, ErrorNotice{
				Code:     "INVALID_REQUEST",
				Message:  "leave_channel requires a channelId",
				Severity: SeverityLow,
			})
			ack(LeaveResult{Success: false, Error: "Invalid leave request"})
			return
		}

		if err := sess.Leave(req.ChannelID); err != nil {
			m.opFailure(socket, "leave_channel", sess.SubscriberID(), err, ErrorNotice{
				Code:     "LEAVE_FAILED",
				Message:  "Failed to leave channel",
				Severity: SeverityMedium,
			})
			ack(LeaveResult{Success: false, Error: "Failed to leave channel"})
			return
		}

		ack(LeaveResult{Success: true, ChannelID: req.ChannelID})
	}
}

// sendInitialData pushes the channel list and resolved profile to a
// freshly authenticated connection. A directory outage degrades to
// the identity claims the client presented.
func (m *Manager) sendInitialData(socket contract.Socket, claims *auth.CustomClaims) {
	ctx, cancel := context.WithTimeout(context.Background(), m.upstreamTimeout)
	defer cancel()

	channels, err := m.directory.UserChannels(ctx, claims.SubscriberID)
	if err != nil {
		m.opFailure(socket, "initial_data", claims.SubscriberID, err, ErrorNotice{
			Code:     "INITIALIZATION_FAILED",
			Message:  "Failed to load initial data",
			Severity: SeverityHigh,
		})
	} else {
		socket.Emit(contract.EventChannels, channels)
	}

	profile, err := m.directory.UserInfo(ctx, claims.SubscriberID)
	if err != nil {
		m.log.Warn("Profile lookup failed, falling back to credential claims",
			"subscriber", claims.SubscriberID, "err", err)
		profile = domain.UserProfile{
			ID:       claims.SubscriberID,
			Username: claims.Username,
			IsBot:    claims.IsBot,
		}
	}
	socket.Emit(contract.EventUserInfo, profile)
}

// opFailure logs a per-connection failure with its operation context
// and pushes the out-of-band error notice to that one connection.
func (m *Manager) opFailure(socket contract.Socket, operation, subscriberID string,
	err error, notice ErrorNotice) {
	m.log.Error("Operation failed", "operation", operation, "subscriber", subscriberID, "err", err)
	socket.Emit(contract.EventError, notice)
}

func decodeRequest(data json.RawMessage, out any) error {
	if err := json.Unmarshal(data, out); err != nil {
		return err
	}
	return validate.Struct(out)
}
