package upstream

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"discord-relay/errors"
)

func TestDirectory_UserChannels(t *testing.T) {
	req := require.New(t)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req.Equal("/users/u1/channels", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"id":"c1","name":"general","type":"text","serverId":"s1","serverName":"Go Nuts","position":0,"permissions":{"canRead":true,"canWrite":true,"canManage":false}}]`))
	}))
	defer server.Close()

	directory := NewDirectory(slog.Default(), server.URL, time.Second)
	channels, err := directory.UserChannels(context.Background(), "u1")

	req.NoError(err)
	req.Len(channels, 1)
	req.Equal("general", channels[0].Name)
	req.True(channels[0].Permissions.CanRead)
}

func TestDirectory_UserInfo(t *testing.T) {
	req := require.New(t)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req.Equal("/users/u1", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"u1","username":"ada","displayName":"Ada","avatar":"https://cdn.example/a.png","isBot":false}`))
	}))
	defer server.Close()

	directory := NewDirectory(slog.Default(), server.URL, time.Second)
	profile, err := directory.UserInfo(context.Background(), "u1")

	req.NoError(err)
	req.Equal("ada", profile.Username)
	req.Equal("https://cdn.example/a.png", profile.Avatar)
}

func TestDirectory_Non200_Is_Upstream_Unavailable(t *testing.T) {
	req := require.New(t)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "busy", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	directory := NewDirectory(slog.Default(), server.URL, time.Second)
	_, err := directory.UserChannels(context.Background(), "u1")

	req.ErrorIs(err, errors.ErrUpstreamUnavailable)
}

func TestDirectory_Honors_Context_Deadline(t *testing.T) {
	req := require.New(t)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	directory := NewDirectory(slog.Default(), server.URL, time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := directory.UserInfo(ctx, "u1")
	req.Error(err)
}
