package observability

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"discord-relay/domain"
)

func TestHandlers_Health(t *testing.T) {
	req := require.New(t)
	monitor := NewMonitor()
	monitor.ConnectionOpened()

	handlers := NewHandlers(slog.Default(), monitor, func() domain.RegistryStats {
		return domain.RegistryStats{}
	})

	rec := httptest.NewRecorder()
	handlers.Health(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	req.Equal(http.StatusOK, rec.Code)

	var status HealthStatus
	req.NoError(json.Unmarshal(rec.Body.Bytes(), &status))
	req.Equal("healthy", status.Status)
	req.Equal(int64(1), status.Connections)
}

func TestHandlers_Metrics_Includes_Registry_Stats(t *testing.T) {
	req := require.New(t)
	monitor := NewMonitor()
	monitor.EventRelayed()
	monitor.EventDropped()

	handlers := NewHandlers(slog.Default(), monitor, func() domain.RegistryStats {
		return domain.RegistryStats{
			TopicCount:         1,
			TotalSubscriptions: 2,
			PerTopic:           []domain.ChannelCount{{ChannelID: "general", Subscribers: 2}},
		}
	})

	rec := httptest.NewRecorder()
	handlers.Metrics(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	req.Equal(http.StatusOK, rec.Code)

	var payload metricsPayload
	req.NoError(json.Unmarshal(rec.Body.Bytes(), &payload))
	req.Equal(uint64(1), payload.Relay.EventsRelayed)
	req.Equal(1, payload.Registry.TopicCount)
	req.Equal("general", payload.Registry.PerTopic[0].ChannelID)
}
