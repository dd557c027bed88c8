package observability

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/shirou/gopsutil/process"

	"discord-relay/domain"
)

// StatsProvider feeds the registry snapshot into the metrics payload
// without coupling this package to the registry implementation.
type StatsProvider func() domain.RegistryStats

// HealthStatus is the /healthz payload.
type HealthStatus struct {
	Status      string `json:"status"`
	Timestamp   string `json:"timestamp"`
	Uptime      string `json:"uptime"`
	Connections int64  `json:"connections"`
	MemoryMB    uint64 `json:"memoryMb"`
}

// processStats is the self-telemetry block of /metrics.
type processStats struct {
	PID        int     `json:"pid"`
	MemoryMB   uint64  `json:"memoryMb"`
	CPUPercent float64 `json:"cpuPercent"`
}

// metricsPayload is the full /metrics response.
type metricsPayload struct {
	Relay    Snapshot             `json:"relay"`
	Registry domain.RegistryStats `json:"registry"`
	Process  processStats         `json:"process"`
}

// Handlers serves the health and metrics endpoints.
type Handlers struct {
	log     *slog.Logger
	monitor *Monitor
	stats   StatsProvider
	proc    *process.Process
}

func NewHandlers(log *slog.Logger, monitor *Monitor, stats StatsProvider) *Handlers {
	// A nil process handle just blanks the self-telemetry block.
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		log.Warn("Self process handle unavailable", "err", err)
	}
	return &Handlers{log: log, monitor: monitor, stats: stats, proc: proc}
}

func (h *Handlers) Health(w http.ResponseWriter, _ *http.Request) {
	snapshot := h.monitor.Snapshot()
	memory, _ := h.selfStats()

	h.writeJSON(w, HealthStatus{
		Status:      "healthy",
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
		Uptime:      snapshot.Uptime,
		Connections: snapshot.Connections,
		MemoryMB:    memory,
	})
}

func (h *Handlers) Metrics(w http.ResponseWriter, _ *http.Request) {
	memory, cpu := h.selfStats()

	h.writeJSON(w, metricsPayload{
		Relay:    h.monitor.Snapshot(),
		Registry: h.stats(),
		Process: processStats{
			PID:        os.Getpid(),
			MemoryMB:   memory,
			CPUPercent: cpu,
		},
	})
}

// selfStats retrieves RSS and CPU for the relay process itself.
func (h *Handlers) selfStats() (uint64, float64) {
	if h.proc == nil {
		return 0, 0
	}
	var memoryMB uint64
	if memInfo, err := h.proc.MemoryInfo(); err == nil {
		memoryMB = memInfo.RSS / (1024 * 1024)
	}
	cpu, err := h.proc.CPUPercent()
	if err != nil {
		cpu = 0
	}
	return memoryMB, cpu
}

func (h *Handlers) writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.log.Error("Encoding observability response failed", "err", err)
	}
}
