// Package observability aggregates relay runtime counters for the
// health and metrics endpoints. Counters are atomic so the hot paths
// (dispatch, broadcast) never take a lock to record a tick.
package observability

import (
	"sync/atomic"
	"time"
)

// Snapshot is the point-in-time counter view rendered by /metrics.
type Snapshot struct {
	Uptime            string `json:"uptime"`
	Connections       int64  `json:"connections"`
	TotalConnections  uint64 `json:"totalConnections"`
	EventsRelayed     uint64 `json:"eventsRelayed"`
	EventsDropped     uint64 `json:"eventsDropped"`
	FormatFailures    uint64 `json:"formatFailures"`
	DeliveryFailures  uint64 `json:"deliveryFailures"`
	FramesDropped     uint64 `json:"framesDropped"`
}

// Monitor collects relay-wide counters.
type Monitor struct {
	startedAt time.Time

	connectionsOpened uint64
	connectionsClosed uint64
	eventsRelayed     uint64
	eventsDropped     uint64
	formatFailures    uint64
	deliveryFailures  uint64
	framesDropped     uint64
}

func NewMonitor() *Monitor {
	return &Monitor{startedAt: time.Now()}
}

func (m *Monitor) ConnectionOpened() {
	atomic.AddUint64(&m.connectionsOpened, 1)
}

func (m *Monitor) ConnectionClosed() {
	atomic.AddUint64(&m.connectionsClosed, 1)
}

// EventRelayed counts an upstream event broadcast to at least one subscriber.
func (m *Monitor) EventRelayed() {
	atomic.AddUint64(&m.eventsRelayed, 1)
}

// EventDropped counts an upstream event discarded before formatting
// (no subscribers, bot author, partial record).
func (m *Monitor) EventDropped() {
	atomic.AddUint64(&m.eventsDropped, 1)
}

func (m *Monitor) FormatFailure() {
	atomic.AddUint64(&m.formatFailures, 1)
}

func (m *Monitor) DeliveryFailure() {
	atomic.AddUint64(&m.deliveryFailures, 1)
}

// FrameDropped counts a frame discarded because a connection's send
// buffer was full. The connection stays alive; only the frame is lost.
func (m *Monitor) FrameDropped() {
	atomic.AddUint64(&m.framesDropped, 1)
}

func (m *Monitor) Snapshot() Snapshot {
	opened := atomic.LoadUint64(&m.connectionsOpened)
	closed := atomic.LoadUint64(&m.connectionsClosed)
	return Snapshot{
		Uptime:           time.Since(m.startedAt).Round(time.Second).String(),
		Connections:      int64(opened) - int64(closed),
		TotalConnections: opened,
		EventsRelayed:    atomic.LoadUint64(&m.eventsRelayed),
		EventsDropped:    atomic.LoadUint64(&m.eventsDropped),
		FormatFailures:   atomic.LoadUint64(&m.formatFailures),
		DeliveryFailures: atomic.LoadUint64(&m.deliveryFailures),
		FramesDropped:    atomic.LoadUint64(&m.framesDropped),
	}
}
