package browser

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/odvcencio/ideprobe/pkg/observability"
	"github.com/odvcencio/ideprobe/pkg/telemetry"
)

// Metrics tracks remote browser counters for one process.
type Metrics struct {
	// Session counts
	SessionsCreated atomic.Int64
	SessionsClosed  atomic.Int64
	ActiveSessions  atomic.Int64

	// Command outcomes
	CommandCount       atomic.Int64
	CommandFailures    atomic.Int64
	StaleElementCount  atomic.Int64
	NoSuchElementCount atomic.Int64
	CommandLatencySum  atomic.Int64 // nanoseconds sum for averaging

	// Telemetry integration
	mu        sync.RWMutex
	hub       *telemetry.Hub
	sessionID string
}

// NewMetrics creates a new metrics collector.
func NewMetrics() *Metrics {
	return &Metrics{}
}

// EnableTelemetry wires the metrics collector to a telemetry hub.
func (m *Metrics) EnableTelemetry(hub *telemetry.Hub, sessionID string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	m.hub = hub
	m.sessionID = sessionID
	m.mu.Unlock()
}

// RecordSessionCreated increments session creation counter.
func (m *Metrics) RecordSessionCreated(browserSessionID string) {
	if m == nil {
		return
	}
	m.SessionsCreated.Add(1)
	m.ActiveSessions.Add(1)
	m.publishEvent(telemetry.EventSessionCreated, map[string]any{
		"browser_session_id": browserSessionID,
	})
}

// RecordSessionClosed increments session close counter.
func (m *Metrics) RecordSessionClosed(browserSessionID string) {
	if m == nil {
		return
	}
	m.SessionsClosed.Add(1)
	m.ActiveSessions.Add(-1)
	m.publishEvent(telemetry.EventSessionClosed, map[string]any{
		"browser_session_id": browserSessionID,
	})
}

// RecordCommand counts one remote command and classifies its error.
func (m *Metrics) RecordCommand(adapter, command string, err error, latency time.Duration) {
	result := "ok"
	switch {
	case err == nil:
	case IsStale(err):
		result = "stale"
	case IsNoSuchElement(err):
		result = "no_such_element"
	default:
		result = "error"
	}
	observability.DriverCommands.WithLabelValues(adapter, command, result).Inc()

	if m == nil {
		return
	}
	m.CommandCount.Add(1)
	m.CommandLatencySum.Add(latency.Nanoseconds())
	switch result {
	case "ok":
	case "stale":
		m.StaleElementCount.Add(1)
	case "no_such_element":
		m.NoSuchElementCount.Add(1)
	default:
		m.CommandFailures.Add(1)
	}
}

// Snapshot returns a point-in-time snapshot of all metrics.
func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil {
		return MetricsSnapshot{}
	}
	count := m.CommandCount.Load()
	avg := time.Duration(0)
	if count > 0 {
		avg = time.Duration(m.CommandLatencySum.Load() / count)
	}
	return MetricsSnapshot{
		SessionsCreated:       m.SessionsCreated.Load(),
		SessionsClosed:        m.SessionsClosed.Load(),
		ActiveSessions:        m.ActiveSessions.Load(),
		CommandCount:          count,
		CommandFailures:       m.CommandFailures.Load(),
		StaleElementCount:     m.StaleElementCount.Load(),
		NoSuchElementCount:    m.NoSuchElementCount.Load(),
		AverageCommandLatency: avg,
	}
}

func (m *Metrics) publishEvent(eventType telemetry.EventType, data map[string]any) {
	m.mu.RLock()
	hub := m.hub
	sessionID := m.sessionID
	m.mu.RUnlock()
	if hub == nil {
		return
	}
	hub.Publish(telemetry.Event{
		Type:      eventType,
		Timestamp: time.Now(),
		SessionID: sessionID,
		Data:      data,
	})
}

// MetricsSnapshot is a point-in-time copy of browser metrics.
type MetricsSnapshot struct {
	SessionsCreated       int64
	SessionsClosed        int64
	ActiveSessions        int64
	CommandCount          int64
	CommandFailures       int64
	StaleElementCount     int64
	NoSuchElementCount    int64
	AverageCommandLatency time.Duration
}
