package telemetry

import (
	"sync"
	"time"
)

// EventType identifies the kind of telemetry event.
type EventType string

const (
	EventRepeatStarted  EventType = "repeat.started"
	EventRepeatSettled  EventType = "repeat.settled"
	EventRepeatRejected EventType = "repeat.rejected"
	EventRepeatTimedOut EventType = "repeat.timed_out"
	EventRepeatAborted  EventType = "repeat.aborted"

	EventPageTurned     EventType = "scroll.page_turned"
	EventStaleRecovered EventType = "scroll.stale_recovered"
	EventItemFound      EventType = "scroll.item_found"

	EventNodeExpanded     EventType = "tree.node_expanded"
	EventSegmentRetried   EventType = "tree.segment_retried"
	EventPathSearchFailed EventType = "tree.path_search_failed"

	EventSessionCreated EventType = "session.created"
	EventSessionClosed  EventType = "session.closed"
)

// Event describes automation telemetry that test reporters can consume.
type Event struct {
	Type        EventType      `json:"type"`
	Timestamp   time.Time      `json:"timestamp"`
	SessionID   string         `json:"sessionId,omitempty"`
	OperationID string         `json:"operationId,omitempty"`
	RunID       string         `json:"runId,omitempty"`
	Data        map[string]any `json:"data,omitempty"`
}

// Hub fan-outs telemetry events to any number of subscribers.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[chan Event]struct{}
	buffer      int
	closed      bool
}

// DefaultBuffer is the per-subscriber channel capacity.
const DefaultBuffer = 64

// NewHub constructs a telemetry hub.
func NewHub() *Hub {
	return NewHubWithBuffer(DefaultBuffer)
}

// NewHubWithBuffer constructs a hub whose subscribers buffer n events.
func NewHubWithBuffer(n int) *Hub {
	if n <= 0 {
		n = DefaultBuffer
	}
	return &Hub{subscribers: make(map[chan Event]struct{}), buffer: n}
}

// Publish notifies all subscribers of an event. Non-blocking; drops if buffer full.
// Publishing on a nil hub is a no-op.
func (h *Hub) Publish(event Event) {
	if h == nil {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	for ch := range h.subscribers {
		select {
		case ch <- event:
		default:
			// Drop if subscriber can't keep up; a slow reporter must not stall a search.
		}
	}
}

// Subscribe returns a channel that will receive future events and a cleanup func.
func (h *Hub) Subscribe() (<-chan Event, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		empty := make(chan Event)
		close(empty)
		return empty, func() {}
	}
	ch := make(chan Event, h.buffer)
	h.subscribers[ch] = struct{}{}
	unsubscribe := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if _, ok := h.subscribers[ch]; ok {
			delete(h.subscribers, ch)
			close(ch)
		}
	}
	return ch, unsubscribe
}

// Close unsubscribes all listeners and prevents future publications.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for ch := range h.subscribers {
		close(ch)
		delete(h.subscribers, ch)
	}
}
