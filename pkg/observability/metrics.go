package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels shared by retry and search metrics.
const (
	OutcomeResolved = "resolved"
	OutcomeRejected = "rejected"
	OutcomeTimedOut = "timed_out"
	OutcomeAborted  = "aborted"
	OutcomeNotFound = "not_found"
)

var (
	// Retry metrics
	RepeatSessions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ideprobe",
			Subsystem: "repeat",
			Name:      "sessions_total",
			Help:      "Total number of retry sessions by outcome",
		},
		[]string{"outcome"},
	)

	RepeatAttempts = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "ideprobe",
			Subsystem: "repeat",
			Name:      "attempts_total",
			Help:      "Total number of polled invocations across retry sessions",
		},
	)

	RepeatDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ideprobe",
			Subsystem: "repeat",
			Name:      "duration_seconds",
			Help:      "Retry session duration in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 15), // 1ms to ~16s
		},
		[]string{"outcome"},
	)

	// Scroll metrics
	PageTurns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ideprobe",
			Subsystem: "scroll",
			Name:      "page_turns_total",
			Help:      "Total number of virtualized list page turns",
		},
		[]string{"direction"}, // "next" or "previous"
	)

	StaleRefetches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ideprobe",
			Subsystem: "scroll",
			Name:      "stale_refetches_total",
			Help:      "Total number of visible window re-fetches after stale elements",
		},
		[]string{"scope"},
	)

	ComparatorSearches = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ideprobe",
			Subsystem: "scroll",
			Name:      "comparator_search_seconds",
			Help:      "Binary search duration over virtualized lists",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms to ~10s
		},
		[]string{"outcome"},
	)

	// Tree metrics
	PathSearches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ideprobe",
			Subsystem: "tree",
			Name:      "path_searches_total",
			Help:      "Total number of tree path searches by outcome",
		},
		[]string{"outcome"},
	)

	NodeExpansions = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "ideprobe",
			Subsystem: "tree",
			Name:      "expansions_total",
			Help:      "Total number of folders expanded by path searches",
		},
	)

	SegmentRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "ideprobe",
			Subsystem: "tree",
			Name:      "segment_retries_total",
			Help:      "Total number of path segments searched again after an expansion",
		},
	)

	// Driver metrics
	DriverCommands = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ideprobe",
			Subsystem: "driver",
			Name:      "commands_total",
			Help:      "Total number of remote browser commands by result",
		},
		[]string{"adapter", "command", "result"},
	)
)
