package metrics

import (
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

// DefaultRegistry holds every collector the service exposes on /metrics.
var DefaultRegistry = prometheus.NewRegistry()

func init() {
	DefaultRegistry.MustRegister(
		CacheRequests,
		ToolCalls, ToolDuration,
		Turns, CompletionDuration,
	)
}

// CacheRequests counts cache-aside lookups by outcome.
var CacheRequests = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "chative_cache_requests_total",
		Help: "Cache-aside lookups by operation and result.",
	},
	[]string{"operation", "result"}, // hit | miss | error
)

var ToolCalls = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "chative_tool_calls_total",
		Help: "Resolved tool calls by tool and status.",
	},
	[]string{"tool", "status"},
)

var ToolDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "chative_tool_duration_seconds",
		Help:    "Tool call latency in seconds.",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"tool"},
)

// Turns counts finished turns; outcome is "done" or a failure kind.
var Turns = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "chative_turns_total",
		Help: "Finished turns by agent and outcome.",
	},
	[]string{"agent", "outcome"},
)

var CompletionDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "chative_completion_duration_seconds",
		Help:    "Completion service call latency in seconds.",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"agent"},
)

// WritePrometheus writes the registry in the text exposition format.
func WritePrometheus(w io.Writer) error {
	families, err := DefaultRegistry.Gather()
	if err != nil {
		return err
	}
	enc := expfmt.NewEncoder(w, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			return err
		}
	}
	return nil
}
