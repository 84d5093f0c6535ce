package telemetry

import (
	"log"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/mohammad-safakhou/courserag/config"
)

// Telemetry tracks query, tool and token metrics and exposes them to
// Prometheus via the default registry.
type Telemetry struct {
	config config.TelemetryConfig
	logger *log.Logger

	queriesTotal    *prometheus.CounterVec
	toolCallsTotal  *prometheus.CounterVec
	tokensUsedTotal *prometheus.CounterVec
	queryDuration   prometheus.Histogram
}

var registerOnce sync.Once

// NewTelemetry creates a telemetry instance. Collectors are registered on
// the default Prometheus registry exactly once per process.
func NewTelemetry(cfg config.TelemetryConfig) *Telemetry {
	t := &Telemetry{
		config: cfg,
		logger: NewLogger("TELEMETRY"),
		queriesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "courserag_queries_total",
			Help: "Total queries processed, labeled by outcome.",
		}, []string{"outcome"}),
		toolCallsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "courserag_tool_calls_total",
			Help: "Tool invocations requested by the model, labeled by tool name.",
		}, []string{"tool"}),
		tokensUsedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "courserag_tokens_used_total",
			Help: "LLM tokens consumed, labeled by direction.",
		}, []string{"direction"}),
		queryDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "courserag_query_duration_seconds",
			Help:    "End-to-end query latency.",
			Buckets: prometheus.DefBuckets,
		}),
	}
	registerOnce.Do(func() {
		prometheus.MustRegister(t.queriesTotal, t.toolCallsTotal, t.tokensUsedTotal, t.queryDuration)
	})
	return t
}

// RecordQuery records one completed query.
func (t *Telemetry) RecordQuery(success bool, duration time.Duration, inputTokens, outputTokens int64) {
	if t == nil || !t.config.Enabled {
		return
	}
	outcome := "success"
	if !success {
		outcome = "failure"
	}
	t.queriesTotal.WithLabelValues(outcome).Inc()
	t.tokensUsedTotal.WithLabelValues("input").Add(float64(inputTokens))
	t.tokensUsedTotal.WithLabelValues("output").Add(float64(outputTokens))
	t.queryDuration.Observe(duration.Seconds())

	t.logger.Printf("Query: success=%t duration=%v tokens=%d", success, duration, inputTokens+outputTokens)
}

// RecordToolCall records one tool invocation requested by the model.
func (t *Telemetry) RecordToolCall(tool string) {
	if t == nil || !t.config.Enabled {
		return
	}
	t.toolCallsTotal.WithLabelValues(tool).Inc()
}

// NewLogger returns a prefixed logger writing to the process log output.
func NewLogger(prefix string) *log.Logger {
	return log.New(log.Writer(), "["+prefix+"] ", log.LstdFlags)
}
