package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors for the gateway.
type Metrics struct {
	// Chat turn metrics
	ChatTurnsTotal   *prometheus.CounterVec
	ChatTurnDuration *prometheus.HistogramVec

	// LLM request metrics
	LLMRequestsTotal   *prometheus.CounterVec
	LLMRequestDuration *prometheus.HistogramVec

	// Tool execution metrics
	ToolExecutionsTotal   *prometheus.CounterVec
	ToolExecutionDuration *prometheus.HistogramVec

	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Session metrics
	ActiveSessions       prometheus.Gauge
	TitlesGeneratedTotal prometheus.Counter
}

// NewMetrics creates and registers all Prometheus metrics with the given
// registerer. Pass prometheus.DefaultRegisterer for the default registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		ChatTurnsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "cynq",
				Name:      "chat_turns_total",
				Help:      "Total number of chat turns processed",
			},
			[]string{"mode", "status"},
		),
		ChatTurnDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "cynq",
				Name:      "chat_turn_duration_seconds",
				Help:      "Chat turn processing duration in seconds",
				Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"mode"},
		),
		LLMRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "cynq",
				Name:      "llm_requests_total",
				Help:      "Total number of LLM completion requests",
			},
			[]string{"provider", "model", "status"},
		),
		LLMRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "cynq",
				Name:      "llm_request_duration_seconds",
				Help:      "LLM completion request duration in seconds",
				Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"provider", "model"},
		),
		ToolExecutionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "cynq",
				Name:      "tool_executions_total",
				Help:      "Total number of tool executions",
			},
			[]string{"tool", "status"},
		),
		ToolExecutionDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "cynq",
				Name:      "tool_execution_duration_seconds",
				Help:      "Tool execution duration in seconds",
				Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5},
			},
			[]string{"tool"},
		),
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "cynq",
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "cynq",
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		ActiveSessions: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "cynq",
				Name:      "active_sessions",
				Help:      "Number of chat sessions currently stored",
			},
		),
		TitlesGeneratedTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: "cynq",
				Name:      "titles_generated_total",
				Help:      "Total number of session titles generated",
			},
		),
	}
}
