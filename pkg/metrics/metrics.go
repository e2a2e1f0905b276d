// Package metrics provides Prometheus metrics instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestDuration tracks HTTP request duration.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path", "status"},
	)

	// RequestsTotal tracks total HTTP requests.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// MessagesTotal tracks messages persisted, by sender type.
	MessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "messages_total",
			Help: "Total messages persisted",
		},
		[]string{"sender_type"},
	)

	// ModerationTotal tracks safety-gate outcomes.
	ModerationTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "moderation_checks_total",
			Help: "Safety gate outcomes",
		},
		[]string{"outcome"},
	)

	// GenerationDuration tracks AI response generation duration.
	GenerationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ai_generation_duration_seconds",
			Help:    "AI response generation duration",
			Buckets: []float64{.5, 1, 2, 5, 10, 20, 30, 45, 60},
		},
		[]string{"model", "status"},
	)

	// GenerationTokensTotal tracks tokens consumed by generation calls.
	GenerationTokensTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_generation_tokens_total",
			Help: "Total tokens consumed by AI generation",
		},
		[]string{"model"},
	)

	// KnowledgeRetrievalsTotal tracks knowledge entries returned as
	// generation candidates.
	KnowledgeRetrievalsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "knowledge_retrievals_total",
			Help: "Knowledge entries returned as generation candidates",
		},
	)

	// WSConnectionsActive tracks active websocket connections.
	WSConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ws_connections_active",
			Help: "Number of active websocket connections",
		},
	)

	// WSEventsTotal tracks real-time events delivered, by event name.
	WSEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ws_events_total",
			Help: "Real-time events delivered to clients",
		},
		[]string{"event"},
	)

	// ConversationsTotal tracks total conversations created.
	ConversationsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "conversations_total",
			Help: "Total conversations created",
		},
	)

	// ReportsTotal tracks reports filed, by issue type.
	ReportsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reports_total",
			Help: "Total reports filed",
		},
		[]string{"issue_type"},
	)
)

// RecordRequest records metrics for an HTTP request.
func RecordRequest(method, path, status string, duration float64) {
	RequestDuration.WithLabelValues(method, path, status).Observe(duration)
	RequestsTotal.WithLabelValues(method, path, status).Inc()
}

// RecordGeneration records metrics for an AI generation call.
func RecordGeneration(model, status string, durationSec float64, tokens int) {
	GenerationDuration.WithLabelValues(model, status).Observe(durationSec)
	if tokens > 0 {
		GenerationTokensTotal.WithLabelValues(model).Add(float64(tokens))
	}
}
