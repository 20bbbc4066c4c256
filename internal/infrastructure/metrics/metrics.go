package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Request counters
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "chat",
			Subsystem: "api",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	// Request duration histogram
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "chat",
			Subsystem: "api",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// Conversations
	ConversationsCreatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "chat",
			Subsystem: "api",
			Name:      "conversations_created_total",
			Help:      "Total conversations created",
		},
	)

	MessagesAppendedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "chat",
			Subsystem: "api",
			Name:      "messages_appended_total",
			Help:      "Total messages appended across all conversations",
		},
	)

	// Summarization
	SummariesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "chat",
			Subsystem: "api",
			Name:      "summaries_total",
			Help:      "Total summarization attempts",
		},
		[]string{"trigger", "status"},
	)

	// Realtime
	WebsocketConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "chat",
			Subsystem: "api",
			Name:      "websocket_connections",
			Help:      "Currently open websocket connections",
		},
	)

	BroadcastsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "chat",
			Subsystem: "api",
			Name:      "broadcasts_total",
			Help:      "Total broadcast calls",
		},
	)

	BroadcastSendFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "chat",
			Subsystem: "api",
			Name:      "broadcast_send_failures_total",
			Help:      "Per-handle send failures during broadcasts",
		},
	)
)

// RecordRequest records one completed HTTP request.
func RecordRequest(method, endpoint, status string, duration float64) {
	RequestsTotal.WithLabelValues(method, endpoint, status).Inc()
	RequestDuration.WithLabelValues(method, endpoint).Observe(duration)
}

// RecordSummary records one summarization attempt. trigger is "rest" or
// "realtime"; status is "ok" or "error".
func RecordSummary(trigger, status string) {
	SummariesTotal.WithLabelValues(trigger, status).Inc()
}
