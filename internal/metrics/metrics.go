// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ConversationsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "workmatch_conversations_created_total",
		Help: "Conversations created by find-or-create.",
	})
	ConversationRaces = promauto.NewCounter(prometheus.CounterOpts{
		Name: "workmatch_conversation_create_races_total",
		Help: "Find-or-create calls that lost the insert race and reused the winner.",
	})
	MessagesAppended = promauto.NewCounter(prometheus.CounterOpts{
		Name: "workmatch_messages_appended_total",
		Help: "Messages appended to conversations.",
	})
	MessagesMarkedRead = promauto.NewCounter(prometheus.CounterOpts{
		Name: "workmatch_message_reads_total",
		Help: "Read marks added to message read sets.",
	})
	RelationshipsAdded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "workmatch_relationships_added_total",
		Help: "Relationships created.",
	})
	RateLimited = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "workmatch_rate_limited_total",
		Help: "Requests rejected by the rate limiter.",
	}, []string{"route"})
	EventPublishFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "workmatch_event_publish_failures_total",
		Help: "Domain events that could not be published.",
	}, []string{"type"})
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "workmatch_http_request_duration_seconds",
		Help:    "HTTP request latency by route and status.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})
)

// Handler returns an http.Handler for Prometheus scraping.
func Handler() http.Handler {
	return promhttp.Handler()
}
