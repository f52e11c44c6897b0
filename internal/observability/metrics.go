package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce          sync.Once
	httpRequestsTotal     *prometheus.CounterVec
	httpLatencySeconds    *prometheus.HistogramVec
	submissionsCreated    prometheus.Counter
	submissionsApproved   prometheus.Counter
	badgesAwardedTotal    *prometheus.CounterVec
	chatConnectionsTotal  prometheus.Counter
	chatMessagesSentTotal *prometheus.CounterVec
	announcementsRequests *prometheus.CounterVec
)

// RegisterMetrics initialises the Prometheus collectors used by the API.
func RegisterMetrics() {
	registerOnce.Do(func() {
		httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "taskbridge_http_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		httpLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "taskbridge_http_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		submissionsCreated = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "taskbridge_submissions_created_total",
			Help: "Total number of submissions handed in.",
		})

		submissionsApproved = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "taskbridge_submissions_approved_total",
			Help: "Total number of first-time submission approvals.",
		})

		badgesAwardedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "taskbridge_badges_awarded_total",
			Help: "Total number of badges awarded to students.",
		}, []string{"badge"})

		chatConnectionsTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "taskbridge_chat_connections_total",
			Help: "Total number of accepted chat websocket connections.",
		})

		chatMessagesSentTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "taskbridge_chat_messages_sent_total",
			Help: "Total number of chat messages delivered.",
		}, []string{"type"})

		announcementsRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "taskbridge_announcements_requests_total",
			Help: "Announcement list requests by cache outcome.",
		}, []string{"outcome"})

		prometheus.MustRegister(
			httpRequestsTotal,
			httpLatencySeconds,
			submissionsCreated,
			submissionsApproved,
			badgesAwardedTotal,
			chatConnectionsTotal,
			chatMessagesSentTotal,
			announcementsRequests,
		)
	})
}

// HTTPRequests exposes the counter for served requests.
func HTTPRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return httpRequestsTotal
}

// HTTPLatency exposes the latency histogram for served requests.
func HTTPLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return httpLatencySeconds
}

// SubmissionsCreated exposes the submission hand-in counter.
func SubmissionsCreated() prometheus.Counter {
	RegisterMetrics()
	return submissionsCreated
}

// SubmissionsApproved exposes the first-approval counter.
func SubmissionsApproved() prometheus.Counter {
	RegisterMetrics()
	return submissionsApproved
}

// BadgesAwarded exposes the badge counter labelled by badge name.
func BadgesAwarded() *prometheus.CounterVec {
	RegisterMetrics()
	return badgesAwardedTotal
}

// ChatConnectionsTotal exposes the websocket connection counter.
func ChatConnectionsTotal() prometheus.Counter {
	RegisterMetrics()
	return chatConnectionsTotal
}

// ChatMessagesSent exposes the chat message counter labelled by message type.
func ChatMessagesSent() *prometheus.CounterVec {
	RegisterMetrics()
	return chatMessagesSentTotal
}

// AnnouncementsRequests exposes the announcement cache outcome counter.
func AnnouncementsRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return announcementsRequests
}
