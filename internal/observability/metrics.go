package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce              sync.Once
	apiRequestsTotal          *prometheus.CounterVec
	apiLatencySeconds         *prometheus.HistogramVec
	apiErrorsTotal            *prometheus.CounterVec
	flagTransitionsTotal      *prometheus.CounterVec
	ticketResolutionsTotal    prometheus.Counter
	notificationsPublished    *prometheus.CounterVec
	notificationFailuresTotal *prometheus.CounterVec
	sseClientsActive          prometheus.Gauge
)

// RegisterMetrics initialises the Prometheus collectors used by the dispute API.
func RegisterMetrics() {
	registerOnce.Do(func() {
		apiRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "peereval_requests_total",
			Help: "Total number of dispute API requests served.",
		}, []string{"method", "route", "status"})

		apiLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "peereval_latency_seconds",
			Help:    "Latency distribution for dispute API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		apiErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "peereval_errors_total",
			Help: "Total number of error responses returned by dispute endpoints.",
		}, []string{"method", "route", "status"})

		flagTransitionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "peereval_flag_transitions_total",
			Help: "Flag resolution status transitions applied.",
		}, []string{"from", "to"})

		ticketResolutionsTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "peereval_ticket_resolutions_total",
			Help: "Escalated tickets closed by teachers.",
		})

		notificationsPublished = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "peereval_notifications_published_total",
			Help: "Notifications persisted and broadcast.",
		}, []string{"type"})

		notificationFailuresTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "peereval_notification_failures_total",
			Help: "Notifications dropped because delivery failed.",
		}, []string{"type"})

		sseClientsActive = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "peereval_sse_clients_active",
			Help: "Open notification streams.",
		})

		prometheus.MustRegister(
			apiRequestsTotal,
			apiLatencySeconds,
			apiErrorsTotal,
			flagTransitionsTotal,
			ticketResolutionsTotal,
			notificationsPublished,
			notificationFailuresTotal,
			sseClientsActive,
		)
	})
}

// APIRequests exposes the counter for API requests.
func APIRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return apiRequestsTotal
}

// APILatency exposes the latency histogram for API requests.
func APILatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return apiLatencySeconds
}

// APIErrors exposes the counter for API error responses.
func APIErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return apiErrorsTotal
}

// FlagTransitions exposes the flag transition counter.
func FlagTransitions() *prometheus.CounterVec {
	RegisterMetrics()
	return flagTransitionsTotal
}

// TicketResolutions exposes the ticket resolution counter.
func TicketResolutions() prometheus.Counter {
	RegisterMetrics()
	return ticketResolutionsTotal
}

// NotificationsPublishedTotal exposes the published notification counter.
func NotificationsPublishedTotal() *prometheus.CounterVec {
	RegisterMetrics()
	return notificationsPublished
}

// NotificationFailures exposes the failed notification counter.
func NotificationFailures() *prometheus.CounterVec {
	RegisterMetrics()
	return notificationFailuresTotal
}

// SSEClientsActive exposes the open stream gauge.
func SSEClientsActive() prometheus.Gauge {
	RegisterMetrics()
	return sseClientsActive
}
