package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "consultdesk"

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status code.",
		},
		[]string{"route", "code"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"route"},
	)

	consultationEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "consultation_events_total",
			Help:      "Consultation lifecycle events by type.",
		},
		[]string{"event"},
	)

	rateLimited = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the rate limiter.",
		},
	)

	sheetsSync = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sheets_sync_total",
			Help:      "Spreadsheet mirror tasks by result.",
		},
		[]string{"result"},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(httpRequests, httpDuration, consultationEvents, rateLimited, sheetsSync)
	})
}

// ObserveHTTP records a finished request.
func ObserveHTTP(route, code string, seconds float64) {
	httpRequests.WithLabelValues(route, code).Inc()
	httpDuration.WithLabelValues(route).Observe(seconds)
}

// IncConsultationEvent counts a lifecycle event.
func IncConsultationEvent(event string) {
	consultationEvents.WithLabelValues(event).Inc()
}

// IncRateLimited counts a throttled request.
func IncRateLimited() {
	rateLimited.Inc()
}

// IncSheetsSync counts a mirror task outcome ("ok", "retry", "failed", "superseded").
func IncSheetsSync(result string) {
	sheetsSync.WithLabelValues(result).Inc()
}
