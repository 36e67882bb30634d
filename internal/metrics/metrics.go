// Package metrics holds the Prometheus instrumentation for the payment service.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "payments",
			Name:      "requests_total",
			Help:      "Inbound API requests by handler and outcome",
		},
		[]string{"handler", "status"},
	)

	UpstreamCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "payments",
			Name:      "upstream_calls_total",
			Help:      "Gateway calls by operation and outcome",
		},
		[]string{"operation", "outcome"},
	)

	UpstreamDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "payments",
			Name:      "upstream_duration_seconds",
			Help:      "Gateway call latency by operation",
			Buckets:   []float64{0.05, 0.1, 0.2, 0.3, 0.5, 0.8, 1.2, 2, 3, 5, 8, 10},
		},
		[]string{"operation"},
	)

	TokenRefreshesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "payments",
			Name:      "token_refreshes_total",
			Help:      "Upstream credential refreshes by outcome",
		},
		[]string{"outcome"},
	)

	IntegrityFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "payments",
			Name:      "integrity_failures_total",
			Help:      "Checksum and tamper-hash verification failures",
		},
	)

	RateLimitRejectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "payments",
			Name:      "rate_limit_rejections_total",
			Help:      "Requests rejected by the sliding-window limiter",
		},
		[]string{"handler"},
	)
)

func init() {
	prometheus.MustRegister(
		RequestsTotal,
		UpstreamCallsTotal,
		UpstreamDuration,
		TokenRefreshesTotal,
		IntegrityFailuresTotal,
		RateLimitRejectionsTotal,
	)
}

// Helpers so call sites stay short.

func IncRequest(handler, status string) {
	RequestsTotal.WithLabelValues(handler, status).Inc()
}

func IncUpstreamCall(operation, outcome string) {
	UpstreamCallsTotal.WithLabelValues(operation, outcome).Inc()
}

func ObserveUpstream(operation string, seconds float64) {
	UpstreamDuration.WithLabelValues(operation).Observe(seconds)
}

func IncTokenRefresh(outcome string) {
	TokenRefreshesTotal.WithLabelValues(outcome).Inc()
}

func IncIntegrityFailure() {
	IntegrityFailuresTotal.Inc()
}

func IncRateLimitRejection(handler string) {
	RateLimitRejectionsTotal.WithLabelValues(handler).Inc()
}
