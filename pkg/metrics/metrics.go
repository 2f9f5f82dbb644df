package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	WebhookEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_webhook_events_total",
			Help: "Total number of inbound webhook events by classified type and status (count)",
		},
		[]string{"event_type", "status"},
	)

	ForwardAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_forward_attempts_total",
			Help: "Total number of backend forward attempts by outcome (count)",
		},
		[]string{"outcome"},
	)

	ForwardDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "relay_forward_duration_ms",
			Help:    "Backend forward duration in milliseconds",
			Buckets: []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 15000},
		},
		[]string{"outcome"},
	)

	RetryQueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "relay_retry_queue_depth",
			Help: "Current number of payloads waiting in the retry queue (count)",
		},
	)

	RetryQueueDroppedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "relay_retry_queue_dropped_total",
			Help: "Payloads rejected because the retry queue was at capacity (count)",
		},
	)

	RetryQueueExhaustedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "relay_retry_queue_exhausted_total",
			Help: "Payloads dropped after exhausting all retry attempts (count)",
		},
	)

	RetryQueueDeliveredTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "relay_retry_queue_delivered_total",
			Help: "Payloads delivered successfully from the retry queue (count)",
		},
	)

	RateLimitRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_rate_limit_requests_total",
			Help: "Admin API requests by rate limit decision (count)",
		},
		[]string{"decision"},
	)

	CircuitBreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "relay_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_circuit_breaker_requests_total",
			Help: "Requests through the circuit breaker by state (count)",
		},
		[]string{"name", "state"},
	)

	CircuitBreakerFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_circuit_breaker_failures_total",
			Help: "Failed requests through the circuit breaker (count)",
		},
		[]string{"name"},
	)
)

func RegisterRelayMetrics() {
	prometheus.MustRegister(
		WebhookEventsTotal,
		ForwardAttemptsTotal,
		ForwardDuration,
		RetryQueueDepth,
		RetryQueueDroppedTotal,
		RetryQueueExhaustedTotal,
		RetryQueueDeliveredTotal,
	)
}

func RegisterRateLimitMetrics() {
	prometheus.MustRegister(RateLimitRequestsTotal)
}

func RegisterCircuitBreakerMetrics() {
	prometheus.MustRegister(
		CircuitBreakerState,
		CircuitBreakerRequests,
		CircuitBreakerFailures,
	)
}
