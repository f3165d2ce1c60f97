package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
)

var BookingsCreatedTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "cleanco",
		Subsystem: "booking",
		Name:      "created_total",
		Help:      "Total number of bookings created, by deposit requirement.",
	},
	[]string{"deposit_required"},
)

var BookingStateTransitionsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "cleanco",
		Subsystem: "booking",
		Name:      "state_transitions_total",
		Help:      "Total number of booking state transitions, by from/to state.",
	},
	[]string{"from", "to"},
)

var OutboxEnqueuedTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "cleanco",
		Subsystem: "outbox",
		Name:      "enqueued_total",
		Help:      "Total number of outbox events enqueued, by kind.",
	},
	[]string{"kind"},
)

var OutboxDeliveredTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "cleanco",
		Subsystem: "outbox",
		Name:      "delivered_total",
		Help:      "Total number of outbox events delivered successfully, by kind.",
	},
	[]string{"kind"},
)

var OutboxFailedTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "cleanco",
		Subsystem: "outbox",
		Name:      "failed_total",
		Help:      "Total number of failed outbox delivery attempts, by kind.",
	},
	[]string{"kind"},
)

var OutboxDrainDuration = prometheus.NewHistogram(
	prometheus.HistogramOpts{
		Namespace: "cleanco",
		Subsystem: "outbox",
		Name:      "drain_duration_seconds",
		Help:      "Duration of one outbox drain iteration.",
		Buckets:   prometheus.DefBuckets,
	},
)

var WebhookSignatureInvalidTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "cleanco",
		Subsystem: "webhook",
		Name:      "signature_invalid_total",
		Help:      "Total number of inbound webhook requests rejected for a bad HMAC signature, by source.",
	},
	[]string{"source"},
)

var RateLimitFailOpenTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Namespace: "cleanco",
		Subsystem: "ratelimit",
		Name:      "fail_open_total",
		Help:      "Total number of requests allowed through because the rate limit backend errored.",
	},
)

var JobHeartbeatsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "cleanco",
		Subsystem: "jobs",
		Name:      "heartbeats_total",
		Help:      "Total number of scheduler job iterations completed, by job name.",
	},
	[]string{"job"},
)

var JobDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: "cleanco",
		Subsystem: "jobs",
		Name:      "duration_seconds",
		Help:      "Duration of a scheduler job iteration, by job name.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"job"},
)

var HTTPRequestsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "cleanco",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total HTTP requests, by route pattern, method and status class.",
	},
	[]string{"route", "method", "status"},
)

var HTTPRequestDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: "cleanco",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request duration in seconds, by route pattern.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"route", "method"},
)

// All returns every cleanco-specific metric collector for registration.
func All() []prometheus.Collector {
	return []prometheus.Collector{
		BookingsCreatedTotal,
		BookingStateTransitionsTotal,
		OutboxEnqueuedTotal,
		OutboxDeliveredTotal,
		OutboxFailedTotal,
		OutboxDrainDuration,
		WebhookSignatureInvalidTotal,
		RateLimitFailOpenTotal,
		JobHeartbeatsTotal,
		JobDuration,
		HTTPRequestsTotal,
		HTTPRequestDuration,
	}
}

// NewRegistry builds a Prometheus registry with Go/process collectors plus
// every collector returned by extra.
func NewRegistry(extra ...prometheus.Collector) *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(prometheus.NewGoCollector())
	reg.MustRegister(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))
	for _, c := range extra {
		reg.MustRegister(c)
	}
	return reg
}
