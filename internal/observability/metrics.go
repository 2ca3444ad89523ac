package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RidesActive     = promauto.NewGauge(prometheus.GaugeOpts{Namespace: "gator_taxi", Name: "rides_active", Help: "Number of active ride requests"})
	DispatchesTotal = promauto.NewCounter(prometheus.CounterOpts{Namespace: "gator_taxi", Name: "dispatches_total", Help: "Total rides handed out by next-ride"})

	RideOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "gator_taxi", Name: "ride_operations_total", Help: "Registry operations by outcome"},
		[]string{"op", "result"},
	)

	EventsDropped      = promauto.NewCounter(prometheus.CounterOpts{Namespace: "gator_taxi", Name: "events_dropped_total", Help: "Ride events dropped on a full bus"})
	EventHandlerErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "gator_taxi", Name: "event_handler_errors_total", Help: "Ride event handler failures"},
		[]string{"handler"},
	)
	OutboxPublished = promauto.NewCounter(prometheus.CounterOpts{Namespace: "gator_taxi", Name: "outbox_published_total", Help: "Outbox entries acknowledged by the broker"})

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "gator_taxi", Name: "http_requests_total", Help: "Total HTTP requests handled"},
		[]string{"method", "path", "status"},
	)
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "gator_taxi",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency distribution",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
