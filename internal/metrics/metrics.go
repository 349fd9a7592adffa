// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// QueryTotal counts repository operations by outcome.
	QueryTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_db_operations_total",
			Help: "Total number of database operations",
		},
		[]string{"operation", "engine", "status"},
	)
	// QueryDuration is the latency of repository operations, connection
	// acquisition included.
	QueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ledger_db_operation_duration_seconds",
			Help:    "Database operation latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "engine"},
	)
	// StartupAttempts is the number of connection attempts made at startup.
	StartupAttempts = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ledger_startup_connection_attempts",
			Help: "Connection attempts made while waiting for the database at startup",
		},
	)
	// StartupReady is 1 when bootstrap finished without problems, 0 when degraded.
	StartupReady = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ledger_startup_ready",
			Help: "Whether the persistence layer started without problems",
		},
	)
	// RequestTotal counts HTTP requests by method, route and status.
	RequestTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)
	// RequestDuration is the latency of HTTP requests.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ledger_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
	// EventsPublished counts movement events sent to the broker.
	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_events_published_total",
			Help: "Total number of movement events published",
		},
		[]string{"event", "status"},
	)
)

// ObserveQuery records one repository operation.
func ObserveQuery(operation, engine string, err error, elapsed time.Duration) {
	QueryTotal.WithLabelValues(operation, engine, status(err)).Inc()
	QueryDuration.WithLabelValues(operation, engine).Observe(elapsed.Seconds())
}

// RecordStartup stores the bootstrap outcome.
func RecordStartup(ready bool, attempts int) {
	StartupAttempts.Set(float64(attempts))
	if ready {
		StartupReady.Set(1)
	} else {
		StartupReady.Set(0)
	}
}

// ObserveRequest records one HTTP request.
func ObserveRequest(method, route string, code int, elapsed time.Duration) {
	RequestTotal.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
	RequestDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// ObserveEvent records one publish attempt.
func ObserveEvent(event string, err error) {
	EventsPublished.WithLabelValues(event, status(err)).Inc()
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
