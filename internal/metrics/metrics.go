// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// OperationDuration times every attendance engine operation.
	OperationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "attendance",
		Name:      "operation_duration_seconds",
		Help:      "Latency of attendance engine operations.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"operation", "result"})

	// MarksRecorded counts presence marks applied to the ledger.
	MarksRecorded = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "attendance",
		Name:      "marks_recorded_total",
		Help:      "Presence marks applied, by outcome of the mark.",
	}, []string{"change"})

	// SessionsCreated counts practice sessions created by EnsureSession.
	SessionsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "attendance",
		Name:      "sessions_created_total",
		Help:      "Practice sessions created.",
	})

	// HTTPRequests counts API requests by route and status.
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "attendance",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests by method, route and status code.",
	}, []string{"method", "route", "status"})

	// RateLimited counts requests rejected by the rate limiter.
	RateLimited = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "attendance",
		Subsystem: "http",
		Name:      "rate_limited_total",
		Help:      "Requests rejected by the rate limiter.",
	})
)

// Mark change labels.
const (
	ChangeInserted = "inserted"
	ChangeUpdated  = "updated"
)

// ObserveOperation records the latency of op since start.
func ObserveOperation(op string, start time.Time, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	OperationDuration.WithLabelValues(op, result).Observe(time.Since(start).Seconds())
}
