// Package observability provides logging setup and Prometheus metrics.
package observability

import (
	"alcyxob/fitness-dashboard/internal/gateway"
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// GatewayCallLatency records gateway table call latency by operation and table.
	GatewayCallLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "fitness_gateway_call_latency_seconds",
		Help:    "Gateway table call latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// GatewayErrors counts failed gateway calls by operation and table.
	GatewayErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fitness_gateway_errors_total",
		Help: "Total number of failed gateway calls",
	}, []string{"operation", "table"})

	// AuthAttempts counts auth actions by action and outcome.
	AuthAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fitness_auth_attempts_total",
		Help: "Total auth actions by action and outcome",
	}, []string{"action", "outcome"})

	// HTTPRequests counts HTTP requests by route and status.
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fitness_http_requests_total",
		Help: "Total HTTP requests by route and status code",
	}, []string{"method", "route", "status"})

	// HTTPLatency records HTTP handler latency by route.
	HTTPLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "fitness_http_request_duration_seconds",
		Help:    "HTTP request latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	// WorkoutsCreated counts workout creations by outcome (ok, partial, failed).
	WorkoutsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fitness_workouts_created_total",
		Help: "Total workout creations by outcome",
	}, []string{"outcome"})
)

// TrackCall returns a function that records latency and, on a non-nil error,
// an error count for one gateway call.
func TrackCall(operation, table string) func(err error) {
	start := time.Now()
	return func(err error) {
		GatewayCallLatency.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
		if err != nil {
			GatewayErrors.WithLabelValues(operation, table).Inc()
		}
	}
}

// InstrumentGateway wraps gw so that every table call is measured.
func InstrumentGateway(gw gateway.Gateway) gateway.Gateway {
	if gw == nil {
		return nil
	}
	return &instrumented{Gateway: gw}
}

type instrumented struct {
	gateway.Gateway
}

func (g *instrumented) Table(name string) gateway.Table {
	return &instrumentedTable{inner: g.Gateway.Table(name), name: name}
}

type instrumentedTable struct {
	inner gateway.Table
	name  string
}

func (t *instrumentedTable) SelectAll(ctx context.Context, dest any) (err error) {
	done := TrackCall("select", t.name)
	defer func() { done(err) }()
	return t.inner.SelectAll(ctx, dest)
}

func (t *instrumentedTable) Insert(ctx context.Context, records any) (err error) {
	done := TrackCall("insert", t.name)
	defer func() { done(err) }()
	return t.inner.Insert(ctx, records)
}

func (t *instrumentedTable) InsertReturning(ctx context.Context, record any, columns string, dest any) (err error) {
	done := TrackCall("insert", t.name)
	defer func() { done(err) }()
	return t.inner.InsertReturning(ctx, record, columns, dest)
}
