// Package metrics exposes the market-service Prometheus collectors.
package metrics

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"

	"gridmarket/backend/services/market-service/internal/market"
)

const namespace = "gridmarket"

var (
	// Registry holds the service collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "route", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
		},
		[]string{"method", "route"},
	)

	settlements = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "settlement",
			Name:      "executions_total",
			Help:      "Settlement attempts by result.",
		},
		[]string{"result"},
	)

	settlementDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "settlement",
			Name:      "duration_seconds",
			Help:      "Time spent inside the settlement critical section.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 14),
		},
	)

	settledEnergy = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "settlement",
			Name:      "energy_kwh_total",
			Help:      "Energy transferred by committed settlements.",
		},
	)

	matches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "matcher",
			Name:      "lookups_total",
			Help:      "Match lookups by result.",
		},
		[]string{"result"},
	)

	feedConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "connections",
			Help:      "Open ledger feed websocket connections.",
		},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		settlements,
		settlementDuration,
		settledEnergy,
		matches,
		feedConnections,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// Result maps an operation error onto a low-cardinality label.
func Result(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, market.ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, market.ErrNotFound):
		return "not_found"
	case errors.Is(err, market.ErrNoMatch):
		return "no_match"
	case errors.Is(err, market.ErrInsufficientEnergy):
		return "insufficient_energy"
	case errors.Is(err, market.ErrInsufficientBudget):
		return "insufficient_budget"
	case errors.Is(err, market.ErrInvariantViolation):
		return "invariant_violation"
	default:
		return "error"
	}
}

// RecordSettlement records one settlement attempt.
func RecordSettlement(err error, energy decimal.Decimal, duration time.Duration) {
	settlements.WithLabelValues(Result(err)).Inc()
	settlementDuration.Observe(duration.Seconds())
	if err == nil {
		settledEnergy.Add(energy.InexactFloat64())
	}
}

// RecordMatch records one match lookup.
func RecordMatch(err error) {
	matches.WithLabelValues(Result(err)).Inc()
}

// FeedConnected adjusts the open feed connection gauge by delta.
func FeedConnected(delta int) {
	feedConnections.Add(float64(delta))
}

// InstrumentHandler records request counts and latency labelled by chi route pattern.
// It must run inside the chi router so the pattern is known.
func InstrumentHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		httpInFlight.Inc()
		defer httpInFlight.Dec()

		next.ServeHTTP(rec, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		method := strings.ToUpper(r.Method)
		httpRequests.WithLabelValues(method, route, strconv.Itoa(rec.status)).Inc()
		httpDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Hijack keeps websocket upgrades working through the recorder.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("metrics: response writer does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	return h.Hijack()
}
