// Package metrics exposes the service's Prometheus metrics.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/FairForge/webpixels/internal/pixel"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds every collector on a private registry.
type Metrics struct {
	RequestCounter   *prometheus.CounterVec
	LatencyHistogram *prometheus.HistogramVec
	DispatchCounter  *prometheus.CounterVec
	RateLimitHits    prometheus.Counter
	registry         *prometheus.Registry
}

// New creates and registers all metrics.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		RequestCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "webpixels_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		LatencyHistogram: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "webpixels_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		DispatchCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "webpixels_dispatch_total",
				Help: "Vendor dispatch outcomes per canonical event",
			},
			[]string{"vendor", "event", "outcome"},
		),
		RateLimitHits: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "webpixels_rate_limit_hits_total",
				Help: "Total number of rate limited event submissions",
			},
		),
		registry: registry,
	}

	registry.MustRegister(
		m.RequestCounter,
		m.LatencyHistogram,
		m.DispatchCounter,
		m.RateLimitHits,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// IncrementRequest counts one HTTP request.
func (m *Metrics) IncrementRequest(method, route string, status int) {
	m.RequestCounter.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
}

// RecordLatency records request latency.
func (m *Metrics) RecordLatency(method, route string, seconds float64) {
	m.LatencyHistogram.WithLabelValues(method, route).Observe(seconds)
}

// IncrementRateLimitHit counts a rejected submission. Store names come from
// the request path, so they are not used as a label.
func (m *Metrics) IncrementRateLimitHit() {
	m.RateLimitHits.Inc()
}

// ObserveDispatch implements pixel.Observer. Unknown event names are folded
// into one label value to keep cardinality bounded.
func (m *Metrics) ObserveDispatch(v pixel.Vendor, event pixel.EventName, outcome pixel.Outcome) {
	name := string(event)
	if !event.Known() {
		name = "other"
	}
	m.DispatchCounter.WithLabelValues(string(v), name, string(outcome)).Inc()
}

// Handler returns the Prometheus scrape handler.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
