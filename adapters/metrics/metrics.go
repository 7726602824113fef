// Package metrics provides Prometheus metrics collection for formbase.
package metrics

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector holds all Prometheus metrics for the service.
type Collector struct {
	// Request metrics
	RequestsTotal    *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	RequestsInFlight prometheus.Gauge

	// Document store metrics
	DocumentOps *prometheus.CounterVec
}

// New creates a new metrics collector with all metrics registered.
func New() *Collector {
	return &Collector{
		RequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "formbase",
				Name:      "requests_total",
				Help:      "Total number of HTTP requests processed",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "formbase",
				Name:      "request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path", "status"},
		),
		RequestsInFlight: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "formbase",
				Name:      "requests_in_flight",
				Help:      "Number of requests currently being processed",
			},
		),
		DocumentOps: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "formbase",
				Name:      "document_ops_total",
				Help:      "Total number of document store operations by schema and outcome",
			},
			[]string{"schema", "op", "outcome"},
		),
	}
}

// NewWithRegistry creates a collector registered on a private registry.
// Used in tests to avoid duplicate registration on the default registerer.
func NewWithRegistry(reg *prometheus.Registry) *Collector {
	factory := promauto.With(reg)
	return &Collector{
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "formbase",
				Name:      "requests_total",
				Help:      "Total number of HTTP requests processed",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "formbase",
				Name:      "request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path", "status"},
		),
		RequestsInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "formbase",
				Name:      "requests_in_flight",
				Help:      "Number of requests currently being processed",
			},
		),
		DocumentOps: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "formbase",
				Name:      "document_ops_total",
				Help:      "Total number of document store operations by schema and outcome",
			},
			[]string{"schema", "op", "outcome"},
		),
	}
}

// NormalizePath collapses document identifiers out of request paths so the
// path label stays low-cardinality: /api/product/42 becomes /api/product/:id.
func NormalizePath(path string) string {
	segments := strings.Split(strings.Trim(path, "/"), "/")
	if len(segments) < 2 || segments[0] != "api" {
		return path
	}

	switch {
	case segments[1] == "schema":
		if len(segments) > 2 {
			return "/api/schema/:name"
		}
		return "/api/schema"
	case len(segments) > 2:
		return "/api/" + segments[1] + "/:id"
	default:
		return "/api/" + segments[1]
	}
}
