package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry owns the service metrics on a private prometheus registry.
type Registry struct {
	registry *prometheus.Registry

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec

	storeOps      *prometheus.CounterVec
	storeDuration *prometheus.HistogramVec
}

// NewRegistry creates a registry with all metrics and the Go/process collectors registered.
func NewRegistry() *Registry {
	r := &Registry{
		registry: prometheus.NewRegistry(),
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "subscriber_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		httpDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "subscriber_http_request_duration_seconds",
				Help:    "Time spent serving HTTP requests",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		storeOps: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "subscriber_store_operations_total",
				Help: "Total number of subscriber store operations",
			},
			[]string{"operation", "status"}, // status: success, error
		),
		storeDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "subscriber_store_operation_duration_seconds",
				Help:    "Time spent in subscriber store operations",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
	r.registry.MustRegister(
		r.httpRequests,
		r.httpDuration,
		r.storeOps,
		r.storeDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// RecordHTTP records one served request.
func (r *Registry) RecordHTTP(method, route string, status int, d time.Duration) {
	r.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	r.httpDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// RecordStore records one store operation.
func (r *Registry) RecordStore(op string, err error, d time.Duration) {
	status := "success"
	if err != nil {
		status = "error"
	}
	r.storeOps.WithLabelValues(op, status).Inc()
	r.storeDuration.WithLabelValues(op).Observe(d.Seconds())
}

// Handler serves the registry in the prometheus exposition format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// Gatherer exposes the underlying registry, mainly for tests.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.registry
}
