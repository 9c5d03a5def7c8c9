// Package observability provides Prometheus metrics for the HTTP surface and
// the outbound calls to the mail relay and the chat API.
package observability

import (
	"net/http"
	"strconv"

	"github.com/felixge/httpsnoop"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service collectors on a private registry.
type Metrics struct {
	registry        *prometheus.Registry
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	ExternalCalls   *prometheus.CounterVec
}

// NewMetrics creates a registry with Go and process collectors plus the
// service metrics.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := &Metrics{
		registry: registry,
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests by route, method and status",
			},
			[]string{"route", "method", "status"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency by route and method",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route", "method"},
		),
		ExternalCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "external_calls_total",
				Help: "Total number of outbound calls by service and outcome",
			},
			[]string{"service", "outcome"},
		),
	}

	registry.MustRegister(m.RequestsTotal, m.RequestDuration, m.ExternalCalls)
	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

// RecordExternalCall counts an outbound call to service.
func (m *Metrics) RecordExternalCall(service string, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.ExternalCalls.WithLabelValues(service, outcome).Inc()
}

// Middleware records count and latency of every request routed by mux.
// Requests that match no route are labelled "unmatched".
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route := "unmatched"
		if cur := mux.CurrentRoute(r); cur != nil {
			if tpl, err := cur.GetPathTemplate(); err == nil {
				route = tpl
			}
		}

		snoop := httpsnoop.CaptureMetrics(next, w, r)

		m.RequestsTotal.WithLabelValues(route, r.Method, strconv.Itoa(snoop.Code)).Inc()
		m.RequestDuration.WithLabelValues(route, r.Method).Observe(snoop.Duration.Seconds())
	})
}
