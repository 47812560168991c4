// Copyright © 2025 Prabhjot Singh Sethi, All Rights reserved
// Author: Prabhjot Singh Sethi <prabhjot.sethi@gmail.com>

// Package metrics owns the gateway's prometheus collectors.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "openapi_gateway"

// Metrics groups the collectors registered on a private registry.
type Metrics struct {
	registry       *prometheus.Registry
	forwarded      *prometheus.CounterVec
	duration       *prometheus.HistogramVec
	upstreamErrors *prometheus.CounterVec
	routes         prometheus.Gauge
	assemblies     *prometheus.CounterVec
}

// New creates the collectors and registers them together with the Go
// runtime and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		forwarded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "forwarded_requests_total",
			Help:      "Forwarded calls by operation, method and relayed status code.",
		}, []string{"operation", "method", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "forward_duration_seconds",
			Help:      "Latency of forwarded calls including the remote round trip.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		upstreamErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_errors_total",
			Help:      "Forwarded calls that failed to reach the remote.",
		}, []string{"operation"}),
		routes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "routes",
			Help:      "Routes in the assembled route table.",
		}),
		assemblies: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "assemblies_total",
			Help:      "Route table assembly attempts by result.",
		}, []string{"result"}),
	}

	m.registry.MustRegister(
		m.forwarded,
		m.duration,
		m.upstreamErrors,
		m.routes,
		m.assemblies,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveForward records one completed forwarded call.
func (m *Metrics) ObserveForward(operation, method string, status int, elapsed time.Duration) {
	m.forwarded.WithLabelValues(operation, method, strconv.Itoa(status)).Inc()
	m.duration.WithLabelValues(operation).Observe(elapsed.Seconds())
}

// ObserveUpstreamError records a call that never got a remote response.
func (m *Metrics) ObserveUpstreamError(operation string) {
	m.upstreamErrors.WithLabelValues(operation).Inc()
}

// ObserveAssembly records the outcome of one assembly and the table size.
func (m *Metrics) ObserveAssembly(routes int, err error) {
	if err != nil {
		m.assemblies.WithLabelValues("failure").Inc()
		return
	}
	m.assemblies.WithLabelValues("success").Inc()
	m.routes.Set(float64(routes))
}
