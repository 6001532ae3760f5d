// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package metrics provides Prometheus metrics for the folio chat backend.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds every collector the server updates. Each instance owns its
// registry so several servers can coexist in one process (tests).
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	ChatRequestsTotal   *prometheus.CounterVec
	UpstreamDuration    *prometheus.HistogramVec
	QuotaRejections     prometheus.Counter
	RateLimitRejections prometheus.Counter
	HistoryRows         prometheus.Counter
	ServerStartTime     time.Time
}

// New creates and registers all collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry:        reg,
		ServerStartTime: time.Now(),

		HTTPRequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "folio_http_requests_total",
			Help: "Total HTTP requests by route, method and status.",
		}, []string{"route", "method", "status"}),

		HTTPRequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "folio_http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),

		ChatRequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "folio_chat_requests_total",
			Help: "Chat requests by outcome (ok, bad_request, quota, rate_limited, auth, upstream_rate_limited, error).",
		}, []string{"outcome"}),

		UpstreamDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "folio_upstream_duration_seconds",
			Help:    "Latency of upstream model calls.",
			Buckets: []float64{0.25, 0.5, 1, 2, 4, 8, 16, 32},
		}, []string{"model", "outcome"}),

		QuotaRejections: f.NewCounter(prometheus.CounterOpts{
			Name: "folio_quota_rejections_total",
			Help: "Requests rejected by the daily demo quota.",
		}),

		RateLimitRejections: f.NewCounter(prometheus.CounterOpts{
			Name: "folio_rate_limit_rejections_total",
			Help: "Requests rejected by the per-client rate limiter.",
		}),

		HistoryRows: f.NewCounter(prometheus.CounterOpts{
			Name: "folio_history_rows_written_total",
			Help: "Chat history rows written.",
		}),
	}
}

// ObserveHTTP records one finished HTTP request.
func (m *Metrics) ObserveHTTP(route, method string, status int, elapsed time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}

// ObserveChat records the outcome of one chat request.
func (m *Metrics) ObserveChat(outcome string) {
	m.ChatRequestsTotal.WithLabelValues(outcome).Inc()
}

// ObserveUpstream records one upstream model call.
func (m *Metrics) ObserveUpstream(model, outcome string, elapsed time.Duration) {
	m.UpstreamDuration.WithLabelValues(model, outcome).Observe(elapsed.Seconds())
}

// Uptime returns time since New.
func (m *Metrics) Uptime() time.Duration {
	return time.Since(m.ServerStartTime)
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
