// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package metrics exposes Prometheus collectors for the telemetry
// pipeline and the rollout loop. A nil *Metrics is valid and records
// nothing, so library components never need to check whether metrics
// are enabled.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "fotawatch"

// Metrics holds every collector on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	linesFramed  prometheus.Counter
	linesDropped *prometheus.CounterVec
	stateCommits *prometheus.CounterVec
	rolloutSteps *prometheus.CounterVec
	logFailures  prometheus.Counter
}

// New creates and registers all collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		linesFramed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lines_framed_total",
			Help:      "Complete non-empty lines produced by the framer.",
		}),
		linesDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lines_dropped_total",
			Help:      "Lines dropped because a sink queue was full.",
		}, []string{"sink"}),
		stateCommits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "state_commits_total",
			Help:      "Version map commits by parse rule.",
		}, []string{"rule"}),
		rolloutSteps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rollout_steps_total",
			Help:      "Rollout steps by outcome.",
		}, []string{"outcome"}),
		logFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "log_writer_failures_total",
			Help:      "Log writer loops terminated by file I/O errors.",
		}),
	}
	m.registry.MustRegister(m.linesFramed, m.linesDropped, m.stateCommits, m.rolloutSteps, m.logFailures)
	return m
}

// Registry returns the underlying registry, for tests and for callers
// that want to add process collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// LineFramed counts one framed line.
func (m *Metrics) LineFramed() {
	if m == nil {
		return
	}
	m.linesFramed.Inc()
}

// LineDropped counts one line dropped by the named sink.
func (m *Metrics) LineDropped(sink string) {
	if m == nil {
		return
	}
	m.linesDropped.WithLabelValues(sink).Inc()
}

// StateCommitted counts one version map commit by the named rule.
func (m *Metrics) StateCommitted(rule string) {
	if m == nil {
		return
	}
	m.stateCommits.WithLabelValues(rule).Inc()
}

// RolloutStep counts one completed rollout step by outcome.
func (m *Metrics) RolloutStep(outcome string) {
	if m == nil {
		return
	}
	m.rolloutSteps.WithLabelValues(outcome).Inc()
}

// LogWriterFailed counts a log writer loop terminated by I/O failure.
func (m *Metrics) LogWriterFailed() {
	if m == nil {
		return
	}
	m.logFailures.Inc()
}
