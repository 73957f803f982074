// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package observability holds the gateway's Prometheus metrics, exposed
// via /metrics for the same dashboards services/orchestrator's
// streaming metrics feed.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "qwed"
const gatewaySubsystem = "gateway"

// Metrics holds every Prometheus collector the gateway reports.
// Initialize once at startup via InitMetrics.
type Metrics struct {
	// RequestsTotal counts verification requests by kind and verdict.
	RequestsTotal *prometheus.CounterVec

	// RequestDurationSeconds measures pipeline.Run latency by kind.
	RequestDurationSeconds *prometheus.HistogramVec

	// InFlightRequests tracks requests currently inside the pipeline.
	InFlightRequests prometheus.Gauge

	// CacheResultsTotal counts cache hits and misses.
	CacheResultsTotal *prometheus.CounterVec

	// ReflectionAttemptsTotal counts self-reflection retries by outcome.
	ReflectionAttemptsTotal *prometheus.CounterVec

	// AdmissionBlocksTotal counts policy.Engine rejections by layer.
	AdmissionBlocksTotal *prometheus.CounterVec

	// ProviderCircuitState reports each provider's circuit breaker state
	// (0=closed, 1=half_open, 2=open).
	ProviderCircuitState *prometheus.GaugeVec
}

// DefaultMetrics is the singleton populated by InitMetrics.
var DefaultMetrics *Metrics

// InitMetrics registers every collector against the default registry.
// Panics if called twice, same as the orchestrator's InitMetrics.
func InitMetrics() *Metrics {
	DefaultMetrics = &Metrics{
		RequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: gatewaySubsystem,
				Name:      "requests_total",
				Help:      "Total verification requests by kind and verdict",
			},
			[]string{"kind", "verdict"},
		),
		RequestDurationSeconds: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: gatewaySubsystem,
				Name:      "request_duration_seconds",
				Help:      "pipeline.Run latency by kind",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{"kind"},
		),
		InFlightRequests: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Subsystem: gatewaySubsystem,
				Name:      "in_flight_requests",
				Help:      "Requests currently executing inside the pipeline",
			},
		),
		CacheResultsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: gatewaySubsystem,
				Name:      "cache_results_total",
				Help:      "Verification result cache hits and misses",
			},
			[]string{"result"},
		),
		ReflectionAttemptsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: gatewaySubsystem,
				Name:      "reflection_attempts_total",
				Help:      "Self-reflection retry attempts by outcome",
			},
			[]string{"outcome"},
		),
		AdmissionBlocksTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: gatewaySubsystem,
				Name:      "admission_blocks_total",
				Help:      "Requests rejected by policy.Engine, by layer",
			},
			[]string{"layer"},
		),
		ProviderCircuitState: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Subsystem: gatewaySubsystem,
				Name:      "provider_circuit_state",
				Help:      "Provider circuit breaker state: 0=closed, 1=half_open, 2=open",
			},
			[]string{"provider"},
		),
	}
	return DefaultMetrics
}

// RecordRequest records one completed pipeline.Run.
func (m *Metrics) RecordRequest(kind, verdict string, seconds float64) {
	m.RequestsTotal.WithLabelValues(kind, verdict).Inc()
	m.RequestDurationSeconds.WithLabelValues(kind).Observe(seconds)
}

// RecordCacheResult records a cache lookup outcome ("hit" or "miss").
func (m *Metrics) RecordCacheResult(result string) {
	m.CacheResultsTotal.WithLabelValues(result).Inc()
}

// RecordReflectionAttempt records one self-reflection retry outcome
// ("succeeded", "failed", or "budget_exhausted").
func (m *Metrics) RecordReflectionAttempt(outcome string) {
	m.ReflectionAttemptsTotal.WithLabelValues(outcome).Inc()
}

// RecordAdmissionBlock records one policy.Engine rejection.
func (m *Metrics) RecordAdmissionBlock(layer string) {
	m.AdmissionBlocksTotal.WithLabelValues(layer).Inc()
}

// circuitStateValue maps a circuit breaker state name to the gauge value
// ProviderCircuitState reports it as.
func circuitStateValue(state string) float64 {
	switch state {
	case "half_open":
		return 1
	case "open":
		return 2
	default:
		return 0
	}
}

// RecordProviderCircuitState reports provider's current circuit state.
func (m *Metrics) RecordProviderCircuitState(provider, state string) {
	m.ProviderCircuitState.WithLabelValues(provider).Set(circuitStateValue(state))
}
