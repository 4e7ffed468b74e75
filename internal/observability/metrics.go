// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 EmberMUD Contributors

package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Package-level metrics let the session and state code record events
// without carrying a Server reference. They are registered onto a server's
// registry in NewMetrics.
var (
	connectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "embermud_connections_total",
			Help: "Total number of accepted connections by transport",
		},
		[]string{"transport"},
	)
	sessionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "embermud_sessions_active",
			Help: "Number of currently attached sessions",
		},
	)
	stateTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "embermud_state_transitions_total",
			Help: "Total number of session state transitions by target state",
		},
		[]string{"state"},
	)
	authFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "embermud_auth_failures_total",
			Help: "Total number of failed password attempts",
		},
	)
	takeoversTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "embermud_session_takeovers_total",
			Help: "Total number of sessions displaced by a takeover",
		},
	)
)

// RecordConnection counts an accepted connection for a transport.
func RecordConnection(transport string) {
	connectionsTotal.WithLabelValues(transport).Inc()
}

// AddActiveSession increments the active session gauge.
func AddActiveSession() {
	sessionsActive.Inc()
}

// RemoveActiveSession decrements the active session gauge.
func RemoveActiveSession() {
	sessionsActive.Dec()
}

// RecordStateTransition counts a transition into the named state.
func RecordStateTransition(state string) {
	stateTransitionsTotal.WithLabelValues(state).Inc()
}

// RecordAuthFailure counts a failed password attempt.
func RecordAuthFailure() {
	authFailuresTotal.Inc()
}

// RecordTakeover counts a displaced session.
func RecordTakeover() {
	takeoversTotal.Inc()
}

// Metrics exposes the custom EmberMUD metrics for recording and for tests.
type Metrics struct {
	ConnectionsTotal      *prometheus.CounterVec
	SessionsActive        prometheus.Gauge
	StateTransitionsTotal *prometheus.CounterVec
	AuthFailuresTotal     prometheus.Counter
	TakeoversTotal        prometheus.Counter
}

// NewMetrics registers the custom EmberMUD metrics with the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ConnectionsTotal:      connectionsTotal,
		SessionsActive:        sessionsActive,
		StateTransitionsTotal: stateTransitionsTotal,
		AuthFailuresTotal:     authFailuresTotal,
		TakeoversTotal:        takeoversTotal,
	}

	reg.MustRegister(connectionsTotal)
	reg.MustRegister(sessionsActive)
	reg.MustRegister(stateTransitionsTotal)
	reg.MustRegister(authFailuresTotal)
	reg.MustRegister(takeoversTotal)

	return m
}
