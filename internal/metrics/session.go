// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// WatchAttemptsTotal counts tuner session starts.
	WatchAttemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tunewatch_watch_attempts_total",
		Help: "Tuner watch attempts by kind and result",
	}, []string{"kind", "result"}) // kind=fresh|reconnect

	// ReconnectsScheduledTotal counts armed backoff reconnects by failure source.
	ReconnectsScheduledTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tunewatch_reconnects_scheduled_total",
		Help: "Backoff reconnects scheduled by failure source",
	}, []string{"source"})

	// EscalationsTotal counts switches to the resilient bridge profile.
	EscalationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tunewatch_bridge_escalations_total",
		Help: "Escalations to the resilient bridge profile by failure source",
	}, []string{"source"})

	// ReconnectsExhaustedTotal counts sessions that hit the attempt bound.
	ReconnectsExhaustedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tunewatch_reconnects_exhausted_total",
		Help: "Sessions abandoned after the maximum reconnect attempts",
	})

	sessionActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "tunewatch_session_active",
		Help: "Whether a channel is currently targeted (1) or not (0)",
	})

	bridgeResilient = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "tunewatch_bridge_resilient",
		Help: "Whether the bridge runs the resilient profile (1) or the pass-through profile (0)",
	})

	reconnectAttempts = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "tunewatch_reconnect_attempts",
		Help: "Reconnect attempts consumed by the current session",
	})
)

// RecordWatchAttempt records one watch start.
func RecordWatchAttempt(reconnect, started bool) {
	kind := "fresh"
	if reconnect {
		kind = "reconnect"
	}
	result := "failed"
	if started {
		result = "started"
	}
	WatchAttemptsTotal.WithLabelValues(kind, result).Inc()
}

// RecordSessionState publishes the current session gauges.
func RecordSessionState(active, resilient bool, attempts int) {
	sessionActive.Set(boolGauge(active))
	bridgeResilient.Set(boolGauge(resilient))
	reconnectAttempts.Set(float64(attempts))
}

func boolGauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
