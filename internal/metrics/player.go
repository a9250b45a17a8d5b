// SPDX-License-Identifier: MIT
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// MonitorPacketsTotal counts transport stream packets seen by the stream monitor.
	MonitorPacketsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tunewatch_monitor_packets_total",
		Help: "Transport stream packets received by the stream monitor",
	}, []string{"validity"}) // validity=valid|invalid

	// MonitorBytesTotal counts raw bytes received by the stream monitor.
	MonitorBytesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tunewatch_monitor_bytes_total",
		Help: "Bytes received by the stream monitor",
	})

	// MonitorStatusTotal counts status transitions reported by the stream monitor.
	MonitorStatusTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tunewatch_monitor_status_total",
		Help: "Stream monitor status transitions",
	}, []string{"status"})

	// LogLinesDroppedTotal counts child process log lines dropped by the limiter.
	LogLinesDroppedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tunewatch_log_lines_dropped_total",
		Help: "Process diagnostic lines dropped by log rate limiting",
	}, []string{"role"})
)
