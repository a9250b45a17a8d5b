// SPDX-License-Identifier: MIT
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	processStartsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tunewatch_process_starts_total",
		Help: "External process start attempts by role and result",
	}, []string{"role", "result"}) // result=started|not_found|timeout|error

	processExitsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tunewatch_process_exits_total",
		Help: "External process exits by role and outcome",
	}, []string{"role", "outcome"}) // outcome=clean|error|signaled|detached

	procTerminateTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tunewatch_proc_terminate_total",
		Help: "Termination signals sent to process groups",
	}, []string{"signal", "result"}) // result=sent|esrch|error

	procWaitTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tunewatch_proc_wait_total",
		Help: "Outcome of waiting for a terminated process",
	}, []string{"outcome"}) // outcome=exited|forced_exited|stuck
)

func IncProcessStart(role, result string) { processStartsTotal.WithLabelValues(role, result).Inc() }
func IncProcessExit(role, outcome string) { processExitsTotal.WithLabelValues(role, outcome).Inc() }

func IncProcTerminate(signal, result string) { procTerminateTotal.WithLabelValues(signal, result).Inc() }
func IncProcWait(outcome string)             { procWaitTotal.WithLabelValues(outcome).Inc() }
