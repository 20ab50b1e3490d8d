package orchestrator

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricStateTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "call_state_transitions_total",
		Help: "Call session state transitions",
	}, []string{"from", "to"})

	metricJoins = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "call_joins_total",
		Help: "Join attempts by outcome",
	}, []string{"outcome"})

	metricActiveHandles = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "call_active_sessions",
		Help: "Transport handles currently retained",
	})

	metricTransportEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "call_transport_events_total",
		Help: "Transport events applied or dropped as stale",
	}, []string{"type", "result"})
)
