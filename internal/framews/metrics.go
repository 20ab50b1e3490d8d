package framews

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricHosts = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "frame_hosts_connected",
		Help: "Frame hosts currently connected",
	})

	metricCommands = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "frame_commands_total",
		Help: "Commands sent to frame hosts",
	}, []string{"type"})

	metricEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "frame_events_total",
		Help: "Call events received from frame hosts",
	}, []string{"type"})
)
