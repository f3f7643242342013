// Package telemetry provides logging and metrics for the radiosnooze agent.
package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the agent's Prometheus collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	transitions    *prometheus.CounterVec
	commands       *prometheus.CounterVec
	commandedState prometheus.Gauge
	prefChanges    prometheus.Counter
}

// NewMetrics creates and registers the agent collectors.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "radiosnooze_power_transitions_total",
			Help: "Power transitions received from the OS.",
		}, []string{"transition"}),
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "radiosnooze_radio_commands_total",
			Help: "Radio power commands issued, by target state and result.",
		}, []string{"state", "result"}),
		commandedState: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "radiosnooze_radio_commanded_on",
			Help: "1 if the last commanded radio state is on, 0 if off.",
		}),
		prefChanges: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "radiosnooze_preference_changes_total",
			Help: "Observed changes of the hide-indicator preference.",
		}),
	}
	reg.MustRegister(
		m.transitions,
		m.commands,
		m.commandedState,
		m.prefChanges,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// RecordTransition counts a received power transition.
func (m *Metrics) RecordTransition(transition string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(transition).Inc()
}

// RecordCommand counts a driver call and updates the commanded-state gauge.
// The gauge follows intent, so failed calls still move it.
func (m *Metrics) RecordCommand(state string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.commands.WithLabelValues(state, result).Inc()
	if state == "on" {
		m.commandedState.Set(1)
	} else {
		m.commandedState.Set(0)
	}
}

// RecordPreferenceChange counts an observed preference change.
func (m *Metrics) RecordPreferenceChange() {
	if m == nil {
		return
	}
	m.prefChanges.Inc()
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns an HTTP handler that serves Prometheus-format metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
