// Package metrics exposes Prometheus collectors for connectivity
// transitions. A nil *Metrics is valid and records nothing.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/the-lightning-land/connectivityd/connectivity"
)

const namespace = "connectivityd"

var states = []connectivity.State{
	connectivity.Offline,
	connectivity.Online,
	connectivity.CaptivePortal,
}

type Metrics struct {
	stateChanges *prometheus.CounterVec
	preemptions  prometheus.Counter
	activations  *prometheus.CounterVec
	probes       *prometheus.CounterVec
	state        *prometheus.GaugeVec
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		stateChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "state_changes_total",
			Help:      "Number of adopted connectivity states.",
		}, []string{"state"}),
		preemptions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "preemptions_total",
			Help:      "Number of pending actions cancelled by a newer state.",
		}),
		activations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "activations_total",
			Help:      "Number of target activations.",
		}, []string{"target"}),
		probes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "probes_total",
			Help:      "Number of reachability probes by result.",
		}, []string{"result"}),
		state: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "state",
			Help:      "Current connectivity state, 1 for the adopted state.",
		}, []string{"state"}),
	}

	reg.MustRegister(m.stateChanges, m.preemptions, m.activations, m.probes, m.state)

	return m
}

func (m *Metrics) StateChanged(state connectivity.State) {
	if m == nil {
		return
	}

	m.stateChanges.WithLabelValues(state.String()).Inc()

	for _, s := range states {
		if s == state {
			m.state.WithLabelValues(s.String()).Set(1)
		} else {
			m.state.WithLabelValues(s.String()).Set(0)
		}
	}
}

func (m *Metrics) Preempted() {
	if m == nil {
		return
	}

	m.preemptions.Inc()
}

func (m *Metrics) Activated(target string) {
	if m == nil {
		return
	}

	m.activations.WithLabelValues(target).Inc()
}

func (m *Metrics) Probed(ok bool) {
	if m == nil {
		return
	}

	result := "failure"
	if ok {
		result = "success"
	}

	m.probes.WithLabelValues(result).Inc()
}
