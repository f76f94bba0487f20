// Package metrics exposes Prometheus instruments for the bridge: live
// subscriptions per axis, axis writes, structural changes, and effect
// runs.
//
// A nil *Bridge is valid and records nothing.
package metrics

import (
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "formsignal"

// Bridge holds the bridge instruments.
type Bridge struct {
	subscriptionsActive *prometheus.GaugeVec   // By axis
	subscriptionsTotal  *prometheus.CounterVec // By axis
	axisWrites          *prometheus.CounterVec // By axis
	structuralChanges   prometheus.Counter
	deepBridges         prometheus.Gauge
	effectRuns          prometheus.Counter
}

// New creates the instruments and registers them with reg. A nil reg
// yields instruments that are not registered anywhere.
func New(reg prometheus.Registerer) (*Bridge, error) {
	m := &Bridge{
		subscriptionsActive: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "bridge",
			Name:      "subscriptions_active",
			Help:      "Node event subscriptions currently held by bridges",
		}, []string{"axis"}),

		subscriptionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bridge",
			Name:      "subscriptions_total",
			Help:      "Node event subscriptions opened by bridges",
		}, []string{"axis"}),

		axisWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bridge",
			Name:      "axis_writes_total",
			Help:      "Cell writes driven by node events",
		}, []string{"axis"}),

		structuralChanges: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bridge",
			Name:      "structural_changes_total",
			Help:      "Children-set changes detected by deep bridges",
		}),

		deepBridges: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "bridge",
			Name:      "deep_bridges_active",
			Help:      "Deep bridges currently alive",
		}),

		effectRuns: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reactive",
			Name:      "effect_runs_total",
			Help:      "Effect body executions",
		}),
	}

	if reg == nil {
		return m, nil
	}

	for _, c := range m.collectors() {
		if err := reg.Register(c); err != nil {
			var already prometheus.AlreadyRegisteredError
			if errors.As(err, &already) {
				return nil, fmt.Errorf("metrics already registered: %w", err)
			}
			return nil, fmt.Errorf("register metrics: %w", err)
		}
	}
	return m, nil
}

func (m *Bridge) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.subscriptionsActive,
		m.subscriptionsTotal,
		m.axisWrites,
		m.structuralChanges,
		m.deepBridges,
		m.effectRuns,
	}
}

// Subscribed records a new subscription on axis.
func (m *Bridge) Subscribed(axis string) {
	if m == nil {
		return
	}
	m.subscriptionsActive.WithLabelValues(axis).Inc()
	m.subscriptionsTotal.WithLabelValues(axis).Inc()
}

// Unsubscribed records a released subscription on axis.
func (m *Bridge) Unsubscribed(axis string) {
	if m == nil {
		return
	}
	m.subscriptionsActive.WithLabelValues(axis).Dec()
}

// Wrote records an event-driven cell write on axis.
func (m *Bridge) Wrote(axis string) {
	if m == nil {
		return
	}
	m.axisWrites.WithLabelValues(axis).Inc()
}

// StructureChanged records a children-set change.
func (m *Bridge) StructureChanged() {
	if m == nil {
		return
	}
	m.structuralChanges.Inc()
}

// DeepCreated records a new deep bridge.
func (m *Bridge) DeepCreated() {
	if m == nil {
		return
	}
	m.deepBridges.Inc()
}

// DeepReleased records a disposed deep bridge.
func (m *Bridge) DeepReleased() {
	if m == nil {
		return
	}
	m.deepBridges.Dec()
}

// EffectRan records an effect execution. Suitable for
// reactive.WithEffectHook.
func (m *Bridge) EffectRan() {
	if m == nil {
		return
	}
	m.effectRuns.Inc()
}

// Summary gathers current values from g keyed by metric name, with label
// values appended as name{label=value}. Used for CLI reporting.
func Summary(g prometheus.Gatherer) (map[string]float64, error) {
	families, err := g.Gather()
	if err != nil {
		return nil, fmt.Errorf("gather metrics: %w", err)
	}

	out := make(map[string]float64)
	for _, mf := range families {
		for _, metric := range mf.GetMetric() {
			name := mf.GetName()
			for _, lp := range metric.GetLabel() {
				name += fmt.Sprintf("{%s=%s}", lp.GetName(), lp.GetValue())
			}
			switch {
			case metric.GetGauge() != nil:
				out[name] = metric.GetGauge().GetValue()
			case metric.GetCounter() != nil:
				out[name] = metric.GetCounter().GetValue()
			}
		}
	}
	return out, nil
}
