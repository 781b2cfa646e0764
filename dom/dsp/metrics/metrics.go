/*
Package metrics exports Prometheus metrics for DOM security policies.

Metrics:

   <ns>_decisions_total{operation, result, directive}   decisions by outcome
   <ns>_policy_loads_total{result}                       policy loads, ok | error
   <ns>_policy_rules                                     rules of the current policy

Metrics are attached to a policy as an observer:

   m := metrics.New("dsp", prometheus.DefaultRegisterer)
   policy.Observe(m)

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2017–2022 Norbert Pillmayer <norbert@pillmayer.com>
*/
package metrics

import (
	"github.com/npillmayer/dsp/dom/dsp"
	"github.com/prometheus/client_golang/prometheus"
)

// DefaultNamespace is used if no namespace is given.
const DefaultNamespace = "dsp"

// Metrics records decisions and policy loads. It implements dsp.Observer.
type Metrics struct {
	decisions *prometheus.CounterVec
	loads     *prometheus.CounterVec
	rules     prometheus.Gauge
}

// New creates and registers policy metrics. If reg is nil, metrics are
// created but not registered.
func New(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	m := &Metrics{
		decisions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "decisions_total",
				Help:      "Total number of DOM mutation decisions",
			},
			[]string{"operation", "result", "directive"},
		),
		loads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "policy_loads_total",
				Help:      "Total number of policy loads",
			},
			[]string{"result"},
		),
		rules: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "policy_rules",
				Help:      "Number of rules of the current policy",
			},
		),
	}
	if reg != nil {
		reg.MustRegister(m.decisions, m.loads, m.rules)
	}
	return m
}

// PolicyLoaded is part of interface dsp.Observer.
func (m *Metrics) PolicyLoaded(doc *dsp.Document, err error) {
	if err != nil {
		m.loads.WithLabelValues("error").Inc()
		return
	}
	m.loads.WithLabelValues("ok").Inc()
	m.rules.Set(float64(doc.Len()))
}

// Decided is part of interface dsp.Observer.
func (m *Metrics) Decided(op dsp.Operation, d dsp.Decision) {
	result := "deny"
	if d.Allowed {
		result = "allow"
	}
	directive := "default"
	if !d.IsDefault() {
		directive = d.Directive.String()
	}
	m.decisions.WithLabelValues(op.String(), result, directive).Inc()
}

var _ dsp.Observer = &Metrics{}
