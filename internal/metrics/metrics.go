// Package metrics exposes Prometheus counters for profile updates and broadcasts.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups the service counters.
type Metrics struct {
	Updates   *prometheus.CounterVec // by outcome
	Published *prometheus.CounterVec // by message type
	Failures  *prometheus.CounterVec // by stage
}

// New registers the counters on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Updates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "profiled",
			Name:      "profile_updates_total",
			Help:      "Profile update requests by outcome.",
		}, []string{"outcome"}),
		Published: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "profiled",
			Name:      "broadcast_published_total",
			Help:      "Broadcast messages published by type.",
		}, []string{"type"}),
		Failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "profiled",
			Name:      "broadcast_failures_total",
			Help:      "Broadcast failures by stage (resolve, encode, publish).",
		}, []string{"stage"}),
	}
	reg.MustRegister(m.Updates, m.Published, m.Failures)
	return m
}

// NewNop returns counters that are not registered anywhere.
func NewNop() *Metrics { return New(prometheus.NewRegistry()) }
