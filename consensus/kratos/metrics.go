// Copyright 2024 The go-equa Authors
// This file is part of the go-equa library.

package kratos

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes Prometheus counters and gauges for the consensus core's
// lifecycle events.
type Metrics struct {
	SlotsProcessed    prometheus.Counter
	BlocksValidated   prometheus.Counter
	BlocksRejected    prometheus.Counter
	ValidatorsActive  prometheus.Gauge
	SlashesApplied    prometheus.Counter
	ValidatorsEjected prometheus.Counter
	VCDecayEvents     prometheus.Counter
	EmissionMinted    prometheus.Counter
}

// NewMetrics constructs and registers the consensus core's metrics against
// reg. Passing a fresh prometheus.NewRegistry() per node avoids
// collisions when multiple nodes run in the same process (e.g. tests).
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		SlotsProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "kratos", Subsystem: "consensus", Name: "slots_processed_total",
			Help: "Total number of slots processed by the node.",
		}),
		BlocksValidated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "kratos", Subsystem: "consensus", Name: "blocks_validated_total",
			Help: "Total number of blocks that passed validation.",
		}),
		BlocksRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "kratos", Subsystem: "consensus", Name: "blocks_rejected_total",
			Help: "Total number of blocks that failed validation.",
		}),
		ValidatorsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "kratos", Subsystem: "consensus", Name: "validators_active",
			Help: "Current number of active validators.",
		}),
		SlashesApplied: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "kratos", Subsystem: "consensus", Name: "slashes_applied_total",
			Help: "Total number of slashing events applied.",
		}),
		ValidatorsEjected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "kratos", Subsystem: "consensus", Name: "validators_ejected_total",
			Help: "Total number of validators ejected for repeated critical offenses.",
		}),
		VCDecayEvents: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "kratos", Subsystem: "consensus", Name: "vc_decay_events_total",
			Help: "Total number of quarterly VC decay events applied.",
		}),
		EmissionMinted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "kratos", Subsystem: "tokenomics", Name: "emission_events_total",
			Help: "Total number of emission periods processed.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.SlotsProcessed, m.BlocksValidated, m.BlocksRejected, m.ValidatorsActive, m.SlashesApplied, m.ValidatorsEjected, m.VCDecayEvents, m.EmissionMinted)
	}
	return m
}
