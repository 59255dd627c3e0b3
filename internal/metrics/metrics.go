// Package metrics exposes the decision engine's process counters via
// prometheus/client_golang.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Registry bundles the engine's prometheus collectors behind one handle so
// callers don't reach for the default global registry directly.
type Registry struct {
	TicksTotal           prometheus.Counter
	TickFailuresTotal    prometheus.Counter
	LedgerEventsTotal    prometheus.Counter
	CommandsTotal        *prometheus.CounterVec
	GateLevel            prometheus.Gauge
	ArmedGauge           prometheus.Gauge
	TickDurationSeconds  prometheus.Histogram
}

// New builds a Registry and registers its collectors with reg.
func New(reg prometheus.Registerer) *Registry {
	r := &Registry{
		TicksTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "fxengine",
			Name:      "ticks_total",
			Help:      "Total ticks run by the orchestrator.",
		}),
		TickFailuresTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "fxengine",
			Name:      "tick_failures_total",
			Help:      "Ticks that recorded at least one ERROR event.",
		}),
		LedgerEventsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "fxengine",
			Name:      "ledger_events_total",
			Help:      "Ledger events successfully appended.",
		}),
		CommandsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fxengine",
			Name:      "commands_total",
			Help:      "Executor commands dispatched, by command type.",
		}, []string{"type"}),
		GateLevel: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "fxengine",
			Name:      "gate_level",
			Help:      "Current gate level, 0=G0 shadow .. 3=G3 live full.",
		}),
		ArmedGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "fxengine",
			Name:      "armed",
			Help:      "1 when arm state is ARMED, else 0.",
		}),
		TickDurationSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "fxengine",
			Name:      "tick_duration_seconds",
			Help:      "Wall-clock duration of a complete tick.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	reg.MustRegister(
		r.TicksTotal, r.TickFailuresTotal, r.LedgerEventsTotal,
		r.CommandsTotal, r.GateLevel, r.ArmedGauge, r.TickDurationSeconds,
	)
	return r
}
