// Package metrics exposes Prometheus instruments for the round lifecycle.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "equb"

// Metrics holds every instrument the engine updates.
type Metrics struct {
	RoundsStarted     prometheus.Counter
	WinnersSelected   *prometheus.CounterVec
	PaymentsConfirmed prometheus.Counter
	Conflicts         *prometheus.CounterVec
	PenaltiesApplied  prometheus.Counter
	SweepRounds       *prometheus.CounterVec
	SweepDuration     prometheus.Histogram
}

// New creates the instruments and registers them with reg.
// Pass prometheus.NewRegistry() in tests to keep them isolated.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RoundsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rounds_started_total",
			Help:      "Rounds opened.",
		}),
		WinnersSelected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "winners_selected_total",
			Help:      "Rounds completed with a winner, by selection method.",
		}, []string{"method"}),
		PaymentsConfirmed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payments_confirmed_total",
			Help:      "Contributions moved from PENDING to COMPLETED.",
		}),
		Conflicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "concurrency_conflicts_total",
			Help:      "Guarded writes that lost a race, by operation.",
		}, []string{"operation"}),
		PenaltiesApplied: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "penalties_applied_total",
			Help:      "Late contributions penalized by the deadline sweep.",
		}),
		SweepRounds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sweep_rounds_total",
			Help:      "Rounds visited by the deadline sweep, by result.",
		}, []string{"result"}),
		SweepDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sweep_duration_seconds",
			Help:      "Wall time of one deadline sweep.",
			Buckets:   prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(
		m.RoundsStarted,
		m.WinnersSelected,
		m.PaymentsConfirmed,
		m.Conflicts,
		m.PenaltiesApplied,
		m.SweepRounds,
		m.SweepDuration,
	)

	return m
}
