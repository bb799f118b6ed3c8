package propagation

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// walksTotal counts propagation walks by outcome
	walksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orgoals_propagation_walks_total",
		Help: "Total propagation walks by outcome",
	}, []string{"outcome"}) // "ok", "noop", "error"

	// walkDuration tracks propagation latency
	walkDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "orgoals_propagation_duration_seconds",
		Help:    "Propagation walk duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.0001, 2, 14),
	})

	// walkLevels tracks how many ancestor goals one walk touched
	walkLevels = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "orgoals_propagation_levels",
		Help:    "Ancestor levels visited per propagation walk",
		Buckets: []float64{0, 1, 2, 3, 5, 8, 13, 21, 34},
	})

	// ancestorWrites counts ancestor goal writes by kind
	ancestorWrites = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orgoals_propagation_ancestor_writes_total",
		Help: "Ancestor goals created or updated by propagation",
	}, []string{"kind"}) // "created", "updated", "locked"
)
