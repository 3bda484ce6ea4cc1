package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"sigs.k8s.io/controller-runtime/pkg/metrics"
)

var (
	ResolutionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "untrack_resolutions_total",
			Help: "Total number of URLs resolved, by matched pattern and reason",
		},
		[]string{"pattern", "reason"},
	)

	VerdictsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "untrack_verdicts_total",
			Help: "Total number of verdicts returned by the gateway",
		},
		[]string{"action"},
	)

	ResolveDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "untrack_resolve_duration_seconds",
			Help:    "Duration of a single URL resolution",
			Buckets: []float64{.00001, .000025, .00005, .0001, .00025, .0005, .001, .005},
		},
	)

	PassthroughDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "untrack_passthrough_duration_seconds",
			Help:    "Duration of requests forwarded unmodified to their origin",
			Buckets: prometheus.DefBuckets,
		},
	)

	ActiveRules = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "untrack_active_rules",
			Help: "Number of rules in the active registry",
		},
	)

	RuleSets = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "untrack_rule_sets",
			Help: "Number of TrackerRule resources contributing rules",
		},
	)

	RuleStoreUpdatesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "untrack_rule_store_updates_total",
			Help: "Total number of rule store updates",
		},
	)
)

func init() {
	metrics.Registry.MustRegister(
		ResolutionsTotal,
		VerdictsTotal,
		ResolveDuration,
		PassthroughDuration,
		ActiveRules,
		RuleSets,
		RuleStoreUpdatesTotal,
	)
}
