package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "mail_sorter"

// Resolution outcomes
const (
	ResultMatched   = "matched"
	ResultExcluded  = "excluded"
	ResultUnmatched = "unmatched"
)

var (
	// MessagesFiled counts messages filed per category label
	MessagesFiled = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_filed_total",
			Help:      "Messages filed under a category",
		},
		[]string{"label"},
	)
	// FilingFailures counts matched messages that could not be filed
	FilingFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "filing_failures_total",
		Help:      "Messages that matched a rule but could not be filed",
	})
	// SweepRuns counts completed sweeps by mode (live or dry_run)
	SweepRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sweep_runs_total",
			Help:      "Completed sweeps by mode",
		},
		[]string{"mode"},
	)
	// Resolutions counts matcher outcomes
	Resolutions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resolutions_total",
			Help:      "Matcher outcomes",
		},
		[]string{"result"},
	)
	// DiscoveredRules counts sender rules added or reassigned by discovery
	DiscoveredRules = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "discovered_rules_total",
		Help:      "Sender rules written by discovery",
	})
	// ConsolidatedRules counts rules removed by consolidation
	ConsolidatedRules = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "consolidated_rules_total",
		Help:      "Rules removed by consolidation",
	})
)

// Init registers the collectors with the default registry
func Init() {
	prometheus.MustRegister(
		MessagesFiled,
		FilingFailures,
		SweepRuns,
		Resolutions,
		DiscoveredRules,
		ConsolidatedRules,
	)
}

// Handler exposes the default registry
func Handler() http.Handler {
	return promhttp.Handler()
}
