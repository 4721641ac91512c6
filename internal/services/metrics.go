package services

import "github.com/prometheus/client_golang/prometheus"

var (
	// thankOutcomes counts thank attempts by outcome. Outcomes are a fixed
	// set: sent, duplicate, rejected, failed, notify_failed.
	thankOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "thanks_attempts_total",
			Help: "Thank attempts by outcome.",
		},
		[]string{"outcome"},
	)

	// cacheLookups counts session cache reads by result (hit|miss).
	cacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "thanks_cache_lookups_total",
			Help: "Session dedup cache lookups by result.",
		},
		[]string{"result"},
	)
)

func init() {
	prometheus.MustRegister(thankOutcomes, cacheLookups)
}
