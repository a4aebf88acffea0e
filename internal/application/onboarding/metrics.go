package onboarding

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	pathNew       = "new"
	pathReturning = "returning"
)

var (
	runsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "onboarding_runs_total",
			Help: "Onboarding runs by path and final state",
		},
		[]string{"path", "state"},
	)

	runDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "onboarding_run_duration_seconds",
			Help:    "Duration of onboarding runs in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path"},
	)

	compensationFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "onboarding_compensation_failures_total",
			Help: "Compensation steps that failed and were abandoned",
		},
		[]string{"step"},
	)
)
