package submit

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	submitAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "clubconsole_submission_attempts_total",
		Help: "Individual POST attempts, retries included.",
	}, []string{"kind"})

	submitOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "clubconsole_submissions_total",
		Help: "Settled submissions by outcome.",
	}, []string{"kind", "outcome"})
)
