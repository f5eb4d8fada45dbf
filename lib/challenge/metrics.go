package challenge

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	challengesIssued = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "numcaptcha_challenges_issued",
		Help: "The total number of challenges issued",
	}, []string{"mode", "language"})

	challengesValidated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "numcaptcha_challenges_validated",
		Help: "The total number of challenges solved",
	})

	failedValidations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "numcaptcha_failed_validations",
		Help: "The total number of failed validations",
	}, []string{"reason"})

	skippedValidations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "numcaptcha_skipped_validations",
		Help: "Requests that did not need a solved challenge",
	})

	IssueDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "numcaptcha_issue_duration_seconds",
		Help:    "Time taken to issue a challenge, including storage writes",
		Buckets: prometheus.ExponentialBuckets(0.0001, 2, 16),
	})
)
