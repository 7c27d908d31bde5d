package waitlist

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	outcomeStored      = "stored"
	outcomeSuppressed  = "suppressed"
	outcomeRejected    = "rejected"
	outcomeFailed      = "failed"
	outcomeInvalidBody = "invalid_body"
)

type submissionMetrics struct {
	outcomes *prometheus.CounterVec
}

// newSubmissionMetrics registers with reg when it is non-nil; otherwise the
// counters still work but are not exported.
func newSubmissionMetrics(reg prometheus.Registerer) *submissionMetrics {
	outcomes := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "waitlist_submissions_total",
			Help: "Total number of waitlist submissions by outcome.",
		},
		[]string{"outcome"},
	)

	if reg != nil {
		if err := reg.Register(outcomes); err != nil {
			var already prometheus.AlreadyRegisteredError
			if errors.As(err, &already) {
				if existing, ok := already.ExistingCollector.(*prometheus.CounterVec); ok {
					outcomes = existing
				}
			}
		}
	}

	for _, outcome := range []string{outcomeStored, outcomeSuppressed, outcomeRejected, outcomeFailed, outcomeInvalidBody} {
		outcomes.WithLabelValues(outcome)
	}

	return &submissionMetrics{outcomes: outcomes}
}

func (m *submissionMetrics) record(outcome string) {
	m.outcomes.WithLabelValues(outcome).Inc()
}
