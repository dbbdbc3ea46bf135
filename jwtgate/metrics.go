package jwtgate

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Request outcomes recorded besides rejection codes.
const (
	OutcomeAuthenticated = "authenticated"
	OutcomeAnonymous     = "anonymous"
	OutcomePreflight     = "preflight"
	OutcomeExcluded      = "excluded"

	// OutcomeExtension labels Rejections whose code the gate does not
	// define itself, keeping the label set bounded.
	OutcomeExtension = "extension"

	// outcomeError labels extension point errors that are not Rejections.
	outcomeError = "error"
)

// rejectionOutcome returns the outcome label for a rejection code.
func rejectionOutcome(code string) string {
	switch code {
	case CodeCredentialsRequired, CodeCredentialsBadFormat, CodeCredentialsBadScheme,
		CodeInvalidToken, CodeRevokedToken, CodeMissingSecret:
		return code
	default:
		return OutcomeExtension
	}
}

// Metrics holds Prometheus metrics for gate decisions.
type Metrics struct {
	requestsTotal  *prometheus.CounterVec
	verifyDuration prometheus.Histogram
}

// NewMetrics creates and registers the gate metrics.
// A nil registerer uses prometheus.DefaultRegisterer.
func NewMetrics(namespace string, registerer prometheus.Registerer) (*Metrics, error) {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "jwtgate",
				Name:      "requests_total",
				Help:      "Total number of requests seen by the gate, by outcome",
			},
			[]string{"outcome"},
		),
		verifyDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "jwtgate",
				Name:      "verify_duration_seconds",
				Help:      "Time spent resolving the secret and verifying a token",
				Buckets:   []float64{.0001, .0005, .001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
		),
	}

	for _, c := range []prometheus.Collector{m.requestsTotal, m.verifyDuration} {
		if err := registerer.Register(c); err != nil {
			return nil, err
		}
	}

	return m, nil
}

func (m *Metrics) observe(outcome string) {
	if m == nil {
		return
	}
	m.requestsTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) observeVerify(start time.Time) {
	if m == nil {
		return
	}
	m.verifyDuration.Observe(time.Since(start).Seconds())
}
