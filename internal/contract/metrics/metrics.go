package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for contract verification.
type Metrics struct {
	// Verdicts by command, outcome and violated rule kind
	Verdicts *prometheus.CounterVec

	// Verdict cache lookups by result: "hit", "miss", "error"
	CacheLookups *prometheus.CounterVec

	// Full verification latency including cache and audit
	VerifyLatency prometheus.Histogram

	// Transactions per batch request
	BatchSize prometheus.Histogram
}

// New registers the contract metrics with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Verdicts: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "petchain_contract_verdicts_total",
			Help: "Total contract verdicts by command, outcome and violation kind",
		}, []string{"command", "outcome", "kind"}),

		CacheLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "petchain_contract_cache_lookups_total",
			Help: "Verdict cache lookups by result",
		}, []string{"result"}),

		VerifyLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "petchain_contract_verify_duration_seconds",
			Help:    "Duration of transaction verification including cache and audit",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
		}),

		BatchSize: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "petchain_contract_batch_size",
			Help:    "Number of transactions per batch verification",
			Buckets: []float64{1, 2, 5, 10, 25, 50, 100, 250},
		}),
	}
}

// IncrementVerdict records a verdict. kind is empty for accepted verdicts.
func (m *Metrics) IncrementVerdict(command string, accepted bool, kind string) {
	if m == nil {
		return
	}
	outcome := "rejected"
	if accepted {
		outcome = "accepted"
		kind = "none"
	}
	if command == "" {
		command = "none"
	}
	m.Verdicts.WithLabelValues(command, outcome, kind).Inc()
}

// IncrementCacheLookup records a cache lookup result.
func (m *Metrics) IncrementCacheLookup(result string) {
	if m != nil {
		m.CacheLookups.WithLabelValues(result).Inc()
	}
}

// ObserveVerifyLatency records the total verification duration.
func (m *Metrics) ObserveVerifyLatency(d time.Duration) {
	if m != nil {
		m.VerifyLatency.Observe(d.Seconds())
	}
}

// ObserveBatchSize records the size of a batch request.
func (m *Metrics) ObserveBatchSize(n int) {
	if m != nil {
		m.BatchSize.Observe(float64(n))
	}
}
