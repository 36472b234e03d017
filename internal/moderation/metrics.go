package moderation

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes the engine's counters. The classifier "unavailable"
// verdict gets its own label value so endpoint failures are never conflated
// with genuine low-confidence verdicts.
type Metrics struct {
	MessagesProcessed  prometheus.Counter
	RuleTriggers       *prometheus.CounterVec
	ActionsDispatched  *prometheus.CounterVec
	ClassifierVerdicts *prometheus.CounterVec
	ClassifierLatency  prometheus.Histogram
	PlatformFailures   *prometheus.CounterVec
}

// Classifier verdict label values.
const (
	VerdictSpam        = "spam"
	VerdictSuspect     = "suspect"
	VerdictClean       = "clean"
	VerdictUnavailable = "unavailable"
)

// NewMetrics builds and registers the engine metrics.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		MessagesProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "spamkiller",
			Name:      "messages_processed_total",
			Help:      "Messages run through the rule pipeline.",
		}),
		RuleTriggers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "spamkiller",
			Name:      "rule_triggers_total",
			Help:      "Triggered rule verdicts, including ones outprioritized at dispatch.",
		}, []string{"rule", "action"}),
		ActionsDispatched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "spamkiller",
			Name:      "actions_dispatched_total",
			Help:      "Winning actions executed by the dispatcher.",
		}, []string{"action"}),
		ClassifierVerdicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "spamkiller",
			Name:      "classifier_verdicts_total",
			Help:      "External classifier outcomes per scored message.",
		}, []string{"verdict"}),
		ClassifierLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "spamkiller",
			Name:      "classifier_request_seconds",
			Help:      "Latency of classifier scoring requests.",
			Buckets:   prometheus.DefBuckets,
		}),
		PlatformFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "spamkiller",
			Name:      "platform_op_failures_total",
			Help:      "Chat platform operations that failed and were skipped.",
		}, []string{"op"}),
	}

	if reg != nil {
		reg.MustRegister(
			m.MessagesProcessed,
			m.RuleTriggers,
			m.ActionsDispatched,
			m.ClassifierVerdicts,
			m.ClassifierLatency,
			m.PlatformFailures,
		)
	}
	return m
}
