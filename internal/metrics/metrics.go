// Package metrics holds the Prometheus collectors for the revision pipeline.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "site_builder"

// Revision outcomes.
const (
	OutcomeSucceeded     = "succeeded"
	OutcomeRejected      = "rejected"
	OutcomeGenerationErr = "generation_failed"
	OutcomeInternalErr   = "internal_error"
)

// LLM stages.
const (
	StageEnhance  = "enhance"
	StageGenerate = "generate"
)

var (
	RevisionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "revision",
		Name:      "total",
		Help:      "Revision submissions by outcome",
	}, []string{"outcome"})

	RefundsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "credits",
		Name:      "refunds_total",
		Help:      "Revision charges returned to users",
	})

	CreditsDebited = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "credits",
		Name:      "debited_total",
		Help:      "Credits debited by revision runs",
	})

	LLMDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "llm",
		Name:      "duration_seconds",
		Help:      "Model call latency by pipeline stage",
		Buckets:   prometheus.ExponentialBuckets(0.25, 2, 9), // 250ms to ~64s
	}, []string{"stage", "result"})

	VersionsCommitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "ledger",
		Name:      "versions_total",
		Help:      "Versions committed by description",
	}, []string{"description"})

	StaleRuns = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "audit",
		Name:      "stale_runs",
		Help:      "Revision runs still debited past the audit threshold",
	})
)

// ObserveLLM records one model call.
func ObserveLLM(stage string, started time.Time, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	LLMDuration.WithLabelValues(stage, result).Observe(time.Since(started).Seconds())
}
