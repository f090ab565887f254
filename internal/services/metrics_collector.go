package services

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// EngineMetrics exposes the generation pipeline's Prometheus metrics. All
// record methods are nil-safe so tests and minimal deployments can pass a
// nil collector.
type EngineMetrics struct {
	generations    *prometheus.CounterVec
	latency        prometheus.Histogram
	cacheHits      prometheus.Counter
	tierExhausted  prometheus.Counter
	postHocRetries prometheus.Counter
	timeouts       prometheus.Counter
	invariantDrops prometheus.Counter
	feedbackEvents *prometheus.CounterVec
}

func NewEngineMetrics() *EngineMetrics {
	return &EngineMetrics{
		generations: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "outfit_generations_total",
			Help: "Total outfit generations by selection strategy and completeness",
		}, []string{"strategy", "incomplete"}),

		latency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "outfit_generation_latency_seconds",
			Help:    "Outfit generation latency in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}),

		cacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "outfit_result_cache_hits_total",
			Help: "Generations served from the short result cache",
		}),

		tierExhausted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "outfit_tier_exhaustions_total",
			Help: "Generations where every formality tier fell through",
		}),

		postHocRetries: promauto.NewCounter(prometheus.CounterOpts{
			Name: "outfit_post_hoc_retries_total",
			Help: "Relaxed regenerations triggered by coherence failures",
		}),

		timeouts: promauto.NewCounter(prometheus.CounterOpts{
			Name: "outfit_generation_timeouts_total",
			Help: "Generations that hit the pipeline deadline",
		}),

		invariantDrops: promauto.NewCounter(prometheus.CounterOpts{
			Name: "outfit_invariant_drops_total",
			Help: "Items dropped by the final safety check; non-zero means a pipeline defect",
		}),

		feedbackEvents: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "outfit_feedback_events_total",
			Help: "Outfit feedback events by type",
		}, []string{"type"}),
	}
}

func (m *EngineMetrics) ObserveGeneration(strategy string, incomplete bool, latency time.Duration) {
	if m == nil {
		return
	}
	label := "false"
	if incomplete {
		label = "true"
	}
	m.generations.WithLabelValues(strategy, label).Inc()
	m.latency.Observe(latency.Seconds())
}

func (m *EngineMetrics) RecordCacheHit() {
	if m == nil {
		return
	}
	m.cacheHits.Inc()
}

func (m *EngineMetrics) RecordTierExhausted() {
	if m == nil {
		return
	}
	m.tierExhausted.Inc()
}

func (m *EngineMetrics) RecordPostHocRetry() {
	if m == nil {
		return
	}
	m.postHocRetries.Inc()
}

func (m *EngineMetrics) RecordTimeout() {
	if m == nil {
		return
	}
	m.timeouts.Inc()
}

func (m *EngineMetrics) RecordInvariantDrop(n int) {
	if m == nil {
		return
	}
	m.invariantDrops.Add(float64(n))
}

func (m *EngineMetrics) RecordFeedback(feedbackType string) {
	if m == nil {
		return
	}
	m.feedbackEvents.WithLabelValues(feedbackType).Inc()
}
