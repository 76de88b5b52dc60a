// Package observability holds the Prometheus instruments for the report pipeline.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters and histograms for the report pipeline.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	ReportsCreated    prometheus.Counter
	PipelineRejected  *prometheus.CounterVec   // labels: reason={invalid_input,not_found,storage_error}
	CollectorOutcomes *prometheus.CounterVec   // labels: collector={geocoder,weather,elevation,ndvi}, outcome={success,fallback}
	CacheLookups      *prometheus.CounterVec   // labels: cache, result={hit,miss}
	UpstreamDuration  *prometheus.HistogramVec // labels: provider
	AnalysisFallbacks prometheus.Counter
	PromptTokens      prometheus.Histogram
	SlugCollisions    prometheus.Counter
}

// NewMetrics creates the pipeline metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ReportsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "envreport",
			Name:      "reports_created_total",
			Help:      "Snapshots persisted by the report pipeline.",
		}),
		PipelineRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "envreport",
			Name:      "pipeline_rejected_total",
			Help:      "Report requests that ended without a snapshot, by reason.",
		}, []string{"reason"}),
		CollectorOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "envreport",
			Name:      "collector_outcomes_total",
			Help:      "Upstream lookups by collector and whether the fallback value was used.",
		}, []string{"collector", "outcome"}),
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "envreport",
			Name:      "cache_lookups_total",
			Help:      "Read-through cache lookups by cache and result.",
		}, []string{"cache", "result"}),
		UpstreamDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "envreport",
			Name:      "upstream_duration_seconds",
			Help:      "Outbound provider call duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"provider"}),
		AnalysisFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "envreport",
			Name:      "analysis_fallbacks_total",
			Help:      "AI analyses replaced by the canned fallback.",
		}),
		PromptTokens: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "envreport",
			Name:      "analysis_prompt_tokens",
			Help:      "Prompt tokens sent to the analysis model.",
			Buckets:   prometheus.ExponentialBuckets(64, 2, 8),
		}),
		SlugCollisions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "envreport",
			Name:      "slug_collisions_total",
			Help:      "Slug candidates rejected because another snapshot already owns them.",
		}),
	}

	if reg != nil {
		reg.MustRegister(
			m.ReportsCreated,
			m.PipelineRejected,
			m.CollectorOutcomes,
			m.CacheLookups,
			m.UpstreamDuration,
			m.AnalysisFallbacks,
			m.PromptTokens,
			m.SlugCollisions,
		)
	}

	return m
}

// ObserveCollector records whether a lookup used genuine or fallback data.
func (m *Metrics) ObserveCollector(collector string, fallback bool) {
	if m == nil {
		return
	}
	outcome := "success"
	if fallback {
		outcome = "fallback"
	}
	m.CollectorOutcomes.WithLabelValues(collector, outcome).Inc()
}

// ObserveCache records a cache hit or miss.
func (m *Metrics) ObserveCache(cache string, hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheLookups.WithLabelValues(cache, result).Inc()
}

// ObserveUpstream records the duration of an outbound call that started at start.
func (m *Metrics) ObserveUpstream(provider string, start time.Time) {
	if m == nil {
		return
	}
	m.UpstreamDuration.WithLabelValues(provider).Observe(time.Since(start).Seconds())
}

// ObserveAnalysis records prompt size and fallback usage for one analysis.
func (m *Metrics) ObserveAnalysis(promptTokens int, fallback bool) {
	if m == nil {
		return
	}
	if promptTokens > 0 {
		m.PromptTokens.Observe(float64(promptTokens))
	}
	if fallback {
		m.AnalysisFallbacks.Inc()
	}
}

// ReportCreated counts a persisted snapshot.
func (m *Metrics) ReportCreated() {
	if m == nil {
		return
	}
	m.ReportsCreated.Inc()
}

// Rejected counts a request that ended without a snapshot.
func (m *Metrics) Rejected(reason string) {
	if m == nil {
		return
	}
	m.PipelineRejected.WithLabelValues(reason).Inc()
}

// SlugCollision counts a rejected slug candidate.
func (m *Metrics) SlugCollision() {
	if m == nil {
		return
	}
	m.SlugCollisions.Inc()
}
