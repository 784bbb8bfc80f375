package metrics

import (
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	once             sync.Once
	pipelineDuration *prom.HistogramVec
	buildDuration    prom.Histogram
	pipelineResults  *prom.CounterVec
	buildOutcome     *prom.CounterVec
	cacheHits        *prom.CounterVec
	cacheMisses      *prom.CounterVec
	cacheEvictions   *prom.CounterVec
	imageConcurrency prom.Gauge
}

// NewPrometheusRecorder constructs and registers Prometheus metrics (idempotent).
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{}
	pr.once.Do(func() {
		pr.pipelineDuration = prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: "sitebuilder",
			Name:      "pipeline_duration_seconds",
			Help:      "Duration of individual asset pipelines",
			Buckets:   prom.DefBuckets,
		}, []string{"pipeline"})
		pr.buildDuration = prom.NewHistogram(prom.HistogramOpts{
			Namespace: "sitebuilder",
			Name:      "build_duration_seconds",
			Help:      "Total build duration",
			Buckets:   prom.DefBuckets,
		})
		pr.pipelineResults = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "sitebuilder",
			Name:      "pipeline_results_total",
			Help:      "Pipeline result counts by outcome",
		}, []string{"pipeline", "result"})
		pr.buildOutcome = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "sitebuilder",
			Name:      "build_outcomes_total",
			Help:      "Build outcomes by final status",
		}, []string{"outcome"})
		pr.cacheHits = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "sitebuilder",
			Name:      "cache_hits_total",
			Help:      "Cache hits by asset kind and tier",
		}, []string{"kind", "tier"})
		pr.cacheMisses = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "sitebuilder",
			Name:      "cache_misses_total",
			Help:      "Cache misses by asset kind",
		}, []string{"kind"})
		pr.cacheEvictions = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "sitebuilder",
			Name:      "cache_evictions_total",
			Help:      "Memory-tier evictions by reason",
		}, []string{"reason"})
		pr.imageConcurrency = prom.NewGauge(prom.GaugeOpts{
			Namespace: "sitebuilder",
			Name:      "image_concurrency",
			Help:      "Configured image transform concurrency for the last build",
		})
		reg.MustRegister(pr.pipelineDuration, pr.buildDuration, pr.pipelineResults, pr.buildOutcome, pr.cacheHits, pr.cacheMisses, pr.cacheEvictions, pr.imageConcurrency)
	})
	return pr
}

func (p *PrometheusRecorder) ObservePipelineDuration(pipeline string, d time.Duration) {
	if p == nil || p.pipelineDuration == nil {
		return
	}
	p.pipelineDuration.WithLabelValues(pipeline).Observe(d.Seconds())
}

func (p *PrometheusRecorder) ObserveBuildDuration(d time.Duration) {
	if p == nil || p.buildDuration == nil {
		return
	}
	p.buildDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncPipelineResult(pipeline string, result ResultLabel) {
	if p == nil || p.pipelineResults == nil {
		return
	}
	p.pipelineResults.WithLabelValues(pipeline, string(result)).Inc()
}

func (p *PrometheusRecorder) IncBuildOutcome(outcome string) {
	if p == nil || p.buildOutcome == nil {
		return
	}
	p.buildOutcome.WithLabelValues(outcome).Inc()
}

func (p *PrometheusRecorder) IncCacheHit(kind, tier string) {
	if p == nil || p.cacheHits == nil {
		return
	}
	p.cacheHits.WithLabelValues(kind, tier).Inc()
}

func (p *PrometheusRecorder) IncCacheMiss(kind string) {
	if p == nil || p.cacheMisses == nil {
		return
	}
	p.cacheMisses.WithLabelValues(kind).Inc()
}

func (p *PrometheusRecorder) IncCacheEviction(reason string) {
	if p == nil || p.cacheEvictions == nil {
		return
	}
	p.cacheEvictions.WithLabelValues(reason).Inc()
}

func (p *PrometheusRecorder) SetImageConcurrency(n int) {
	if p == nil || p.imageConcurrency == nil {
		return
	}
	p.imageConcurrency.Set(float64(n))
}
