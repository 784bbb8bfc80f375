package metrics

import "time"

// ResultLabel enumerates pipeline result categories for counters.
type ResultLabel string

const (
	ResultSuccess ResultLabel = "success"
	ResultWarning ResultLabel = "warning"
	ResultFatal   ResultLabel = "fatal"
)

// Recorder defines observability hooks for build, pipeline, and cache metrics.
// Implementations may forward to Prometheus, OpenTelemetry, etc. All methods must
// be safe for nil receivers when using the NoopRecorder (allowing optional injection).
type Recorder interface {
	ObservePipelineDuration(pipeline string, d time.Duration)
	ObserveBuildDuration(d time.Duration)
	IncPipelineResult(pipeline string, result ResultLabel)
	IncBuildOutcome(outcome string) // outcome: success|warning|fatal|cancelled
	IncCacheHit(kind, tier string)  // tier: memory|disk
	IncCacheMiss(kind string)
	IncCacheEviction(reason string) // reason: capacity|expired|invalid
	SetImageConcurrency(n int)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObservePipelineDuration(string, time.Duration) {}
func (NoopRecorder) ObserveBuildDuration(time.Duration)            {}
func (NoopRecorder) IncPipelineResult(string, ResultLabel)         {}
func (NoopRecorder) IncBuildOutcome(string)                        {}
func (NoopRecorder) IncCacheHit(string, string)                    {}
func (NoopRecorder) IncCacheMiss(string)                           {}
func (NoopRecorder) IncCacheEviction(string)                       {}
func (NoopRecorder) SetImageConcurrency(int)                       {}
