package metrics

import "time"

// ResultLabel enumerates stage result categories for counters.
type ResultLabel string

const (
	ResultSuccess  ResultLabel = "success"
	ResultWarning  ResultLabel = "warning"
	ResultFatal    ResultLabel = "fatal"
	ResultCanceled ResultLabel = "canceled"
)

// Recorder receives observability events. NoopRecorder is the default.
type Recorder interface {
	ObserveStageDuration(stage string, d time.Duration)
	IncStageResult(stage string, result ResultLabel)
	ObserveBuildDuration(d time.Duration)
	IncBuildOutcome(outcome string)
	ObserveRenderDuration(d time.Duration, success bool)
	IncRenderCache(hit bool)
	IncPostsSkipped(reason string)
	ObserveHTTPRequest(route string, status int, d time.Duration)
}

// NoopRecorder discards everything.
type NoopRecorder struct{}

func (NoopRecorder) ObserveStageDuration(string, time.Duration)    {}
func (NoopRecorder) IncStageResult(string, ResultLabel)            {}
func (NoopRecorder) ObserveBuildDuration(time.Duration)            {}
func (NoopRecorder) IncBuildOutcome(string)                        {}
func (NoopRecorder) ObserveRenderDuration(time.Duration, bool)     {}
func (NoopRecorder) IncRenderCache(bool)                           {}
func (NoopRecorder) IncPostsSkipped(string)                        {}
func (NoopRecorder) ObserveHTTPRequest(string, int, time.Duration) {}
