package build

import (
	"errors"
	"fmt"
	"time"

	"git.home.luguber.info/inful/postbuilder/internal/metrics"
)

// Outcome is the final state of a build.
type Outcome string

const (
	OutcomeSuccess  Outcome = "success"
	OutcomeWarning  Outcome = "warning"
	OutcomeFailed   Outcome = "failed"
	OutcomeCanceled Outcome = "canceled"
)

// Report captures what a build did.
type Report struct {
	BuildID         string
	Start           time.Time
	End             time.Time
	PostsDiscovered int
	PostsRendered   int
	PostsSkipped    int
	Pages           int
	AssetsCopied    bool
	StageDurations  map[StageName]time.Duration
	StageResults    map[StageName]StageResult
	Errors          []error // fatal or canceled, at most one today
	Warnings        []error
	Outcome         Outcome
}

// NewReport starts a report for the build identified by id.
func NewReport(id string) *Report {
	return &Report{
		BuildID:        id,
		Start:          time.Now(),
		StageDurations: make(map[StageName]time.Duration),
		StageResults:   make(map[StageName]StageResult),
	}
}

// RecordStage stores the timing and result of a stage and emits metrics.
func (r *Report) RecordStage(stage StageName, d time.Duration, res StageResult, recorder metrics.Recorder) {
	r.StageDurations[stage] = d
	r.StageResults[stage] = res
	if recorder == nil {
		return
	}
	recorder.ObserveStageDuration(string(stage), d)
	switch res {
	case StageResultSuccess:
		recorder.IncStageResult(string(stage), metrics.ResultSuccess)
	case StageResultWarning:
		recorder.IncStageResult(string(stage), metrics.ResultWarning)
	case StageResultFatal:
		recorder.IncStageResult(string(stage), metrics.ResultFatal)
	case StageResultCanceled:
		recorder.IncStageResult(string(stage), metrics.ResultCanceled)
	}
}

// Finish sets the end time of the report.
func (r *Report) Finish() { r.End = time.Now() }

// Duration is the wall time between Start and End.
func (r *Report) Duration() time.Duration { return r.End.Sub(r.Start) }

// DeriveOutcome sets Outcome from the recorded errors and warnings.
func (r *Report) DeriveOutcome() {
	if len(r.Errors) > 0 {
		for _, e := range r.Errors {
			var se *StageError
			if errors.As(e, &se) && se.Kind == StageErrorCanceled {
				r.Outcome = OutcomeCanceled
				return
			}
		}
		r.Outcome = OutcomeFailed
		return
	}
	if len(r.Warnings) > 0 {
		r.Outcome = OutcomeWarning
		return
	}
	r.Outcome = OutcomeSuccess
}

// Summary returns a human-readable single-line summary.
func (r *Report) Summary() string {
	return fmt.Sprintf("build=%s posts=%d rendered=%d skipped=%d pages=%d duration=%s warnings=%d errors=%d outcome=%s",
		r.BuildID, r.PostsDiscovered, r.PostsRendered, r.PostsSkipped, r.Pages,
		r.Duration().Truncate(time.Millisecond), len(r.Warnings), len(r.Errors), r.Outcome)
}
