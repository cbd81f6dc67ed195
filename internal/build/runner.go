package build

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"git.home.luguber.info/inful/postbuilder/internal/logfields"
	"git.home.luguber.info/inful/postbuilder/internal/metrics"
	"git.home.luguber.info/inful/postbuilder/internal/post"
)

// State is the mutable data shared by the stages of one build.
type State struct {
	Report   *Report
	Logger   *slog.Logger
	Recorder metrics.Recorder

	catalog   *post.Catalog
	summaries []post.Summary // successfully written posts, filename descending
}

// NewState creates build state around report.
func NewState(report *Report, logger *slog.Logger, recorder metrics.Recorder) *State {
	if logger == nil {
		logger = slog.Default()
	}
	if recorder == nil {
		recorder = metrics.NoopRecorder{}
	}
	return &State{Report: report, Logger: logger, Recorder: recorder}
}

// classify converts a raw stage error into a StageError and its result.
// Plain errors are fatal unless they stem from cancellation.
func classify(stage StageName, err error) (*StageError, StageResult) {
	if err == nil {
		return nil, StageResultSuccess
	}
	var se *StageError
	if !errors.As(err, &se) {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			se = NewCanceledStageError(stage, err)
		} else {
			se = NewFatalStageError(stage, err)
		}
	}
	switch se.Kind {
	case StageErrorWarning:
		return se, StageResultWarning
	case StageErrorCanceled:
		return se, StageResultCanceled
	default:
		return se, StageResultFatal
	}
}

// RunStages executes stages in order, recording timing and stopping on the
// first fatal or canceled stage.
func RunStages(ctx context.Context, st *State, stages []StageDef) error {
	for _, def := range stages {
		select {
		case <-ctx.Done():
			se := NewCanceledStageError(def.Name, ctx.Err())
			st.Report.Errors = append(st.Report.Errors, se)
			st.Report.RecordStage(def.Name, 0, StageResultCanceled, st.Recorder)
			return se
		default:
		}

		logger := st.Logger.With(logfields.Stage(string(def.Name)))
		logger.Debug("Stage started")

		t0 := time.Now()
		err := def.Fn(ctx, st)
		dur := time.Since(t0)

		se, res := classify(def.Name, err)
		st.Report.RecordStage(def.Name, dur, res, st.Recorder)

		switch res {
		case StageResultSuccess:
			logger.Debug("Stage completed", logfields.Duration(dur))
		case StageResultWarning:
			st.Report.Warnings = append(st.Report.Warnings, se)
			logger.Warn("Stage completed with warnings", logfields.Duration(dur), logfields.Error(se.Err))
		case StageResultFatal, StageResultCanceled:
			st.Report.Errors = append(st.Report.Errors, se)
			logger.Error("Stage failed", logfields.Duration(dur), slog.String("kind", string(se.Kind)), logfields.Error(se.Err))
			return se
		default:
			return fmt.Errorf("stage %s aborted", def.Name)
		}
	}
	return nil
}
