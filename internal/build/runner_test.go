package build

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testState() *State {
	return NewState(NewReport("test"), slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)), nil)
}

func TestRunStages_WarningContinuesFatalStops(t *testing.T) {
	st := testState()
	var ran []StageName
	mark := func(name StageName, err error) Stage {
		return func(context.Context, *State) error {
			ran = append(ran, name)
			return err
		}
	}

	stages := NewPipeline().
		Add(StagePrepareOutput, mark(StagePrepareOutput, nil)).
		Add(StageDiscoverPosts, mark(StageDiscoverPosts, NewWarnStageError(StageDiscoverPosts, errors.New("skipped")))).
		Add(StageRenderPosts, mark(StageRenderPosts, errors.New("disk full"))).
		Add(StageRenderListings, mark(StageRenderListings, nil)).
		Build()

	err := RunStages(context.Background(), st, stages)
	require.Error(t, err)

	var se *StageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, StageErrorFatal, se.Kind)
	assert.Equal(t, StageRenderPosts, se.Stage)

	assert.Equal(t, []StageName{StagePrepareOutput, StageDiscoverPosts, StageRenderPosts}, ran)
	assert.Equal(t, StageResultSuccess, st.Report.StageResults[StagePrepareOutput])
	assert.Equal(t, StageResultWarning, st.Report.StageResults[StageDiscoverPosts])
	assert.Equal(t, StageResultFatal, st.Report.StageResults[StageRenderPosts])
	assert.NotContains(t, st.Report.StageResults, StageRenderListings)
	assert.Len(t, st.Report.Warnings, 1)
	assert.Len(t, st.Report.Errors, 1)

	st.Report.DeriveOutcome()
	assert.Equal(t, OutcomeFailed, st.Report.Outcome)
}

func TestRunStages_PlainCancellationIsCanceled(t *testing.T) {
	st := testState()
	stages := NewPipeline().
		Add(StageRenderPosts, func(context.Context, *State) error { return context.Canceled }).
		Build()

	err := RunStages(context.Background(), st, stages)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StageResultCanceled, st.Report.StageResults[StageRenderPosts])

	st.Report.DeriveOutcome()
	assert.Equal(t, OutcomeCanceled, st.Report.Outcome)
}

func TestPipeline_AddIf(t *testing.T) {
	noop := func(context.Context, *State) error { return nil }
	defs := NewPipeline().
		Add(StagePrepareOutput, noop).
		AddIf(false, StageCopyAssets, noop).
		AddIf(true, StageWriteRobots, noop).
		Build()

	require.Len(t, defs, 2)
	assert.Equal(t, StageWriteRobots, defs[1].Name)
}

func TestReport_DeriveOutcome(t *testing.T) {
	r := NewReport("id")
	r.DeriveOutcome()
	assert.Equal(t, OutcomeSuccess, r.Outcome)

	r.Warnings = append(r.Warnings, errors.New("w"))
	r.DeriveOutcome()
	assert.Equal(t, OutcomeWarning, r.Outcome)

	r.Errors = append(r.Errors, NewFatalStageError(StageCopyAssets, errors.New("x")))
	r.DeriveOutcome()
	assert.Equal(t, OutcomeFailed, r.Outcome)

	r.Finish()
	assert.Contains(t, r.Summary(), "outcome=failed")
	assert.Contains(t, r.Summary(), "build=id")
}

func TestRunPool_ProcessesEveryItemOnce(t *testing.T) {
	items := make([]int, 100)
	for i := range items {
		items[i] = i
	}
	seen := make([]int32, len(items))
	var total atomic.Int64

	err := runPool(context.Background(), 4, items, func(_ context.Context, worker string, i int, item int) {
		assert.NotEmpty(t, worker)
		atomic.AddInt32(&seen[i], 1)
		total.Add(int64(item))
	})
	require.NoError(t, err)
	for i, n := range seen {
		assert.Equal(t, int32(1), n, "item %d", i)
	}
	assert.Equal(t, int64(4950), total.Load())
}

func TestRunPool_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	items := make([]int, 1000)
	var processed atomic.Int64

	err := runPool(ctx, 2, items, func(context.Context, string, int, int) {
		if processed.Add(1) == 5 {
			cancel()
		}
	})
	require.ErrorIs(t, err, context.Canceled)
	assert.Less(t, processed.Load(), int64(len(items)))
}

func TestSafeJoin(t *testing.T) {
	root := t.TempDir()

	p, err := safeJoin(root, "/2023-05-01/hello-world")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "2023-05-01", "hello-world"), p)

	_, err = safeJoin(root, "/2023-05-01/../../etc")
	require.ErrorIs(t, err, ErrUnsafePath)
}

func TestWriteFileAtomic_LeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "a", "b", "index.html")

	require.NoError(t, writeFileAtomic(target, []byte("one")))
	require.NoError(t, writeFileAtomic(target, []byte("two")))

	b, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "two", string(b))

	entries, err := os.ReadDir(filepath.Dir(target))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "index.html", entries[0].Name())
}

func TestCopyDir(t *testing.T) {
	src := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(src, "img", "icons"), 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(src, "img", "icons", "x.svg"), []byte("<svg/>"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(src, "style.css"), []byte("a{}"), 0o600))

	dst := filepath.Join(t.TempDir(), "assets")
	require.NoError(t, CopyDir(src, dst))

	b, err := os.ReadFile(filepath.Join(dst, "img", "icons", "x.svg"))
	require.NoError(t, err)
	assert.Equal(t, "<svg/>", string(b))
	assert.FileExists(t, filepath.Join(dst, "style.css"))
}
