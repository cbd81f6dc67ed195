package build

import (
	"context"
	"log/slog"
	"runtime"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/postbuilder/internal/config"
	ferrors "git.home.luguber.info/inful/postbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/postbuilder/internal/logfields"
	"git.home.luguber.info/inful/postbuilder/internal/metrics"
	"git.home.luguber.info/inful/postbuilder/internal/page"
	"git.home.luguber.info/inful/postbuilder/internal/post"
)

// PostSource is the part of post.Store a build needs.
type PostSource interface {
	Discover(ctx context.Context) (*post.Catalog, error)
	Render(ctx context.Context, p *post.Post) (string, error)
}

// PageRenderer renders page envelopes to HTML.
type PageRenderer interface {
	Render(ctx context.Context, env page.Envelope) (string, error)
}

// Runner writes the whole site to an output directory.
type Runner struct {
	posts     PostSource
	pages     PageRenderer
	site      page.Site
	pageSize  int
	outputDir string
	assetsDir string
	minify    bool
	workers   int
	recorder  metrics.Recorder
	logger    *slog.Logger
	newID     func() string
}

// Option configures a Runner.
type Option func(*Runner)

// WithOutputDir overrides the configured output directory.
func WithOutputDir(dir string) Option {
	return func(r *Runner) { r.outputDir = dir }
}

// WithMinify toggles HTML minification of written pages.
func WithMinify(enabled bool) Option {
	return func(r *Runner) { r.minify = enabled }
}

// WithWorkers sets the render pool size.
func WithWorkers(n int) Option {
	return func(r *Runner) { r.workers = n }
}

// WithRecorder injects a metrics recorder.
func WithRecorder(rec metrics.Recorder) Option {
	return func(r *Runner) { r.recorder = rec }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Runner) { r.logger = l }
}

// NewRunner creates a Runner from configuration.
func NewRunner(cfg *config.Config, posts PostSource, pages PageRenderer, opts ...Option) *Runner {
	r := &Runner{
		posts:     posts,
		pages:     pages,
		site:      page.SiteFromConfig(cfg),
		pageSize:  cfg.Site.PageSize,
		outputDir: cfg.Output.Directory,
		assetsDir: cfg.Content.AssetsDir,
		minify:    cfg.Output.MinifyEnabled(),
		workers:   cfg.Build.Workers,
		recorder:  metrics.NoopRecorder{},
		logger:    slog.Default(),
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.workers < 1 {
		r.workers = runtime.NumCPU()
	}
	if r.recorder == nil {
		r.recorder = metrics.NoopRecorder{}
	}
	return r
}

// OutputDir returns the directory the runner writes to.
func (r *Runner) OutputDir() string { return r.outputDir }

// Run executes the full pipeline. The report is returned even when the build
// fails.
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	report := NewReport(r.newID())
	logger := r.logger.With(logfields.BuildID(report.BuildID))
	st := NewState(report, logger, r.recorder)

	logger.Info("Build started",
		logfields.Path(r.outputDir),
		slog.Int("workers", r.workers),
		slog.Bool("minify", r.minify))

	stages := NewPipeline().
		Add(StagePrepareOutput, r.stagePrepareOutput).
		Add(StageDiscoverPosts, r.stageDiscoverPosts).
		Add(StageRenderPosts, r.stageRenderPosts).
		Add(StageRenderListings, r.stageRenderListings).
		Add(StageRenderArchive, r.stageRenderArchive).
		Add(StageWriteRobots, r.stageWriteRobots).
		AddIf(r.assetsDir != "", StageCopyAssets, r.stageCopyAssets).
		Build()

	err := RunStages(ctx, st, stages)
	report.Finish()
	report.DeriveOutcome()
	r.recorder.ObserveBuildDuration(report.Duration())
	r.recorder.IncBuildOutcome(string(report.Outcome))

	logger.Info("Build finished",
		slog.String("outcome", string(report.Outcome)),
		logfields.Count(report.PostsRendered),
		slog.Int("skipped", report.PostsSkipped),
		slog.Int("pages", report.Pages),
		logfields.Duration(report.Duration()))

	if err == nil {
		return report, nil
	}
	if report.Outcome == OutcomeCanceled {
		return report, err
	}
	return report, ferrors.WrapError(err, ferrors.CategoryBuild, "build failed").
		WithContext("build_id", report.BuildID).
		Build()
}
