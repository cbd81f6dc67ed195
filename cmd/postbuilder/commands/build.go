package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/postbuilder/internal/build"
	"git.home.luguber.info/inful/postbuilder/internal/config"
	ferrors "git.home.luguber.info/inful/postbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/postbuilder/internal/logfields"
	"git.home.luguber.info/inful/postbuilder/internal/metrics"
)

// BuildCmd implements the 'build' command.
type BuildCmd struct {
	Output      string `short:"o" help:"Output directory for the generated site (overrides output.directory)"`
	Watch       bool   `short:"w" help:"Rebuild whenever posts, assets or templates change"`
	NoMinify    bool   `name:"no-minify" help:"Write HTML without minification"`
	MetricsFile string `name:"metrics-file" help:"Write build metrics in Prometheus text format to this file (overrides build.metrics_file)"`
}

func (b *BuildCmd) Run(g *Global, root *CLI) error {
	cfg, logger, err := loadConfig(g, root)
	if err != nil {
		return err
	}
	ctx := g.runContext()

	metricsFile := b.MetricsFile
	if metricsFile == "" {
		metricsFile = cfg.Build.MetricsFile
	}
	var recorder metrics.Recorder = metrics.NoopRecorder{}
	var reg *prometheus.Registry
	if metricsFile != "" {
		reg = prometheus.NewRegistry()
		recorder = metrics.NewPrometheusRecorder(reg)
	}

	st, err := newStack(ctx, cfg, logger, recorder)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	outputDir := ResolveOutputDir(b.Output, cfg)
	minify := cfg.Output.MinifyEnabled() && !b.NoMinify
	once := func(ctx context.Context) error {
		err := runBuild(ctx, st, outputDir, minify)
		if reg == nil {
			return err
		}
		return exportMetrics(reg, metricsFile, err, logger)
	}

	if !b.Watch {
		return once(ctx)
	}
	w := &rebuildWatcher{
		dirs:     watchDirs(cfg),
		ignore:   outputDir,
		debounce: rebuildDebounce,
		logger:   logger,
	}
	return w.Run(ctx, once)
}

// runBuild renders the whole site once with a fresh post store and page
// renderer and prints the report summary.
func runBuild(ctx context.Context, st *stack, outputDir string, minify bool) error {
	pages, err := st.pages()
	if err != nil {
		return err
	}
	runner := build.NewRunner(st.cfg, st.store(), pages,
		build.WithOutputDir(outputDir),
		build.WithMinify(minify),
		build.WithRecorder(st.recorder),
		build.WithLogger(st.logger))

	report, err := runner.Run(ctx)
	if report != nil {
		fmt.Println(report.Summary())
		for _, w := range report.Warnings {
			st.logger.Warn("Build warning",
				slog.String("category", string(ferrors.GetCategory(w))),
				logfields.Error(w))
		}
	}
	return err
}

// exportMetrics writes the registry after every build, failed ones included.
// A write failure only fails an otherwise successful build.
func exportMetrics(reg *prometheus.Registry, path string, buildErr error, logger *slog.Logger) error {
	err := metrics.WriteTextfile(reg, path)
	switch {
	case err == nil:
		logger.Debug("Wrote build metrics", logfields.Path(path))
		return buildErr
	case buildErr != nil:
		logger.Warn("Cannot write build metrics", logfields.Error(err))
		return buildErr
	default:
		return ferrors.WrapError(err, ferrors.CategoryFileSystem, "write build metrics").
			WithContext("path", path).Build()
	}
}

func watchDirs(cfg *config.Config) []string {
	dirs := []string{cfg.Content.PostsDir, cfg.Content.AssetsDir}
	if cfg.Content.TemplatesDir != "" {
		dirs = append(dirs, cfg.Content.TemplatesDir)
	}
	return dirs
}
