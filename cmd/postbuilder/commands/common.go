package commands

import (
	"context"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/postbuilder/internal/config"
	ferrors "git.home.luguber.info/inful/postbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/postbuilder/internal/highlight"
	"git.home.luguber.info/inful/postbuilder/internal/markdown"
	"git.home.luguber.info/inful/postbuilder/internal/metrics"
	"git.home.luguber.info/inful/postbuilder/internal/page"
	"git.home.luguber.info/inful/postbuilder/internal/permalink"
	"git.home.luguber.info/inful/postbuilder/internal/post"
)

// Global is bound into every command's Run.
type Global struct {
	Logger  *slog.Logger
	Context context.Context
}

// CLI definition & global flags.
type CLI struct {
	Config  string           `short:"c" help:"Configuration file path" default:"postbuilder.yaml"`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Build BuildCmd `cmd:"" help:"Render the blog to a static site"`
	Serve ServeCmd `cmd:"" help:"Serve the blog, rendering posts on first request"`
	Init  InitCmd  `cmd:"" help:"Write an example configuration file"`
}

// AfterApply runs after flag parsing and installs a stderr logger until the
// configuration is loaded.
// nolint:unparam // AfterApply currently never returns an error.
func (c *CLI) AfterApply() error {
	level := slog.LevelInfo
	if c.Verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	return nil
}

func (g *Global) runContext() context.Context {
	if g == nil || g.Context == nil {
		return context.Background()
	}
	return g.Context
}

// loadConfig reads the configuration and replaces the default logger with
// the configured level and format.
func loadConfig(g *Global, root *CLI) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(root.Config)
	if err != nil {
		return nil, nil, err
	}
	logger := cfg.Logging.NewLogger(os.Stderr, root.Verbose)
	slog.SetDefault(logger)
	if g != nil {
		g.Logger = logger
	}
	return cfg, logger, nil
}

// ResolveOutputDir picks the --output flag over output.directory.
func ResolveOutputDir(cliOutput string, cfg *config.Config) string {
	if cliOutput != "" {
		return cliOutput
	}
	return cfg.Output.Directory
}

// stack holds the long-lived rendering components shared by build and serve.
// Post stores and page renderers are cheap and are created per use so a
// rebuild sees edited posts and templates.
type stack struct {
	cfg         *config.Config
	logger      *slog.Logger
	recorder    metrics.Recorder
	highlighter *highlight.Highlighter
	markdown    *markdown.Renderer
	resolver    *permalink.Resolver
}

func newStack(ctx context.Context, cfg *config.Config, logger *slog.Logger, recorder metrics.Recorder) (*stack, error) {
	hl := highlight.New(cfg.Highlight.Themes, highlight.WithLogger(logger))
	if err := hl.Init(ctx); err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryConfig, "initialize highlighter").
			WithContext("themes", cfg.Highlight.Themes).Build()
	}
	// Unsupported preload languages are logged by Warm and rendered plain later.
	if err := hl.Warm(ctx, cfg.Highlight.Preload...); err != nil && ctx.Err() != nil {
		_ = hl.Close()
		return nil, ctx.Err()
	}

	resolver, err := permalink.New(cfg.Site.Permalink)
	if err != nil {
		_ = hl.Close()
		return nil, ferrors.WrapError(err, ferrors.CategoryConfig, "site.permalink is invalid").Build()
	}

	return &stack{
		cfg:         cfg,
		logger:      logger,
		recorder:    recorder,
		highlighter: hl,
		markdown: markdown.NewRenderer(hl,
			markdown.WithThemes(cfg.Highlight.Themes...),
			markdown.WithLogger(logger)),
		resolver: resolver,
	}, nil
}

func (s *stack) store() *post.Store {
	return post.NewStore(s.cfg.Content.PostsDir, s.markdown,
		post.WithLocation(s.cfg.Location()),
		post.WithResolver(s.resolver),
		post.WithWorkers(s.cfg.Build.Workers),
		post.WithLogger(s.logger),
		post.WithRecorder(s.recorder))
}

func (s *stack) pages() (*page.Renderer, error) {
	return page.NewRenderer(
		page.WithTemplateDir(s.cfg.Content.TemplatesDir),
		page.WithLogger(s.logger))
}

func (s *stack) Close() error {
	return s.highlighter.Close()
}
