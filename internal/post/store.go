package post

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	ferrors "git.home.luguber.info/inful/postbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/postbuilder/internal/logfields"
	"git.home.luguber.info/inful/postbuilder/internal/metrics"
	"git.home.luguber.info/inful/postbuilder/internal/permalink"
)

// Extensions lists the recognized markdown file extensions.
var Extensions = []string{".md", ".markdown"}

// Store reads posts from a single directory and renders them on demand.
type Store struct {
	dir      string
	loc      *time.Location
	resolver *permalink.Resolver
	workers  int
	logger   *slog.Logger
	recorder metrics.Recorder
	cache    *RenderCache
}

// Option configures a Store.
type Option func(*Store)

// WithLocation sets the timezone for dates without an offset.
func WithLocation(loc *time.Location) Option {
	return func(s *Store) { s.loc = loc }
}

// WithResolver overrides the permalink resolver.
func WithResolver(r *permalink.Resolver) Option {
	return func(s *Store) { s.resolver = r }
}

// WithWorkers bounds parallel front matter parsing.
func WithWorkers(n int) Option {
	return func(s *Store) { s.workers = n }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// WithRecorder sets the metrics recorder for discovery and rendering.
func WithRecorder(r metrics.Recorder) Option {
	return func(s *Store) { s.recorder = r }
}

// NewStore creates a Store for dir. Bodies are rendered with renderer.
func NewStore(dir string, renderer BodyRenderer, opts ...Option) *Store {
	s := &Store{
		dir:      dir,
		loc:      time.UTC,
		resolver: permalink.Default(),
		workers:  runtime.NumCPU(),
		logger:   slog.Default(),
		recorder: metrics.NoopRecorder{},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.workers < 1 {
		s.workers = 1
	}
	if s.recorder == nil {
		s.recorder = metrics.NoopRecorder{}
	}
	s.cache = NewRenderCache(renderer)
	s.cache.SetRecorder(s.recorder)
	return s
}

// Dir returns the source directory.
func (s *Store) Dir() string { return s.dir }

// Discover lists the source directory (non-recursively), parses every
// markdown file in parallel and returns the posts ordered by filename
// descending. Posts that fail to parse are logged and listed in
// Catalog.Skipped. Only directory level failures and cancellation return an
// error.
func (s *Store) Discover(ctx context.Context) (*Catalog, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryFileSystem, "read posts directory").
			WithContext("dir", s.dir).Fatal().Build()
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !isMarkdown(e.Name()) {
			continue
		}
		names = append(names, e.Name())
	}
	slices.Sort(names)
	slices.Reverse(names)

	parsed := make([]*Post, len(names))
	failures := make([]error, len(names))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i, name := range names {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			path := filepath.Join(s.dir, name)
			content, err := os.ReadFile(path)
			if err != nil {
				failures[i] = &ParseError{Path: path, Err: err}
				return nil
			}
			parsed[i], failures[i] = Parse(path, content, s.loc, s.resolver)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	accepted := make([]*Post, 0, len(names))
	var skipped []error
	for i := range names {
		if failures[i] != nil {
			skipped = append(skipped, failures[i])
			continue
		}
		accepted = append(accepted, parsed[i])
	}

	catalog := NewCatalog(accepted)
	catalog.skipped = append(skipped, catalog.skipped...)
	for i, err := range catalog.skipped {
		catalog.skipped[i] = classifySkip(err)
		s.recorder.IncPostsSkipped("parse")
		s.logger.Warn("Skipping post", logfields.Error(err))
	}
	s.logger.Info("Discovered posts",
		slog.String("dir", s.dir),
		logfields.Count(catalog.Len()),
		slog.Int("skipped", len(catalog.skipped)))
	return catalog, nil
}

// Render returns the HTML body for p, computing it at most once per process.
func (s *Store) Render(ctx context.Context, p *Post) (string, error) {
	return s.cache.Get(ctx, p)
}

// Cache exposes the render cache.
func (s *Store) Cache() *RenderCache { return s.cache }

// classifySkip marks a per-post failure as a parse warning so reports and
// logs can tell it apart from directory level failures.
func classifySkip(err error) error {
	b := ferrors.WrapError(err, ferrors.CategoryParse, "post skipped").Warning()
	var pe *ParseError
	if errors.As(err, &pe) {
		b = b.WithContext("path", pe.Path)
	}
	return b.Build()
}

func isMarkdown(name string) bool {
	if strings.HasPrefix(name, ".") {
		return false
	}
	return slices.Contains(Extensions, strings.ToLower(filepath.Ext(name)))
}
