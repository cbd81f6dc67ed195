// Package server answers blog requests on demand. Listings and the archive
// are rendered once at startup; post bodies are rendered on first request and
// memoized by the post store.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"git.home.luguber.info/inful/postbuilder/internal/config"
	ferrors "git.home.luguber.info/inful/postbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/postbuilder/internal/logfields"
	"git.home.luguber.info/inful/postbuilder/internal/metrics"
	"git.home.luguber.info/inful/postbuilder/internal/page"
	"git.home.luguber.info/inful/postbuilder/internal/paginate"
	"git.home.luguber.info/inful/postbuilder/internal/post"
	"git.home.luguber.info/inful/postbuilder/internal/server/middleware"
)

// PostSource is the part of post.Store the server needs.
type PostSource interface {
	Discover(ctx context.Context) (*post.Catalog, error)
	Render(ctx context.Context, p *post.Post) (string, error)
}

// PageRenderer renders page envelopes to HTML.
type PageRenderer interface {
	Render(ctx context.Context, env page.Envelope) (string, error)
}

// Server is the on-demand blog server.
type Server struct {
	addr            string
	shutdownTimeout time.Duration
	assetsDir       string

	posts   PostSource
	pages   PageRenderer
	site    page.Site
	catalog *post.Catalog

	listings []string
	archive  string

	router         *chi.Mux
	metricsHandler http.Handler
	adapter        *ferrors.HTTPErrorAdapter
	recorder       metrics.Recorder
	logger         *slog.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithRecorder injects a metrics recorder for request latency.
func WithRecorder(r metrics.Recorder) Option {
	return func(s *Server) { s.recorder = r }
}

// WithMetricsHandler exposes h at /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) { s.metricsHandler = h }
}

// WithAddr overrides the configured listen address.
func WithAddr(addr string) Option {
	return func(s *Server) { s.addr = addr }
}

// New discovers posts, pre-renders listings and the archive and wires the
// routes. It does not start listening.
func New(ctx context.Context, cfg *config.Config, posts PostSource, pages PageRenderer, opts ...Option) (*Server, error) {
	s := &Server{
		addr:            cfg.Server.Addr,
		shutdownTimeout: cfg.Server.ShutdownTimeout,
		assetsDir:       cfg.Content.AssetsDir,
		posts:           posts,
		pages:           pages,
		site:            page.SiteFromConfig(cfg),
		recorder:        metrics.NoopRecorder{},
		logger:          slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.recorder == nil {
		s.recorder = metrics.NoopRecorder{}
	}
	if s.shutdownTimeout <= 0 {
		s.shutdownTimeout = 5 * time.Second
	}
	s.adapter = ferrors.NewHTTPErrorAdapter(s.logger)

	catalog, err := posts.Discover(ctx)
	if err != nil {
		return nil, err
	}
	s.catalog = catalog

	if err := s.prerender(ctx, cfg.Site.PageSize); err != nil {
		return nil, err
	}
	s.routes()
	return s, nil
}

// prerender renders every listing page and the archive from metadata only.
func (s *Server) prerender(ctx context.Context, pageSize int) error {
	summaries := s.catalog.Summaries(s.site.DateFormat)
	pages, err := paginate.Paginate(summaries, pageSize, paginate.ServerLinks(""))
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryConfig, "paginate listings").Build()
	}
	s.listings = make([]string, len(pages))
	for i, pg := range pages {
		html, err := s.pages.Render(ctx, page.ListEnvelope(s.site, pg))
		if err != nil {
			return ferrors.WrapError(err, ferrors.CategoryRender, "render listing page").
				WithContext("page", pg.Number).Build()
		}
		s.listings[i] = html
	}
	s.archive, err = s.pages.Render(ctx, page.ArchiveEnvelope(s.site, summaries))
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryRender, "render archive").Build()
	}
	s.logger.Info("Prepared listings",
		logfields.Count(s.catalog.Len()),
		slog.Int("pages", len(s.listings)))
	return nil
}

func (s *Server) routes() {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.StripSlashes)
	r.Use(middleware.Chain(s.logger, s.adapter, s.recorder))

	r.Get("/", s.handleIndex)
	r.Get("/page/{n}", s.handlePage)
	r.Get(`/{date:\d{4}-\d{2}-\d{2}}/{title}`, s.handlePost)
	r.Get("/archive", s.handleArchive)
	r.Get("/robots.txt", s.handleRobots)
	r.Get("/healthz", s.handleHealth)
	if s.assetsDir != "" {
		r.Handle("/assets/*", http.StripPrefix("/assets/", http.FileServer(http.Dir(s.assetsDir))))
	}
	if s.metricsHandler != nil {
		r.Handle("/metrics", s.metricsHandler)
	}
	r.NotFound(s.handleFallback)
	s.router = r
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler { return s.router }

// Listen binds the configured address.
func (s *Server) Listen(ctx context.Context) (net.Listener, error) {
	lc := net.ListenConfig{}
	ln, err := lc.Listen(ctx, "tcp", s.addr)
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryRuntime, "listen").
			WithContext("addr", s.addr).Fatal().Build()
	}
	return ln, nil
}

// Serve accepts connections on ln until ctx is canceled, then shuts down
// gracefully within the configured timeout.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	s.logger.Info("Server listening", slog.String("addr", ln.Addr().String()))

	select {
	case err := <-errCh:
		if err != nil {
			return ferrors.WrapError(err, ferrors.CategoryRuntime, "serve").Build()
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()
	s.logger.Info("Server shutting down", logfields.Duration(s.shutdownTimeout))
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}

// Run listens on the configured address and serves until ctx is canceled.
func (s *Server) Run(ctx context.Context) error {
	ln, err := s.Listen(ctx)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}
