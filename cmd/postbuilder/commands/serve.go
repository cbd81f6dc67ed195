package commands

import (
	"github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/postbuilder/internal/metrics"
	"git.home.luguber.info/inful/postbuilder/internal/server"
)

// ServeCmd implements the 'serve' command.
type ServeCmd struct {
	Addr string `short:"a" help:"Listen address (overrides server.addr)"`
}

func (s *ServeCmd) Run(g *Global, root *CLI) error {
	cfg, logger, err := loadConfig(g, root)
	if err != nil {
		return err
	}
	ctx := g.runContext()

	var recorder metrics.Recorder = metrics.NoopRecorder{}
	opts := []server.Option{server.WithLogger(logger)}
	if cfg.Server.Metrics {
		reg := prometheus.NewRegistry()
		prom := metrics.NewPrometheusRecorder(reg)
		recorder = prom
		opts = append(opts, server.WithRecorder(prom), server.WithMetricsHandler(metrics.HTTPHandler(reg)))
	}
	if s.Addr != "" {
		opts = append(opts, server.WithAddr(s.Addr))
	}

	st, err := newStack(ctx, cfg, logger, recorder)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	pages, err := st.pages()
	if err != nil {
		return err
	}
	srv, err := server.New(ctx, cfg, st.store(), pages, opts...)
	if err != nil {
		return err
	}
	return srv.Run(ctx)
}
