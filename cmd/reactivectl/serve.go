package main

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/vango-dev/reactive/internal/config"
	"github.com/vango-dev/reactive/internal/errors"
	"github.com/vango-dev/reactive/internal/script"
	"github.com/vango-dev/reactive/pkg/collection"
	"github.com/vango-dev/reactive/pkg/live"
	"github.com/vango-dev/reactive/pkg/telemetry"
)

const shutdownTimeout = 5 * time.Second

func serveCmd(g *globals) *cobra.Command {
	var (
		addr       string
		interval   time.Duration
		printViews bool
	)

	cmd := &cobra.Command{
		Use:   "serve <script.yaml>",
		Short: "Replay a script forever and stream its views over WebSocket",
		Long: `Replay a mutation script in a loop and publish the root collection and
every list view on a live snapshot server.

Routes:
  GET /collections             published feeds
  GET /collections/{name}      latest snapshot of a feed
  GET /collections/{name}/ws   WebSocket stream of snapshots
  GET /metrics                 Prometheus metrics (path from config)

When the last step has been applied the initial content is merged back and
the script starts over.

Examples:
  reactivectl serve demo.yaml
  reactivectl serve --addr=127.0.0.1:9000 --interval=250ms demo.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr != "" {
				g.cfg.Live.Addr = addr
			}
			if interval > 0 {
				g.cfg.Live.StepInterval = config.Duration(interval)
			}

			out := io.Discard
			if printViews {
				out = cmd.OutOrStdout()
			}
			logger, err := newLogger(g.cfg, cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			srv, err := newServer(g.cfg, args[0], out, logger)
			if err != nil {
				return err
			}
			return srv.run(cmd.Context())
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", "", "Listen address (default from config)")
	cmd.Flags().DurationVarP(&interval, "interval", "i", 0, "Delay between steps (default from config)")
	cmd.Flags().BoolVar(&printViews, "print", false, "Print every view after every step")

	return cmd
}

// server replays a script and serves its views.
type server struct {
	cfg     config.Config
	logger  *slog.Logger
	player  *script.Player
	hub     *live.Hub
	handler http.Handler
}

func newServer(cfg config.Config, path string, out io.Writer, logger *slog.Logger) (*server, error) {
	s, err := script.Load(path)
	if err != nil {
		return nil, err
	}

	registry := prometheus.NewRegistry()
	observers := []collection.Observer{telemetry.NewLogger(logger)}
	if cfg.Metrics.Enabled {
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		observers = append(observers, telemetry.NewMetrics(
			telemetry.WithNamespace(cfg.Metrics.Namespace),
			telemetry.WithRegistry(registry),
		))
	}

	player, err := script.NewPlayer(s, out,
		script.WithObserver(telemetry.Multi(observers...)),
		script.WithLogger(logger),
	)
	if err != nil {
		return nil, err
	}

	liveCfg := live.Config{
		WriteTimeout: cfg.Live.WriteTimeout.Std(),
		PingInterval: cfg.Live.PingInterval.Std(),
		SendBuffer:   cfg.Live.SendBuffer,
		Logger:       logger,
	}
	if cfg.Metrics.Enabled {
		liveCfg.Registry = registry
		liveCfg.Namespace = cfg.Metrics.Namespace
	}
	hub := live.NewHub(liveCfg)
	for _, list := range player.Lists() {
		if err := live.Publish(hub, list); err != nil {
			hub.Close()
			player.Close()
			return nil, err
		}
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	if cfg.Metrics.Enabled {
		r.Handle(cfg.Metrics.Path, promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	}
	r.Mount("/", hub.Handler())

	return &server{
		cfg:     cfg,
		logger:  logger,
		player:  player,
		hub:     hub,
		handler: r,
	}, nil
}

// tick applies the next step, or rewinds once the script is exhausted.
func (s *server) tick() error {
	if s.player.Done() {
		return s.player.Rewind()
	}
	_, err := s.player.Step()
	return err
}

// replay ticks every interval until ctx is done or a step fails.
func (s *server) replay(ctx context.Context) error {
	ticker := time.NewTicker(max(s.cfg.Live.StepInterval.Std(), time.Millisecond))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := s.tick(); err != nil {
				return err
			}
		}
	}
}

// close detaches every connection and view.
func (s *server) close() {
	s.hub.Close()
	s.player.Close()
}

// run serves until ctx is done, then shuts down gracefully. The replay
// goroutine has always returned by the time the views are closed.
func (s *server) run(ctx context.Context) error {
	defer s.close()

	httpServer := &http.Server{
		Addr:              s.cfg.Live.Addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	defer httpServer.Close()

	errCh := make(chan error, 2)
	go func() {
		s.logger.Info("server starting", "address", s.cfg.Live.Addr, "feeds", len(s.hub.Feeds()))
		errCh <- httpServer.ListenAndServe()
	}()

	replayCtx, stopReplay := context.WithCancel(ctx)
	replayDone := make(chan struct{})
	go func() {
		defer close(replayDone)
		if err := s.replay(replayCtx); err != nil {
			errCh <- err
		}
	}()
	// Runs before the deferred close.
	defer func() {
		stopReplay()
		<-replayDone
	}()

	select {
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return errors.FromError(err, "R400")

	case <-ctx.Done():
		s.logger.Info("shutting down...")
		stopReplay()
		<-replayDone
		// Hijacked WebSocket connections are not tracked by Shutdown.
		s.hub.Close()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("shutdown error", "error", err)
			return err
		}
		s.logger.Info("server shutdown complete")
		return nil
	}
}
