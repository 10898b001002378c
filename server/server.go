// Package server exposes the engine over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/etnz/costbasis"
	"github.com/etnz/costbasis/config"
	"github.com/etnz/costbasis/store"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/patrickmn/go-cache"
	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// Server serves gains reports and snapshots for the clients of a store.
type Server struct {
	cfg     *config.Config
	store   *store.Store
	log     *slog.Logger
	cache   *cache.Cache
	limiter *rate.Limiter // nil when rate limiting is disabled
}

// New creates a server. A nil logger discards.
func New(cfg *config.Config, st *store.Store, log *slog.Logger) *Server {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	s := &Server{
		cfg:   cfg,
		store: st,
		log:   log,
		cache: cache.New(cfg.Server.CacheTTL, 2*cfg.Server.CacheTTL),
	}
	if cfg.Server.RateLimit > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(cfg.Server.RateLimit), max(cfg.Server.RateBurst, 1))
	}
	return s
}

// Handler returns the HTTP router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.Server.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		ExposedHeaders:   []string{"Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(s.rateLimit)

	r.Route("/api", func(r chi.Router) {
		r.Get("/system/health", s.health)

		r.Post("/gains", s.gains)
		r.Post("/snapshot", s.snapshot)

		r.Route("/clients", func(r chi.Router) {
			r.Get("/", s.clients)
			r.Route("/{client}", func(r chi.Router) {
				r.Post("/transactions", s.importTransactions)
				r.Get("/gains", s.clientGains)
				r.Get("/snapshot", s.clientSnapshot)
				r.Get("/snapshots/latest", s.latestSnapshot)
				r.Get("/export.csv", s.clientExport)
			})
		})
	})
	return r
}

// Run serves until ctx is done, then shuts down gracefully. When a snapshot
// schedule is configured, snapshots are materialized on that schedule.
func (s *Server) Run(ctx context.Context) error {
	if spec := s.cfg.Server.SnapshotSchedule; spec != "" {
		c := cron.New()
		if _, err := c.AddFunc(spec, func() {
			if err := s.MaterializeSnapshots(ctx); err != nil {
				s.log.Error("scheduled snapshots failed", "error", err)
			}
		}); err != nil {
			return fmt.Errorf("invalid snapshot schedule %q: %w", spec, err)
		}
		c.Start()
		defer c.Stop()
		s.log.Info("snapshots scheduled", "schedule", spec)
	}

	srv := &http.Server{
		Addr:         s.cfg.Server.Addr,
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.log.Info("server starting", "address", srv.Addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	s.log.Info("server stopped")
	return nil
}

// MaterializeSnapshots stores, for every client, the snapshot of its holdings
// on the day of its latest transaction, using the configured method.
//
// A client that fails is logged and skipped; the others are still saved and
// the failures are returned joined.
func (s *Server) MaterializeSnapshots(ctx context.Context) error {
	clients, err := s.store.Clients(ctx)
	if err != nil {
		return err
	}
	engine := s.cfg.NewEngine(s.log)

	errs := make([]error, len(clients))
	var g errgroup.Group
	if s.cfg.Workers > 0 {
		g.SetLimit(s.cfg.Workers)
	}
	for i, client := range clients {
		g.Go(func() error {
			if err := s.materialize(ctx, engine, client); err != nil {
				s.log.Warn("snapshot not materialized", "client", client, "error", err)
				errs[i] = fmt.Errorf("client %q: %w", client, err)
			}
			return nil
		})
	}
	g.Wait()
	if err := errors.Join(errs...); err != nil {
		return err
	}
	s.log.Info("snapshots materialized", "clients", len(clients))
	return nil
}

func (s *Server) materialize(ctx context.Context, engine *costbasis.Engine, client string) error {
	events, err := s.store.Transactions(ctx, client)
	if err != nil {
		return err
	}
	snap, err := engine.SnapshotAt(events, costbasis.Date{})
	if err != nil {
		return err
	}
	return s.store.SaveSnapshot(ctx, client, snap)
}
