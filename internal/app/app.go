// Package app wires the service together: config, logger, metrics, fetcher,
// cache, hub, routes, and the HTTP server lifecycle.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"macropulse/internal/config"
	"macropulse/internal/fred"
	"macropulse/internal/infrastructure"
	"macropulse/internal/middleware"
	"macropulse/internal/services"
	transport "macropulse/internal/transport/http"
	"macropulse/internal/websocket"
)

// Application is the composed service.
type Application struct {
	cfg     *config.Config
	logger  *slog.Logger
	metrics *infrastructure.Metrics
	hub     *websocket.Hub
	service *services.DataService
	server  *http.Server
}

// New builds the application from configuration.
func New(cfg *config.Config) (*Application, error) {
	logger, err := infrastructure.NewLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	metrics, err := infrastructure.NewMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize metrics: %w", err)
	}

	if cfg.FRED.APIKey == "" {
		logger.Warn("no FRED API key configured; upstream fetches will be rejected")
	}

	hub := websocket.NewHub(logger)
	client := fred.NewClient(cfg.FRED, logger, metrics)
	cache := fred.NewCache(client, cfg.FRED.CacheTTL, metrics)
	service := services.NewDataService(cache, cfg.Series, cfg.FRED.MaxParallel,
		logger, metrics, hub)

	a := &Application{
		cfg:     cfg,
		logger:  logger,
		metrics: metrics,
		hub:     hub,
		service: service,
	}
	a.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      a.router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
	return a, nil
}

func (a *Application) router() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.StructuredLogger(a.logger))
	r.Use(middleware.Recoverer(a.logger))
	r.Use(middleware.CORS(a.cfg.Server.AllowedOrigins))
	r.Use(middleware.NewRateLimiter(a.cfg.Server.RateLimitRPS, a.cfg.Server.RateLimitBurst, a.logger).Handler)
	r.Use(chimw.Compress(5))

	r.Route("/api", func(r chi.Router) {
		r.Mount("/", transport.NewDataHandler(a.service, a.cfg.FRED.DefaultStart, a.logger).Routes())
		r.Method(http.MethodGet, "/health", transport.NewHealthHandler())
	})
	r.Handle("/metrics", a.metrics.Handler)
	r.Get("/ws", func(w http.ResponseWriter, r *http.Request) {
		websocket.ServeWS(a.hub, a.logger, w, r)
	})
	return r
}

// Run starts the server and blocks until SIGINT/SIGTERM, then shuts down
// gracefully within the configured timeout.
func (a *Application) Run() error {
	go a.hub.Run()

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("server starting",
			slog.Int("port", a.cfg.Server.Port),
			slog.Int("series_registered", len(a.cfg.Series.Registry)))
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case sig := <-quit:
		a.logger.Info("shutting down", slog.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()

	a.hub.Shutdown()
	if err := a.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	if err := a.metrics.Shutdown(ctx); err != nil {
		a.logger.Warn("metrics shutdown failed", slog.String("error", err.Error()))
	}
	a.logger.Info("server stopped")
	return nil
}

// Shutdown stops the server programmatically; used by tests.
func (a *Application) Shutdown(ctx context.Context) error {
	a.hub.Shutdown()
	return a.server.Shutdown(ctx)
}

// Handler exposes the composed router; used by tests.
func (a *Application) Handler() http.Handler {
	return a.server.Handler
}
