// Package app wires the service together: storage, services, HTTP routing,
// the notification layer and the metrics server.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/emberwatch/firedispatch/internal/config"
	"github.com/emberwatch/firedispatch/internal/crew"
	crewpg "github.com/emberwatch/firedispatch/internal/crew/postgres"
	"github.com/emberwatch/firedispatch/internal/dispatch"
	dispatchpg "github.com/emberwatch/firedispatch/internal/dispatch/postgres"
	"github.com/emberwatch/firedispatch/internal/identity"
	identitypg "github.com/emberwatch/firedispatch/internal/identity/postgres"
	"github.com/emberwatch/firedispatch/internal/notify"
	"github.com/emberwatch/firedispatch/internal/pkg/httputil"
	"github.com/emberwatch/firedispatch/internal/pkg/metrics"
	"github.com/emberwatch/firedispatch/internal/pkg/postgres"
	"github.com/emberwatch/firedispatch/internal/pkg/redisconn"
	"github.com/emberwatch/firedispatch/internal/registry"
	registrypg "github.com/emberwatch/firedispatch/internal/registry/postgres"
	"github.com/emberwatch/firedispatch/internal/version"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
)

// App holds the running application and its resources.
type App struct {
	cfg    *config.Config
	logger *slog.Logger

	pool   *pgxpool.Pool
	redis  *redis.Client
	hub    *notify.Hub
	router chi.Router

	server        *http.Server
	metricsServer *http.Server

	stopBackground context.CancelFunc
	background     sync.WaitGroup
}

// New builds the application from configuration. It connects to the
// database (and Redis when enabled) and wires every service.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	logger := buildLogger(cfg.Log)
	slog.SetDefault(logger)

	pool, err := postgres.Connect(ctx, postgres.Config{
		URL:             cfg.Database.URL,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		ConnectAttempts: cfg.Database.ConnectAttempts,
	})
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	app := &App{
		cfg:    cfg,
		logger: logger,
		pool:   pool,
		hub:    notify.NewHub(),
	}

	registryService := registry.NewService(registrypg.NewRepository(pool))

	var queue *notify.Queue
	if cfg.Redis.Enabled {
		client, err := redisconn.Connect(ctx, redisconn.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
		})
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		app.redis = client
		queue = notify.NewQueue(client)
	}

	broadcaster := notify.NewBroadcaster(app.hub, queue, registryService)

	dispatchService := dispatch.NewService(dispatchpg.NewRepository(pool), registryService, broadcaster)
	crewService := crew.NewService(crewpg.NewRepository(pool), broadcaster)

	tokens := identity.NewTokenManager(cfg.JWT.SecretKey, cfg.JWT.AccessTokenDuration)
	identityService := identity.NewService(identitypg.NewRepository(pool), tokens)

	app.router = app.buildRouter(
		identityService,
		dispatch.NewHandler(dispatchService),
		crew.NewHandler(crewService),
		registry.NewHandler(registryService),
		identity.NewHandler(identityService),
		notify.NewHandler(app.hub),
	)

	app.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           app.router,
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}
	app.metricsServer = buildMetricsServer(cfg.Server.Host, cfg.Server.MetricsPort)

	// Background goroutines share one cancel so Shutdown stops them all.
	backgroundCtx, cancel := context.WithCancel(context.Background())
	app.stopBackground = cancel

	if queue != nil {
		sender := notify.NewWebhookSender(notify.WebhookSenderConfig{
			Secret:      cfg.Notify.WebhookSecret,
			Timeout:     cfg.Notify.WebhookTimeout,
			RatePerSec:  cfg.Notify.WebhookRatePerSec,
			Burst:       cfg.Notify.WebhookBurst,
			MaxAttempts: cfg.Notify.WebhookMaxAttempts,
			Backoff:     cfg.Notify.WebhookBackoff,
		})
		worker := notify.NewWorker(queue, sender)

		app.background.Add(1)
		go func() {
			defer app.background.Done()
			worker.Run(backgroundCtx)
		}()
	}

	app.background.Add(1)
	go func() {
		defer app.background.Done()
		app.collectPoolMetrics(backgroundCtx)
	}()

	return app, nil
}

func (a *App) buildRouter(
	tokenValidator httputil.TokenValidator,
	dispatchHandler *dispatch.Handler,
	crewHandler *crew.Handler,
	registryHandler *registry.Handler,
	identityHandler *identity.Handler,
	notifyHandler *notify.Handler,
) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(httputil.RequestLoggerMiddleware(a.logger))
	r.Use(middleware.Recoverer)
	r.Use(httputil.CORSMiddleware(a.cfg.CORS.AllowedOrigins))
	r.Use(httputil.MetricsMiddleware)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		httputil.Text(w, http.StatusOK, "ok")
	})
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if err := a.pool.Ping(r.Context()); err != nil {
			httputil.Error(w, http.StatusServiceUnavailable, "database unavailable")
			return
		}
		httputil.Text(w, http.StatusOK, "ok")
	})
	r.Get("/version", func(w http.ResponseWriter, _ *http.Request) {
		httputil.JSON(w, http.StatusOK, map[string]string{
			"version":    version.Version,
			"git_commit": version.GitCommit,
			"build_date": version.BuildDate,
		})
	})

	r.Route("/api/v1", func(r chi.Router) {
		// Device and public endpoints.
		dispatchHandler.RegisterAlertRoutes(r)
		identityHandler.RegisterRoutes(r)
		registryHandler.RegisterPublicRoutes(r)

		// Department endpoints.
		r.Group(func(r chi.Router) {
			r.Use(httputil.AuthMiddleware(tokenValidator))
			dispatchHandler.RegisterRoutes(r, crewHandler.RegisterRoutes)
			registryHandler.RegisterRoutes(r)
			notifyHandler.RegisterRoutes(r)
		})
	})

	return r
}

// Run starts the HTTP and metrics servers and blocks until ctx is
// cancelled, then shuts everything down gracefully.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 2)

	go func() {
		a.logger.Info("http server starting", "addr", a.server.Addr)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()
	go func() {
		a.logger.Info("metrics server starting", "addr", a.metricsServer.Addr)
		if err := a.metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("metrics server: %w", err)
		}
	}()

	shutdownTimeout := func() (context.Context, context.CancelFunc) {
		return context.WithTimeout(context.Background(), 15*time.Second)
	}

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		sctx, cancel := shutdownTimeout()
		defer cancel()
		a.Shutdown(sctx)
		return err
	}

	sctx, cancel := shutdownTimeout()
	defer cancel()
	return a.Shutdown(sctx)
}

// Router exposes the HTTP handler, mainly for tests that mount the
// application on an httptest server.
func (a *App) Router() chi.Router {
	return a.router
}

// Shutdown stops the servers and releases every resource.
func (a *App) Shutdown(ctx context.Context) error {
	var errs []error
	if err := a.server.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("shutdown http server: %w", err))
	}
	if err := a.metricsServer.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("shutdown metrics server: %w", err))
	}

	a.hub.Close()

	a.stopBackground()
	stopped := make(chan struct{})
	go func() {
		a.background.Wait()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-ctx.Done():
		errs = append(errs, errors.New("background workers did not stop in time"))
	}

	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close redis: %w", err))
		}
	}
	a.pool.Close()

	a.logger.Info("shutdown complete")
	return errors.Join(errs...)
}

func (a *App) collectPoolMetrics(ctx context.Context) {
	runEvery(ctx, 10*time.Second, func() {
		metrics.RecordDBPoolMetrics(a.pool)
	})
}

// runEvery calls fn on every tick until ctx is cancelled.
func runEvery(ctx context.Context, interval time.Duration, fn func()) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			fn()
		case <-ctx.Done():
			return
		}
	}
}

func buildMetricsServer(host string, port int) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return &http.Server{
		Addr:              fmt.Sprintf("%s:%d", host, port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

func buildLogger(cfg config.Log) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}
	return slog.New(handler)
}
