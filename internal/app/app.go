// Package app provides application initialization and lifecycle management.
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

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"golang.org/x/text/language"
	"golang.org/x/time/rate"

	"github.com/bissquit/timesheet/api/openapi"
	"github.com/bissquit/timesheet/internal/config"
	"github.com/bissquit/timesheet/internal/dashboard"
	"github.com/bissquit/timesheet/internal/daylock"
	"github.com/bissquit/timesheet/internal/directory"
	directorypostgres "github.com/bissquit/timesheet/internal/directory/postgres"
	"github.com/bissquit/timesheet/internal/identity"
	"github.com/bissquit/timesheet/internal/memstore"
	"github.com/bissquit/timesheet/internal/pkg/ctxlog"
	"github.com/bissquit/timesheet/internal/pkg/httputil"
	"github.com/bissquit/timesheet/internal/pkg/metrics"
	"github.com/bissquit/timesheet/internal/pkg/postgres"
	"github.com/bissquit/timesheet/internal/timesheet"
	timesheetpostgres "github.com/bissquit/timesheet/internal/timesheet/postgres"
	"github.com/bissquit/timesheet/internal/version"
)

// App represents the application instance.
type App struct {
	config        *config.Config
	logger        *slog.Logger
	db            *pgxpool.Pool
	redis         *redis.Client
	rateLimiter   *httputil.RateLimiter
	server        *http.Server
	metricsServer *http.Server
	metricsCancel context.CancelFunc
}

// repositories are the entity stores behind the services.
type repositories struct {
	directory directory.Repository
	entries   timesheet.Repository
}

// New creates a new application instance.
func New(cfg *config.Config) (*App, error) {
	logger := initLogger(cfg.Log)

	lang, err := language.Parse(cfg.Reports.Language)
	if err != nil {
		return nil, fmt.Errorf("parse reports language: %w", err)
	}

	metricsCtx, metricsCancel := context.WithCancel(context.Background())

	app := &App{
		config:        cfg,
		logger:        logger,
		metricsCancel: metricsCancel,
	}

	connectCtx, connectCancel := context.WithTimeout(context.Background(), cfg.Database.ConnectTimeout)
	defer connectCancel()

	repos, err := app.openStorage(connectCtx)
	if err != nil {
		app.close()
		return nil, err
	}

	locker, err := app.openLocker(connectCtx)
	if err != nil {
		app.close()
		return nil, err
	}

	if app.db != nil || app.redis != nil {
		go app.collectPoolMetrics(metricsCtx)
	}

	router := app.setupRouter(repos, locker, lang)

	app.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:           router,
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	// Metrics server on separate port
	metricsRouter := chi.NewRouter()
	metricsRouter.Handle("/metrics", promhttp.Handler())

	app.metricsServer = &http.Server{
		Addr:              fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.MetricsPort),
		Handler:           metricsRouter,
		ReadTimeout:       5 * time.Second,
		ReadHeaderTimeout: 2 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return app, nil
}

// Run starts the HTTP servers.
func (a *App) Run() error {
	// Start metrics server in background
	go func() {
		a.logger.Info("starting metrics server",
			"host", a.config.Server.Host,
			"port", a.config.Server.MetricsPort,
		)
		if err := a.metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.logger.Error("metrics server error", "error", err)
		}
	}()

	a.logger.Info("starting server",
		"host", a.config.Server.Host,
		"port", a.config.Server.Port,
		"storage", a.config.Storage.Driver,
	)

	if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the application.
func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("shutting down servers")

	// Shutdown both servers in parallel
	var wg sync.WaitGroup
	var errs []error
	var mu sync.Mutex

	wg.Add(2)

	go func() {
		defer wg.Done()
		if err := a.server.Shutdown(ctx); err != nil {
			mu.Lock()
			errs = append(errs, fmt.Errorf("shutdown server: %w", err))
			mu.Unlock()
		}
	}()

	go func() {
		defer wg.Done()
		if err := a.metricsServer.Shutdown(ctx); err != nil {
			mu.Lock()
			errs = append(errs, fmt.Errorf("shutdown metrics server: %w", err))
			mu.Unlock()
		}
	}()

	wg.Wait()

	if err := a.close(); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// close releases background workers and connections.
func (a *App) close() error {
	a.metricsCancel()

	if a.rateLimiter != nil {
		a.rateLimiter.Stop()
	}
	if a.db != nil {
		a.db.Close()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			return fmt.Errorf("close redis: %w", err)
		}
	}
	return nil
}

// Router returns the HTTP handler for testing.
func (a *App) Router() http.Handler {
	return a.server.Handler
}

func (a *App) openStorage(ctx context.Context) (repositories, error) {
	switch a.config.Storage.Driver {
	case config.StoragePostgres:
		db, err := postgres.Connect(ctx, postgres.Config{
			URL:             a.config.Database.URL,
			MaxConns:        a.config.Database.MaxOpenConns,
			MinConns:        a.config.Database.MaxIdleConns,
			ConnMaxLifetime: a.config.Database.ConnMaxLifetime,
			ConnectAttempts: a.config.Database.ConnectAttempts,
		})
		if err != nil {
			return repositories{}, fmt.Errorf("connect to database: %w", err)
		}
		a.db = db

		return repositories{
			directory: directorypostgres.NewRepository(db),
			entries:   timesheetpostgres.NewRepository(db),
		}, nil

	case config.StorageMemory:
		store := memstore.New()
		if a.config.Storage.Seed {
			store.Seed(time.Now())
			a.logger.Info("memory store seeded with demo data")
		}
		return repositories{directory: store, entries: store}, nil
	}

	return repositories{}, fmt.Errorf("unknown storage driver %q", a.config.Storage.Driver)
}

// openLocker returns a Redis day lock when Redis is configured so that
// several instances serialize on the same days.
func (a *App) openLocker(ctx context.Context) (daylock.Locker, error) {
	if a.config.Redis.Addr == "" {
		return daylock.NewLocal(), nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     a.config.Redis.Addr,
		Password: a.config.Redis.Password,
		DB:       a.config.Redis.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	a.redis = client

	a.logger.Info("using redis day lock", "addr", a.config.Redis.Addr)
	return daylock.NewRedis(client, daylock.RedisConfig{TTL: a.config.Redis.LockTTL}), nil
}

func (a *App) actorResolver() httputil.ActorResolver {
	if a.config.Auth.JWTSecret != "" {
		return identity.NewJWTResolver(a.config.Auth.JWTSecret)
	}
	return identity.HeaderResolver{}
}

func (a *App) collectPoolMetrics(ctx context.Context) {
	record := func() {
		if a.db != nil {
			metrics.RecordDBPoolMetrics(a.db)
		}
		if a.redis != nil {
			metrics.RecordRedisPoolMetrics(a.redis)
		}
	}
	record()

	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			record()
		case <-ctx.Done():
			return
		}
	}
}

func (a *App) setupRouter(repos repositories, locker daylock.Locker, lang language.Tag) *chi.Mux {
	r := chi.NewRouter()

	// Metrics middleware must be first to measure full request time
	r.Use(httputil.MetricsMiddleware)

	// CORS must be early to handle preflight requests before other middleware
	r.Use(httputil.CORSMiddleware(a.config.CORS.AllowedOrigins))
	r.Use(middleware.RequestID)
	r.Use(httputil.RequestLoggerMiddleware(a.logger))
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(a.config.Server.RequestTimeout))

	r.Get("/healthz", a.healthzHandler)
	r.Get("/readyz", a.readyzHandler)
	r.Get("/version", a.versionHandler)

	r.Get("/api/openapi.yaml", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/x-yaml")
		_, _ = w.Write(openapi.Spec)
	})

	directoryService := directory.NewService(repos.directory)
	timesheetService := timesheet.NewService(repos.entries, directoryService, directoryService, locker)
	dashboardService := dashboard.NewService(repos.entries, directoryService, lang)

	directoryHandler := directory.NewHandler(directoryService)
	timesheetHandler := timesheet.NewHandler(timesheetService)
	dashboardHandler := dashboard.NewHandler(dashboardService)

	r.Route("/api/v1", func(r chi.Router) {
		if a.config.RateLimit.Enabled {
			a.rateLimiter = httputil.NewRateLimiter(httputil.RateLimiterConfig{
				Rate:  rate.Limit(a.config.RateLimit.RequestsPerSecond),
				Burst: a.config.RateLimit.Burst,
			})
			r.Use(a.rateLimiter.Middleware)
		}
		r.Use(httputil.ActorMiddleware(a.actorResolver()))

		timesheetHandler.RegisterRoutes(r)
		directoryHandler.RegisterRoutes(r)
		dashboardHandler.RegisterRoutes(r)
	})

	return r
}

func (a *App) healthzHandler(w http.ResponseWriter, _ *http.Request) {
	httputil.Text(w, http.StatusOK, "OK")
}

func (a *App) readyzHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if a.db != nil {
		if err := a.db.Ping(ctx); err != nil {
			ctxlog.FromContext(r.Context()).Error("readiness check failed", "error", err)
			httputil.Text(w, http.StatusServiceUnavailable, "Database unavailable")
			return
		}
	}

	if a.redis != nil {
		if err := a.redis.Ping(ctx).Err(); err != nil {
			ctxlog.FromContext(r.Context()).Error("readiness check failed", "error", err)
			httputil.Text(w, http.StatusServiceUnavailable, "Redis unavailable")
			return
		}
	}

	httputil.Text(w, http.StatusOK, "OK")
}

func (a *App) versionHandler(w http.ResponseWriter, _ *http.Request) {
	httputil.JSON(w, http.StatusOK, version.Get())
}

func initLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	var handler slog.Handler
	opts := &slog.HandlerOptions{Level: level}

	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}
