// Command goteam runs the kanban backend HTTP server.
//
// Configuration comes from GOTEAM_* environment variables, optionally
// seeded from a .env file and a YAML config file. The API listens on the
// main port; health and metrics endpoints are served on a separate port
// so probes keep answering while the API drains during shutdown.
package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/alcadeta/portfolio-goteam/pkg/api"
	"github.com/alcadeta/portfolio-goteam/pkg/config"
	"github.com/alcadeta/portfolio-goteam/pkg/observability"
	"github.com/alcadeta/portfolio-goteam/pkg/storage"
	"github.com/alcadeta/portfolio-goteam/pkg/storage/postgres"
	"github.com/alcadeta/portfolio-goteam/pkg/storage/sqlite"
)

func main() {
	// Startup logging uses logrus; once the config is loaded the
	// application switches to the structured slog logger.
	startupLog := logrus.New()
	startupLog.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		startupLog.WithError(err).Warn("could not load .env file")
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		startupLog.WithError(err).Fatal("invalid configuration")
	}

	logger := observability.NewLogger(cfg.Observability.ParsedLogLevel(), os.Stdout)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	store, db, err := openStore(ctx, cfg.Storage)
	if err != nil {
		startupLog.WithError(err).Fatal("storage initialization failed")
	}
	defer store.Close()

	var metrics *observability.Metrics
	registry := prometheus.NewRegistry()
	if cfg.Observability.MetricsEnabled {
		metrics = observability.NewMetrics(registry)
	}

	var redisClient *redis.Client
	if cfg.Storage.CacheEnabled {
		cache, err := postgres.NewRedisCache(
			store,
			cfg.Storage.RedisAddr,
			cfg.Storage.RedisPassword,
			cfg.Storage.RedisDB,
		)
		if err != nil {
			startupLog.WithError(err).Fatal("redis cache initialization failed")
		}
		cache.SetMetrics(metrics)
		store = cache
		redisClient = cache.Client()
		logger.Info("redis cache enabled", "addr", cfg.Storage.RedisAddr)
	}

	if metrics != nil && db != nil {
		go pollDBStats(db, metrics)
	}

	server := api.NewServer(store, logger, metrics)

	var apiHandler http.Handler = server
	tracingShutdown, err := observability.InitTracing(ctx, cfg.Observability.OTelConfig(), logger)
	if err != nil {
		startupLog.WithError(err).Fatal("tracing initialization failed")
	}
	if tracingShutdown != nil {
		apiHandler = otelhttp.NewHandler(server, "goteam-api")
	}

	httpServer := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      apiHandler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Health and metrics on their own listener.
	healthMux := http.NewServeMux()
	observability.RegisterHealthRoutes(healthMux, observability.NewHealthChecker(db, redisClient))
	if cfg.Observability.MetricsEnabled {
		observability.RegisterMetricsEndpoint(healthMux, registry)
	}
	healthServer := &http.Server{
		Addr:    cfg.Server.Host + ":" + cfg.Server.HealthPort,
		Handler: healthMux,
	}
	go func() {
		if err := healthServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("health server failed", "error", err)
		}
	}()

	shutdown := observability.NewShutdownManager(logger, httpServer, cfg.Server.ShutdownTimeout)
	shutdown.RegisterShutdownFunc(healthServer.Shutdown)
	shutdown.RegisterShutdownFunc(func(context.Context) error { return store.Close() })
	if tracingShutdown != nil {
		shutdown.RegisterShutdownFunc(tracingShutdown)
	}

	go func() {
		logger.Info("server listening",
			"addr", httpServer.Addr,
			"health_addr", healthServer.Addr,
			"storage", cfg.Storage.Type,
		)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			startupLog.WithError(err).Fatal("server failed")
		}
	}()

	if err := shutdown.WaitForShutdown(); err != nil {
		logger.Error("shutdown incomplete", "error", err)
		os.Exit(1)
	}
}

// pollDBStats feeds connection pool stats into the gauges.
func pollDBStats(db *sql.DB, metrics *observability.Metrics) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()
	for range ticker.C {
		stats := db.Stats()
		metrics.DBConnectionsActive.Set(float64(stats.InUse))
		metrics.DBConnectionsIdle.Set(float64(stats.Idle))
	}
}

// openStore opens the configured storage backend and runs its schema
// setup. The returned *sql.DB feeds the health checker; pool gauges and
// probes share the store's own handle.
func openStore(ctx context.Context, cfg storage.Config) (storage.Store, *sql.DB, error) {
	switch cfg.Type {
	case "sqlite":
		store, err := sqlite.New(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		if err := store.Setup(ctx); err != nil {
			store.Close()
			return nil, nil, err
		}
		return store, store.DB(), nil
	default:
		store, err := postgres.New(cfg)
		if err != nil {
			return nil, nil, err
		}
		if err := store.Setup(ctx); err != nil {
			store.Close()
			return nil, nil, err
		}
		return store, store.DB(), nil
	}
}
