package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"opencalc/internal/adapters/config"
	"opencalc/internal/adapters/errors/noop"
	"opencalc/internal/adapters/errors/sentry"
	"opencalc/internal/adapters/marketdata"
	"opencalc/internal/adapters/marketdata/tradier"
	"opencalc/internal/adapters/postgres"
	"opencalc/internal/adapters/redis"
	"opencalc/internal/api"
	"opencalc/internal/api/health"
	"opencalc/internal/metrics"
	pgrepo "opencalc/internal/repository/postgres"
	redisrepo "opencalc/internal/repository/redis"
	"opencalc/internal/services/snapshot"
	"opencalc/internal/services/strategy"
	"opencalc/internal/services/tracker"
	"opencalc/internal/services/watchlist"
	"opencalc/internal/workers"
	"opencalc/internal/workers/refresh"
	"opencalc/pkg/errors"
	"opencalc/pkg/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	// Load configuration
	cfg, err := loadConfig()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// Initialize logger
	if err := initLogger(cfg); err != nil {
		panic("failed to init logger: " + err.Error())
	}
	defer logger.Sync()

	log := logger.Get()
	log.Infof("Starting %s in %s mode", cfg.App.Name, cfg.App.Env)

	// Initialize error tracker
	errorTracker := initErrorTracker(cfg, log)
	logger.SetErrorTracker(errorTracker)

	// Initialize database connections
	db := initDatabases(cfg, log)
	defer db.Close()

	// Initialize market-data provider
	provider := initProvider(cfg, db, log)

	// Initialize repositories
	repos := initRepositories(db)

	// Initialize services
	services := initServices(provider, repos, log)

	// Initialize metrics and the ops HTTP server
	metrics.Init()
	metrics.RegisterCustomCollector(metrics.NewCustomCollector(log, db.Postgres.DB()))
	opsServer := initOpsServer(cfg, db, log)
	go func() {
		if err := opsServer.Start(); err != nil {
			log.Errorf("Ops server error: %v", err)
		}
	}()

	// Initialize workers
	scheduler := initWorkers(cfg, services, repos, log)

	log.Info("System initialized successfully")

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := scheduler.Start(ctx); err != nil {
		log.Fatalf("Failed to start scheduler: %v", err)
	}

	// Wait for shutdown signal
	waitForShutdown(ctx, cancel, scheduler, opsServer, errorTracker, log)
}

// Database bundles the storage connections
type Database struct {
	Postgres *postgres.Client
	Redis    *redis.Client
}

// Close closes all database connections
func (d *Database) Close() {
	if d.Postgres != nil {
		_ = d.Postgres.Close()
	}
	if d.Redis != nil {
		_ = d.Redis.Close()
	}
}

// Repositories bundles the data access layer
type Repositories struct {
	Strikes *pgrepo.StrikeRepository
	Tickers *pgrepo.TickerRepository
	Trades  *pgrepo.TradeRepository
}

// Services bundles the business logic layer
type Services struct {
	Snapshot  *snapshot.Service
	Strategy  *strategy.Service
	Tracker   *tracker.Service
	Watchlist *watchlist.Service
}

// loadConfig loads application configuration from environment
func loadConfig() (*config.Config, error) {
	return config.Load()
}

// initLogger initializes structured logging
func initLogger(cfg *config.Config) error {
	return logger.Init(cfg.App.LogLevel, cfg.App.Env)
}

// initErrorTracker initializes error tracking (Sentry or no-op)
func initErrorTracker(cfg *config.Config, log *logger.Logger) errors.Tracker {
	if !cfg.ErrorTracking.Enabled || cfg.ErrorTracking.SentryDSN == "" {
		log.Info("Error tracking disabled")
		return noop.New()
	}

	tracker, err := sentry.New(cfg.ErrorTracking.SentryDSN, cfg.ErrorTracking.Environment)
	if err != nil {
		log.Warnf("Failed to initialize Sentry: %v", err)
		return noop.New()
	}

	log.Info("Error tracking initialized (Sentry)")
	return tracker
}

// initDatabases initializes database connections (PostgreSQL, Redis)
func initDatabases(cfg *config.Config, log *logger.Logger) *Database {
	log.Info("Initializing databases...")

	pgClient, err := postgres.NewClient(cfg.Postgres)
	if err != nil {
		log.Fatalf("Failed to connect to PostgreSQL: %v", err)
	}

	redisClient, err := redis.NewClient(cfg.Redis)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}

	log.Info("Databases initialized")
	return &Database{
		Postgres: pgClient,
		Redis:    redisClient,
	}
}

// initProvider initializes the market-data provider with a Redis quote cache
func initProvider(cfg *config.Config, db *Database, log *logger.Logger) marketdata.Provider {
	client, err := tradier.NewClient(cfg.Tradier)
	if err != nil {
		log.Fatalf("Failed to initialize market-data provider: %v", err)
	}

	cache := redisrepo.NewQuoteCache(db.Redis.Client())
	return marketdata.NewCachedProvider(client, cache, cfg.Tradier.QuoteCacheTTL, log)
}

// initRepositories initializes data repositories
func initRepositories(db *Database) *Repositories {
	return &Repositories{
		Strikes: pgrepo.NewStrikeRepository(db.Postgres.DB()),
		Tickers: pgrepo.NewTickerRepository(db.Postgres.DB()),
		Trades:  pgrepo.NewTradeRepository(db.Postgres.DB()),
	}
}

// initServices initializes business logic services
func initServices(provider marketdata.Provider, repos *Repositories, log *logger.Logger) *Services {
	log.Info("Initializing services...")

	snapshotSvc := snapshot.NewService(provider, repos.Strikes, repos.Tickers, log)

	return &Services{
		Snapshot:  snapshotSvc,
		Strategy:  strategy.NewService(provider, repos.Strikes, repos.Tickers, log),
		Tracker:   tracker.NewService(repos.Trades, repos.Strikes, provider, snapshotSvc, log),
		Watchlist: watchlist.NewService(provider, repos.Tickers, repos.Strikes, log),
	}
}

// initWorkers initializes background workers
func initWorkers(cfg *config.Config, services *Services, repos *Repositories, log *logger.Logger) *workers.Scheduler {
	log.Info("Initializing workers...")

	scheduler := workers.NewScheduler()
	scheduler.RegisterWorker(refresh.NewSnapshotRefresher(services.Snapshot, cfg.Workers))
	scheduler.RegisterWorker(refresh.NewTradeMonitor(services.Tracker, repos.Trades, cfg.Workers))

	log.Info("Workers initialized")
	return scheduler
}

// initOpsServer builds the HTTP server exposing metrics and health probes
func initOpsServer(cfg *config.Config, db *Database, log *logger.Logger) *api.Server {
	healthHandler := health.New(log, db.Postgres.DB(), db.Redis.Client(), cfg.App.Name, version)

	return api.NewServer(api.ServerConfig{
		Addr:        cfg.App.MetricsAddr,
		ServiceName: cfg.App.Name,
		Version:     version,
	}, healthHandler, log)
}

// waitForShutdown waits for shutdown signal and performs graceful shutdown
func waitForShutdown(ctx context.Context, cancel context.CancelFunc, scheduler *workers.Scheduler, opsServer *api.Server, errorTracker errors.Tracker, log *logger.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	<-quit
	log.Info("Shutting down...")

	cancel()

	if err := scheduler.Stop(); err != nil {
		log.Warnf("Scheduler shutdown: %v", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := opsServer.Shutdown(shutdownCtx); err != nil {
		log.Warnf("Ops server shutdown: %v", err)
	}

	if errorTracker != nil {
		if err := errorTracker.Flush(ctx); err != nil {
			log.Warnf("Failed to flush error tracker: %v", err)
		}
	}

	log.Info("Shutdown complete")
}
