package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	_ "github.com/lib/pq" // PostgreSQL driver

	httpadapter "github.com/fixora/servicebay/internal/adapter/http"
	"github.com/fixora/servicebay/internal/adapter/http/middleware"
	"github.com/fixora/servicebay/internal/adapter/memory"
	"github.com/fixora/servicebay/internal/adapter/persistence"
	"github.com/fixora/servicebay/internal/config"
	"github.com/fixora/servicebay/internal/domain"
	"github.com/fixora/servicebay/internal/infra/events"
	"github.com/fixora/servicebay/internal/infra/logger"
	"github.com/fixora/servicebay/internal/infra/metrics"
	"github.com/fixora/servicebay/internal/infra/ratelimit"
	"github.com/fixora/servicebay/internal/ports"
	"github.com/fixora/servicebay/internal/usecase"
)

// Version and build information
var (
	Version   = "development"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	var (
		version = flag.Bool("version", false, "Show version information")
		migrate = flag.Bool("migrate", false, "Run database migrations and exit")
	)
	flag.Parse()

	if *version {
		fmt.Printf("ServiceBay service record manager\n")
		fmt.Printf("Version: %s\n", Version)
		fmt.Printf("Build Time: %s\n", BuildTime)
		fmt.Printf("Git Commit: %s\n", GitCommit)
		os.Exit(0)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	appLogger := logger.NewStructuredLogger(logger.LoggerConfig{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		ServiceName: "servicebay",
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	appLogger.Info(ctx, "Starting ServiceBay", map[string]interface{}{
		"version":      Version,
		"environment":  cfg.Server.Environment,
		"store_driver": cfg.Store.Driver,
	})

	store, closeStore, err := initStore(ctx, cfg, appLogger, *migrate)
	if err != nil {
		appLogger.Error(ctx, "Failed to initialize record store", err, nil)
		os.Exit(1)
	}
	defer closeStore()

	if *migrate {
		os.Exit(0)
	}

	redisClient := initRedis(ctx, cfg, appLogger)
	if redisClient != nil {
		defer redisClient.Close()
	}

	var publisher ports.EventPublisher = events.NoopPublisher{}
	if redisClient != nil {
		redisPublisher := events.NewRedisPublisher(redisClient, cfg.Redis.EventsChannel, appLogger)
		appLogger.Info(ctx, "Publishing lifecycle events", map[string]interface{}{
			"channel": redisPublisher.Channel(),
		})
		publisher = redisPublisher
	}

	recorder := metrics.NewRecorder()

	recordUseCase := usecase.NewServiceRecordUseCase(store, publisher, recorder, appLogger, usecase.Options{
		DefaultActor: cfg.Lifecycle.DefaultActor,
		Locale:       cfg.Lifecycle.Locale,
	})

	recordHandler := httpadapter.NewServiceRecordHandler(recordUseCase, httpadapter.HandlerConfig{
		DefaultActor:        cfg.Lifecycle.DefaultActor,
		RequireDeleteReason: cfg.Lifecycle.RequireDeleteReason,
		Locale:              cfg.Lifecycle.Locale,
	})

	var rateLimit *middleware.RateLimitMiddleware
	if cfg.Security.RateLimitEnabled {
		var client redis.UniversalClient
		if redisClient != nil {
			client = redisClient
		}
		limiter := ratelimit.NewService(ratelimit.Config{
			Enabled:  cfg.Security.RateLimitEnabled,
			Requests: cfg.Security.RateLimitRequests,
			Window:   cfg.Security.RateLimitWindow,
		}, client, appLogger)
		rateLimit = middleware.NewRateLimitMiddleware(limiter, cfg.Security.RateLimitRequests, cfg.Security.RateLimitWindow, appLogger)
	}

	server := httpadapter.NewServer(httpadapter.ServerConfig{
		Addr:         cfg.Address(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
		CORSOrigins:  cfg.Security.CORSOrigins,
	}, recordHandler, recorder.Handler(), rateLimit, appLogger)

	go func() {
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			appLogger.Error(ctx, "HTTP server failed", err, nil)
			cancel()
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigChan:
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		appLogger.Error(shutdownCtx, "Error during server shutdown", err, nil)
	}

	appLogger.Info(shutdownCtx, "Server stopped", nil)
}

// initStore opens the configured record store. With runMigrations the
// postgres schema is migrated before returning.
func initStore(ctx context.Context, cfg *config.Config, log logger.Logger, runMigrations bool) (ports.ServiceRecordStore, func(), error) {
	if cfg.Store.Driver == config.StoreDriverMemory {
		store := memory.NewServiceRecordStore()
		store.SeedCatalog(domain.DefaultServiceTypes, domain.DefaultProducts)
		log.Warn(ctx, "Using in-memory record store; data is lost on restart", nil)
		return store, func() {}, nil
	}

	db, err := initDatabase(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	if runMigrations {
		version, err := persistence.RunMigrations(db)
		if err != nil {
			db.Close()
			return nil, nil, err
		}
		log.Info(ctx, "Migrations completed", map[string]interface{}{
			"version": version,
		})
	}

	log.Info(ctx, "Database connection established", nil)
	return persistence.NewPostgresServiceRecordRepository(db, cfg.Database.QueryTimeout), func() { db.Close() }, nil
}

// initDatabase initializes the database connection
func initDatabase(ctx context.Context, cfg *config.Config) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.GetDatabaseURL())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.Database.MaxConnections)
	db.SetMaxIdleConns(cfg.Database.MaxConnections / 2)
	db.SetConnMaxIdleTime(cfg.Database.MaxIdleTime)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

// initRedis connects to Redis when enabled. Returns nil when disabled or unreachable.
func initRedis(ctx context.Context, cfg *config.Config, log logger.Logger) *redis.Client {
	if !cfg.Redis.Enabled {
		return nil
	}

	opts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		log.Error(ctx, "Invalid REDIS_URL; events and rate limiting disabled", err, nil)
		return nil
	}

	client := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		log.Error(ctx, "Redis unreachable; events and rate limiting disabled", err, nil)
		client.Close()
		return nil
	}

	log.Info(ctx, "Redis connection established", nil)
	return client
}
