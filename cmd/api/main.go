package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"inventory-catalog/internal/config"
	"inventory-catalog/internal/database"
	"inventory-catalog/internal/logger"
	"inventory-catalog/internal/pkg/clock"
	"inventory-catalog/internal/repository"
	"inventory-catalog/internal/server"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func gracefulShutdown(apiServer *server.Server, logger *zap.Logger, done chan bool) {
	// Create context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Listen for the interrupt signal.
	<-ctx.Done()

	logger.Info("Shutting down gracefully, press Ctrl+C again to force")
	stop() // Allow Ctrl+C to force shutdown

	// The context is used to inform the server it has 30 seconds to finish
	// the request it is currently handling
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := apiServer.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	// Close server resources
	if err := apiServer.Close(); err != nil {
		logger.Error("Error closing server resources", zap.Error(err))
	}

	logger.Info("Server exiting")

	// Notify the main goroutine that the shutdown is complete
	done <- true
}

// openStorage connects the configured storage driver and prepares its schema
func openStorage(ctx context.Context, cfg *config.Config, log *zap.Logger) (server.Dependencies, error) {
	var deps server.Dependencies

	switch cfg.Storage.Driver {
	case config.StorageDriverPostgres:
		dbService, err := database.New(ctx, cfg.Database, log)
		if err != nil {
			return deps, err
		}
		deps.Closers = append(deps.Closers, dbService)

		if err := database.RunMigrations(dbService.DB(), log); err != nil {
			return deps, err
		}

		deps.Products = repository.NewProductRepository(dbService.DB(), cfg.Database.QueryTimeout)
		deps.Categories = repository.NewCategoryRepository(dbService.DB(), cfg.Database.QueryTimeout)
		deps.Health = dbService.Health

	case config.StorageDriverMongo:
		mongoService, err := database.ConnectMongo(ctx, cfg.Mongo, cfg.Database.ConnectAttempts, log)
		if err != nil {
			return deps, err
		}
		deps.Closers = append(deps.Closers, mongoService)

		deps.Products = repository.NewMongoProductRepository(mongoService.Database(), cfg.Database.QueryTimeout)
		deps.Categories = repository.NewMongoCategoryRepository(mongoService.Database(), cfg.Database.QueryTimeout)
		deps.Health = mongoService.Health

	case config.StorageDriverMemory:
		log.Warn("Using in-memory storage, data is lost on restart")
		store := repository.NewMemoryStore(clock.New())
		deps.Products = store.Products()
		deps.Categories = store.Categories()

	default:
		return deps, fmt.Errorf("unsupported storage driver %q", cfg.Storage.Driver)
	}

	return deps, nil
}

func closeAll(closers []io.Closer, log *zap.Logger) {
	for _, c := range closers {
		if err := c.Close(); err != nil {
			log.Error("Failed to close resource", zap.Error(err))
		}
	}
}

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}

	// Initialize logger
	log, err := logger.New(cfg.Server.Env, cfg.Log.Level)
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer log.Sync()

	log.Info("Starting inventory catalog API",
		zap.String("env", cfg.Server.Env),
		zap.String("port", cfg.Server.Port),
		zap.String("storage", cfg.Storage.Driver),
	)

	startCtx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	deps, err := openStorage(startCtx, cfg, log)
	if err != nil {
		closeAll(deps.Closers, log)
		log.Fatal("Failed to initialize storage", zap.Error(err))
	}

	if cfg.Catalog.SeedCategories {
		if _, err := database.SeedCategories(startCtx, deps.Categories, database.DefaultCategories, log); err != nil {
			closeAll(deps.Closers, log)
			log.Fatal("Failed to seed categories", zap.Error(err))
		}
	}

	if cfg.RateLimit.Enabled {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := redisClient.Ping(startCtx).Err(); err != nil {
			// The limiter lets requests through while Redis is unreachable
			log.Warn("Redis not reachable, rate limiting will fail open", zap.Error(err))
		}
		deps.Redis = redisClient
		deps.Closers = append([]io.Closer{redisClient}, deps.Closers...)
	}

	// Create server
	srv, err := server.NewServer(cfg, log, deps)
	if err != nil {
		closeAll(deps.Closers, log)
		log.Fatal("Failed to create server", zap.Error(err))
	}

	// Create a done channel to signal when the shutdown is complete
	done := make(chan bool, 1)

	// Run graceful shutdown in a separate goroutine
	go gracefulShutdown(srv, log, done)

	log.Info("Server listening", zap.String("addr", srv.Addr))

	err = srv.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		log.Fatal("HTTP server error", zap.Error(err))
	}

	// Wait for the graceful shutdown to complete
	<-done
	log.Info("Graceful shutdown complete")
}
