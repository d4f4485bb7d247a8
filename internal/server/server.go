package server

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"inventory-catalog/internal/config"
	custommiddleware "inventory-catalog/internal/middleware"
	"inventory-catalog/internal/repository"
	"inventory-catalog/internal/service"
	"inventory-catalog/internal/transport"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// HealthFunc reports the state of a backing store. The "status" key is "up" or "down".
type HealthFunc func(ctx context.Context) map[string]string

// Dependencies are the storage adapters and clients the server is built on
type Dependencies struct {
	Products   repository.ProductRepository
	Categories repository.CategoryRepository
	// Redis is optional. Rate limiting is skipped without it.
	Redis *redis.Client
	// Health is optional. Without it /health always reports ok.
	Health HealthFunc
	// Closers are released in order by Close
	Closers []io.Closer
}

type Server struct {
	*http.Server
	config  *config.Config
	logger  *zap.Logger
	closers []io.Closer
}

func NewServer(cfg *config.Config, logger *zap.Logger, deps Dependencies) (*Server, error) {
	router := chi.NewRouter()

	for _, mw := range custommiddleware.DefaultMiddlewareStack() {
		router.Use(mw)
	}
	router.Use(custommiddleware.LoggingMiddleware(logger))
	router.Use(custommiddleware.ErrorHandlingMiddleware(logger))
	router.Use(custommiddleware.CORSMiddleware(cfg.CORS.AllowedOrigins))

	router.Get("/health", healthHandler(deps.Health, logger))

	productService, err := service.NewProductService(deps.Products, deps.Categories, cfg.Catalog.DefaultPageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create product service: %w", err)
	}
	productHandler := transport.NewProductHandler(productService, logger)

	router.Group(func(r chi.Router) {
		if cfg.RateLimit.Enabled && deps.Redis != nil {
			r.Use(custommiddleware.RateLimitMiddleware(deps.Redis, custommiddleware.RateLimitConfig{
				RequestsPerWindow: cfg.RateLimit.Requests,
				Window:            cfg.RateLimit.Window,
				KeyPrefix:         "inventory:ratelimit",
			}, logger))
		}
		productHandler.RegisterRoutes(r)
	})

	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		custommiddleware.RespondWithError(w, http.StatusNotFound, "route not found")
	})
	router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		custommiddleware.RespondWithError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	server := &Server{
		Server: &http.Server{
			Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
			Handler:      router,
			IdleTimeout:  time.Minute,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		config:  cfg,
		logger:  logger,
		closers: deps.Closers,
	}

	return server, nil
}

func healthHandler(health HealthFunc, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if health == nil {
			custommiddleware.RespondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
			return
		}

		stats := health(r.Context())
		if stats["status"] != "up" {
			logger.Warn("Storage health check failed", zap.Any("health", stats))
			custommiddleware.RespondWithJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
		custommiddleware.RespondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

func (s *Server) Close() error {
	s.logger.Info("Closing server resources")

	for _, c := range s.closers {
		if err := c.Close(); err != nil {
			s.logger.Error("Failed to close resource", zap.Error(err))
		}
	}

	s.logger.Sync()
	return nil
}
