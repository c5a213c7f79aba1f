package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"product-catalog/internal/config"
	"product-catalog/internal/database"
	"product-catalog/internal/events"
	custommiddleware "product-catalog/internal/middleware"
	"product-catalog/internal/repository"
	"product-catalog/internal/repository/memory"
	"product-catalog/internal/service"
	"product-catalog/internal/transport"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Dependencies are the external connections the server is built on. Database
// is only required by the postgres store, Redis by rate limiting and the
// redis event publisher.
type Dependencies struct {
	Database database.Service
	Redis    *redis.Client
}

type Server struct {
	*http.Server
	config *config.Config
	logger *zap.Logger
	deps   Dependencies
}

func NewServer(cfg *config.Config, logger *zap.Logger, deps Dependencies) (*Server, error) {
	uow, err := newUnitOfWork(cfg.Catalog, deps, logger)
	if err != nil {
		return nil, err
	}
	publisher, err := newPublisher(cfg.Catalog, deps, logger)
	if err != nil {
		return nil, err
	}

	// Create router
	router := chi.NewRouter()

	// Add basic middleware
	router.Use(custommiddleware.DefaultMiddlewareStack()...)
	router.Use(custommiddleware.ErrorHandlingMiddleware(logger))
	router.Use(custommiddleware.LoggingMiddleware(logger))
	router.Use(custommiddleware.CORSMiddleware(cfg.CORS.AllowedOrigins, cfg.Server.Env == "development"))

	if cfg.RateLimit.Enabled {
		if deps.Redis == nil {
			return nil, errors.New("rate limiting requires a redis client")
		}
		router.Use(custommiddleware.RateLimitMiddleware(deps.Redis, custommiddleware.RateLimitConfig{
			RequestsPerWindow:      cfg.RateLimit.Requests,
			WriteRequestsPerWindow: cfg.RateLimit.WriteRequests,
			Window:                 cfg.RateLimit.Window,
			KeyPrefix:              "catalog_rate_limit",
		}, logger))
	}

	s := &Server{
		config: cfg,
		logger: logger,
		deps:   deps,
	}

	// Health check endpoint
	router.Get("/health", s.health)

	// Initialize services
	productService := service.NewProductService(uow, publisher, logger, cfg.Catalog.DefaultCurrency)
	categoryService := service.NewCategoryService(uow, publisher, logger)
	brandService := service.NewBrandService(uow, publisher, logger)

	// Register routes
	limits := transport.PageLimits{Default: cfg.Catalog.DefaultPageSize, Max: cfg.Catalog.MaxPageSize}
	transport.NewProductHandler(productService, limits, logger).RegisterRoutes(router)
	transport.NewCategoryHandler(categoryService, logger).RegisterRoutes(router)
	transport.NewBrandHandler(brandService, logger).RegisterRoutes(router)

	s.Server = &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      router,
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	logger.Info("Catalog wired",
		zap.String("store", cfg.Catalog.Store),
		zap.String("event_publisher", cfg.Catalog.EventPublisher),
		zap.Bool("rate_limit", cfg.RateLimit.Enabled),
	)
	return s, nil
}

func newUnitOfWork(cfg config.CatalogConfig, deps Dependencies, logger *zap.Logger) (repository.UnitOfWork, error) {
	switch cfg.Store {
	case config.StoreMemory:
		return memory.NewStore(), nil
	case config.StorePostgres, "":
		if deps.Database == nil {
			return nil, errors.New("postgres store requires a database connection")
		}
		return repository.NewUnitOfWork(deps.Database.DB(), logger), nil
	default:
		return nil, fmt.Errorf("unknown catalog store %q", cfg.Store)
	}
}

func newPublisher(cfg config.CatalogConfig, deps Dependencies, logger *zap.Logger) (events.Publisher, error) {
	switch cfg.EventPublisher {
	case config.PublisherLog, "":
		return events.NewLogPublisher(logger), nil
	case config.PublisherRedis:
		if deps.Redis == nil {
			return nil, errors.New("redis event publisher requires a redis client")
		}
		return events.NewRedisPublisher(deps.Redis, cfg.EventsChannel, logger), nil
	default:
		return nil, fmt.Errorf("unknown event publisher %q", cfg.EventPublisher)
	}
}

// health reports the store and redis status. Any dependency being down
// turns the response into a 503.
func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	body := map[string]interface{}{
		"status": "up",
		"store":  s.config.Catalog.Store,
	}

	if s.deps.Database != nil {
		db := s.deps.Database.Health()
		body["database"] = db
		if db["status"] != "up" {
			status = http.StatusServiceUnavailable
		}
	}
	if s.deps.Redis != nil {
		ctx, cancel := context.WithTimeout(r.Context(), time.Second)
		defer cancel()
		if err := s.deps.Redis.Ping(ctx).Err(); err != nil {
			s.logger.Error("Redis health check failed", zap.Error(err))
			body["redis"] = "down"
			status = http.StatusServiceUnavailable
		} else {
			body["redis"] = "up"
		}
	}

	if status != http.StatusOK {
		body["status"] = "down"
	}
	custommiddleware.RespondWithJSON(w, status, body)
}

func (s *Server) Close() error {
	s.logger.Info("Closing server resources")

	var errs []error
	if s.deps.Redis != nil {
		if err := s.deps.Redis.Close(); err != nil {
			s.logger.Error("Failed to close redis client", zap.Error(err))
			errs = append(errs, err)
		}
	}
	// Close database connection
	if s.deps.Database != nil {
		if err := s.deps.Database.Close(); err != nil {
			s.logger.Error("Failed to close database connection", zap.Error(err))
			errs = append(errs, err)
		}
	}

	s.logger.Sync()
	return errors.Join(errs...)
}
