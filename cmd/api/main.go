package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"product-catalog/internal/config"
	"product-catalog/internal/database"
	"product-catalog/internal/logger"
	"product-catalog/internal/server"

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

// connect opens the connections the configured catalog needs
func connect(cfg *config.Config, log *zap.Logger) (server.Dependencies, error) {
	var deps server.Dependencies

	if cfg.Catalog.Store != config.StoreMemory {
		db, err := database.New(cfg.Database, log)
		if err != nil {
			return deps, err
		}
		log.Info("Database health check", zap.Any("health", db.Health()))

		if err := database.RunMigrations(db.DB(), log); err != nil {
			db.Close()
			return deps, err
		}
		log.Info("Database migrations completed successfully")
		deps.Database = db
	}

	if cfg.RateLimit.Enabled || cfg.Catalog.EventPublisher == config.PublisherRedis {
		client, err := database.NewRedisClient(cfg.Redis)
		if err != nil {
			if deps.Database != nil {
				deps.Database.Close()
			}
			return deps, err
		}
		log.Info("Redis connection established", zap.String("addr", cfg.Redis.Addr()))
		deps.Redis = client
	}

	return deps, nil
}

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	log, err := logger.New(cfg.Server.Env)
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer log.Sync()

	log.Info("Starting product catalog API",
		zap.String("env", cfg.Server.Env),
		zap.String("port", cfg.Server.Port),
		zap.String("store", cfg.Catalog.Store),
	)

	deps, err := connect(cfg, log)
	if err != nil {
		log.Fatal("Failed to connect dependencies", zap.Error(err))
	}

	// Create server
	srv, err := server.NewServer(cfg, log, deps)
	if err != nil {
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
