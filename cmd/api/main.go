package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	"github.com/nutriplan/validation-service/internal/adapters/handler"
	"github.com/nutriplan/validation-service/internal/adapters/middleware"
	"github.com/nutriplan/validation-service/internal/adapters/repository"
	"github.com/nutriplan/validation-service/internal/config"
	"github.com/nutriplan/validation-service/internal/core/services"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Connect to database with retry logic
	db, err := config.ConnectDatabase(cfg.DatabaseURL, 5, 2*time.Second)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Initialize database schema
	if err := config.InitDatabase(db); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	// Initialize repositories
	sqlRepo := repository.NewSQLRepository(db)

	// Initialize the validation engine
	engine := services.NewValidationService(sqlRepo, sqlRepo, sqlRepo, services.Config{
		RepetitionThreshold:   cfg.RepetitionThreshold,
		MaxConsecutiveDays:    cfg.MaxConsecutiveDays,
		CalorieShareThreshold: cfg.CalorieShareThreshold,
		MacroShareThreshold:   cfg.MacroShareThreshold,
		CacheTTL:              cfg.TagCacheTTL,
		CacheCapacity:         cfg.TagCacheCapacity,
	})

	// Initialize RabbitMQ consumer for client profile events.
	// Any mutation of client restriction/preference/medical/lab data is
	// published by the practice-management service and must invalidate
	// the cached tag set here.
	clientEventsConsumer, err := repository.NewClientEventsConsumer(cfg.RabbitMQURL, cfg.ClientEventsQueueName, engine)
	if err != nil {
		log.Fatalf("Failed to initialize RabbitMQ client events consumer: %v", err)
	}
	defer clientEventsConsumer.Close()

	// Start consumer in background goroutine (non-blocking).
	// In multi-replica deployments each replica keeps its own consumer,
	// since every process owns an independent tag cache.
	consumerCtx, consumerCancel := context.WithCancel(context.Background())
	defer consumerCancel()
	go func() {
		if err := clientEventsConsumer.StartConsuming(consumerCtx); err != nil {
			log.Printf("Client events consumer error: %v", err)
		}
	}()
	log.Println("Client events consumer started in background, listening for profile mutations")

	// Initialize handlers
	validationHandler := handler.NewValidationHandler(engine)
	healthHandler := handler.NewHealthHandler(db)

	// Initialize JWT middleware
	authMiddleware := middleware.NewAuthMiddleware(cfg.JWTPublicKey)
	defer authMiddleware.Stop()

	// Setup HTTP router
	mux := http.NewServeMux()

	// Health endpoints (no auth required)
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /health", healthHandler.Health)
	mux.HandleFunc("GET /health/ready", healthHandler.Ready)
	mux.HandleFunc("GET /health/live", healthHandler.Live)

	// Validation endpoints - dietitians and admins
	mux.HandleFunc("POST /clients/{client_id}/validate",
		authMiddleware.RequireRole(validationHandler.Validate, middleware.RoleDietitian, middleware.RoleAdmin))
	mux.HandleFunc("POST /clients/{client_id}/validate-batch",
		authMiddleware.RequireRole(validationHandler.ValidateBatch, middleware.RoleDietitian, middleware.RoleAdmin))

	// Cache management - admin only
	mux.HandleFunc("DELETE /cache/clients/{client_id}",
		authMiddleware.RequireRole(validationHandler.InvalidateClientCache, middleware.RoleAdmin))
	mux.HandleFunc("DELETE /cache",
		authMiddleware.RequireRole(validationHandler.ClearCache, middleware.RoleAdmin))

	// Wrap mux with metrics middleware to track all HTTP requests
	loggedRouter := middleware.MetricsMiddleware(mux)

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      loggedRouter,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("Starting Validation Service on :%s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	// Stop consuming profile events before the HTTP server drains
	consumerCancel()
	log.Println("Client events consumer stopped")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}
