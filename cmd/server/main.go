package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dona-app/entitlement/internal"
	"github.com/dona-app/entitlement/internal/handler"
	"github.com/dona-app/entitlement/internal/metrics"
	"github.com/dona-app/entitlement/internal/middleware"
	"github.com/dona-app/entitlement/internal/repository"
	"github.com/dona-app/entitlement/internal/service"
	"github.com/dona-app/entitlement/internal/worker"
)

func run() error {
	ctx := context.Background()

	// Load configuration
	cfg, err := internal.NewConfig()
	if err != nil {
		return fmt.Errorf("config initialization failed: %w", err)
	}

	// Configure logger
	logger := internal.NewLogger(os.Stdout, cfg.Env, cfg.LogLevel)

	// Initialize database connection
	db, err := sql.Open("pgx", cfg.DatabaseUrl)
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	// Run migrations
	if err := internal.RunMigrations(db); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	logger.Info("Database ready")

	// Initialize store and services
	store := repository.NewStore(db)
	policy := cfg.Policy()
	entitlementService := service.NewEntitlementService(store, policy, logger)

	// Initialize middleware
	serviceAuth := middleware.NewServiceAuthMiddleware(cfg.ServiceToken, logger)
	requestLogging := middleware.NewRequestLoggingMiddleware(logger)
	rateLimiter := middleware.NewRateLimiter(cfg.RateLimitMax, cfg.RateLimitWindow, logger)
	rateLimit := middleware.NewRateLimitMiddleware(rateLimiter, logger)
	metricsAuth := middleware.NewMetricsAuthMiddleware(cfg.MetricsUsername, cfg.MetricsPassword)

	// Initialize handlers
	entitlementHandler := handler.NewEntitlementHandler(entitlementService, logger)

	// ==========================================================================
	// Create router and register routes
	// ==========================================================================

	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		if err := db.PingContext(r.Context()); err != nil {
			logger.Error("Health check failed", "error", err)
			http.Error(w, "unhealthy", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Prometheus metrics (basic auth when configured)
	mux.Handle("GET /metrics", metricsAuth.Handler(promhttp.Handler()))

	// Entitlement API. Auth runs before rate limiting so the limiter can key
	// on the acting account instead of the shared backend IP.
	apiMux := http.NewServeMux()
	entitlementHandler.RegisterRoutes(apiMux)

	protected := middleware.Stack(serviceAuth.RequireService, rateLimit.Limit)
	mux.Handle("/api/v1/", protected(apiMux))

	// Outer middleware applies to every route
	root := middleware.Stack(requestLogging.Handler, metrics.Middleware)(mux)

	// ==========================================================================
	// Start maintenance worker
	// ==========================================================================

	var maintenance *worker.Worker
	if cfg.WorkerEnabled {
		workerCfg := worker.DefaultConfig()
		workerCfg.Interval = cfg.WorkerInterval
		workerCfg.TaskTimeout = cfg.WorkerTaskTimeout
		workerCfg.MarkerRetention = cfg.WorkerMarkerRetention

		maintenance, err = worker.New(workerCfg, logger)
		if err != nil {
			return fmt.Errorf("worker initialization failed: %w", err)
		}

		queries := repository.New(db)
		maintenance.Register(worker.NewTierDowngradeTask(queries, logger))
		maintenance.Register(worker.NewMarkerPurgeTask(queries, workerCfg.MarkerRetention, logger))
		maintenance.Start(ctx)
	} else {
		logger.Info("Maintenance worker disabled")
	}

	// ==========================================================================
	// Start server
	// ==========================================================================

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: root,
	}

	// Channel to listen for interrupt signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// Start server in goroutine
	go func() {
		logger.Info("Server started", "address", server.Addr, "env", cfg.Env)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Server failed", "error", err)
		}
	}()

	// Wait for interrupt signal
	<-sigChan
	logger.Info("Shutdown signal received, initiating graceful shutdown...")

	// Create shutdown context with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", "error", err)
	}

	if maintenance != nil {
		maintenance.Stop()
	}

	logger.Info("Graceful shutdown complete")
	return nil
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}
