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

	"github.com/averline/concierge/internal"
	"github.com/averline/concierge/internal/archive"
	"github.com/averline/concierge/internal/billing"
	"github.com/averline/concierge/internal/email"
	"github.com/averline/concierge/internal/handler"
	"github.com/averline/concierge/internal/metrics"
	"github.com/averline/concierge/internal/middleware"
	"github.com/averline/concierge/internal/pricing"
	"github.com/averline/concierge/internal/repository"
	"github.com/averline/concierge/internal/service"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus/promhttp"
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

	// Initialize repository and rule cache
	repo := repository.New(db, logger)
	ruleCache := pricing.NewRuleCache(repo, pricing.CacheConfig{
		TTL:            cfg.PricingCacheTTL,
		RefreshTimeout: cfg.PricingRefreshTimeout,
	}, logger)

	// Initialize snapshot archive
	var archiver archive.Archiver
	switch cfg.ArchiveProvider {
	case "r2":
		archiver, err = archive.NewR2Archiver(archive.R2Config{
			AccountID:       cfg.R2AccountID,
			AccessKeyID:     cfg.R2AccessKeyID,
			SecretAccessKey: cfg.R2SecretAccessKey,
			BucketName:      cfg.R2BucketName,
		}, logger)
	default:
		archiver, err = archive.NewLocalArchiver(cfg.LocalArchivePath, logger)
	}
	if err != nil {
		return fmt.Errorf("archive initialization failed: %w", err)
	}
	logger.Info("Snapshot archive ready", "provider", cfg.ArchiveProvider)

	// Initialize email service (nil disables rule-change notices)
	var emailService email.EmailService
	if cfg.EmailEnabled {
		emailService = email.NewSMTPEmailService(email.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
			FromName: cfg.SMTPFromName,
		}, logger)
	}

	// Initialize Stripe billing (nil when not configured)
	var billingService billing.Service
	if cfg.StripeSecretKey != "" {
		billingService = billing.NewStripeService(cfg.StripeSecretKey, cfg.StripeWebhookSecret, billing.PriceConfig{
			Pack10PriceID:  cfg.StripePack10PriceID,
			Pack50PriceID:  cfg.StripePack50PriceID,
			Pack200PriceID: cfg.StripePack200PriceID,
		})
		logger.Info("Stripe billing enabled")
	} else {
		logger.Warn("Stripe billing disabled, STRIPE_SECRET_KEY not set")
	}

	// Initialize services
	pricingService := service.NewPricingService(repo, ruleCache, archiver, emailService, cfg.AdminNotifyTo, logger)

	// Initialize middleware
	isSecure := cfg.Env != "development"
	loggingMw := middleware.NewRequestLoggingMiddleware(logger)
	securityMw := middleware.NewSecurityHeadersMiddleware(isSecure)
	metricsMw := metrics.Middleware
	adminMw := middleware.NewAdminKeyMiddleware(cfg.AdminAPIKeys)
	metricsAuthMw := middleware.NewMetricsAuthMiddleware(cfg.MetricsUsername, cfg.MetricsPassword)
	quoteLimiter := middleware.NewRateLimitMiddleware(
		middleware.NewRateLimiter(120, time.Minute, logger), logger)

	// Initialize handlers
	pricingHandler := handler.NewPricingHandler(pricingService, logger)
	adminHandler := handler.NewAdminHandler(pricingService, logger)
	billingHandler := handler.NewBillingHandler(billingService, cfg.BaseURL, logger)

	// ==========================================================================
	// Create router and register routes
	// ==========================================================================

	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Prometheus metrics (basic auth when configured)
	mux.Handle("GET /metrics", metricsAuthMw.Handler(promhttp.Handler()))

	// Public pricing routes
	pricingHandler.RegisterRoutes(mux)

	// Billing routes (webhook authenticates via Stripe signature)
	billingHandler.RegisterRoutes(mux)

	// Admin routes behind the shared admin key
	adminHandler.RegisterRoutes(mux, adminMw.Handler)

	// Outer middleware stack
	root := securityMw.Handler(metricsMw(quoteLimiter.Limit(loggingMw.Handler(mux))))

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

	logger.Info("Graceful shutdown complete")
	return nil
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}
