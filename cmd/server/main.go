package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/adeia-app/adeia/internal"
	"github.com/adeia-app/adeia/internal/ai"
	"github.com/adeia-app/adeia/internal/ai/anthropic"
	aimock "github.com/adeia-app/adeia/internal/ai/mock"
	"github.com/adeia-app/adeia/internal/billing"
	"github.com/adeia-app/adeia/internal/email"
	"github.com/adeia-app/adeia/internal/handler"
	"github.com/adeia-app/adeia/internal/jobs"
	"github.com/adeia-app/adeia/internal/metrics"
	"github.com/adeia-app/adeia/internal/middleware"
	"github.com/adeia-app/adeia/internal/repository"
	"github.com/adeia-app/adeia/internal/service"
	"github.com/adeia-app/adeia/internal/storage"
	"github.com/adeia-app/adeia/internal/worker"
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

	// Initialize repository
	repo := repository.New(db)

	// Initialize storage backend
	store, err := newStorage(cfg, logger)
	if err != nil {
		return fmt.Errorf("storage initialization failed: %w", err)
	}
	logger.Info("Storage ready", "provider", cfg.StorageProvider)

	// Initialize email service
	emailService, err := email.NewSMTPEmailService(email.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
		FromName: cfg.SMTPFromName,
	}, cfg.BaseURL, logger)
	if err != nil {
		return fmt.Errorf("email service initialization failed: %w", err)
	}

	// Initialize AI provider
	aiProvider, err := newAIProvider(cfg, repo, logger)
	if err != nil {
		return fmt.Errorf("AI provider initialization failed: %w", err)
	}
	logger.Info("AI provider ready", "provider", cfg.AIProvider)

	// Initialize Stripe billing (nil when unconfigured; billing handlers
	// respond with a not-configured error in that case)
	var billingService billing.Service
	if cfg.StripeSecretKey != "" {
		billingService = billing.NewStripeService(cfg.StripeSecretKey, cfg.StripeWebhookSecret, billing.PriceConfig{
			StarterMonthlyPriceID:      cfg.StripeStarterMonthlyPriceID,
			StarterYearlyPriceID:       cfg.StripeStarterYearlyPriceID,
			ProfessionalMonthlyPriceID: cfg.StripeProfessionalMonthlyPriceID,
			ProfessionalYearlyPriceID:  cfg.StripeProfessionalYearlyPriceID,
			UnlimitedMonthlyPriceID:    cfg.StripeUnlimitedMonthlyPriceID,
			UnlimitedYearlyPriceID:     cfg.StripeUnlimitedYearlyPriceID,
		})
		logger.Info("Stripe billing enabled")
	} else {
		logger.Warn("Stripe billing not configured, subscription endpoints disabled")
	}

	// Initialize services
	userService := service.NewUserService(repo, logger)
	quotaService := service.NewQuotaService(repo, service.NewEmailThresholdNotifier(emailService), logger)
	projectService := service.NewProjectService(repo, logger)
	questionService := service.NewQuestionService(repo, quotaService, aiProvider, logger)
	calculatorService := service.NewCalculatorService(quotaService, logger)
	letterService := service.NewLetterService(repo, quotaService, aiProvider, logger)
	checklistService := service.NewChecklistService(repo, quotaService, aiProvider, logger)
	blueprintService := service.NewBlueprintService(repo, store, service.NewImagingProcessor(), quotaService, logger)
	reportService := service.NewReportService(repo, store, quotaService, logger)

	// Initialize middleware
	isSecure := cfg.Env != "development"
	authMw := middleware.NewAuthMiddleware(userService, logger, isSecure)
	loggingMw := middleware.NewRequestLoggingMiddleware(logger)
	securityMw := middleware.NewSecurityHeadersMiddleware(isSecure)
	metricsAuthMw := middleware.NewMetricsAuthMiddleware(cfg.MetricsUsername, cfg.MetricsPassword)
	csrfMw := middleware.NewCSRFMiddleware(logger, isSecure)
	authLimiter := middleware.NewAuthRateLimiter(logger)

	requireUser := middleware.Stack(authMw.WithUser, authMw.RequireUser)
	requireAdmin := middleware.Stack(authMw.WithUser, authMw.RequireUser, authMw.RequireAdmin)

	// Initialize handlers
	authHandler := handler.NewAuthHandler(userService, emailService, logger, isSecure)
	projectHandler := handler.NewProjectHandler(projectService, logger)
	toolsHandler := handler.NewToolsHandler(questionService, calculatorService, letterService, logger)
	blueprintHandler := handler.NewBlueprintHandler(blueprintService, logger)
	checklistHandler := handler.NewChecklistHandler(checklistService, logger)
	reportHandler := handler.NewReportHandler(reportService, logger)
	usageHandler := handler.NewUsageHandler(quotaService, logger)
	accountHandler := handler.NewAccountHandler(userService, logger, isSecure)
	billingHandler := handler.NewBillingHandler(billingService, userService, cfg.BaseURL, logger)
	webhookHandler := handler.NewWebhookHandler(billingService, userService, quotaService, logger)
	adminHandler := handler.NewAdminHandler(userService, quotaService, logger)

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

	// Locally stored files (development storage backend)
	if cfg.StorageProvider == storage.ProviderLocal {
		filesFS := http.FileServer(http.Dir(cfg.LocalStoragePath))
		mux.Handle("GET /files/", http.StripPrefix("/files/", filesFS))
	}

	authHandler.RegisterRoutes(mux, requireUser, handler.RouteLimits{
		Login:         authLimiter.LimitLogin,
		Register:      authLimiter.LimitRegister,
		PasswordReset: authLimiter.LimitPasswordReset,
	})
	projectHandler.RegisterRoutes(mux, requireUser)
	toolsHandler.RegisterRoutes(mux, requireUser)
	blueprintHandler.RegisterRoutes(mux, requireUser)
	checklistHandler.RegisterRoutes(mux, requireUser)
	reportHandler.RegisterRoutes(mux, requireUser)
	usageHandler.RegisterRoutes(mux, requireUser)
	accountHandler.RegisterRoutes(mux, requireUser)
	billingHandler.RegisterRoutes(mux, requireUser)
	webhookHandler.RegisterRoutes(mux)
	adminHandler.RegisterRoutes(mux, requireAdmin)

	// Outer middleware applied to every route
	root := middleware.Stack(
		securityMw.Handler,
		metrics.Middleware,
		loggingMw.Handler,
		csrfMw.Protect,
	)(mux)

	// ==========================================================================
	// Start background worker
	// ==========================================================================

	var jobWorker *worker.Worker
	if cfg.WorkerEnabled {
		jobWorker, err = worker.New(db, repo, worker.Config{
			Concurrency:       cfg.WorkerConcurrency,
			PollInterval:      cfg.WorkerPollInterval,
			JobTimeout:        cfg.WorkerJobTimeout,
			ShutdownTimeout:   30 * time.Second,
			StaleJobThreshold: 10 * time.Minute,
		}, logger)
		if err != nil {
			return fmt.Errorf("worker initialization failed: %w", err)
		}

		jobWorker.Register(jobs.NewAnalyzeBlueprintHandler(repo, aiProvider, store, logger))
		jobWorker.Register(jobs.NewGenerateReportHandler(repo, reportService, aiProvider, store, emailService, logger, cfg.BaseURL))
		jobWorker.Start(ctx)
	} else {
		logger.Warn("Background worker disabled, blueprint analysis and report generation will not run")
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

	if jobWorker != nil {
		jobWorker.Stop()
	}

	logger.Info("Graceful shutdown complete")
	return nil
}

// newStorage builds the storage backend selected by configuration.
func newStorage(cfg *internal.Config, logger *slog.Logger) (storage.Storage, error) {
	if cfg.StorageProvider == storage.ProviderR2 {
		r2, err := storage.NewR2Storage(storage.R2Config{
			AccountID:       cfg.R2AccountID,
			AccessKeyID:     cfg.R2AccessKeyID,
			SecretAccessKey: cfg.R2SecretAccessKey,
			BucketName:      cfg.R2BucketName,
			PublicURL:       cfg.R2PublicURL,
		}, logger)
		if err != nil {
			return nil, err
		}
		return r2, nil
	}
	local, err := storage.NewLocalStorage(storage.LocalConfig{
		BasePath: cfg.LocalStoragePath,
		BaseURL:  cfg.LocalStorageURL,
	}, logger)
	if err != nil {
		return nil, err
	}
	return local, nil
}

// newAIProvider builds the AI provider selected by configuration.
func newAIProvider(cfg *internal.Config, repo *repository.Queries, logger *slog.Logger) (ai.AIProvider, error) {
	if cfg.AIProvider == "anthropic" {
		provider, err := anthropic.New(anthropic.Config{
			APIKey: cfg.AnthropicAPIKey,
			Model:  cfg.AnthropicModel,
			ProviderConfig: ai.ProviderConfig{
				MaxRetries:     cfg.AIMaxRetries,
				RetryBaseDelay: cfg.AIRetryBaseDelay,
				RequestTimeout: cfg.AIRequestTimeout,
			},
		}, repo, logger)
		if err != nil {
			return nil, err
		}
		return provider, nil
	}
	return aimock.New(logger), nil
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}
