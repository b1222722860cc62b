package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/sessions"
	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/markbates/goth"
	"github.com/markbates/goth/gothic"
	"github.com/markbates/goth/providers/google"

	database "github.com/nepabhay/account-service/app/db"
	appLogger "github.com/nepabhay/account-service/app/logger"
	"github.com/nepabhay/account-service/app/observability/metrics"
	"github.com/nepabhay/account-service/app/tracer"
	"github.com/nepabhay/account-service/config"
	_ "github.com/nepabhay/account-service/docs"
	"github.com/nepabhay/account-service/internal/api/account"
	"github.com/nepabhay/account-service/internal/api/auth"
	"github.com/nepabhay/account-service/internal/api/notify"
	"github.com/nepabhay/account-service/internal/api/sweep"
	api "github.com/nepabhay/account-service/internal/router"
)

// @title           Nepa:Bhay Account Service API
// @version         1.0
// @description     Account lifecycle, authentication, and retention service for the Nepa:Bhay community platform.
// @BasePath        /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	// Use standard log until slog is configured, in case godotenv fails
	err := godotenv.Load()
	if err != nil {
		log.Println("Warning: .env file not found or error loading:", err)
	}

	cfg, err := config.InitConfig()
	if err != nil {
		log.Fatalf("FATAL: Error initializing config: %v", err)
	}

	logger := setupLogger()
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// --- Observability ---
	tracer.InitTracingAndMetrics(cfg.Server.MetricsPort)
	metrics.InitAppMetrics()

	// --- Database Setup ---
	dbConfig, err := database.NewDatabaseConfig(&cfg, logger)
	if err != nil {
		logger.Error("Failed to generate database config", slog.Any("error", err))
		os.Exit(1)
	}

	// Run migrations *before* initializing the main pool
	if err := database.RunMigrations(dbConfig.ConnectionURL, logger); err != nil {
		logger.Error("Failed to run database migrations", slog.Any("error", err))
		os.Exit(1)
	}

	pool, err := database.Init(dbConfig.ConnectionURL, logger)
	if err != nil {
		logger.Error("Failed to initialize database pool", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	if !database.WaitForDB(ctx, pool, logger) {
		logger.Error("Database not ready after waiting, exiting.")
		os.Exit(1)
	}

	// --- Social Login Setup ---
	gothic.Store = sessions.NewCookieStore([]byte(cfg.Auth.SessionSecret))
	if clientID := os.Getenv("GOOGLE_CLIENT_ID"); clientID != "" {
		goth.UseProviders(
			google.New(clientID, os.Getenv("GOOGLE_CLIENT_SECRET"), os.Getenv("GOOGLE_CALLBACK_URL")),
		)
	}

	// --- Dependency Injection ---
	var notifier notify.Notifier = notify.NoopNotifier{}
	if cfg.SMTP.Enabled {
		notifier = notify.NewSMTPNotifier(cfg.SMTP, logger)
	}

	accountRepo := account.NewPostgresAccountRepo(pool, logger)
	accountService := account.NewAccountService(accountRepo, notifier,
		cfg.Retention.GracePeriod(), cfg.Auth.RequireEmailVerification, logger)
	accountHandler := account.NewHandlerImpl(accountService, logger)

	authRepo := auth.NewPostgresAuthRepo(pool, logger)
	authService := auth.NewAuthService(accountRepo, accountService, authRepo, cfg.JWT, logger)
	authHandler := auth.NewHandlerImpl(authService, accountService,
		cfg.Auth.LoginAttemptWindow, cfg.Auth.LoginMaxAttempts, logger)

	sweepService := sweep.NewSweepService(accountService, cfg.Retention.GracePeriod(),
		cfg.Retention.BatchLimit, cfg.Retention.Concurrency, logger)
	sweepHandler := sweep.NewHandlerImpl(sweepService, cfg.Retention.APIKey, logger)

	scheduler := sweep.NewScheduler(sweepService, cfg.Retention.SweepInterval, logger)
	scheduler.Start(ctx)
	defer scheduler.Stop()

	// --- Router Setup ---
	routerConfig := &api.Config{
		AuthHandler:            authHandler,
		AccountHandler:         accountHandler,
		SweepHandler:           sweepHandler,
		AuthenticateMiddleware: auth.Authenticate(cfg.JWT, logger),
		RequireAdmin:           auth.RequireAdmin,
	}
	mainRouter := api.SetupRouter(routerConfig)

	router := chi.NewMux()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(appLogger.StructuredLogger(logger))
	router.Use(middleware.Recoverer)
	router.Use(middleware.StripSlashes)
	router.Use(middleware.Timeout(60 * time.Second))
	router.Use(middleware.Compress(5, "application/json"))
	router.Mount("/", mainRouter)

	// --- HTTP Server Setup ---
	serverAddress := fmt.Sprintf(":%s", cfg.Server.HTTPPort)
	srv := &http.Server{
		Addr:         serverAddress,
		Handler:      router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	go func() {
		logger.Info("Starting HTTP server", slog.String("address", serverAddress))
		err := srv.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server ListenAndServe error", slog.Any("error", err))
			cancel()
		}
	}()

	<-ctx.Done()

	logger.Info("Shutdown signal received, starting graceful shutdown...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server graceful shutdown failed", slog.Any("error", err))
	} else {
		logger.Info("HTTP server gracefully stopped")
	}

	logger.Info("Application shut down complete.")
}

// setupLogger configures and returns the application logger.
func setupLogger() *slog.Logger {
	var logger *slog.Logger
	env := os.Getenv("APP_ENV")

	if env == "development" || env == "" {
		// Colored logs for development
		tintOpts := &tint.Options{
			Level:      slog.LevelDebug,
			TimeFormat: time.Kitchen,
			AddSource:  true,
		}
		logger = slog.New(tint.NewHandler(os.Stdout, tintOpts))
		log.Println("Initialized development logger (tint)")
	} else {
		// JSON logs for production or other environments
		jsonOpts := &slog.HandlerOptions{
			Level:     slog.LevelInfo,
			AddSource: false,
		}
		logger = slog.New(slog.NewJSONHandler(os.Stdout, jsonOpts))
		log.Println("Initialized production logger (JSON)")
	}
	return logger
}
