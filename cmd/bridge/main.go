package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"

	httpAdapter "github.com/lorrc/service-desk-notifier/internal/adapters/primary/http"
	"github.com/lorrc/service-desk-notifier/internal/adapters/primary/websocket"
	"github.com/lorrc/service-desk-notifier/internal/adapters/secondary/postgres"
	"github.com/lorrc/service-desk-notifier/internal/adapters/secondary/webhook"
	"github.com/lorrc/service-desk-notifier/internal/auth"
	"github.com/lorrc/service-desk-notifier/internal/config"
	"github.com/lorrc/service-desk-notifier/internal/core/services"
	"github.com/lorrc/service-desk-notifier/internal/infrastructure/logging"
)

func main() {
	// 1. Load Configuration
	cfg, err := config.Load()
	if err != nil {
		logging.NewLogger(logging.DefaultConfig()).Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// 2. Initialize Structured Logger
	logger := logging.NewLogger(logging.Config{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		Output:      os.Stdout,
		ServiceName: cfg.App.Name,
		Environment: cfg.App.Environment,
	})

	logger.Info("starting service",
		"version", cfg.App.Version,
		"environment", cfg.App.Environment,
		"config", cfg.String(),
	)

	// 3. Initialize Database Pool (read-only access to the helpdesk)
	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	poolConfig, err := pgxpool.ParseConfig(cfg.Database.URL)
	if err != nil {
		logger.Error("failed to parse database URL", "error", err)
		os.Exit(1)
	}

	poolConfig.MaxConns = int32(cfg.Database.MaxConns)
	poolConfig.MinConns = int32(cfg.Database.MinConns)
	poolConfig.MaxConnLifetime = cfg.Database.ConnMaxLifetime
	poolConfig.MaxConnIdleTime = cfg.Database.ConnMaxIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		logger.Error("database ping failed", "error", err)
		os.Exit(1)
	}
	logger.Info("database connection established")

	// 4. Initialize Security & Real-time Components
	tokenManager := auth.NewTokenManager(cfg.JWT.Secret, cfg.JWT.TokenTTL)
	hub := websocket.NewHub(logger)
	hubDone := make(chan struct{})
	go func() {
		defer close(hubDone)
		hub.Run(ctx)
	}()

	// 5. Dependency Injection (Wiring the Hexagon)
	lookup := postgres.NewTicketLookup(pool)
	dispatcher := webhook.NewDispatcher(webhook.Config{Timeout: cfg.Webhook.Timeout}, logger)
	defer dispatcher.CloseIdleConnections()

	notifier := services.NewNotificationService(lookup, dispatcher, hub, logger)

	notifier.Configure(cfg.Settings())

	errorHandler := httpAdapter.NewErrorHandler(logger)

	router := httpAdapter.NewRouter(httpAdapter.RouterConfig{
		Signals:      httpAdapter.NewSignalHandler(notifier, lookup, errorHandler, logger),
		Preview:      httpAdapter.NewPreviewHandler(notifier, errorHandler, logger),
		Health:       httpAdapter.NewHealthHandler(lookup, notifier, cfg.App.Version),
		WebSocket:    httpAdapter.NewWebSocketHandler(hub, tokenManager, cfg, logger),
		TokenManager: tokenManager,
		CORSOrigins:  cfg.CORS.AllowedOrigins,
		Logger:       logger,
	})

	// 6. Start Server with Graceful Shutdown
	srv := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("server starting", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	exitCode := 0
	select {
	case sig := <-quit:
		logger.Info("shutdown signal received", "signal", sig.String())
	case err := <-serverErr:
		logger.Error("server error", "error", err)
		exitCode = 1
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
		exitCode = 1
	}

	// Disconnect operator feeds once no more outcomes can be produced.
	stop()
	<-hubDone

	logger.Info("server shutdown complete")
	if exitCode != 0 {
		os.Exit(exitCode)
	}
}
