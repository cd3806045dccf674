package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wardenlabs/childguard/internal/api/router"
	"github.com/wardenlabs/childguard/internal/app/bootstrap"
	appconfig "github.com/wardenlabs/childguard/internal/config"
	"github.com/wardenlabs/childguard/internal/gate"
	"github.com/wardenlabs/childguard/internal/http/handlers"
	"github.com/wardenlabs/childguard/internal/observability/metrics"
	"github.com/wardenlabs/childguard/internal/safety"
	"github.com/wardenlabs/childguard/pkg/logging"
)

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting childguard safety service",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx := context.Background()
	safetyMetrics := metrics.NewSafetyMetrics(nil)

	// Classifier chain
	classifiers, cleanup, err := bootstrap.BuildClassifiers(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to build classifier chain", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	// Review queue with optional Redis archive
	redisClient := bootstrap.BuildRedisClient(ctx, cfg, logger, true)
	if redisClient != nil {
		defer func() { _ = redisClient.Close() }()
	}
	queue := bootstrap.BuildReviewQueue(cfg, redisClient, logger, safetyMetrics)

	// Guardian and moderator notifications
	notifier := bootstrap.BuildNotifyService(ctx, cfg, logger)
	queue.OnUrgent(notifier.NotifyUrgentTicket)

	evaluator := safety.NewEvaluator(safety.EvaluatorConfig{
		Classifiers:      classifiers,
		Reviews:          queue,
		EarlyTermination: cfg.EarlyTermination,
		Logger:           logger,
		Metrics:          safetyMetrics,
	})

	safetyGate := gate.New(gate.Config{
		Evaluator: evaluator,
		Notifier:  notifier,
		Logger:    logger,
	})

	// Setup router
	r := router.New(&router.Config{
		Logger:         logger,
		SafetyHandler:  handlers.NewSafetyHandler(handlers.SafetyConfig{Gate: safetyGate, Logger: logger}),
		ReviewHandler:  handlers.NewReviewHandler(handlers.ReviewConfig{Queue: queue, Logger: logger}),
		ReviewerSecret: cfg.AdminJWTSecret,
		MetricsHandler: promhttp.Handler(),
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}
