package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/leadscout/backend/internal/api"
	"github.com/leadscout/backend/internal/config"
	"github.com/leadscout/backend/internal/database"
	"github.com/leadscout/backend/internal/health"
	"github.com/leadscout/backend/internal/migration"
	"github.com/leadscout/backend/internal/n8n"
	"github.com/leadscout/backend/internal/preview"
	"github.com/leadscout/backend/internal/repository"
	"github.com/leadscout/backend/internal/services"
	"github.com/leadscout/backend/pkg/utils"
	"github.com/sirupsen/logrus"
)

const (
	shutdownTimeout     = 10 * time.Second
	healthCheckInterval = 30 * time.Second
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file found: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger := utils.NewLogger(cfg.Log.Level)
	if err := run(cfg, logger); err != nil {
		logger.WithError(err).Fatal("Server stopped with error")
	}
}

func run(cfg *config.Config, logger *logrus.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbManager, err := database.NewManager(&database.Config{
		DatabaseURL: cfg.Database.URL,
		RedisURL:    cfg.Redis.URL,
		LogLevel:    cfg.Log.Level,
	}, logger)
	if err != nil {
		return err
	}
	defer dbManager.Close()

	if err := migration.NewRunner(dbManager, logger).RunMigrations(cfg.Database.MigrationsPath); err != nil {
		return err
	}

	cache := database.NewCache(dbManager.Redis, logger)
	repos := repository.NewRepositoryManager(dbManager.DB)

	retry := n8n.DefaultRetryConfig()
	retry.MaxRetries = cfg.N8N.MaxRetries
	n8nClient := n8n.NewClient(cfg.N8N.WebhookSecret, cfg.N8N.Timeout, retry, logger)
	dispatcher := services.NewDispatcher(n8nClient, cfg.N8N, repos.Platform, repos.Search, logger)

	opts := services.SearchServiceOptions{
		PreviewTimeout: cfg.Preview.Timeout,
		Cache:          cache,
		StatsTTL:       cfg.Cache.StatsTTL,
	}
	if cfg.Preview.Enabled {
		opts.Previews = preview.NewFetcher(cfg.Preview.Timeout, logger)
	}
	searchService := services.NewSearchService(repos, dispatcher, opts, logger)

	checker := health.NewHealthChecker(dbManager, cache, logger)
	go checker.PeriodicHealthCheck(ctx, healthCheckInterval)

	server := api.NewServer(api.Dependencies{
		Config:         cfg,
		Logger:         logger,
		AuthService:    services.NewAuthService(repos.User, cfg.Auth.Secret, cfg.Auth.SessionDays, logger),
		SearchService:  searchService,
		WebhookService: services.NewWebhookService(repos, cache, logger),
		HealthChecker:  checker,
	})
	defer server.Close()

	if cfg.N8N.WebhookSecret == "" {
		logger.Warn("N8N_WEBHOOK_SECRET not set, every workflow callback will be rejected")
	}

	httpServer := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           server.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.WithFields(logrus.Fields{
			"port":        cfg.Server.Port,
			"environment": cfg.Server.Environment,
		}).Info("API server listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}
	logger.Info("Shutting down API server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("HTTP shutdown failed")
	}

	// Let in-flight preview fetches store their result before the pool closes.
	searchService.Wait()
	return nil
}
