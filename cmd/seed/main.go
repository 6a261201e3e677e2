package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/leadscout/backend/internal/config"
	"github.com/leadscout/backend/internal/database"
	"github.com/leadscout/backend/internal/migration"
	"github.com/leadscout/backend/internal/repository"
	"github.com/leadscout/backend/internal/seeder"
	"github.com/leadscout/backend/internal/services"
	"github.com/leadscout/backend/pkg/utils"
	"github.com/sirupsen/logrus"
)

var (
	dryRun     = flag.Bool("dry-run", false, "Parse the fixtures and print what would be stored")
	verbose    = flag.Bool("verbose", false, "Enable verbose logging")
	email      = flag.String("email", "demo@leadscout.dev", "Demo account email")
	password   = flag.String("password", "demo-password", "Demo account password")
	productURL = flag.String("product-url", "https://demo.leadscout.dev", "Product URL of the demo search")
	timeout    = flag.Duration("timeout", time.Minute, "Overall seeding timeout")
)

func main() {
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file found: %v", err)
	}

	fixtures, err := seeder.LoadFixtures()
	if err != nil {
		log.Fatalf("load fixtures: %v", err)
	}

	if *dryRun {
		printPreview(fixtures.Parse())
		return
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	level := cfg.Log.Level
	if *verbose {
		level = "debug"
	}
	logger := utils.NewLogger(level)

	dbManager, err := database.NewManager(&database.Config{
		DatabaseURL: cfg.Database.URL,
		RedisURL:    cfg.Redis.URL,
		LogLevel:    level,
	}, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to database")
	}
	defer dbManager.Close()

	if err := migration.NewRunner(dbManager, logger).RunMigrations(cfg.Database.MigrationsPath); err != nil {
		logger.WithError(err).Fatal("Failed to run migrations")
	}

	repos := repository.NewRepositoryManager(dbManager.DB)
	cache := database.NewCache(dbManager.Redis, logger)
	s := seeder.NewSeeder(
		repos,
		services.NewAuthService(repos.User, cfg.Auth.Secret, cfg.Auth.SessionDays, logger),
		services.NewWebhookService(repos, cache, logger),
		logger,
	)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	result, err := s.Seed(ctx, *email, *password, *productURL, fixtures)
	if err != nil {
		logger.WithError(err).Fatal("Seeding failed")
	}

	logger.WithFields(logrus.Fields{
		"email":         result.User.Email,
		"search_id":     result.SearchID,
		"status":        result.Status,
		"conversations": result.Conversations,
	}).Info("Seeding completed")
}

func printPreview(preview seeder.Preview) {
	fmt.Printf("Reddit: %d conversations\n", len(preview.Reddit))
	for _, post := range preview.Reddit {
		fmt.Printf("  [%s] r/%s %s\n", post.Keyword, post.Subreddit, post.Title)
	}
	fmt.Printf("LinkedIn: %d conversations\n", len(preview.LinkedIn))
	for _, post := range preview.LinkedIn {
		fmt.Printf("  %s: %s\n", post.Author, post.Title)
	}
}
