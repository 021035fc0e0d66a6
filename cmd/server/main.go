// @title        User API
// @version      1.0
// @description  CRUD service for the User resource.
// @BasePath     /
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"user-api/internal/api"
	"user-api/internal/config"
	"user-api/internal/database"
	"user-api/internal/events"
	"user-api/internal/repository"
	"user-api/internal/service"
	"user-api/internal/tracing"
	"user-api/internal/validation"
)

func main() {
	envFile := ".env." + envOr("APP_ENV", config.EnvDevelopment)
	if err := godotenv.Load(envFile); err != nil {
		fmt.Printf("No %s file found, reading from environment variables\n", envFile)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	api.SetupGlobalHandler(cfg.ServiceName, cfg.LogLevel)

	if len(os.Args) > 1 && os.Args[1] == "migrate" {
		handleMigrations(cfg)
		return
	}

	if err := run(cfg); err != nil {
		slog.Error("Server stopped with error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	shutdownTracer, err := tracing.InitTracerProvider(cfg.ServiceName, cfg.OtelEndpoint)
	if err != nil {
		return fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}
	defer func() {
		if err := shutdownTracer(context.Background()); err != nil {
			slog.Error("Error shutting down tracer provider", slog.String("error", err.Error()))
		}
	}()

	db, err := database.Connect(cfg.DB)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx := context.Background()

	if _, err := database.Migrate(ctx, db); err != nil {
		return err
	}

	var publisher events.EventPublisher = events.NoopPublisher{}
	if cfg.NatsURL != "" {
		natsPublisher, err := events.NewNatsPublisher(cfg.NatsURL)
		if err != nil {
			slog.Warn("Failed to connect to NATS, events disabled", slog.String("error", err.Error()))
		} else {
			defer natsPublisher.Close()
			publisher = natsPublisher
			slog.Info("Successfully connected to NATS.")
		}
	}

	userRepo := repository.NewSQLUserRepository(db,
		repository.WithQueryTimeout(cfg.DB.QueryTimeout),
		repository.WithQueryLogging(cfg.DB.LogQueries),
	)
	userService := service.NewUserService(userRepo, validation.New(), publisher)

	if cfg.SeedData {
		seeded, err := userService.SeedDefaults(ctx)
		if err != nil {
			return fmt.Errorf("database initialization error: %w", err)
		}
		slog.Info("Seed data checked", slog.Int("created", seeded))
	}

	app := api.NewApp(cfg, userService)

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Server running", slog.String("port", cfg.Port), slog.String("env", cfg.Env))
		errCh <- app.Listen("0.0.0.0:" + cfg.Port)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case <-quit:
	}

	slog.Info("Shutting down server...")

	return app.ShutdownWithTimeout(10 * time.Second)
}

func handleMigrations(cfg *config.Config) {
	fmt.Println("Running database migrations...")

	db, err := database.Connect(cfg.DB)
	if err != nil {
		log.Fatalf("failed to connect to database for migration: %v", err)
	}
	defer db.Close()

	applied, err := database.Migrate(context.Background(), db)
	if err != nil {
		log.Fatalf("%v", err)
	}

	fmt.Printf("Migrations applied successfully! (%d new)\n", applied)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
