package database

import (
	"context"
	"fmt"
	"log/slog"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"

	"user-api/internal/config"
	"user-api/migrations"
)

func Connect(cfg config.DBConfig) (*sqlx.DB, error) {
	db, err := sqlx.Connect(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	maxOpen := cfg.MaxOpenConns
	if maxOpen == 0 && cfg.Driver == config.DriverSQLite {
		// SQLite allows a single writer; one connection also keeps
		// in-memory databases alive across queries.
		maxOpen = 1
	}
	if maxOpen > 0 {
		db.SetMaxOpenConns(maxOpen)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	slog.Info("Successfully connected to the database.", slog.String("driver", cfg.Driver))

	return db, nil
}

func Dialect(driver string) (goose.Dialect, error) {
	switch driver {
	case config.DriverSQLite:
		return goose.DialectSQLite3, nil
	case config.DriverPostgres:
		return goose.DialectPostgres, nil
	}
	return "", fmt.Errorf("no migration dialect for driver %q", driver)
}

// Migrate applies every pending migration and returns how many ran.
func Migrate(ctx context.Context, db *sqlx.DB) (int, error) {
	dialect, err := Dialect(db.DriverName())
	if err != nil {
		return 0, err
	}

	ms, err := migrations.For(dialect)
	if err != nil {
		return 0, err
	}

	provider, err := goose.NewProvider(dialect, db.DB, nil,
		goose.WithDisableGlobalRegistry(true),
		goose.WithGoMigrations(ms...),
	)
	if err != nil {
		return 0, fmt.Errorf("goose: failed to create provider: %w", err)
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return 0, fmt.Errorf("goose: failed to run migrations: %w", err)
	}

	for _, r := range results {
		slog.InfoContext(ctx, "Applied migration",
			slog.Int64("version", r.Source.Version),
			slog.Duration("duration", r.Duration),
		)
	}

	return len(results), nil
}
