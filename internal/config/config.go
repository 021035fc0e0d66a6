package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	EnvDevelopment = "development"
	EnvTest        = "test"
	EnvProduction  = "production"

	DriverSQLite   = "sqlite3"
	DriverPostgres = "pgx"
)

type Config struct {
	Env         string
	ServiceName string
	Port        string
	LogLevel    string

	DB        DBConfig
	RateLimit RateLimitConfig

	CORSAllowOrigins string
	NatsURL          string
	OtelEndpoint     string
	SeedData         bool
}

type DBConfig struct {
	Driver          string
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	QueryTimeout    time.Duration
	LogQueries      bool
}

type RateLimitConfig struct {
	Max    int
	Window time.Duration
}

// Load reads the process environment once. Call it after any .env file has
// been loaded.
func Load() (*Config, error) {
	cfg := &Config{
		Env:              strings.ToLower(getEnv("APP_ENV", EnvDevelopment)),
		ServiceName:      getEnv("SERVICE_NAME", "user-api"),
		Port:             getEnv("APP_PORT", getEnv("PORT", "3000")),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		CORSAllowOrigins: getEnv("CORS_ALLOW_ORIGINS", "*"),
		NatsURL:          os.Getenv("NATS_URL"),
		OtelEndpoint:     os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
	}

	switch cfg.Env {
	case EnvDevelopment, EnvTest, EnvProduction:
	default:
		return nil, fmt.Errorf("invalid APP_ENV %q", cfg.Env)
	}

	var err error

	cfg.SeedData, err = getBool("SEED_DATA", cfg.Env != EnvTest)
	if err != nil {
		return nil, err
	}

	cfg.DB, err = loadDBConfig(cfg.Env)
	if err != nil {
		return nil, err
	}

	cfg.RateLimit.Max, err = getInt("RATE_LIMIT_MAX", 100)
	if err != nil {
		return nil, err
	}
	cfg.RateLimit.Window, err = getDuration("RATE_LIMIT_WINDOW", 15*time.Minute)
	if err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) IsTest() bool {
	return c.Env == EnvTest
}

func loadDBConfig(env string) (DBConfig, error) {
	db := DBConfig{Driver: getEnv("DB_DRIVER", DriverSQLite)}

	switch db.Driver {
	case DriverSQLite:
		db.DSN = sqliteDSN(env)
	case DriverPostgres:
		db.DSN = postgresDSN()
	default:
		return DBConfig{}, fmt.Errorf("unsupported DB_DRIVER %q", db.Driver)
	}

	var err error

	if db.MaxOpenConns, err = getInt("DB_MAX_OPEN_CONNS", 0); err != nil {
		return DBConfig{}, err
	}
	if db.MaxIdleConns, err = getInt("DB_MAX_IDLE_CONNS", 0); err != nil {
		return DBConfig{}, err
	}
	if db.ConnMaxLifetime, err = getDuration("DB_CONN_MAX_LIFETIME", 0); err != nil {
		return DBConfig{}, err
	}
	if db.QueryTimeout, err = getDuration("DB_QUERY_TIMEOUT", 5*time.Second); err != nil {
		return DBConfig{}, err
	}
	if db.LogQueries, err = getBool("DB_LOGGING", false); err != nil {
		return DBConfig{}, err
	}

	return db, nil
}

// sqliteDSN picks the storage file by mode: TEST_DB under test, DB_STORAGE
// otherwise. An explicit DB_DSN wins over both.
func sqliteDSN(env string) string {
	if dsn := os.Getenv("DB_DSN"); dsn != "" {
		return dsn
	}

	storage := os.Getenv("DB_STORAGE")
	if env == EnvTest {
		storage = os.Getenv("TEST_DB")
	}
	if storage == "" {
		if env == EnvTest {
			return "file::memory:?cache=shared&_foreign_keys=on"
		}
		storage = "database.sqlite"
	}

	return fmt.Sprintf("file:%s?_foreign_keys=on&_busy_timeout=5000", storage)
}

func postgresDSN() string {
	if dsn := os.Getenv("DB_DSN"); dsn != "" {
		return dsn
	}

	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		os.Getenv("DB_USER"),
		os.Getenv("DB_PASSWORD"),
		getEnv("DB_HOST", "localhost"),
		getEnv("DB_PORT", "5432"),
		os.Getenv("DB_NAME"),
	)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}

// getDuration accepts Go durations ("15m") or a bare number of seconds.
func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
