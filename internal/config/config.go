package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Auth     AuthConfig
	Storage  StorageConfig
	Search   SearchConfig
	Workers  WorkersConfig
}

type ServerConfig struct {
	Host string
	Port int
}

type DatabaseConfig struct {
	URL            string
	MaxConns       int
	MinConns       int
	MigrationsPath string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type AuthConfig struct {
	JWTSecret string
}

type StorageConfig struct {
	BaseURL    string
	ServiceKey string
	Bucket     string
	Timeout    time.Duration
}

// SearchConfig points at a Discovery-Engine-style datastore branch. Document
// ids are always supplied by us; the engine never assigns them.
type SearchConfig struct {
	BaseURL     string
	ProjectID   string
	Location    string
	DataStoreID string
	AuthToken   string
	Timeout     time.Duration
}

// WorkersConfig carries the background loop intervals and the deletion retry
// budget. Passed into constructors so tests can run the schedule without
// wall-clock sleeps.
type WorkersConfig struct {
	DeletionInterval    time.Duration
	IndexStatusInterval time.Duration
	DeletionBatchSize   int
	MaxDeleteAttempts   int
	Concurrency         int
}

func Load() (*Config, error) {
	port, err := getEnvInt("SERVER_PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_PORT: %w", err)
	}

	maxConns, err := getEnvInt("DB_MAX_CONNS", 20)
	if err != nil {
		return nil, fmt.Errorf("invalid DB_MAX_CONNS: %w", err)
	}

	minConns, err := getEnvInt("DB_MIN_CONNS", 5)
	if err != nil {
		return nil, fmt.Errorf("invalid DB_MIN_CONNS: %w", err)
	}

	redisDB, err := getEnvInt("REDIS_DB", 0)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	deletionInterval, err := getEnvDuration("DELETION_QUEUE_INTERVAL", time.Minute)
	if err != nil {
		return nil, fmt.Errorf("invalid DELETION_QUEUE_INTERVAL: %w", err)
	}

	indexInterval, err := getEnvDuration("INDEX_STATUS_INTERVAL", 2*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("invalid INDEX_STATUS_INTERVAL: %w", err)
	}

	batchSize, err := getEnvInt("DELETION_BATCH_SIZE", 100)
	if err != nil {
		return nil, fmt.Errorf("invalid DELETION_BATCH_SIZE: %w", err)
	}

	maxAttempts, err := getEnvInt("DELETION_MAX_ATTEMPTS", 10)
	if err != nil {
		return nil, fmt.Errorf("invalid DELETION_MAX_ATTEMPTS: %w", err)
	}

	concurrency, err := getEnvInt("WORKER_CONCURRENCY", 10)
	if err != nil {
		return nil, fmt.Errorf("invalid WORKER_CONCURRENCY: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
			Port: port,
		},
		Database: DatabaseConfig{
			URL:            getEnv("DATABASE_URL", ""),
			MaxConns:       maxConns,
			MinConns:       minConns,
			MigrationsPath: getEnv("MIGRATIONS_PATH", "migrations"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", ""),
		},
		Storage: StorageConfig{
			BaseURL:    getEnv("STORAGE_URL", ""),
			ServiceKey: getEnv("STORAGE_SERVICE_KEY", ""),
			Bucket:     getEnv("STORAGE_BUCKET", "documents"),
			Timeout:    2 * time.Minute,
		},
		Search: SearchConfig{
			BaseURL:     getEnv("SEARCH_BASE_URL", "https://discoveryengine.googleapis.com/v1"),
			ProjectID:   getEnv("SEARCH_PROJECT_ID", ""),
			Location:    getEnv("SEARCH_LOCATION", "global"),
			DataStoreID: getEnv("SEARCH_DATA_STORE_ID", ""),
			AuthToken:   getEnv("SEARCH_AUTH_TOKEN", ""),
			Timeout:     30 * time.Second,
		},
		Workers: WorkersConfig{
			DeletionInterval:    deletionInterval,
			IndexStatusInterval: indexInterval,
			DeletionBatchSize:   batchSize,
			MaxDeleteAttempts:   maxAttempts,
			Concurrency:         concurrency,
		},
	}

	return cfg, nil
}

func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func (c *Config) Validate() error {
	var missing []string
	if c.Database.URL == "" {
		missing = append(missing, "DATABASE_URL")
	}
	if c.Auth.JWTSecret == "" {
		missing = append(missing, "JWT_SECRET")
	}
	if c.Search.DataStoreID == "" {
		missing = append(missing, "SEARCH_DATA_STORE_ID")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required env vars: %s", strings.Join(missing, ", "))
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	return strconv.Atoi(v)
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	return time.ParseDuration(v)
}
