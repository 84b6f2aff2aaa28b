package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
)

// Config holds all application configuration loaded from environment variables.
// It is the single source of truth for runtime parameters.
type Config struct {
	Port      string
	Env       string
	JWTSecret string

	// Timezone is used for every calendar-month computation (rollups, periods).
	Timezone           string
	Location           *time.Location
	PhoneDefaultRegion string
	MigrationsPath     string
	MetricsEnabled     bool
	// CORSAllowedHosts lists the browser origins (host[:port]) allowed to call the API.
	CORSAllowedHosts []string

	DB        DatabaseConfig
	Redis     RedisConfig
	Worker    WorkerConfig
	RateLimit RateLimitConfig
	S3        S3Config
}

// DatabaseConfig contains PostgreSQL connection parameters.
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

// RedisConfig contains Redis connection parameters.
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int

	DashboardTTL time.Duration
}

// WorkerConfig contains interval configuration for background workers.
type WorkerConfig struct {
	PeriodCloseInterval time.Duration
	PeriodLockTTL       time.Duration
}

// RateLimitConfig configures the per-IP limiter on the search endpoint.
type RateLimitConfig struct {
	SearchPerSecond float64
	SearchBurst     int
}

// S3Config contains AWS S3 configuration for report archives. An empty
// Bucket disables uploads.
type S3Config struct {
	Region          string
	Bucket          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
}

// Load reads configuration from environment variables. If a .env file exists
// in the working directory, it will be loaded first. It returns a populated
// Config or an error with a human-friendly message.
func Load() (*Config, error) {
	// Load .env if present; ignore error if file is missing so that production
	// environments relying solely on real environment variables keep working.
	_ = godotenv.Load()

	cfg := &Config{}

	// Server
	cfg.Port = getEnv("PORT", "8080")
	cfg.Env = getEnv("ENV", "development")
	cfg.JWTSecret = getEnv("JWT_SECRET", "")
	cfg.Timezone = getEnv("APP_TIMEZONE", "Africa/Dar_es_Salaam")
	cfg.PhoneDefaultRegion = getEnv("PHONE_DEFAULT_REGION", "TZ")
	cfg.MigrationsPath = getEnv("MIGRATIONS_PATH", "file://migrations")
	cfg.MetricsEnabled = getEnvBool("METRICS_ENABLED", true)
	cfg.CORSAllowedHosts = getEnvList("CORS_ALLOWED_HOSTS", "localhost:3000,127.0.0.1:3000")

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid APP_TIMEZONE %q: %w", cfg.Timezone, err)
	}
	cfg.Location = loc

	// Database
	cfg.DB = DatabaseConfig{
		Host:     getEnv("DB_HOST", ""),
		Port:     getEnv("DB_PORT", "5432"),
		User:     getEnv("DB_USER", ""),
		Password: getEnv("DB_PASSWORD", ""),
		Name:     getEnv("DB_NAME", ""),
		SSLMode:  getEnv("DB_SSLMODE", "disable"),
	}

	// Redis
	cfg.Redis = RedisConfig{
		Host:     getEnv("REDIS_HOST", "redis"),
		Port:     getEnv("REDIS_PORT", "6379"),
		Password: getEnv("REDIS_PASSWORD", ""),
		DB:       getEnvInt("REDIS_DB", 0),
	}
	if cfg.Redis.DashboardTTL, err = parseDurationEnv("DASHBOARD_CACHE_TTL", "30s"); err != nil {
		return nil, fmt.Errorf("invalid DASHBOARD_CACHE_TTL: %w", err)
	}

	// Workers (durations)
	if cfg.Worker.PeriodCloseInterval, err = parseDurationEnv("PERIOD_CLOSE_INTERVAL", "1h"); err != nil {
		return nil, fmt.Errorf("invalid PERIOD_CLOSE_INTERVAL: %w", err)
	}
	if cfg.Worker.PeriodLockTTL, err = parseDurationEnv("PERIOD_LOCK_TTL", "5m"); err != nil {
		return nil, fmt.Errorf("invalid PERIOD_LOCK_TTL: %w", err)
	}

	// Rate limit
	cfg.RateLimit = RateLimitConfig{
		SearchPerSecond: getEnvFloat("SEARCH_RATE_LIMIT", 5),
		SearchBurst:     getEnvInt("SEARCH_RATE_BURST", 10),
	}

	// S3 (report archive)
	cfg.S3 = S3Config{
		Region:          getEnv("S3_REGION", "af-south-1"),
		Bucket:          getEnv("S3_BUCKET", ""),
		Endpoint:        getEnv("S3_ENDPOINT", ""),
		AccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
		SecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
	}

	// Basic validation for DB parameters.
	if cfg.DB.Host == "" || cfg.DB.User == "" || cfg.DB.Name == "" {
		return nil, errors.New("database configuration incomplete: ensure DB_HOST, DB_USER, and DB_NAME are set")
	}

	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET must be set for authentication")
	}

	return cfg, nil
}

// getEnv returns the value of an environment variable or a default if empty.
func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// getEnvInt returns the value of an environment variable as an integer or a default if empty/invalid.
func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

func getEnvFloat(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

// getEnvList splits a comma-separated variable into trimmed, non-empty items.
func getEnvList(key, def string) []string {
	var items []string
	for _, item := range strings.Split(getEnv(key, def), ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

func getEnvBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

// parseDurationEnv reads an environment variable and parses it as time.Duration.
// If the variable is empty, it falls back to the provided default value.
func parseDurationEnv(key, def string) (time.Duration, error) {
	raw := getEnv(key, def)
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("duration must be >= 0")
	}
	return d, nil
}
