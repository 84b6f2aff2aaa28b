package database

import (
    "context"
    "database/sql"
    "errors"
    "fmt"
    "net/url"
    "time"

    "github.com/jmoiron/sqlx"
    _ "github.com/lib/pq" // PostgreSQL driver
    "github.com/rs/zerolog/log"

    appconfig "github.com/GTDGit/gtd_stock/internal/config"
)

// Retry policy: up to 5 attempts, exponential backoff starting at 500ms.
const (
    maxAttempts = 5
    baseDelay   = 500 * time.Millisecond
)

// DSN builds the lib/pq connection URL for cfg.
func DSN(cfg *appconfig.DatabaseConfig) string {
    return fmt.Sprintf(
        "postgres://%s:%s@%s:%s/%s?sslmode=%s",
        url.QueryEscape(cfg.User), url.QueryEscape(cfg.Password), cfg.Host, cfg.Port, cfg.Name, cfg.SSLMode,
    )
}

// Connect establishes a PostgreSQL connection using the provided configuration.
// The stock database is usually started alongside the API container, so a
// failed open or ping is retried with backoff until ctx is done. The returned
// *sqlx.DB has pool settings pre-configured.
func Connect(ctx context.Context, cfg *appconfig.DatabaseConfig) (*sqlx.DB, error) {
    if cfg == nil {
        return nil, errors.New("nil database config")
    }
    dsn := DSN(cfg)

    var lastErr error
    for attempt := 1; attempt <= maxAttempts; attempt++ {
        db, err := open(ctx, dsn)
        if err == nil {
            return db, nil
        }
        lastErr = err
        log.Warn().Err(err).Int("attempt", attempt).Msg("database not ready")

        select {
        case <-time.After(backoff(attempt)):
        case <-ctx.Done():
            return nil, fmt.Errorf("database connect cancelled: %w", ctx.Err())
        }
    }

    return nil, fmt.Errorf("failed to connect to database after %d attempts: %w", maxAttempts, lastErr)
}

func open(ctx context.Context, dsn string) (*sqlx.DB, error) {
    db, err := sqlx.Open("postgres", dsn)
    if err != nil {
        return nil, err
    }
    setPool(db.DB)

    if err := Ping(ctx, db); err != nil {
        _ = db.Close()
        return nil, err
    }
    return db, nil
}

// Ping checks the connection with a short timeout. Used by the health endpoint.
func Ping(ctx context.Context, db *sqlx.DB) error {
    ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
    defer cancel()
    return db.PingContext(ctx)
}

// setPool configures the connection pool for the database.
func setPool(db *sql.DB) {
    db.SetMaxOpenConns(25)
    db.SetMaxIdleConns(5)
    db.SetConnMaxLifetime(5 * time.Minute)
    db.SetConnMaxIdleTime(time.Minute)
}

// backoff returns base * 2^(attempt-1), capped to 5s.
func backoff(attempt int) time.Duration {
    d := baseDelay << (attempt - 1)
    if d > 5*time.Second {
        d = 5 * time.Second
    }
    return d
}
