package database

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appconfig "github.com/GTDGit/gtd_stock/internal/config"
)

func TestDSNEscapesCredentials(t *testing.T) {
	dsn := DSN(&appconfig.DatabaseConfig{
		Host: "db", Port: "5432", User: "stock", Password: "p@ss word", Name: "inventory", SSLMode: "disable",
	})
	assert.Equal(t, "postgres://stock:p%40ss+word@db:5432/inventory?sslmode=disable", dsn)
}

func TestBackoffIsCapped(t *testing.T) {
	assert.Equal(t, 500*time.Millisecond, backoff(1))
	assert.Equal(t, time.Second, backoff(2))
	assert.Equal(t, 4*time.Second, backoff(4))
	assert.Equal(t, 5*time.Second, backoff(5))
}

func TestConnectNilConfig(t *testing.T) {
	_, err := Connect(context.Background(), nil)
	require.Error(t, err)
}
