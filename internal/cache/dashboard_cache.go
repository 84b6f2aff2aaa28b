package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/GTDGit/gtd_stock/internal/models"
)

// ErrMiss is returned when a key is not cached.
var ErrMiss = errors.New("cache miss")

const dashboardKey = "stock:dashboard"

// kv is the subset of RedisClient the caches need.
type kv interface {
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, keys ...string) error
}

// DashboardCache stores the landing-page aggregate as JSON.
type DashboardCache struct {
	store kv
	ttl   time.Duration
}

// NewDashboardCache creates a DashboardCache with the given TTL.
func NewDashboardCache(redis *RedisClient, ttl time.Duration) *DashboardCache {
	return &DashboardCache{store: redis, ttl: ttl}
}

// Get returns the cached dashboard or ErrMiss.
func (c *DashboardCache) Get(ctx context.Context) (*models.Dashboard, error) {
	data, err := c.store.Get(ctx, dashboardKey)
	if err != nil {
		return nil, err
	}
	var d models.Dashboard
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("failed to unmarshal dashboard: %w", err)
	}
	return &d, nil
}

// Set caches the dashboard until the TTL expires or Invalidate is called.
func (c *DashboardCache) Set(ctx context.Context, d *models.Dashboard) error {
	data, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("failed to marshal dashboard: %w", err)
	}
	return c.store.Set(ctx, dashboardKey, data, c.ttl)
}

// Invalidate drops the cached dashboard.
func (c *DashboardCache) Invalidate(ctx context.Context) error {
	return c.store.Delete(ctx, dashboardKey)
}
