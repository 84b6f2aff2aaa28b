package cache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GTDGit/gtd_stock/internal/models"
	"github.com/GTDGit/gtd_stock/internal/sse"
)

type memKV struct {
	mu   sync.Mutex
	data map[string][]byte
	ttl  time.Duration
}

func newMemKV() *memKV { return &memKV{data: map[string][]byte{}} }

func (m *memKV) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	m.ttl = ttl
	return nil
}

func (m *memKV) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return nil, ErrMiss
	}
	return v, nil
}

func (m *memKV) Delete(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

func TestDashboardCacheRoundTrip(t *testing.T) {
	store := newMemKV()
	c := &DashboardCache{store: store, ttl: 30 * time.Second}
	ctx := context.Background()

	_, err := c.Get(ctx)
	assert.ErrorIs(t, err, ErrMiss)

	require.NoError(t, c.Set(ctx, &models.Dashboard{Period: "2024-03", TotalAgents: 4}))
	assert.Equal(t, 30*time.Second, store.ttl)

	d, err := c.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "2024-03", d.Period)
	assert.Equal(t, 4, d.TotalAgents)

	require.NoError(t, c.Invalidate(ctx))
	_, err = c.Get(ctx)
	assert.ErrorIs(t, err, ErrMiss)
}

type countingInvalidator struct {
	calls int
	err   error
}

func (c *countingInvalidator) Invalidate(context.Context) error {
	c.calls++
	return c.err
}

type recordingNotifier struct {
	sse.NopNotifier
	stock []sse.EventType
}

func (r *recordingNotifier) NotifyStock(event sse.EventType, _ *models.StockUnit) {
	r.stock = append(r.stock, event)
}

func TestInvalidatingNotifierForwards(t *testing.T) {
	inv := &countingInvalidator{err: errors.New("redis down")}
	next := &recordingNotifier{}
	n := NewInvalidatingNotifier(next, inv)

	n.NotifyStock(sse.EventStockAssigned, &models.StockUnit{ID: "u1"})
	n.NotifySale(sse.EventSaleRecorded, &models.Sale{ID: "s1"})
	n.NotifyAgent(&models.Agent{ID: "a1"})
	n.NotifyPeriod(&models.PeriodClosure{Period: "2024-01"})
	n.NotifyRegion(sse.EventRegionCreated, "r1")

	assert.Equal(t, 5, inv.calls)
	assert.Equal(t, []sse.EventType{sse.EventStockAssigned}, next.stock)
}
