package cache

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/GTDGit/gtd_stock/internal/models"
	"github.com/GTDGit/gtd_stock/internal/sse"
)

type invalidator interface {
	Invalidate(ctx context.Context) error
}

// InvalidatingNotifier drops the cached dashboard on every change event
// before forwarding it.
type InvalidatingNotifier struct {
	next  sse.Notifier
	cache invalidator
}

// NewInvalidatingNotifier wraps next so that each event invalidates cache.
func NewInvalidatingNotifier(next sse.Notifier, cache invalidator) *InvalidatingNotifier {
	return &InvalidatingNotifier{next: next, cache: cache}
}

func (n *InvalidatingNotifier) invalidate() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := n.cache.Invalidate(ctx); err != nil {
		log.Warn().Err(err).Msg("Failed to invalidate dashboard cache")
	}
}

func (n *InvalidatingNotifier) NotifyStock(event sse.EventType, unit *models.StockUnit) {
	n.invalidate()
	n.next.NotifyStock(event, unit)
}

func (n *InvalidatingNotifier) NotifySale(event sse.EventType, sale *models.Sale) {
	n.invalidate()
	n.next.NotifySale(event, sale)
}

func (n *InvalidatingNotifier) NotifyAgent(agent *models.Agent) {
	n.invalidate()
	n.next.NotifyAgent(agent)
}

func (n *InvalidatingNotifier) NotifyPeriod(closure *models.PeriodClosure) {
	n.invalidate()
	n.next.NotifyPeriod(closure)
}

func (n *InvalidatingNotifier) NotifyRegion(event sse.EventType, id string) {
	n.invalidate()
	n.next.NotifyRegion(event, id)
}
