package service

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/rs/zerolog/log"

	"github.com/GTDGit/gtd_stock/internal/metrics"
	"github.com/GTDGit/gtd_stock/internal/models"
	"github.com/GTDGit/gtd_stock/internal/repository"
	"github.com/GTDGit/gtd_stock/internal/sse"
	"github.com/GTDGit/gtd_stock/internal/utils"
)

// PeriodService closes months into per-agent snapshots.
type PeriodService struct {
	tx        repository.TxRunner
	agents    repository.AgentStore
	sales     repository.SaleStore
	snapshots repository.SnapshotStore
	notifier  sse.Notifier
	metrics   *metrics.Recorder
	now       Clock
}

// NewPeriodService constructs a PeriodService.
func NewPeriodService(
	tx repository.TxRunner,
	agents repository.AgentStore,
	sales repository.SaleStore,
	snapshots repository.SnapshotStore,
	notifier sse.Notifier,
	recorder *metrics.Recorder,
	now Clock,
) *PeriodService {
	return &PeriodService{
		tx:        tx,
		agents:    agents,
		sales:     sales,
		snapshots: snapshots,
		notifier:  notifier,
		metrics:   recorder,
		now:       now,
	}
}

// PeriodDetail is a closed month with its per-agent rows.
type PeriodDetail struct {
	Closure   *models.PeriodClosure   `json:"closure"`
	Snapshots []models.PeriodSnapshot `json:"snapshots"`
}

// PreviousPeriod returns the YYYY-MM of the month before now.
func (s *PeriodService) PreviousPeriod() string {
	now := s.now()
	return PeriodOf(previousMonth(now, now.Location()), now.Location())
}

// Close snapshots a finished month. Only months before the current one can
// be closed, and each only once.
func (s *PeriodService) Close(ctx context.Context, period string) (*models.PeriodClosure, error) {
	now := s.now()
	loc := now.Location()
	start, err := ParsePeriod(period, loc)
	if err != nil {
		return nil, err
	}
	period = PeriodOf(start, loc)
	if !start.Before(monthStart(now, loc)) {
		return nil, fmt.Errorf("%w: period %s has not ended", utils.ErrValidation, period)
	}

	agents, err := s.agents.List(ctx, repository.AgentFilter{})
	if err != nil {
		return nil, err
	}
	sales, err := s.sales.List(ctx, repository.SaleFilter{})
	if err != nil {
		return nil, err
	}

	regionOf := make(map[string]*string, len(agents))
	for _, a := range agents {
		regionOf[a.ID] = a.RegionID
	}
	counts := map[string]int{}
	total := 0
	for _, sale := range sales {
		if !inMonth(sale.SaleDate, start, loc) {
			continue
		}
		total++
		if sale.AgentID == nil {
			continue
		}
		if _, known := regionOf[*sale.AgentID]; known {
			counts[*sale.AgentID]++
		}
	}

	snapshots := make([]models.PeriodSnapshot, 0, len(counts))
	for agentID, n := range counts {
		snapshots = append(snapshots, models.PeriodSnapshot{
			Period:     period,
			AgentID:    agentID,
			RegionID:   regionOf[agentID],
			SalesCount: n,
			ClosedAt:   now,
		})
	}
	sort.Slice(snapshots, func(i, j int) bool { return snapshots[i].AgentID < snapshots[j].AgentID })

	closure := &models.PeriodClosure{
		Period:     period,
		AgentCount: len(snapshots),
		SalesCount: total,
		ClosedAt:   now,
	}

	err = s.tx.Execute(ctx, func(scope repository.Scope) error {
		if _, err := scope.Snapshots().GetClosure(ctx, period); err == nil {
			return fmt.Errorf("%w: %s", utils.ErrPeriodClosed, period)
		} else if !errors.Is(err, utils.ErrNotFound) {
			return err
		}
		if err := scope.Snapshots().CreateClosure(ctx, closure); err != nil {
			return err
		}
		return scope.Snapshots().CreateSnapshots(ctx, snapshots)
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("period", period).
		Int("agents", closure.AgentCount).
		Int("sales", closure.SalesCount).
		Msg("Period closed")
	s.metrics.PeriodClosed()
	s.notifier.NotifyPeriod(closure)
	return closure, nil
}

// List returns every closed period, most recent first.
func (s *PeriodService) List(ctx context.Context) ([]models.PeriodClosure, error) {
	return s.snapshots.ListClosures(ctx)
}

// Get returns a closed period with its snapshot rows.
func (s *PeriodService) Get(ctx context.Context, period string) (*PeriodDetail, error) {
	if _, err := ParsePeriod(period, s.now().Location()); err != nil {
		return nil, err
	}
	closure, err := s.snapshots.GetClosure(ctx, period)
	if err != nil {
		return nil, err
	}
	snapshots, err := s.snapshots.ListByPeriod(ctx, period)
	if err != nil {
		return nil, err
	}
	return &PeriodDetail{Closure: closure, Snapshots: snapshots}, nil
}

// SetArchiveKey records where the period's report was stored.
func (s *PeriodService) SetArchiveKey(ctx context.Context, period, key string) error {
	return s.snapshots.SetArchiveKey(ctx, period, key)
}
