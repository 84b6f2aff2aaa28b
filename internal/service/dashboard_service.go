package service

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/GTDGit/gtd_stock/internal/cache"
	"github.com/GTDGit/gtd_stock/internal/models"
	"github.com/GTDGit/gtd_stock/internal/repository"
	"github.com/GTDGit/gtd_stock/internal/utils"
)

const (
	topAgentCount   = 5
	recentSaleCount = 5
)

// DashboardCache stores the computed dashboard between mutations.
type DashboardCache interface {
	Get(ctx context.Context) (*models.Dashboard, error)
	Set(ctx context.Context, d *models.Dashboard) error
}

// MonthlyRollup is every aggregate computed for one month.
type MonthlyRollup struct {
	Period  string                `json:"period"`
	Regions []models.RegionRollup `json:"regions"`
	Channel models.ChannelReport  `json:"channel"`
	Agents  []AgentRollup         `json:"agents"`
	Sales   []models.Sale         `json:"sales"`

	Location *time.Location `json:"-"`
}

// AgentRollup pairs an agent with its figures for the month.
type AgentRollup struct {
	Agent   models.Agent        `json:"agent"`
	Figures models.AgentFigures `json:"figures"`
}

// DashboardService computes rollups over full snapshots of the store.
type DashboardService struct {
	regions   repository.RegionStore
	agents    repository.AgentStore
	stock     repository.StockStore
	sales     repository.SaleStore
	snapshots repository.SnapshotStore
	cache     DashboardCache
	now       Clock
}

// NewDashboardService constructs a DashboardService. dc may be nil.
func NewDashboardService(
	regions repository.RegionStore,
	agents repository.AgentStore,
	stock repository.StockStore,
	sales repository.SaleStore,
	snapshots repository.SnapshotStore,
	dc DashboardCache,
	now Clock,
) *DashboardService {
	return &DashboardService{
		regions:   regions,
		agents:    agents,
		stock:     stock,
		sales:     sales,
		snapshots: snapshots,
		cache:     dc,
		now:       now,
	}
}

type rollupData struct {
	regions []models.Region
	agents  []models.Agent
	sales   []models.Sale
	inHand  []models.StockUnit
}

func (s *DashboardService) load(ctx context.Context) (*rollupData, error) {
	var (
		d   rollupData
		err error
	)
	if d.regions, err = s.regions.ListRegions(ctx); err != nil {
		return nil, err
	}
	if d.agents, err = s.agents.List(ctx, repository.AgentFilter{}); err != nil {
		return nil, err
	}
	if d.sales, err = s.sales.List(ctx, repository.SaleFilter{}); err != nil {
		return nil, err
	}
	if d.inHand, err = s.stock.List(ctx, repository.StockFilter{Status: models.StockInHand}); err != nil {
		return nil, err
	}
	return &d, nil
}

// prior returns the snapshot of the month before ref and whether that month
// has been closed.
func (s *DashboardService) prior(ctx context.Context, ref time.Time) ([]models.PeriodSnapshot, bool, error) {
	period := PeriodOf(previousMonth(ref, ref.Location()), ref.Location())
	if _, err := s.snapshots.GetClosure(ctx, period); err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}
	snapshots, err := s.snapshots.ListByPeriod(ctx, period)
	if err != nil {
		return nil, false, err
	}
	return snapshots, true, nil
}

// Dashboard returns the landing-page aggregate, from cache when possible.
func (s *DashboardService) Dashboard(ctx context.Context) (*models.Dashboard, error) {
	if s.cache != nil {
		cached, err := s.cache.Get(ctx)
		if err == nil {
			return cached, nil
		}
		if !errors.Is(err, cache.ErrMiss) {
			log.Warn().Err(err).Msg("Dashboard cache read failed")
		}
	}

	data, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	stats, err := s.stock.Stats(ctx)
	if err != nil {
		return nil, err
	}

	ref := s.now()
	loc := ref.Location()
	d := &models.Dashboard{
		Period:      PeriodOf(ref, loc),
		Stock:       stats,
		Sales:       SaleStatsOf(data.sales),
		Regions:     RegionalRollup(data.regions, data.agents, data.sales, ref, loc),
		TopAgents:   TopAgents(data.agents, topAgentCount),
		RecentSales: RecentSales(data.sales, recentSaleCount),
		ActiveESP:   len(activeAgents(data.agents, data.sales, ref, loc)),
		TotalAgents: len(data.agents),
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, d); err != nil {
			log.Warn().Err(err).Msg("Dashboard cache write failed")
		}
	}
	return d, nil
}

// resolvePeriod turns "" into the current month and parses anything else.
func (s *DashboardService) resolvePeriod(period string) (time.Time, error) {
	now := s.now()
	if period == "" {
		return monthStart(now, now.Location()), nil
	}
	return ParsePeriod(period, now.Location())
}

// Channel returns the ESP funnel of period (YYYY-MM, default current month).
func (s *DashboardService) Channel(ctx context.Context, period string) (*models.ChannelReport, error) {
	ref, err := s.resolvePeriod(period)
	if err != nil {
		return nil, err
	}
	agents, err := s.agents.List(ctx, repository.AgentFilter{})
	if err != nil {
		return nil, err
	}
	sales, err := s.sales.List(ctx, repository.SaleFilter{})
	if err != nil {
		return nil, err
	}
	prior, hasPrior, err := s.prior(ctx, ref)
	if err != nil {
		return nil, err
	}

	report := ChannelFunnel(agents, sales, prior, hasPrior, ref, ref.Location())
	return &report, nil
}

// Monthly computes every rollup for period (YYYY-MM, default current month).
func (s *DashboardService) Monthly(ctx context.Context, period string) (*MonthlyRollup, error) {
	ref, err := s.resolvePeriod(period)
	if err != nil {
		return nil, err
	}
	data, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	prior, hasPrior, err := s.prior(ctx, ref)
	if err != nil {
		return nil, err
	}

	loc := ref.Location()
	m := &MonthlyRollup{
		Period:  PeriodOf(ref, loc),
		Regions: RegionalRollup(data.regions, data.agents, data.sales, ref, loc),
		Channel: ChannelFunnel(data.agents, data.sales, prior, hasPrior, ref, loc),
		Agents:  make([]AgentRollup, 0, len(data.agents)),
		Sales:   []models.Sale{},

		Location: loc,
	}
	for _, a := range data.agents {
		m.Agents = append(m.Agents, AgentRollup{
			Agent:   a,
			Figures: AgentMonthlyFigures(a.ID, data.sales, data.inHand, ref, loc),
		})
	}
	for _, sale := range data.sales {
		if inMonth(sale.SaleDate, ref, loc) {
			m.Sales = append(m.Sales, sale)
		}
	}
	return m, nil
}
