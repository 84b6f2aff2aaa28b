package repository

import (
	"context"
	"time"

	"github.com/GTDGit/gtd_stock/internal/models"
)

// AgentFilter narrows agent listings. Zero values match everything.
type AgentFilter struct {
	Query    string
	RegionID string
	TeamID   string
	Status   models.AgentStatus
}

// StockFilter narrows stock listings. Zero values match everything.
type StockFilter struct {
	Query     string
	Status    models.StockStatus
	StockType models.StockType
	RegionID  string
	AgentID   string
}

// SaleFilter narrows sale listings. Zero values match everything.
type SaleFilter struct {
	AgentID  string
	SaleType models.SaleType
	Paid     *bool
	Limit    int
}

// RegionStore is the data access surface for regions and teams.
type RegionStore interface {
	ListRegions(ctx context.Context) ([]models.Region, error)
	GetRegion(ctx context.Context, id string) (*models.Region, error)
	CreateRegion(ctx context.Context, region *models.Region) error
	ListTeams(ctx context.Context) ([]models.Team, error)
	CreateTeam(ctx context.Context, team *models.Team) error
}

// AgentStore is the data access surface for agents.
type AgentStore interface {
	List(ctx context.Context, filter AgentFilter) ([]models.Agent, error)
	GetByID(ctx context.Context, id string) (*models.Agent, error)
	Search(ctx context.Context, query string, limit int) ([]models.Agent, error)
	Create(ctx context.Context, agent *models.Agent) error
	Update(ctx context.Context, agent *models.Agent) error
	SetStatus(ctx context.Context, id string, status models.AgentStatus) (*models.Agent, error)
	Delete(ctx context.Context, id string) error
	IncrementTotalSales(ctx context.Context, id string, delta int) error
	ReconcileTotalSales(ctx context.Context) (int64, error)
}

// StockStore is the data access surface for stock units. Assign, Unassign,
// MarkSold and Delete are conditional on the current status (Assign also on
// the agent being active) and return ErrStaleStatus when no row matched.
type StockStore interface {
	List(ctx context.Context, filter StockFilter) ([]models.StockUnit, error)
	GetByID(ctx context.Context, id string) (*models.StockUnit, error)
	GetByIDForUpdate(ctx context.Context, id string) (*models.StockUnit, error)
	FindByCode(ctx context.Context, code string) (*models.StockUnit, error)
	ExistingCodes(ctx context.Context, smartcards, serials []string) (smartcardSet, serialSet map[string]bool, err error)
	Create(ctx context.Context, unit *models.StockUnit) error
	Assign(ctx context.Context, id, agentID string, at time.Time) (*models.StockUnit, error)
	Unassign(ctx context.Context, id string) (*models.StockUnit, error)
	MarkSold(ctx context.Context, id string) (*models.StockUnit, error)
	Delete(ctx context.Context, id string) error
	Stats(ctx context.Context) (models.StockStats, error)
}

// SaleStore is the data access surface for sales.
type SaleStore interface {
	List(ctx context.Context, filter SaleFilter) ([]models.Sale, error)
	GetByID(ctx context.Context, id string) (*models.Sale, error)
	GetByInventoryID(ctx context.Context, inventoryID string) (*models.Sale, error)
	Create(ctx context.Context, sale *models.Sale) error
	Update(ctx context.Context, sale *models.Sale) error
}

// SnapshotStore is the data access surface for closed periods.
type SnapshotStore interface {
	GetClosure(ctx context.Context, period string) (*models.PeriodClosure, error)
	ListClosures(ctx context.Context) ([]models.PeriodClosure, error)
	ListByPeriod(ctx context.Context, period string) ([]models.PeriodSnapshot, error)
	CreateClosure(ctx context.Context, closure *models.PeriodClosure) error
	CreateSnapshots(ctx context.Context, snapshots []models.PeriodSnapshot) error
	SetArchiveKey(ctx context.Context, period, key string) error
}

// Scope exposes the stores bound to one database transaction.
type Scope interface {
	Agents() AgentStore
	Stock() StockStore
	Sales() SaleStore
	Snapshots() SnapshotStore
}

// TxRunner runs fn inside a transaction. The transaction commits when fn
// returns nil and rolls back otherwise.
type TxRunner interface {
	Execute(ctx context.Context, fn func(scope Scope) error) error
}
