package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/GTDGit/gtd_stock/internal/models"
)

// SnapshotRepository provides data access methods for period_closures and
// period_snapshots tables.
type SnapshotRepository struct {
	db dbtx
}

// NewSnapshotRepository creates a new SnapshotRepository.
func NewSnapshotRepository(db *sqlx.DB) *SnapshotRepository {
	return &SnapshotRepository{db: db}
}

// GetClosure returns the closure row of a period.
func (r *SnapshotRepository) GetClosure(ctx context.Context, period string) (*models.PeriodClosure, error) {
	var c models.PeriodClosure
	query := `SELECT period, agent_count, sales_count, closed_at, archive_key
              FROM period_closures WHERE period = $1`
	if err := r.db.GetContext(ctx, &c, query, period); err != nil {
		return nil, mapError(err)
	}
	return &c, nil
}

// ListClosures returns every closed period, most recent first.
func (r *SnapshotRepository) ListClosures(ctx context.Context) ([]models.PeriodClosure, error) {
	closures := []models.PeriodClosure{}
	query := `SELECT period, agent_count, sales_count, closed_at, archive_key
              FROM period_closures ORDER BY period DESC`
	if err := r.db.SelectContext(ctx, &closures, query); err != nil {
		return nil, mapError(err)
	}
	return closures, nil
}

// ListByPeriod returns the per-agent snapshot rows of a period.
func (r *SnapshotRepository) ListByPeriod(ctx context.Context, period string) ([]models.PeriodSnapshot, error) {
	snapshots := []models.PeriodSnapshot{}
	query := `SELECT id, period, agent_id, region_id, sales_count, closed_at
              FROM period_snapshots WHERE period = $1 ORDER BY sales_count DESC, agent_id`
	if err := r.db.SelectContext(ctx, &snapshots, query, period); err != nil {
		return nil, mapError(err)
	}
	return snapshots, nil
}

// CreateClosure inserts the closure row. A second close of the same period
// fails with ErrPeriodClosed.
func (r *SnapshotRepository) CreateClosure(ctx context.Context, closure *models.PeriodClosure) error {
	query := `INSERT INTO period_closures (period, agent_count, sales_count, closed_at)
              VALUES ($1, $2, $3, $4)`
	_, err := r.db.ExecContext(ctx, query, closure.Period, closure.AgentCount, closure.SalesCount, closure.ClosedAt)
	return mapError(err)
}

// CreateSnapshots inserts per-agent rows and fills their ids.
func (r *SnapshotRepository) CreateSnapshots(ctx context.Context, snapshots []models.PeriodSnapshot) error {
	query := `INSERT INTO period_snapshots (period, agent_id, region_id, sales_count, closed_at)
              VALUES ($1, $2, $3, $4, $5)
              RETURNING id`
	for i := range snapshots {
		s := &snapshots[i]
		if err := r.db.QueryRowxContext(ctx, query, s.Period, s.AgentID, s.RegionID, s.SalesCount, s.ClosedAt).Scan(&s.ID); err != nil {
			return mapError(err)
		}
	}
	return nil
}

// SetArchiveKey records where the period's report was archived.
func (r *SnapshotRepository) SetArchiveKey(ctx context.Context, period, key string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE period_closures SET archive_key = $1 WHERE period = $2`, key, period)
	return affectedOne(res, err)
}
