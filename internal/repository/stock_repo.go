package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/GTDGit/gtd_stock/internal/models"
)

const stockColumns = `i.id, i.smartcard, i.serial_number, i.batch_number, i.stock_type, i.status, i.region_id,
        i.assigned_to_agent_id, i.assigned_at, i.created_at, i.updated_at`

// stockSelect expands a unit with its region and assigned agent.
const stockSelect = `SELECT ` + stockColumns + `,
        r.id, r.name, r.created_at,
        a.id, a.name, a.phone, a.status
    FROM inventory i
    LEFT JOIN regions r ON r.id = i.region_id
    LEFT JOIN agents a ON a.id = i.assigned_to_agent_id`

// StockRepository provides data access methods for inventory table.
type StockRepository struct {
	db dbtx
}

// NewStockRepository creates a new StockRepository.
func NewStockRepository(db *sqlx.DB) *StockRepository {
	return &StockRepository{db: db}
}

func scanStock(row rowScanner) (*models.StockUnit, error) {
	var (
		u                    models.StockUnit
		regionID, regionName *string
		regionCreated        sql.NullTime
		agentID, agentName   *string
		agentPhone           *string
		agentStatus          *string
	)
	if err := row.Scan(
		&u.ID, &u.Smartcard, &u.SerialNumber, &u.BatchNumber, &u.StockType, &u.Status, &u.RegionID,
		&u.AssignedToAgentID, &u.AssignedAt, &u.CreatedAt, &u.UpdatedAt,
		&regionID, &regionName, &regionCreated,
		&agentID, &agentName, &agentPhone, &agentStatus,
	); err != nil {
		return nil, err
	}

	u.Region = regionFromJoin(regionID, regionName, regionCreated)
	if agentID != nil {
		u.Agent = &models.Agent{ID: *agentID, Phone: agentPhone}
		if agentName != nil {
			u.Agent.Name = *agentName
		}
		if agentStatus != nil {
			u.Agent.Status = models.AgentStatus(*agentStatus)
		}
	}
	return &u, nil
}

// List returns units matching filter, newest first.
func (r *StockRepository) List(ctx context.Context, filter StockFilter) ([]models.StockUnit, error) {
	baseWhere := " WHERE 1=1"
	args := []any{}
	argIdx := 1

	if filter.Query != "" {
		baseWhere += fmt.Sprintf(" AND (i.smartcard ILIKE $%d OR i.serial_number ILIKE $%d OR i.batch_number ILIKE $%d)",
			argIdx, argIdx, argIdx)
		args = append(args, likePattern(filter.Query))
		argIdx++
	}
	if filter.Status != "" {
		baseWhere += fmt.Sprintf(" AND i.status = $%d", argIdx)
		args = append(args, filter.Status)
		argIdx++
	}
	if filter.StockType != "" {
		baseWhere += fmt.Sprintf(" AND i.stock_type = $%d", argIdx)
		args = append(args, filter.StockType)
		argIdx++
	}
	if filter.RegionID != "" {
		baseWhere += fmt.Sprintf(" AND i.region_id = $%d", argIdx)
		args = append(args, filter.RegionID)
		argIdx++
	}
	if filter.AgentID != "" {
		baseWhere += fmt.Sprintf(" AND i.assigned_to_agent_id = $%d", argIdx)
		args = append(args, filter.AgentID)
	}

	rows, err := r.db.QueryxContext(ctx, stockSelect+baseWhere+" ORDER BY i.created_at DESC", args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	units := []models.StockUnit{}
	for rows.Next() {
		u, err := scanStock(rows)
		if err != nil {
			return nil, mapError(err)
		}
		units = append(units, *u)
	}
	return units, mapError(rows.Err())
}

// GetByID returns a unit with region and agent expanded.
func (r *StockRepository) GetByID(ctx context.Context, id string) (*models.StockUnit, error) {
	u, err := scanStock(r.db.QueryRowxContext(ctx, stockSelect+" WHERE i.id = $1", id))
	if err != nil {
		return nil, mapError(err)
	}
	return u, nil
}

// GetByIDForUpdate reads a unit and locks its row until the surrounding
// transaction ends. Relations are not expanded.
func (r *StockRepository) GetByIDForUpdate(ctx context.Context, id string) (*models.StockUnit, error) {
	var u models.StockUnit
	query := `SELECT id, smartcard, serial_number, batch_number, stock_type, status, region_id,
                     assigned_to_agent_id, assigned_at, created_at, updated_at
              FROM inventory WHERE id = $1 FOR UPDATE`
	if err := r.db.GetContext(ctx, &u, query, id); err != nil {
		return nil, mapError(err)
	}
	return &u, nil
}

// FindByCode returns the first unit whose smartcard or serial number equals code.
func (r *StockRepository) FindByCode(ctx context.Context, code string) (*models.StockUnit, error) {
	query := stockSelect + ` WHERE i.smartcard = $1 OR i.serial_number = $1 ORDER BY i.created_at LIMIT 1`
	u, err := scanStock(r.db.QueryRowxContext(ctx, query, code))
	if err != nil {
		return nil, mapError(err)
	}
	return u, nil
}

// ExistingCodes reports which of the given smartcards and serial numbers
// are already stored.
func (r *StockRepository) ExistingCodes(ctx context.Context, smartcards, serials []string) (map[string]bool, map[string]bool, error) {
	smartcardSet := map[string]bool{}
	serialSet := map[string]bool{}
	if len(smartcards) == 0 && len(serials) == 0 {
		return smartcardSet, serialSet, nil
	}

	query := `SELECT smartcard, serial_number FROM inventory
              WHERE smartcard = ANY($1) OR serial_number = ANY($2)`
	rows, err := r.db.QueryxContext(ctx, query, pq.Array(smartcards), pq.Array(serials))
	if err != nil {
		return nil, nil, mapError(err)
	}
	defer rows.Close()

	for rows.Next() {
		var smartcard, serial string
		if err := rows.Scan(&smartcard, &serial); err != nil {
			return nil, nil, mapError(err)
		}
		smartcardSet[smartcard] = true
		serialSet[serial] = true
	}
	return smartcardSet, serialSet, mapError(rows.Err())
}

// Create inserts a unit in whatever status it carries and fills its
// generated fields.
func (r *StockRepository) Create(ctx context.Context, unit *models.StockUnit) error {
	if unit.Status == "" {
		unit.Status = models.StockInStore
	}
	query := `INSERT INTO inventory (smartcard, serial_number, batch_number, stock_type, status, region_id,
                                     assigned_to_agent_id, assigned_at)
              VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
              RETURNING id, created_at, updated_at`

	err := r.db.QueryRowxContext(ctx, query,
		unit.Smartcard,
		unit.SerialNumber,
		unit.BatchNumber,
		unit.StockType,
		unit.Status,
		unit.RegionID,
		unit.AssignedToAgentID,
		unit.AssignedAt,
	).Scan(&unit.ID, &unit.CreatedAt, &unit.UpdatedAt)
	return mapError(err)
}

// Assign moves an in_store unit to in_hand for agentID. No row matches
// unless the agent is active at the time of the update.
func (r *StockRepository) Assign(ctx context.Context, id, agentID string, at time.Time) (*models.StockUnit, error) {
	query := `UPDATE inventory
              SET status = 'in_hand', assigned_to_agent_id = $2, assigned_at = $3, updated_at = NOW()
              WHERE id = $1 AND status = 'in_store'
                AND EXISTS (SELECT 1 FROM agents WHERE id = $2 AND status = 'active')`
	return r.conditional(ctx, query, id, agentID, at)
}

// Unassign returns an in_hand unit to the store.
func (r *StockRepository) Unassign(ctx context.Context, id string) (*models.StockUnit, error) {
	query := `UPDATE inventory
              SET status = 'in_store', assigned_to_agent_id = NULL, assigned_at = NULL, updated_at = NOW()
              WHERE id = $1 AND status = 'in_hand'`
	return r.conditional(ctx, query, id)
}

// MarkSold moves an in_hand unit to sold.
func (r *StockRepository) MarkSold(ctx context.Context, id string) (*models.StockUnit, error) {
	query := `UPDATE inventory SET status = 'sold', updated_at = NOW() WHERE id = $1 AND status = 'in_hand'`
	return r.conditional(ctx, query, id)
}

// Delete removes a unit that has not been sold.
func (r *StockRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM inventory WHERE id = $1 AND status <> 'sold'`, id)
	return staleIfUntouched(res, err)
}

// conditional runs a status-guarded update and re-reads the unit.
func (r *StockRepository) conditional(ctx context.Context, query string, args ...any) (*models.StockUnit, error) {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err := staleIfUntouched(res, err); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, args[0].(string))
}

// Stats counts units by status and type.
func (r *StockRepository) Stats(ctx context.Context) (models.StockStats, error) {
	var s models.StockStats
	query := `SELECT COUNT(*),
                     COUNT(*) FILTER (WHERE status = 'in_store'),
                     COUNT(*) FILTER (WHERE status = 'in_hand'),
                     COUNT(*) FILTER (WHERE status = 'sold'),
                     COUNT(*) FILTER (WHERE stock_type = 'full_set'),
                     COUNT(*) FILTER (WHERE stock_type = 'decoder_only')
              FROM inventory`
	err := r.db.QueryRowxContext(ctx, query).Scan(&s.Total, &s.InStore, &s.InHand, &s.Sold, &s.FullSet, &s.DecoderOnly)
	return s, mapError(err)
}

func staleIfUntouched(res sql.Result, err error) error {
	if err != nil {
		return mapError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return mapError(err)
	}
	if n == 0 {
		return ErrStaleStatus
	}
	return nil
}
