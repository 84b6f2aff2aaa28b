package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/GTDGit/gtd_stock/internal/models"
	"github.com/GTDGit/gtd_stock/internal/utils"
)

// ErrStaleStatus is returned by conditional status updates when no row
// matched: either the row is gone or it is no longer in the expected status.
// Callers re-read the row to tell the two apart.
var ErrStaleStatus = errors.New("row not in expected status")

// dbtx is satisfied by both *sqlx.DB and *sqlx.Tx.
type dbtx interface {
	QueryRowxContext(ctx context.Context, query string, args ...any) *sqlx.Row
	QueryxContext(ctx context.Context, query string, args ...any) (*sqlx.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	GetContext(ctx context.Context, dest any, query string, args ...any) error
	SelectContext(ctx context.Context, dest any, query string, args ...any) error
}

type rowScanner interface {
	Scan(dest ...any) error
}

// uniqueConstraints maps unique index names to the error reported when an
// insert or update collides with them.
var uniqueConstraints = map[string]error{
	"inventory_smartcard_key":           utils.ErrDuplicateStock,
	"inventory_serial_number_key":       utils.ErrDuplicateStock,
	"sales_inventory_id_key":            utils.ErrInvalidTransition,
	"period_closures_pkey":              utils.ErrPeriodClosed,
	"period_snapshots_period_agent_key": utils.ErrPeriodClosed,
}

// mapError translates driver errors into application sentinels.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return utils.ErrNotFound
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "23505":
			if target, ok := uniqueConstraints[pqErr.Constraint]; ok {
				return fmt.Errorf("%w: %s", target, pqErr.Detail)
			}
			return fmt.Errorf("%w: %s", utils.ErrDuplicateStock, pqErr.Detail)
		case "23503":
			return fmt.Errorf("%w: %s", utils.ErrReferentialConflict, pqErr.Detail)
		case "22P02":
			// malformed uuid literal; such an id can never resolve
			return fmt.Errorf("%w: %s", utils.ErrNotFound, pqErr.Message)
		case "23514", "22003", "22001":
			return fmt.Errorf("%w: %s", utils.ErrValidation, pqErr.Message)
		}
		switch pqErr.Code.Class() {
		case "08", "53", "57":
			return fmt.Errorf("%w: %v", utils.ErrStoreUnavailable, err)
		}
		return err
	}

	return fmt.Errorf("%w: %v", utils.ErrStoreUnavailable, err)
}

// likePattern wraps q for a substring ILIKE match, escaping LIKE
// metacharacters so user input is matched literally.
func likePattern(q string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(q) + "%"
}

// regionFromJoin builds an expanded Region from LEFT JOIN columns.
func regionFromJoin(id, name *string, createdAt sql.NullTime) *models.Region {
	if id == nil {
		return nil
	}
	r := &models.Region{ID: *id}
	if name != nil {
		r.Name = *name
	}
	if createdAt.Valid {
		r.CreatedAt = createdAt.Time
	}
	return r
}
