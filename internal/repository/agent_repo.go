package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/GTDGit/gtd_stock/internal/models"
	"github.com/GTDGit/gtd_stock/internal/utils"
)

// agentSelect expands an agent with its team (and the team's region) and
// its own region.
const agentSelect = `SELECT a.id, a.name, a.phone, a.email, a.team_id, a.region_id, a.district,
        a.physical_location, a.status, a.total_sales, a.created_at, a.updated_at,
        t.id, t.name, t.region_id, t.created_at,
        tr.id, tr.name, tr.created_at,
        r.id, r.name, r.created_at
    FROM agents a
    LEFT JOIN teams t ON t.id = a.team_id
    LEFT JOIN regions tr ON tr.id = t.region_id
    LEFT JOIN regions r ON r.id = a.region_id`

// AgentRepository provides data access methods for agents table.
type AgentRepository struct {
	db dbtx
}

// NewAgentRepository creates a new AgentRepository.
func NewAgentRepository(db *sqlx.DB) *AgentRepository {
	return &AgentRepository{db: db}
}

func scanAgent(row rowScanner) (*models.Agent, error) {
	var (
		a                              models.Agent
		teamID, teamName, teamRegionID *string
		teamCreated                    sql.NullTime
		teamRegID, teamRegName         *string
		teamRegCreated                 sql.NullTime
		regionID, regionName           *string
		regionCreated                  sql.NullTime
	)
	if err := row.Scan(
		&a.ID, &a.Name, &a.Phone, &a.Email, &a.TeamID, &a.RegionID, &a.District,
		&a.PhysicalLocation, &a.Status, &a.TotalSales, &a.CreatedAt, &a.UpdatedAt,
		&teamID, &teamName, &teamRegionID, &teamCreated,
		&teamRegID, &teamRegName, &teamRegCreated,
		&regionID, &regionName, &regionCreated,
	); err != nil {
		return nil, err
	}

	if teamID != nil {
		a.Team = &models.Team{ID: *teamID, RegionID: teamRegionID}
		if teamName != nil {
			a.Team.Name = *teamName
		}
		if teamCreated.Valid {
			a.Team.CreatedAt = teamCreated.Time
		}
		a.Team.Region = regionFromJoin(teamRegID, teamRegName, teamRegCreated)
	}
	a.Region = regionFromJoin(regionID, regionName, regionCreated)
	return &a, nil
}

func (r *AgentRepository) query(ctx context.Context, query string, args ...any) ([]models.Agent, error) {
	rows, err := r.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	agents := []models.Agent{}
	for rows.Next() {
		a, err := scanAgent(rows)
		if err != nil {
			return nil, mapError(err)
		}
		agents = append(agents, *a)
	}
	return agents, mapError(rows.Err())
}

// List returns agents matching filter, newest first.
func (r *AgentRepository) List(ctx context.Context, filter AgentFilter) ([]models.Agent, error) {
	baseWhere := " WHERE 1=1"
	args := []any{}
	argIdx := 1

	if filter.Query != "" {
		baseWhere += fmt.Sprintf(" AND (a.name ILIKE $%d OR a.phone ILIKE $%d OR a.email ILIKE $%d OR a.district ILIKE $%d)",
			argIdx, argIdx, argIdx, argIdx)
		args = append(args, likePattern(filter.Query))
		argIdx++
	}
	if filter.RegionID != "" {
		baseWhere += fmt.Sprintf(" AND a.region_id = $%d", argIdx)
		args = append(args, filter.RegionID)
		argIdx++
	}
	if filter.TeamID != "" {
		baseWhere += fmt.Sprintf(" AND a.team_id = $%d", argIdx)
		args = append(args, filter.TeamID)
		argIdx++
	}
	if filter.Status != "" {
		baseWhere += fmt.Sprintf(" AND a.status = $%d", argIdx)
		args = append(args, filter.Status)
	}

	return r.query(ctx, agentSelect+baseWhere+" ORDER BY a.created_at DESC", args...)
}

// GetByID returns an agent with its relations expanded.
func (r *AgentRepository) GetByID(ctx context.Context, id string) (*models.Agent, error) {
	a, err := scanAgent(r.db.QueryRowxContext(ctx, agentSelect+" WHERE a.id = $1", id))
	if err != nil {
		return nil, mapError(err)
	}
	return a, nil
}

// Search returns up to limit agents whose name or phone contains query.
func (r *AgentRepository) Search(ctx context.Context, query string, limit int) ([]models.Agent, error) {
	q := agentSelect + ` WHERE a.name ILIKE $1 OR a.phone ILIKE $1 ORDER BY a.name LIMIT $2`
	return r.query(ctx, q, likePattern(query), limit)
}

// Create inserts a new agent and fills its generated fields.
func (r *AgentRepository) Create(ctx context.Context, agent *models.Agent) error {
	if agent.Status == "" {
		agent.Status = models.AgentActive
	}
	query := `INSERT INTO agents (name, phone, email, team_id, region_id, district, physical_location, status)
              VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
              RETURNING id, total_sales, created_at, updated_at`

	err := r.db.QueryRowxContext(ctx, query,
		agent.Name,
		agent.Phone,
		agent.Email,
		agent.TeamID,
		agent.RegionID,
		agent.District,
		agent.PhysicalLocation,
		agent.Status,
	).Scan(&agent.ID, &agent.TotalSales, &agent.CreatedAt, &agent.UpdatedAt)
	return mapError(err)
}

// Update writes every mutable column of agent.
func (r *AgentRepository) Update(ctx context.Context, agent *models.Agent) error {
	query := `UPDATE agents
              SET name = $1, phone = $2, email = $3, team_id = $4, region_id = $5,
                  district = $6, physical_location = $7, status = $8, updated_at = NOW()
              WHERE id = $9
              RETURNING updated_at`

	err := r.db.QueryRowxContext(ctx, query,
		agent.Name,
		agent.Phone,
		agent.Email,
		agent.TeamID,
		agent.RegionID,
		agent.District,
		agent.PhysicalLocation,
		agent.Status,
		agent.ID,
	).Scan(&agent.UpdatedAt)
	return mapError(err)
}

// SetStatus changes an agent's status and returns the updated agent.
func (r *AgentRepository) SetStatus(ctx context.Context, id string, status models.AgentStatus) (*models.Agent, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE agents SET status = $1, updated_at = NOW() WHERE id = $2`, status, id)
	if err := affectedOne(res, err); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

// Delete removes an agent. Agents referenced by stock or sales cannot be
// deleted and yield ErrReferentialConflict.
func (r *AgentRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM agents WHERE id = $1`, id)
	return affectedOne(res, err)
}

// IncrementTotalSales adds delta to the agent's sales counter.
func (r *AgentRepository) IncrementTotalSales(ctx context.Context, id string, delta int) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE agents SET total_sales = total_sales + $1, updated_at = NOW() WHERE id = $2`, delta, id)
	return affectedOne(res, err)
}

// ReconcileTotalSales recomputes every agent's counter from the sales table
// and returns how many agents changed.
func (r *AgentRepository) ReconcileTotalSales(ctx context.Context) (int64, error) {
	query := `UPDATE agents a
              SET total_sales = COALESCE(s.cnt, 0), updated_at = NOW()
              FROM agents a2
              LEFT JOIN (
                  SELECT agent_id, COUNT(*) AS cnt FROM sales WHERE agent_id IS NOT NULL GROUP BY agent_id
              ) s ON s.agent_id = a2.id
              WHERE a.id = a2.id AND a.total_sales <> COALESCE(s.cnt, 0)`

	res, err := r.db.ExecContext(ctx, query)
	if err != nil {
		return 0, mapError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, mapError(err)
	}
	return n, nil
}

// affectedOne maps an exec result to ErrNotFound when no row was touched.
func affectedOne(res sql.Result, err error) error {
	if err != nil {
		return mapError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return mapError(err)
	}
	if n == 0 {
		return utils.ErrNotFound
	}
	return nil
}
