package repository

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"

	"github.com/GTDGit/gtd_stock/internal/models"
)

// RegionRepository provides data access methods for regions and teams tables.
type RegionRepository struct {
	db dbtx
}

// NewRegionRepository creates a new RegionRepository.
func NewRegionRepository(db *sqlx.DB) *RegionRepository {
	return &RegionRepository{db: db}
}

// ListRegions returns all regions ordered by name.
func (r *RegionRepository) ListRegions(ctx context.Context) ([]models.Region, error) {
	regions := []models.Region{}
	err := r.db.SelectContext(ctx, &regions, `SELECT id, name, created_at FROM regions ORDER BY name`)
	if err != nil {
		return nil, mapError(err)
	}
	return regions, nil
}

// GetRegion returns a region by id.
func (r *RegionRepository) GetRegion(ctx context.Context, id string) (*models.Region, error) {
	var region models.Region
	err := r.db.GetContext(ctx, &region, `SELECT id, name, created_at FROM regions WHERE id = $1`, id)
	if err != nil {
		return nil, mapError(err)
	}
	return &region, nil
}

// CreateRegion inserts a region and fills its generated fields.
func (r *RegionRepository) CreateRegion(ctx context.Context, region *models.Region) error {
	query := `INSERT INTO regions (name) VALUES ($1) RETURNING id, created_at`
	return mapError(r.db.QueryRowxContext(ctx, query, region.Name).Scan(&region.ID, &region.CreatedAt))
}

// ListTeams returns all teams with their region expanded.
func (r *RegionRepository) ListTeams(ctx context.Context) ([]models.Team, error) {
	query := `SELECT t.id, t.name, t.region_id, t.created_at, r.id, r.name, r.created_at
              FROM teams t
              LEFT JOIN regions r ON r.id = t.region_id
              ORDER BY t.name`

	rows, err := r.db.QueryxContext(ctx, query)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	teams := []models.Team{}
	for rows.Next() {
		var (
			t                  models.Team
			regionID, regionNm *string
			regionCreated      sql.NullTime
		)
		if err := rows.Scan(&t.ID, &t.Name, &t.RegionID, &t.CreatedAt, &regionID, &regionNm, &regionCreated); err != nil {
			return nil, mapError(err)
		}
		t.Region = regionFromJoin(regionID, regionNm, regionCreated)
		teams = append(teams, t)
	}
	return teams, mapError(rows.Err())
}

// CreateTeam inserts a team and fills its generated fields.
func (r *RegionRepository) CreateTeam(ctx context.Context, team *models.Team) error {
	query := `INSERT INTO teams (name, region_id) VALUES ($1, $2) RETURNING id, created_at`
	return mapError(r.db.QueryRowxContext(ctx, query, team.Name, team.RegionID).Scan(&team.ID, &team.CreatedAt))
}
