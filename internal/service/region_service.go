package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/GTDGit/gtd_stock/internal/models"
	"github.com/GTDGit/gtd_stock/internal/repository"
	"github.com/GTDGit/gtd_stock/internal/sse"
	"github.com/GTDGit/gtd_stock/internal/utils"
)

// RegionService manages regions and teams.
type RegionService struct {
	regions  repository.RegionStore
	notifier sse.Notifier
}

// NewRegionService constructs a RegionService.
func NewRegionService(regions repository.RegionStore, notifier sse.Notifier) *RegionService {
	return &RegionService{regions: regions, notifier: notifier}
}

// CreateRegionRequest represents the request to create a region.
type CreateRegionRequest struct {
	Name string `json:"name" binding:"required"`
}

// CreateTeamRequest represents the request to create a team.
type CreateTeamRequest struct {
	Name     string  `json:"name" binding:"required"`
	RegionID *string `json:"regionId"`
}

func (s *RegionService) ListRegions(ctx context.Context) ([]models.Region, error) {
	return s.regions.ListRegions(ctx)
}

// CreateRegion adds a region. Names are not checked for uniqueness.
func (s *RegionService) CreateRegion(ctx context.Context, req *CreateRegionRequest) (*models.Region, error) {
	region := &models.Region{Name: strings.TrimSpace(req.Name)}
	if region.Name == "" {
		return nil, fmt.Errorf("%w: name is required", utils.ErrValidation)
	}
	if err := s.regions.CreateRegion(ctx, region); err != nil {
		return nil, err
	}
	s.notifier.NotifyRegion(sse.EventRegionCreated, region.ID)
	return region, nil
}

func (s *RegionService) ListTeams(ctx context.Context) ([]models.Team, error) {
	return s.regions.ListTeams(ctx)
}

// CreateTeam adds a team, optionally inside a region.
func (s *RegionService) CreateTeam(ctx context.Context, req *CreateTeamRequest) (*models.Team, error) {
	team := &models.Team{Name: strings.TrimSpace(req.Name), RegionID: optional(req.RegionID)}
	if team.Name == "" {
		return nil, fmt.Errorf("%w: name is required", utils.ErrValidation)
	}
	if team.RegionID != nil {
		if resolveID("region", *team.RegionID) != nil {
			return nil, fmt.Errorf("%w: unknown region %q", utils.ErrValidation, *team.RegionID)
		}
		region, err := s.regions.GetRegion(ctx, *team.RegionID)
		if errors.Is(err, utils.ErrNotFound) {
			return nil, fmt.Errorf("%w: unknown region %q", utils.ErrValidation, *team.RegionID)
		} else if err != nil {
			return nil, err
		}
		team.Region = region
	}
	if err := s.regions.CreateTeam(ctx, team); err != nil {
		return nil, err
	}
	s.notifier.NotifyRegion(sse.EventTeamCreated, team.ID)
	return team, nil
}
