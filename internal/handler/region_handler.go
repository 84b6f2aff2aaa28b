package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/GTDGit/gtd_stock/internal/models"
	"github.com/GTDGit/gtd_stock/internal/service"
	"github.com/GTDGit/gtd_stock/internal/utils"
)

// RegionService is the region and team surface used by RegionHandler.
type RegionService interface {
	ListRegions(ctx context.Context) ([]models.Region, error)
	CreateRegion(ctx context.Context, req *service.CreateRegionRequest) (*models.Region, error)
	ListTeams(ctx context.Context) ([]models.Team, error)
	CreateTeam(ctx context.Context, req *service.CreateTeamRequest) (*models.Team, error)
}

// RegionHandler handles region and team endpoints.
type RegionHandler struct {
	regions RegionService
}

// NewRegionHandler constructs a RegionHandler.
func NewRegionHandler(regions RegionService) *RegionHandler {
	return &RegionHandler{regions: regions}
}

// ListRegions handles GET /v1/regions
func (h *RegionHandler) ListRegions(c *gin.Context) {
	regions, err := h.regions.ListRegions(c.Request.Context())
	if err != nil {
		utils.Fail(c, err, "Failed to retrieve regions")
		return
	}
	utils.Success(c, 200, "Regions retrieved", regions)
}

// CreateRegion handles POST /v1/regions
func (h *RegionHandler) CreateRegion(c *gin.Context) {
	var req service.CreateRegionRequest
	if !bindJSON(c, &req) {
		return
	}
	region, err := h.regions.CreateRegion(c.Request.Context(), &req)
	if err != nil {
		utils.Fail(c, err, "Failed to create region")
		return
	}
	utils.Success(c, 201, "Region created", region)
}

// ListTeams handles GET /v1/teams
func (h *RegionHandler) ListTeams(c *gin.Context) {
	teams, err := h.regions.ListTeams(c.Request.Context())
	if err != nil {
		utils.Fail(c, err, "Failed to retrieve teams")
		return
	}
	utils.Success(c, 200, "Teams retrieved", teams)
}

// CreateTeam handles POST /v1/teams
func (h *RegionHandler) CreateTeam(c *gin.Context) {
	var req service.CreateTeamRequest
	if !bindJSON(c, &req) {
		return
	}
	team, err := h.regions.CreateTeam(c.Request.Context(), &req)
	if err != nil {
		utils.Fail(c, err, "Failed to create team")
		return
	}
	utils.Success(c, 201, "Team created", team)
}
