package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/GTDGit/gtd_stock/internal/models"
	"github.com/GTDGit/gtd_stock/internal/utils"
)

// DashboardService computes the aggregate views.
type DashboardService interface {
	Dashboard(ctx context.Context) (*models.Dashboard, error)
	Channel(ctx context.Context, period string) (*models.ChannelReport, error)
}

// DashboardHandler handles dashboard and channel metric endpoints.
type DashboardHandler struct {
	dashboard DashboardService
}

// NewDashboardHandler constructs a DashboardHandler.
func NewDashboardHandler(dashboard DashboardService) *DashboardHandler {
	return &DashboardHandler{dashboard: dashboard}
}

// GetDashboard handles GET /v1/dashboard
func (h *DashboardHandler) GetDashboard(c *gin.Context) {
	d, err := h.dashboard.Dashboard(c.Request.Context())
	if err != nil {
		utils.Fail(c, err, "Failed to build dashboard")
		return
	}
	utils.Success(c, 200, "Dashboard retrieved", d)
}

// GetChannel handles GET /v1/channel?period=YYYY-MM
func (h *DashboardHandler) GetChannel(c *gin.Context) {
	report, err := h.dashboard.Channel(c.Request.Context(), c.Query("period"))
	if err != nil {
		utils.Fail(c, err, "Failed to compute channel metrics")
		return
	}
	utils.Success(c, 200, "Channel metrics retrieved", report)
}

// ListPackages handles GET /v1/packages
func ListPackages(c *gin.Context) {
	utils.Success(c, 200, "Packages retrieved", models.Packages())
}
