package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/GTDGit/gtd_stock/internal/models"
	"github.com/GTDGit/gtd_stock/internal/service"
	"github.com/GTDGit/gtd_stock/internal/utils"
)

// PeriodService closes and lists monthly periods.
type PeriodService interface {
	Close(ctx context.Context, period string) (*models.PeriodClosure, error)
	List(ctx context.Context) ([]models.PeriodClosure, error)
	Get(ctx context.Context, period string) (*service.PeriodDetail, error)
}

// PeriodHandler handles period closure endpoints.
type PeriodHandler struct {
	periods PeriodService
}

// NewPeriodHandler constructs a PeriodHandler.
func NewPeriodHandler(periods PeriodService) *PeriodHandler {
	return &PeriodHandler{periods: periods}
}

// ListPeriods handles GET /v1/periods
func (h *PeriodHandler) ListPeriods(c *gin.Context) {
	closures, err := h.periods.List(c.Request.Context())
	if err != nil {
		utils.Fail(c, err, "Failed to retrieve periods")
		return
	}
	utils.Success(c, 200, "Periods retrieved", closures)
}

// GetPeriod handles GET /v1/periods/:period
func (h *PeriodHandler) GetPeriod(c *gin.Context) {
	detail, err := h.periods.Get(c.Request.Context(), c.Param("period"))
	if err != nil {
		utils.Fail(c, err, "Failed to retrieve period")
		return
	}
	utils.Success(c, 200, "Period retrieved", detail)
}

// ClosePeriod handles POST /v1/periods/:period/close
func (h *PeriodHandler) ClosePeriod(c *gin.Context) {
	closure, err := h.periods.Close(c.Request.Context(), c.Param("period"))
	if err != nil {
		utils.Fail(c, err, "Failed to close period")
		return
	}
	utils.Success(c, 201, "Period closed", closure)
}
