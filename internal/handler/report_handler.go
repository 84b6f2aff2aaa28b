package handler

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/GTDGit/gtd_stock/internal/utils"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ReportService renders monthly workbooks.
type ReportService interface {
	Monthly(ctx context.Context, period string) ([]byte, string, error)
}

// ReportHandler serves report downloads.
type ReportHandler struct {
	reports ReportService
}

// NewReportHandler constructs a ReportHandler.
func NewReportHandler(reports ReportService) *ReportHandler {
	return &ReportHandler{reports: reports}
}

// MonthlyReport handles GET /v1/reports/monthly.xlsx?period=YYYY-MM
func (h *ReportHandler) MonthlyReport(c *gin.Context) {
	data, period, err := h.reports.Monthly(c.Request.Context(), c.Query("period"))
	if err != nil {
		if utils.HTTPStatus(err) >= 500 {
			log.Error().Err(err).Str("period", c.Query("period")).Msg("Failed to build monthly report")
		}
		utils.Fail(c, err, "Failed to build report")
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="stock-report-%s.xlsx"`, period))
	c.Data(200, xlsxContentType, data)
}
