package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/GTDGit/gtd_stock/internal/models"
	"github.com/GTDGit/gtd_stock/internal/repository"
	"github.com/GTDGit/gtd_stock/internal/service"
	"github.com/GTDGit/gtd_stock/internal/utils"
)

// StockService is the stock surface used by StockHandler.
type StockService interface {
	Create(ctx context.Context, req *service.CreateStockRequest) (*models.StockUnit, error)
	BulkCreate(ctx context.Context, req *service.BulkStockRequest) (*models.ImportResult[models.StockUnit], error)
	List(ctx context.Context, filter repository.StockFilter) ([]models.StockUnit, error)
	Get(ctx context.Context, id string) (*models.StockUnit, error)
	Stats(ctx context.Context) (models.StockStats, error)
	Assign(ctx context.Context, id, agentID string) (*models.StockUnit, error)
	Unassign(ctx context.Context, id string) (*models.StockUnit, error)
	Delete(ctx context.Context, id string) error
}

// StockHandler handles stock unit endpoints.
type StockHandler struct {
	stock StockService
}

// NewStockHandler constructs a StockHandler.
func NewStockHandler(stock StockService) *StockHandler {
	return &StockHandler{stock: stock}
}

// ListStock handles GET /v1/stock
func (h *StockHandler) ListStock(c *gin.Context) {
	filter := repository.StockFilter{
		Query:     c.Query("q"),
		Status:    models.StockStatus(c.Query("status")),
		StockType: models.StockType(c.Query("stock_type")),
		RegionID:  c.Query("region_id"),
		AgentID:   c.Query("agent_id"),
	}
	units, err := h.stock.List(c.Request.Context(), filter)
	if err != nil {
		utils.Fail(c, err, "Failed to retrieve stock")
		return
	}
	utils.Success(c, 200, "Stock retrieved", units)
}

// CreateStock handles POST /v1/stock
func (h *StockHandler) CreateStock(c *gin.Context) {
	var req service.CreateStockRequest
	if !bindJSON(c, &req) {
		return
	}
	unit, err := h.stock.Create(c.Request.Context(), &req)
	if err != nil {
		utils.Fail(c, err, "Failed to create stock unit")
		return
	}
	utils.Success(c, 201, "Stock unit created", unit)
}

// ImportStock handles POST /v1/stock/import?stock_type=&region_id=. The body
// is either CSV text ("smartcard,serial_number,batch_number") or a JSON
// array of rows.
func (h *StockHandler) ImportStock(c *gin.Context) {
	req := &service.BulkStockRequest{StockType: models.StockType(c.Query("stock_type"))}
	if region := c.Query("region_id"); region != "" {
		req.RegionID = &region
	}

	if isJSON(c) {
		if err := decodeImportJSON(c, &req.Rows); err != nil {
			utils.Fail(c, err, "Failed to import stock")
			return
		}
	} else {
		text, err := readImportText(c)
		if err != nil {
			utils.Fail(c, err, "Failed to import stock")
			return
		}
		req.Rows, req.Skipped = service.ParseStockImport(text)
	}

	result, err := h.stock.BulkCreate(c.Request.Context(), req)
	if err != nil {
		utils.Fail(c, err, "Failed to import stock")
		return
	}
	utils.Success(c, 201, "Stock imported", result)
}

// GetStock handles GET /v1/stock/:id
func (h *StockHandler) GetStock(c *gin.Context) {
	unit, err := h.stock.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		utils.Fail(c, err, "Failed to retrieve stock unit")
		return
	}
	utils.Success(c, 200, "Stock unit retrieved", unit)
}

// GetStats handles GET /v1/stock/stats
func (h *StockHandler) GetStats(c *gin.Context) {
	stats, err := h.stock.Stats(c.Request.Context())
	if err != nil {
		utils.Fail(c, err, "Failed to retrieve stock stats")
		return
	}
	utils.Success(c, 200, "Stock stats retrieved", stats)
}

type assignRequest struct {
	AgentID string `json:"agentId" binding:"required"`
}

// AssignStock handles POST /v1/stock/:id/assign
func (h *StockHandler) AssignStock(c *gin.Context) {
	var req assignRequest
	if !bindJSON(c, &req) {
		return
	}
	unit, err := h.stock.Assign(c.Request.Context(), c.Param("id"), req.AgentID)
	if err != nil {
		utils.Fail(c, err, "Failed to assign stock unit")
		return
	}
	utils.Success(c, 200, "Stock unit assigned", unit)
}

// UnassignStock handles POST /v1/stock/:id/unassign
func (h *StockHandler) UnassignStock(c *gin.Context) {
	unit, err := h.stock.Unassign(c.Request.Context(), c.Param("id"))
	if err != nil {
		utils.Fail(c, err, "Failed to unassign stock unit")
		return
	}
	utils.Success(c, 200, "Stock unit returned to store", unit)
}

// DeleteStock handles DELETE /v1/stock/:id
func (h *StockHandler) DeleteStock(c *gin.Context) {
	if err := h.stock.Delete(c.Request.Context(), c.Param("id")); err != nil {
		utils.Fail(c, err, "Failed to delete stock unit")
		return
	}
	utils.Success(c, 200, "Stock unit deleted", nil)
}
