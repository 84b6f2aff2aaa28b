package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/GTDGit/gtd_stock/internal/models"
	"github.com/GTDGit/gtd_stock/internal/repository"
	"github.com/GTDGit/gtd_stock/internal/service"
	"github.com/GTDGit/gtd_stock/internal/utils"
)

// SaleService is the sale surface used by SaleHandler.
type SaleService interface {
	Record(ctx context.Context, req *service.RecordSaleRequest) (*models.Sale, error)
	Update(ctx context.Context, id string, req *service.UpdateSaleRequest) (*models.Sale, error)
	SetPaid(ctx context.Context, id string, paid bool) (*models.Sale, error)
	List(ctx context.Context, filter repository.SaleFilter) ([]models.Sale, error)
	Get(ctx context.Context, id string) (*models.Sale, error)
}

// SaleHandler handles sale endpoints.
type SaleHandler struct {
	sales SaleService
}

// NewSaleHandler constructs a SaleHandler.
func NewSaleHandler(sales SaleService) *SaleHandler {
	return &SaleHandler{sales: sales}
}

// ListSales handles GET /v1/sales
func (h *SaleHandler) ListSales(c *gin.Context) {
	paid, err := queryBool(c, "paid")
	if err != nil {
		utils.Fail(c, err, "Failed to retrieve sales")
		return
	}
	limit, err := queryLimit(c)
	if err != nil {
		utils.Fail(c, err, "Failed to retrieve sales")
		return
	}

	sales, err := h.sales.List(c.Request.Context(), repository.SaleFilter{
		AgentID:  c.Query("agent_id"),
		SaleType: models.SaleType(c.Query("sale_type")),
		Paid:     paid,
		Limit:    limit,
	})
	if err != nil {
		utils.Fail(c, err, "Failed to retrieve sales")
		return
	}
	utils.Success(c, 200, "Sales retrieved", sales)
}

// RecordSale handles POST /v1/sales
func (h *SaleHandler) RecordSale(c *gin.Context) {
	var req service.RecordSaleRequest
	if !bindJSON(c, &req) {
		return
	}
	sale, err := h.sales.Record(c.Request.Context(), &req)
	if err != nil {
		utils.Fail(c, err, "Failed to record sale")
		return
	}
	utils.Success(c, 201, "Sale recorded", sale)
}

// GetSale handles GET /v1/sales/:id
func (h *SaleHandler) GetSale(c *gin.Context) {
	sale, err := h.sales.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		utils.Fail(c, err, "Failed to retrieve sale")
		return
	}
	utils.Success(c, 200, "Sale retrieved", sale)
}

// UpdateSale handles PATCH /v1/sales/:id
func (h *SaleHandler) UpdateSale(c *gin.Context) {
	var req service.UpdateSaleRequest
	if !bindJSON(c, &req) {
		return
	}
	sale, err := h.sales.Update(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		utils.Fail(c, err, "Failed to update sale")
		return
	}
	utils.Success(c, 200, "Sale updated", sale)
}

type setPaidRequest struct {
	IsPaid *bool `json:"isPaid" binding:"required"`
}

// SetPaid handles PUT /v1/sales/:id/paid
func (h *SaleHandler) SetPaid(c *gin.Context) {
	var req setPaidRequest
	if !bindJSON(c, &req) {
		return
	}
	sale, err := h.sales.SetPaid(c.Request.Context(), c.Param("id"), *req.IsPaid)
	if err != nil {
		utils.Fail(c, err, "Failed to update payment status")
		return
	}
	utils.Success(c, 200, "Payment status updated", sale)
}
