package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/GTDGit/gtd_stock/internal/models"
	"github.com/GTDGit/gtd_stock/internal/repository"
	"github.com/GTDGit/gtd_stock/internal/service"
	"github.com/GTDGit/gtd_stock/internal/utils"
)

// AgentService is the agent surface used by AgentHandler.
type AgentService interface {
	List(ctx context.Context, filter repository.AgentFilter) ([]models.Agent, error)
	Create(ctx context.Context, req *service.CreateAgentRequest) (*models.Agent, error)
	BulkCreate(ctx context.Context, rows []service.AgentRow, skipped int) (*models.ImportResult[models.Agent], error)
	Detail(ctx context.Context, id string) (*models.AgentDetail, error)
	Update(ctx context.Context, id string, req *service.UpdateAgentRequest) (*models.Agent, error)
	SetStatus(ctx context.Context, id string, status models.AgentStatus) (*models.Agent, error)
	Delete(ctx context.Context, id string) error
	ReconcileTotalSales(ctx context.Context) (int64, error)
}

// AgentHandler handles agent endpoints.
type AgentHandler struct {
	agents AgentService
}

// NewAgentHandler constructs an AgentHandler.
func NewAgentHandler(agents AgentService) *AgentHandler {
	return &AgentHandler{agents: agents}
}

// ListAgents handles GET /v1/agents
func (h *AgentHandler) ListAgents(c *gin.Context) {
	filter := repository.AgentFilter{
		Query:    c.Query("q"),
		RegionID: c.Query("region_id"),
		TeamID:   c.Query("team_id"),
		Status:   models.AgentStatus(c.Query("status")),
	}
	agents, err := h.agents.List(c.Request.Context(), filter)
	if err != nil {
		utils.Fail(c, err, "Failed to retrieve agents")
		return
	}
	utils.Success(c, 200, "Agents retrieved", agents)
}

// CreateAgent handles POST /v1/agents
func (h *AgentHandler) CreateAgent(c *gin.Context) {
	var req service.CreateAgentRequest
	if !bindJSON(c, &req) {
		return
	}
	agent, err := h.agents.Create(c.Request.Context(), &req)
	if err != nil {
		utils.Fail(c, err, "Failed to create agent")
		return
	}
	utils.Success(c, 201, "Agent created", agent)
}

// ImportAgents handles POST /v1/agents/import. The body is either CSV text
// ("name,phone,email") or a JSON array of rows.
func (h *AgentHandler) ImportAgents(c *gin.Context) {
	var (
		rows    []service.AgentRow
		skipped int
	)
	if isJSON(c) {
		if err := decodeImportJSON(c, &rows); err != nil {
			utils.Fail(c, err, "Failed to import agents")
			return
		}
	} else {
		text, err := readImportText(c)
		if err != nil {
			utils.Fail(c, err, "Failed to import agents")
			return
		}
		rows, skipped = service.ParseAgentImport(text)
	}

	result, err := h.agents.BulkCreate(c.Request.Context(), rows, skipped)
	if err != nil {
		utils.Fail(c, err, "Failed to import agents")
		return
	}
	utils.Success(c, 201, "Agents imported", result)
}

// GetAgent handles GET /v1/agents/:id
func (h *AgentHandler) GetAgent(c *gin.Context) {
	detail, err := h.agents.Detail(c.Request.Context(), c.Param("id"))
	if err != nil {
		utils.Fail(c, err, "Failed to retrieve agent")
		return
	}
	utils.Success(c, 200, "Agent retrieved", detail)
}

// UpdateAgent handles PATCH /v1/agents/:id
func (h *AgentHandler) UpdateAgent(c *gin.Context) {
	var req service.UpdateAgentRequest
	if !bindJSON(c, &req) {
		return
	}
	agent, err := h.agents.Update(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		utils.Fail(c, err, "Failed to update agent")
		return
	}
	utils.Success(c, 200, "Agent updated", agent)
}

type setAgentStatusRequest struct {
	Status models.AgentStatus `json:"status" binding:"required"`
}

// SetAgentStatus handles PUT /v1/agents/:id/status
func (h *AgentHandler) SetAgentStatus(c *gin.Context) {
	var req setAgentStatusRequest
	if !bindJSON(c, &req) {
		return
	}
	agent, err := h.agents.SetStatus(c.Request.Context(), c.Param("id"), req.Status)
	if err != nil {
		utils.Fail(c, err, "Failed to update agent status")
		return
	}
	utils.Success(c, 200, "Agent status updated", agent)
}

// DeleteAgent handles DELETE /v1/agents/:id
func (h *AgentHandler) DeleteAgent(c *gin.Context) {
	if err := h.agents.Delete(c.Request.Context(), c.Param("id")); err != nil {
		utils.Fail(c, err, "Failed to delete agent")
		return
	}
	utils.Success(c, 200, "Agent deleted", nil)
}

// ReconcileSales handles POST /v1/agents/reconcile-sales
func (h *AgentHandler) ReconcileSales(c *gin.Context) {
	changed, err := h.agents.ReconcileTotalSales(c.Request.Context())
	if err != nil {
		utils.Fail(c, err, "Failed to reconcile sales counters")
		return
	}
	utils.Success(c, 200, "Sales counters reconciled", gin.H{"agentsChanged": changed})
}
