package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/GTDGit/gtd_stock/internal/models"
	"github.com/GTDGit/gtd_stock/internal/repository"
	"github.com/GTDGit/gtd_stock/internal/sse"
	"github.com/GTDGit/gtd_stock/internal/utils"
)

// AgentService handles agent business logic.
type AgentService struct {
	tx          repository.TxRunner
	agents      repository.AgentStore
	stock       repository.StockStore
	sales       repository.SaleStore
	notifier    sse.Notifier
	now         Clock
	phoneRegion string
}

// NewAgentService constructs an AgentService. Phone numbers are normalized
// against phoneRegion.
func NewAgentService(
	tx repository.TxRunner,
	agents repository.AgentStore,
	stock repository.StockStore,
	sales repository.SaleStore,
	notifier sse.Notifier,
	now Clock,
	phoneRegion string,
) *AgentService {
	return &AgentService{
		tx:          tx,
		agents:      agents,
		stock:       stock,
		sales:       sales,
		notifier:    notifier,
		now:         now,
		phoneRegion: phoneRegion,
	}
}

// CreateAgentRequest represents the request to create an agent.
type CreateAgentRequest struct {
	Name             string             `json:"name" binding:"required"`
	Phone            *string            `json:"phone"`
	Email            *string            `json:"email"`
	TeamID           *string            `json:"teamId"`
	RegionID         *string            `json:"regionId"`
	District         *string            `json:"district"`
	PhysicalLocation *string            `json:"physicalLocation"`
	Status           models.AgentStatus `json:"status"`
}

// UpdateAgentRequest represents a partial agent update. Nil fields are kept;
// an empty string clears an optional field.
type UpdateAgentRequest struct {
	Name             *string             `json:"name"`
	Phone            *string             `json:"phone"`
	Email            *string             `json:"email"`
	TeamID           *string             `json:"teamId"`
	RegionID         *string             `json:"regionId"`
	District         *string             `json:"district"`
	PhysicalLocation *string             `json:"physicalLocation"`
	Status           *models.AgentStatus `json:"status"`
}

// prepare normalizes agent in place and checks its fields.
func (s *AgentService) prepare(agent *models.Agent) error {
	agent.Name = strings.TrimSpace(agent.Name)
	if agent.Name == "" {
		return fmt.Errorf("%w: name is required", utils.ErrValidation)
	}
	if agent.Email != nil && !strings.Contains(*agent.Email, "@") {
		return fmt.Errorf("%w: email %q is not valid", utils.ErrValidation, *agent.Email)
	}
	if agent.Phone != nil {
		normalized := normalizePhone(*agent.Phone, s.phoneRegion)
		agent.Phone = &normalized
	}
	if err := checkLengths(
		textField("name", &agent.Name),
		phoneField("phone", agent.Phone),
		textField("email", agent.Email),
		textField("district", agent.District),
	); err != nil {
		return err
	}
	if agent.Status == "" {
		agent.Status = models.AgentActive
	}
	if !agent.Status.Valid() {
		return fmt.Errorf("%w: unknown status %q", utils.ErrValidation, agent.Status)
	}
	for kind, id := range map[string]*string{"team": agent.TeamID, "region": agent.RegionID} {
		if id != nil && resolveID(kind, *id) != nil {
			return fmt.Errorf("%w: %s %q", utils.ErrValidation, kind, *id)
		}
	}
	return nil
}

// Create adds an agent.
func (s *AgentService) Create(ctx context.Context, req *CreateAgentRequest) (*models.Agent, error) {
	agent := &models.Agent{
		Name:             req.Name,
		Phone:            optional(req.Phone),
		Email:            optional(req.Email),
		TeamID:           optional(req.TeamID),
		RegionID:         optional(req.RegionID),
		District:         optional(req.District),
		PhysicalLocation: optional(req.PhysicalLocation),
		Status:           req.Status,
	}
	if err := s.prepare(agent); err != nil {
		return nil, err
	}
	if err := s.agents.Create(ctx, agent); err != nil {
		return nil, err
	}

	log.Info().Str("agent_id", agent.ID).Str("name", agent.Name).Msg("Agent created")
	s.notifier.NotifyAgent(agent)
	return agent, nil
}

// BulkCreate adds every importable row in one transaction. Rows that fail
// validation are skipped.
func (s *AgentService) BulkCreate(ctx context.Context, rows []AgentRow, skipped int) (*models.ImportResult[models.Agent], error) {
	result := &models.ImportResult[models.Agent]{Skipped: skipped, Items: []models.Agent{}}
	var agents []*models.Agent
	for _, r := range rows {
		agent := &models.Agent{Name: r.Name, Phone: optional(r.Phone), Email: optional(r.Email)}
		if err := s.prepare(agent); err != nil {
			result.Skipped++
			continue
		}
		agents = append(agents, agent)
	}
	if len(agents) == 0 {
		return nil, fmt.Errorf("%w: no valid rows to import", utils.ErrValidation)
	}

	err := s.tx.Execute(ctx, func(scope repository.Scope) error {
		for _, a := range agents {
			if err := scope.Agents().Create(ctx, a); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, a := range agents {
		result.Items = append(result.Items, *a)
	}
	result.Accepted = len(agents)

	log.Info().Int("accepted", result.Accepted).Int("skipped", result.Skipped).Msg("Agent import completed")
	s.notifier.NotifyAgent(agents[len(agents)-1])
	return result, nil
}

// List returns agents matching filter.
func (s *AgentService) List(ctx context.Context, filter repository.AgentFilter) ([]models.Agent, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", utils.ErrValidation, filter.Status)
	}
	filter.Query = strings.TrimSpace(filter.Query)
	return s.agents.List(ctx, filter)
}

// Detail returns an agent with its monthly figures and in-hand units.
func (s *AgentService) Detail(ctx context.Context, id string) (*models.AgentDetail, error) {
	if err := resolveID("agent", id); err != nil {
		return nil, err
	}
	agent, err := s.agents.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	sales, err := s.sales.List(ctx, repository.SaleFilter{AgentID: id})
	if err != nil {
		return nil, err
	}
	inHand, err := s.stock.List(ctx, repository.StockFilter{AgentID: id, Status: models.StockInHand})
	if err != nil {
		return nil, err
	}

	ref := s.now()
	return &models.AgentDetail{
		Agent:   agent,
		Figures: AgentMonthlyFigures(id, sales, inHand, ref, ref.Location()),
		InHand:  inHand,
	}, nil
}

// Update applies a partial update.
func (s *AgentService) Update(ctx context.Context, id string, req *UpdateAgentRequest) (*models.Agent, error) {
	if err := resolveID("agent", id); err != nil {
		return nil, err
	}
	agent, err := s.agents.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		agent.Name = *req.Name
	}
	if req.Phone != nil {
		agent.Phone = optional(req.Phone)
	}
	if req.Email != nil {
		agent.Email = optional(req.Email)
	}
	if req.TeamID != nil {
		agent.TeamID = optional(req.TeamID)
	}
	if req.RegionID != nil {
		agent.RegionID = optional(req.RegionID)
	}
	if req.District != nil {
		agent.District = optional(req.District)
	}
	if req.PhysicalLocation != nil {
		agent.PhysicalLocation = optional(req.PhysicalLocation)
	}
	if req.Status != nil {
		agent.Status = *req.Status
	}
	if err := s.prepare(agent); err != nil {
		return nil, err
	}

	if err := s.agents.Update(ctx, agent); err != nil {
		return nil, err
	}
	updated, err := s.agents.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	s.notifier.NotifyAgent(updated)
	return updated, nil
}

// SetStatus activates or deactivates an agent.
func (s *AgentService) SetStatus(ctx context.Context, id string, status models.AgentStatus) (*models.Agent, error) {
	if err := resolveID("agent", id); err != nil {
		return nil, err
	}
	if !status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", utils.ErrValidation, status)
	}
	agent, err := s.agents.SetStatus(ctx, id, status)
	if err != nil {
		return nil, err
	}

	log.Info().Str("agent_id", id).Str("status", string(status)).Msg("Agent status changed")
	s.notifier.NotifyAgent(agent)
	return agent, nil
}

// Delete removes an agent that no unit or sale references.
func (s *AgentService) Delete(ctx context.Context, id string) error {
	if err := resolveID("agent", id); err != nil {
		return err
	}
	agent, err := s.agents.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.agents.Delete(ctx, id); err != nil {
		return err
	}

	log.Info().Str("agent_id", id).Msg("Agent deleted")
	s.notifier.NotifyAgent(agent)
	return nil
}

// ReconcileTotalSales recomputes every agent's sales counter from the sales
// table and returns how many agents changed.
func (s *AgentService) ReconcileTotalSales(ctx context.Context) (int64, error) {
	n, err := s.agents.ReconcileTotalSales(ctx)
	if err != nil {
		return 0, err
	}
	log.Info().Int64("agents_changed", n).Msg("Agent sales counters reconciled")
	if n > 0 {
		// No single agent: the event carries an empty id.
		s.notifier.NotifyAgent(&models.Agent{})
	}
	return n, nil
}
