package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/GTDGit/gtd_stock/internal/metrics"
	"github.com/GTDGit/gtd_stock/internal/models"
	"github.com/GTDGit/gtd_stock/internal/repository"
	"github.com/GTDGit/gtd_stock/internal/sse"
	"github.com/GTDGit/gtd_stock/internal/utils"
)

// StockService drives stock units through their lifecycle.
type StockService struct {
	tx       repository.TxRunner
	stock    repository.StockStore
	agents   repository.AgentStore
	notifier sse.Notifier
	metrics  *metrics.Recorder
	now      Clock
}

// NewStockService constructs a StockService.
func NewStockService(
	tx repository.TxRunner,
	stock repository.StockStore,
	agents repository.AgentStore,
	notifier sse.Notifier,
	recorder *metrics.Recorder,
	now Clock,
) *StockService {
	return &StockService{
		tx:       tx,
		stock:    stock,
		agents:   agents,
		notifier: notifier,
		metrics:  recorder,
		now:      now,
	}
}

// CreateStockRequest represents the request to register one unit.
type CreateStockRequest struct {
	Smartcard    string           `json:"smartcard" binding:"required"`
	SerialNumber string           `json:"serialNumber" binding:"required"`
	BatchNumber  *string          `json:"batchNumber"`
	StockType    models.StockType `json:"stockType"`
	RegionID     *string          `json:"regionId"`
}

// BulkStockRequest carries parsed import rows. StockType and RegionID apply
// to every row.
type BulkStockRequest struct {
	StockType models.StockType
	RegionID  *string
	Rows      []StockRow
	// Skipped counts rows the parser already rejected.
	Skipped int
}

// checkBatch validates the attributes shared by single and bulk creates.
func checkBatch(stockType *models.StockType, regionID *string) error {
	if *stockType == "" {
		*stockType = models.StockFullSet
	}
	if !stockType.Valid() {
		return fmt.Errorf("%w: unknown stock type %q", utils.ErrValidation, *stockType)
	}
	if regionID != nil {
		if err := resolveID("region", *regionID); err != nil {
			return fmt.Errorf("%w: region %q", utils.ErrValidation, *regionID)
		}
	}
	return nil
}

// Create registers a unit in the store. Smartcard and serial number
// collisions are rejected.
func (s *StockService) Create(ctx context.Context, req *CreateStockRequest) (*models.StockUnit, error) {
	unit := &models.StockUnit{
		Smartcard:    strings.TrimSpace(req.Smartcard),
		SerialNumber: strings.TrimSpace(req.SerialNumber),
		BatchNumber:  optional(req.BatchNumber),
		StockType:    req.StockType,
		Status:       models.StockInStore,
		RegionID:     optional(req.RegionID),
	}
	if unit.Smartcard == "" || unit.SerialNumber == "" {
		return nil, fmt.Errorf("%w: smartcard and serial number are required", utils.ErrValidation)
	}
	if err := checkLengths(
		codeField("smartcard", &unit.Smartcard),
		codeField("serial number", &unit.SerialNumber),
		codeField("batch number", unit.BatchNumber),
	); err != nil {
		return nil, err
	}
	if err := checkBatch(&unit.StockType, unit.RegionID); err != nil {
		return nil, err
	}

	smartcards, serials, err := s.stock.ExistingCodes(ctx, []string{unit.Smartcard}, []string{unit.SerialNumber})
	if err != nil {
		return nil, err
	}
	if smartcards[unit.Smartcard] || serials[unit.SerialNumber] {
		return nil, fmt.Errorf("%w: smartcard %s or serial %s already registered",
			utils.ErrDuplicateStock, unit.Smartcard, unit.SerialNumber)
	}

	if err := s.stock.Create(ctx, unit); err != nil {
		return nil, err
	}

	log.Info().Str("unit_id", unit.ID).Str("smartcard", unit.Smartcard).Msg("Stock unit created")
	s.notifier.NotifyStock(sse.EventStockCreated, unit)
	return unit, nil
}

// cleanRows trims every row and drops those missing a smartcard or serial
// number or carrying a value too wide to store.
func cleanRows(rows []StockRow) (kept []StockRow, dropped int) {
	for _, r := range rows {
		r.Smartcard = strings.TrimSpace(r.Smartcard)
		r.SerialNumber = strings.TrimSpace(r.SerialNumber)
		r.BatchNumber = optional(r.BatchNumber)
		if r.Smartcard == "" || r.SerialNumber == "" {
			dropped++
			continue
		}
		if checkLengths(
			codeField("smartcard", &r.Smartcard),
			codeField("serial number", &r.SerialNumber),
			codeField("batch number", r.BatchNumber),
		) != nil {
			dropped++
			continue
		}
		kept = append(kept, r)
	}
	return kept, dropped
}

// BulkCreate registers every row that does not collide with the store or an
// earlier row of the same batch. All accepted rows are written in one
// transaction.
func (s *StockService) BulkCreate(ctx context.Context, req *BulkStockRequest) (*models.ImportResult[models.StockUnit], error) {
	if err := checkBatch(&req.StockType, req.RegionID); err != nil {
		return nil, err
	}
	rows, dropped := cleanRows(req.Rows)
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: no valid rows to import", utils.ErrValidation)
	}

	smartcards := make([]string, 0, len(rows))
	serials := make([]string, 0, len(rows))
	for _, r := range rows {
		smartcards = append(smartcards, r.Smartcard)
		serials = append(serials, r.SerialNumber)
	}
	takenSmartcards, takenSerials, err := s.stock.ExistingCodes(ctx, smartcards, serials)
	if err != nil {
		return nil, err
	}

	result := &models.ImportResult[models.StockUnit]{Skipped: req.Skipped + dropped, Items: []models.StockUnit{}}
	var units []*models.StockUnit
	for _, r := range rows {
		if takenSmartcards[r.Smartcard] || takenSerials[r.SerialNumber] {
			result.Skipped++
			continue
		}
		takenSmartcards[r.Smartcard] = true
		takenSerials[r.SerialNumber] = true
		units = append(units, &models.StockUnit{
			Smartcard:    r.Smartcard,
			SerialNumber: r.SerialNumber,
			BatchNumber:  r.BatchNumber,
			StockType:    req.StockType,
			Status:       models.StockInStore,
			RegionID:     req.RegionID,
		})
	}
	if len(units) == 0 {
		return result, nil
	}

	err = s.tx.Execute(ctx, func(scope repository.Scope) error {
		for _, u := range units {
			if err := scope.Stock().Create(ctx, u); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, u := range units {
		result.Items = append(result.Items, *u)
	}
	result.Accepted = len(units)

	log.Info().Int("accepted", result.Accepted).Int("skipped", result.Skipped).Msg("Stock import completed")
	s.notifier.NotifyStock(sse.EventStockCreated, units[len(units)-1])
	return result, nil
}

// List returns units matching filter.
func (s *StockService) List(ctx context.Context, filter repository.StockFilter) ([]models.StockUnit, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", utils.ErrValidation, filter.Status)
	}
	if filter.StockType != "" && !filter.StockType.Valid() {
		return nil, fmt.Errorf("%w: unknown stock type %q", utils.ErrValidation, filter.StockType)
	}
	filter.Query = strings.TrimSpace(filter.Query)
	return s.stock.List(ctx, filter)
}

// Get returns one unit with its region and agent.
func (s *StockService) Get(ctx context.Context, id string) (*models.StockUnit, error) {
	if err := resolveID("stock unit", id); err != nil {
		return nil, err
	}
	return s.stock.GetByID(ctx, id)
}

// Stats counts units by status and type.
func (s *StockService) Stats(ctx context.Context) (models.StockStats, error) {
	return s.stock.Stats(ctx)
}

// Assign hands an in_store unit to an active agent.
func (s *StockService) Assign(ctx context.Context, id, agentID string) (*models.StockUnit, error) {
	if err := resolveID("stock unit", id); err != nil {
		return nil, err
	}
	if err := resolveID("agent", agentID); err != nil {
		return nil, err
	}

	if err := s.activeAgent(ctx, agentID); err != nil {
		return nil, err
	}

	// The update itself also requires the agent to be active.
	unit, err := s.stock.Assign(ctx, id, agentID, s.now())
	if errors.Is(err, repository.ErrStaleStatus) {
		if agentErr := s.activeAgent(ctx, agentID); agentErr != nil {
			return nil, agentErr
		}
	}
	if err != nil {
		return nil, transitionError(ctx, s.stock, id, models.StockInHand, err)
	}

	log.Info().Str("unit_id", unit.ID).Str("agent_id", agentID).Msg("Stock unit assigned")
	s.metrics.StockTransition(models.StockInHand)
	s.notifier.NotifyStock(sse.EventStockAssigned, unit)
	return unit, nil
}

func (s *StockService) activeAgent(ctx context.Context, agentID string) error {
	agent, err := s.agents.GetByID(ctx, agentID)
	if err != nil {
		return err
	}
	if !agent.IsActive() {
		return fmt.Errorf("%w: agent %s is %s", utils.ErrInvalidAgent, agent.ID, agent.Status)
	}
	return nil
}

// Unassign returns an in_hand unit to the store.
func (s *StockService) Unassign(ctx context.Context, id string) (*models.StockUnit, error) {
	if err := resolveID("stock unit", id); err != nil {
		return nil, err
	}

	unit, err := s.stock.Unassign(ctx, id)
	if err != nil {
		return nil, transitionError(ctx, s.stock, id, models.StockInStore, err)
	}

	log.Info().Str("unit_id", unit.ID).Msg("Stock unit returned to store")
	s.metrics.StockTransition(models.StockInStore)
	s.notifier.NotifyStock(sse.EventStockUnassigned, unit)
	return unit, nil
}

// Delete removes a unit that has not been sold.
func (s *StockService) Delete(ctx context.Context, id string) error {
	if err := resolveID("stock unit", id); err != nil {
		return err
	}

	unit, err := s.stock.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.stock.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrStaleStatus) {
			return fmt.Errorf("%w: sold unit %s cannot be deleted", utils.ErrInvalidTransition, id)
		}
		return err
	}

	log.Info().Str("unit_id", id).Msg("Stock unit deleted")
	s.notifier.NotifyStock(sse.EventStockDeleted, unit)
	return nil
}

// transitionError explains a failed conditional update by re-reading the
// unit: a missing row is NotFound, anything else is an illegal transition.
func transitionError(ctx context.Context, stock repository.StockStore, id string, to models.StockStatus, err error) error {
	if !errors.Is(err, repository.ErrStaleStatus) {
		return err
	}
	current, getErr := stock.GetByID(ctx, id)
	if getErr != nil {
		return getErr
	}
	return fmt.Errorf("%w: unit %s is %s, cannot become %s", utils.ErrInvalidTransition, id, current.Status, to)
}
