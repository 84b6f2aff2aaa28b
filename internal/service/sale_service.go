package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/GTDGit/gtd_stock/internal/metrics"
	"github.com/GTDGit/gtd_stock/internal/models"
	"github.com/GTDGit/gtd_stock/internal/repository"
	"github.com/GTDGit/gtd_stock/internal/sse"
	"github.com/GTDGit/gtd_stock/internal/utils"
)

// SaleService records sales and keeps stock and agent counters in step.
type SaleService struct {
	tx       repository.TxRunner
	sales    repository.SaleStore
	notifier sse.Notifier
	metrics  *metrics.Recorder
	now      Clock
}

// NewSaleService constructs a SaleService.
func NewSaleService(tx repository.TxRunner, sales repository.SaleStore, notifier sse.Notifier, recorder *metrics.Recorder, now Clock) *SaleService {
	return &SaleService{tx: tx, sales: sales, notifier: notifier, metrics: recorder, now: now}
}

// RecordSaleRequest represents a sale of an existing unit (InventoryID) or
// of a unit entered by hand (ManualSmartcard and ManualSerial).
type RecordSaleRequest struct {
	InventoryID     *string             `json:"inventoryId"`
	ManualSmartcard *string             `json:"manualSmartcard"`
	ManualSerial    *string             `json:"manualSerial"`
	AgentID         *string             `json:"agentId"`
	SaleType        models.SaleType     `json:"saleType"`
	PackageType     *string             `json:"packageType"`
	SalePrice       decimal.NullDecimal `json:"salePrice"`
	CustomerName    *string             `json:"customerName"`
	CustomerPhone   *string             `json:"customerPhone"`
}

// UpdateSaleRequest represents a partial sale update. Nil fields are kept.
type UpdateSaleRequest struct {
	IsPaid        *bool            `json:"isPaid"`
	AgentID       *string          `json:"agentId"`
	SaleType      *models.SaleType `json:"saleType"`
	PackageType   *string          `json:"packageType"`
	SalePrice     *decimal.Decimal `json:"salePrice"`
	CustomerName  *string          `json:"customerName"`
	CustomerPhone *string          `json:"customerPhone"`
	SaleDate      *time.Time       `json:"saleDate"`
	InventoryID   *string          `json:"inventoryId"`
}

func checkPrice(price decimal.Decimal) error {
	if price.IsNegative() {
		return fmt.Errorf("%w: sale price must not be negative", utils.ErrValidation)
	}
	return nil
}

// Record creates a sale. The optional manual unit, the sale row, the
// in_hand to sold transition and the agent counter are written in one
// transaction.
func (s *SaleService) Record(ctx context.Context, req *RecordSaleRequest) (*models.Sale, error) {
	inventoryID := optional(req.InventoryID)
	smartcard := optional(req.ManualSmartcard)
	serial := optional(req.ManualSerial)
	agentID := optional(req.AgentID)

	saleType := req.SaleType
	if saleType == "" {
		saleType = models.SaleNormal
	}
	if !saleType.Valid() {
		return nil, fmt.Errorf("%w: unknown sale type %q", utils.ErrValidation, saleType)
	}
	if saleType == models.SaleDVS && inventoryID != nil {
		return nil, fmt.Errorf("%w: dvs sales must be entered manually", utils.ErrValidation)
	}
	if req.SalePrice.Valid {
		if err := checkPrice(req.SalePrice.Decimal); err != nil {
			return nil, err
		}
	}

	if err := checkLengths(
		codeField("manual smartcard", smartcard),
		codeField("manual serial", serial),
		codeField("package type", optional(req.PackageType)),
		textField("customer name", optional(req.CustomerName)),
		phoneField("customer phone", optional(req.CustomerPhone)),
	); err != nil {
		return nil, err
	}

	manual := inventoryID == nil
	if manual && (smartcard == nil || serial == nil) {
		return nil, fmt.Errorf("%w: provide inventoryId or both manual smartcard and serial", utils.ErrMissingTarget)
	}
	if !manual {
		if err := resolveID("stock unit", *inventoryID); err != nil {
			return nil, err
		}
	}
	if agentID != nil {
		if err := resolveID("agent", *agentID); err != nil {
			return nil, err
		}
	}

	now := s.now()
	sale := &models.Sale{
		AgentID:       agentID,
		SaleDate:      now,
		SaleType:      saleType,
		PackageType:   optional(req.PackageType),
		SalePrice:     req.SalePrice,
		CustomerName:  optional(req.CustomerName),
		CustomerPhone: optional(req.CustomerPhone),
	}

	err := s.tx.Execute(ctx, func(scope repository.Scope) error {
		if agentID != nil {
			if _, err := scope.Agents().GetByID(ctx, *agentID); err != nil {
				return err
			}
		}

		var unit *models.StockUnit
		if manual {
			taken, takenSerials, err := scope.Stock().ExistingCodes(ctx, []string{*smartcard}, []string{*serial})
			if err != nil {
				return err
			}
			if taken[*smartcard] || takenSerials[*serial] {
				return fmt.Errorf("%w: smartcard %s or serial %s already registered", utils.ErrDuplicateStock, *smartcard, *serial)
			}
			unit = &models.StockUnit{
				Smartcard:         *smartcard,
				SerialNumber:      *serial,
				StockType:         models.StockFullSet,
				Status:            models.StockSold,
				AssignedToAgentID: agentID,
			}
			if agentID != nil {
				unit.AssignedAt = &now
			}
			if err := scope.Stock().Create(ctx, unit); err != nil {
				return err
			}
		} else {
			var err error
			unit, err = scope.Stock().GetByIDForUpdate(ctx, *inventoryID)
			if err != nil {
				return err
			}
			if !models.CanTransition(unit.Status, models.StockSold) {
				return fmt.Errorf("%w: unit %s is %s, cannot become sold", utils.ErrInvalidTransition, unit.ID, unit.Status)
			}
			if sale.AgentID == nil {
				sale.AgentID = unit.AssignedToAgentID
			}
		}

		sale.InventoryID = unit.ID
		if err := scope.Sales().Create(ctx, sale); err != nil {
			return err
		}

		if !manual {
			if _, err := scope.Stock().MarkSold(ctx, unit.ID); err != nil {
				return transitionError(ctx, scope.Stock(), unit.ID, models.StockSold, err)
			}
		}
		if sale.AgentID != nil {
			if err := scope.Agents().IncrementTotalSales(ctx, *sale.AgentID, 1); err != nil {
				return err
			}
		}

		created, err := scope.Sales().GetByID(ctx, sale.ID)
		if err != nil {
			return err
		}
		sale = created
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("sale_id", sale.ID).
		Str("unit_id", sale.InventoryID).
		Str("sale_type", string(sale.SaleType)).
		Bool("manual", manual).
		Msg("Sale recorded")
	s.metrics.SaleRecorded(sale.SaleType, manual)
	s.metrics.StockTransition(models.StockSold)
	s.notifier.NotifySale(sse.EventSaleRecorded, sale)
	return sale, nil
}

// Update applies a partial update. The stock state machine is not re-run:
// moving a sale to another unit leaves both units' statuses untouched.
func (s *SaleService) Update(ctx context.Context, id string, req *UpdateSaleRequest) (*models.Sale, error) {
	if err := resolveID("sale", id); err != nil {
		return nil, err
	}
	if req.SaleType != nil && !req.SaleType.Valid() {
		return nil, fmt.Errorf("%w: unknown sale type %q", utils.ErrValidation, *req.SaleType)
	}
	if req.SalePrice != nil {
		if err := checkPrice(*req.SalePrice); err != nil {
			return nil, err
		}
	}
	if err := checkLengths(
		codeField("package type", optional(req.PackageType)),
		textField("customer name", optional(req.CustomerName)),
		phoneField("customer phone", optional(req.CustomerPhone)),
	); err != nil {
		return nil, err
	}
	if req.InventoryID != nil {
		if err := resolveID("stock unit", strings.TrimSpace(*req.InventoryID)); err != nil {
			return nil, fmt.Errorf("%w: inventoryId %q", utils.ErrValidation, *req.InventoryID)
		}
	}
	if req.AgentID != nil && strings.TrimSpace(*req.AgentID) != "" {
		if err := resolveID("agent", strings.TrimSpace(*req.AgentID)); err != nil {
			return nil, fmt.Errorf("%w: agentId %q", utils.ErrValidation, *req.AgentID)
		}
	}

	var sale *models.Sale
	err := s.tx.Execute(ctx, func(scope repository.Scope) error {
		current, err := scope.Sales().GetByID(ctx, id)
		if err != nil {
			return err
		}
		previousAgent := current.AgentID

		if req.IsPaid != nil {
			current.IsPaid = *req.IsPaid
		}
		if req.AgentID != nil {
			current.AgentID = optional(req.AgentID)
			if current.AgentID != nil {
				if _, err := scope.Agents().GetByID(ctx, *current.AgentID); err != nil {
					return err
				}
			}
		}
		if req.SaleType != nil {
			current.SaleType = *req.SaleType
		}
		if req.PackageType != nil {
			current.PackageType = optional(req.PackageType)
		}
		if req.SalePrice != nil {
			current.SalePrice = decimal.NewNullDecimal(*req.SalePrice)
		}
		if req.CustomerName != nil {
			current.CustomerName = optional(req.CustomerName)
		}
		if req.CustomerPhone != nil {
			current.CustomerPhone = optional(req.CustomerPhone)
		}
		if req.SaleDate != nil {
			current.SaleDate = *req.SaleDate
		}
		if req.InventoryID != nil {
			next := strings.TrimSpace(*req.InventoryID)
			if next != current.InventoryID {
				if _, err := scope.Stock().GetByID(ctx, next); err != nil {
					return err
				}
				log.Warn().
					Str("sale_id", id).
					Str("from_unit", current.InventoryID).
					Str("to_unit", next).
					Msg("Sale moved to another unit; stock statuses are not adjusted")
			}
			current.InventoryID = next
		}

		if err := scope.Sales().Update(ctx, current); err != nil {
			return err
		}
		if err := moveAgentSale(ctx, scope.Agents(), previousAgent, current.AgentID); err != nil {
			return err
		}

		sale, err = scope.Sales().GetByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.notifier.NotifySale(sse.EventSaleUpdated, sale)
	return sale, nil
}

// moveAgentSale shifts one sale from the previous agent's counter to the
// next agent's.
func moveAgentSale(ctx context.Context, agents repository.AgentStore, previous, next *string) error {
	if previous != nil && next != nil && *previous == *next {
		return nil
	}
	if previous != nil {
		if err := agents.IncrementTotalSales(ctx, *previous, -1); err != nil {
			return err
		}
	}
	if next != nil {
		if err := agents.IncrementTotalSales(ctx, *next, 1); err != nil {
			return err
		}
	}
	return nil
}

// SetPaid toggles the payment flag of a sale.
func (s *SaleService) SetPaid(ctx context.Context, id string, paid bool) (*models.Sale, error) {
	return s.Update(ctx, id, &UpdateSaleRequest{IsPaid: &paid})
}

// List returns sales matching filter, most recent first.
func (s *SaleService) List(ctx context.Context, filter repository.SaleFilter) ([]models.Sale, error) {
	if filter.SaleType != "" && !filter.SaleType.Valid() {
		return nil, fmt.Errorf("%w: unknown sale type %q", utils.ErrValidation, filter.SaleType)
	}
	return s.sales.List(ctx, filter)
}

// Get returns one sale with its unit and agent.
func (s *SaleService) Get(ctx context.Context, id string) (*models.Sale, error) {
	if err := resolveID("sale", id); err != nil {
		return nil, err
	}
	return s.sales.GetByID(ctx, id)
}
