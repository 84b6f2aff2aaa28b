package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/GTDGit/gtd_stock/internal/models"
)

// saleSelect expands a sale with its unit and agent.
const saleSelect = `SELECT s.id, s.inventory_id, s.agent_id, s.sale_date, s.sale_type, s.package_type, s.sale_price,
        s.customer_name, s.customer_phone, s.is_paid, s.created_at,
        i.id, i.smartcard, i.serial_number, i.stock_type, i.status,
        a.id, a.name, a.phone, a.status
    FROM sales s
    LEFT JOIN inventory i ON i.id = s.inventory_id
    LEFT JOIN agents a ON a.id = s.agent_id`

// SaleRepository provides data access methods for sales table.
type SaleRepository struct {
	db dbtx
}

// NewSaleRepository creates a new SaleRepository.
func NewSaleRepository(db *sqlx.DB) *SaleRepository {
	return &SaleRepository{db: db}
}

func scanSale(row rowScanner) (*models.Sale, error) {
	var (
		s                         models.Sale
		unitID, smartcard, serial *string
		stockType, stockStatus    *string
		agentID, agentName        *string
		agentPhone, agentStatus   *string
	)
	if err := row.Scan(
		&s.ID, &s.InventoryID, &s.AgentID, &s.SaleDate, &s.SaleType, &s.PackageType, &s.SalePrice,
		&s.CustomerName, &s.CustomerPhone, &s.IsPaid, &s.CreatedAt,
		&unitID, &smartcard, &serial, &stockType, &stockStatus,
		&agentID, &agentName, &agentPhone, &agentStatus,
	); err != nil {
		return nil, err
	}

	if unitID != nil {
		s.Inventory = &models.StockUnit{ID: *unitID}
		if smartcard != nil {
			s.Inventory.Smartcard = *smartcard
		}
		if serial != nil {
			s.Inventory.SerialNumber = *serial
		}
		if stockType != nil {
			s.Inventory.StockType = models.StockType(*stockType)
		}
		if stockStatus != nil {
			s.Inventory.Status = models.StockStatus(*stockStatus)
		}
	}
	if agentID != nil {
		s.Agent = &models.Agent{ID: *agentID, Phone: agentPhone}
		if agentName != nil {
			s.Agent.Name = *agentName
		}
		if agentStatus != nil {
			s.Agent.Status = models.AgentStatus(*agentStatus)
		}
	}
	return &s, nil
}

// List returns sales matching filter, most recent first.
func (r *SaleRepository) List(ctx context.Context, filter SaleFilter) ([]models.Sale, error) {
	baseWhere := " WHERE 1=1"
	args := []any{}
	argIdx := 1

	if filter.AgentID != "" {
		baseWhere += fmt.Sprintf(" AND s.agent_id = $%d", argIdx)
		args = append(args, filter.AgentID)
		argIdx++
	}
	if filter.SaleType != "" {
		baseWhere += fmt.Sprintf(" AND s.sale_type = $%d", argIdx)
		args = append(args, filter.SaleType)
		argIdx++
	}
	if filter.Paid != nil {
		baseWhere += fmt.Sprintf(" AND s.is_paid = $%d", argIdx)
		args = append(args, *filter.Paid)
		argIdx++
	}

	query := saleSelect + baseWhere + " ORDER BY s.sale_date DESC"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, filter.Limit)
	}

	rows, err := r.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	sales := []models.Sale{}
	for rows.Next() {
		s, err := scanSale(rows)
		if err != nil {
			return nil, mapError(err)
		}
		sales = append(sales, *s)
	}
	return sales, mapError(rows.Err())
}

// GetByID returns a sale with unit and agent expanded.
func (r *SaleRepository) GetByID(ctx context.Context, id string) (*models.Sale, error) {
	s, err := scanSale(r.db.QueryRowxContext(ctx, saleSelect+" WHERE s.id = $1", id))
	if err != nil {
		return nil, mapError(err)
	}
	return s, nil
}

// GetByInventoryID returns the sale recorded for a unit.
func (r *SaleRepository) GetByInventoryID(ctx context.Context, inventoryID string) (*models.Sale, error) {
	s, err := scanSale(r.db.QueryRowxContext(ctx, saleSelect+" WHERE s.inventory_id = $1", inventoryID))
	if err != nil {
		return nil, mapError(err)
	}
	return s, nil
}

// Create inserts a sale and fills its generated fields.
func (r *SaleRepository) Create(ctx context.Context, sale *models.Sale) error {
	if sale.SaleType == "" {
		sale.SaleType = models.SaleNormal
	}
	query := `INSERT INTO sales (inventory_id, agent_id, sale_date, sale_type, package_type, sale_price,
                                 customer_name, customer_phone, is_paid)
              VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
              RETURNING id, created_at`

	err := r.db.QueryRowxContext(ctx, query,
		sale.InventoryID,
		sale.AgentID,
		sale.SaleDate,
		sale.SaleType,
		sale.PackageType,
		sale.SalePrice,
		sale.CustomerName,
		sale.CustomerPhone,
		sale.IsPaid,
	).Scan(&sale.ID, &sale.CreatedAt)
	return mapError(err)
}

// Update writes every mutable column of sale.
func (r *SaleRepository) Update(ctx context.Context, sale *models.Sale) error {
	query := `UPDATE sales
              SET inventory_id = $1, agent_id = $2, sale_date = $3, sale_type = $4, package_type = $5,
                  sale_price = $6, customer_name = $7, customer_phone = $8, is_paid = $9
              WHERE id = $10
              RETURNING created_at`

	err := r.db.QueryRowxContext(ctx, query,
		sale.InventoryID,
		sale.AgentID,
		sale.SaleDate,
		sale.SaleType,
		sale.PackageType,
		sale.SalePrice,
		sale.CustomerName,
		sale.CustomerPhone,
		sale.IsPaid,
		sale.ID,
	).Scan(&sale.CreatedAt)
	return mapError(err)
}
