package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type SaleType string

const (
	SaleNormal SaleType = "normal"
	SaleDVS    SaleType = "dvs"
)

// Valid reports whether t is a known sale type.
func (t SaleType) Valid() bool {
	return t == SaleNormal || t == SaleDVS
}

// Sale records the sale of exactly one StockUnit.
type Sale struct {
	ID            string              `db:"id" json:"id"`
	InventoryID   string              `db:"inventory_id" json:"inventoryId"`
	AgentID       *string             `db:"agent_id" json:"agentId,omitempty"`
	SaleDate      time.Time           `db:"sale_date" json:"saleDate"`
	SaleType      SaleType            `db:"sale_type" json:"saleType"`
	PackageType   *string             `db:"package_type" json:"packageType,omitempty"`
	SalePrice     decimal.NullDecimal `db:"sale_price" json:"salePrice"`
	CustomerName  *string             `db:"customer_name" json:"customerName,omitempty"`
	CustomerPhone *string             `db:"customer_phone" json:"customerPhone,omitempty"`
	IsPaid        bool                `db:"is_paid" json:"isPaid"`
	CreatedAt     time.Time           `db:"created_at" json:"createdAt"`

	Inventory *StockUnit `db:"-" json:"inventory,omitempty"`
	Agent     *Agent     `db:"-" json:"agent,omitempty"`
}

// HasAgent reports whether the sale is attributed to agentID.
func (s *Sale) HasAgent(agentID string) bool {
	return s.AgentID != nil && *s.AgentID == agentID
}

// SaleStats counts sales by payment state.
type SaleStats struct {
	Total  int `json:"total"`
	Paid   int `json:"paid"`
	Unpaid int `json:"unpaid"`
}
