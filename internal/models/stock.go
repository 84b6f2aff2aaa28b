package models

import "time"

type StockType string
type StockStatus string

const (
	StockFullSet     StockType = "full_set"
	StockDecoderOnly StockType = "decoder_only"
)

const (
	StockInStore StockStatus = "in_store"
	StockInHand  StockStatus = "in_hand"
	StockSold    StockStatus = "sold"
)

// Valid reports whether t is a known stock type.
func (t StockType) Valid() bool {
	return t == StockFullSet || t == StockDecoderOnly
}

// Valid reports whether s is a known stock status.
func (s StockStatus) Valid() bool {
	switch s {
	case StockInStore, StockInHand, StockSold:
		return true
	}
	return false
}

// stockTransitions is the lifecycle of a unit: in_store -> in_hand -> sold,
// with in_hand -> in_store for returns. sold is terminal.
var stockTransitions = map[StockStatus][]StockStatus{
	StockInStore: {StockInHand},
	StockInHand:  {StockSold, StockInStore},
	StockSold:    {},
}

// CanTransition reports whether a unit in status from may move to status to.
func CanTransition(from, to StockStatus) bool {
	for _, next := range stockTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further mutation is allowed.
func (s StockStatus) IsTerminal() bool {
	return s == StockSold
}

// StockUnit is one physical smartcard/decoder tracked from warehouse to sale.
type StockUnit struct {
	ID                string      `db:"id" json:"id"`
	Smartcard         string      `db:"smartcard" json:"smartcard"`
	SerialNumber      string      `db:"serial_number" json:"serialNumber"`
	BatchNumber       *string     `db:"batch_number" json:"batchNumber,omitempty"`
	StockType         StockType   `db:"stock_type" json:"stockType"`
	Status            StockStatus `db:"status" json:"status"`
	RegionID          *string     `db:"region_id" json:"regionId,omitempty"`
	AssignedToAgentID *string     `db:"assigned_to_agent_id" json:"assignedToAgentId,omitempty"`
	AssignedAt        *time.Time  `db:"assigned_at" json:"assignedAt,omitempty"`
	CreatedAt         time.Time   `db:"created_at" json:"createdAt"`
	UpdatedAt         time.Time   `db:"updated_at" json:"updatedAt"`

	Region *Region `db:"-" json:"region,omitempty"`
	Agent  *Agent  `db:"-" json:"agent,omitempty"`
}

// StockStats counts units by status and type.
type StockStats struct {
	Total       int `json:"total"`
	InStore     int `json:"inStore"`
	InHand      int `json:"inHand"`
	Sold        int `json:"sold"`
	FullSet     int `json:"fullSet"`
	DecoderOnly int `json:"decoderOnly"`
}
