package models

import "time"

type AgentStatus string

const (
	AgentActive   AgentStatus = "active"
	AgentInactive AgentStatus = "inactive"
)

// Valid reports whether s is a known agent status.
func (s AgentStatus) Valid() bool {
	return s == AgentActive || s == AgentInactive
}

// Agent is a field sales agent ("ESP"). TotalSales is a denormalized counter
// maintained by the sale engine and recomputed by reconcile.
type Agent struct {
	ID               string      `db:"id" json:"id"`
	Name             string      `db:"name" json:"name"`
	Phone            *string     `db:"phone" json:"phone,omitempty"`
	Email            *string     `db:"email" json:"email,omitempty"`
	TeamID           *string     `db:"team_id" json:"teamId,omitempty"`
	RegionID         *string     `db:"region_id" json:"regionId,omitempty"`
	District         *string     `db:"district" json:"district,omitempty"`
	PhysicalLocation *string     `db:"physical_location" json:"physicalLocation,omitempty"`
	Status           AgentStatus `db:"status" json:"status"`
	TotalSales       int         `db:"total_sales" json:"totalSales"`
	CreatedAt        time.Time   `db:"created_at" json:"createdAt"`
	UpdatedAt        time.Time   `db:"updated_at" json:"updatedAt"`

	Team   *Team   `db:"-" json:"team,omitempty"`
	Region *Region `db:"-" json:"region,omitempty"`
}

// IsActive reports whether the agent may receive stock.
func (a *Agent) IsActive() bool {
	return a.Status == AgentActive
}
