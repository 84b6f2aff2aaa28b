package models

import "time"

// PeriodLayout is the "YYYY-MM" form used for closed months.
const PeriodLayout = "2006-01"

// PeriodSnapshot is one agent's sales count in a closed month.
type PeriodSnapshot struct {
	ID         string    `db:"id" json:"id"`
	Period     string    `db:"period" json:"period"`
	AgentID    string    `db:"agent_id" json:"agentId"`
	RegionID   *string   `db:"region_id" json:"regionId,omitempty"`
	SalesCount int       `db:"sales_count" json:"salesCount"`
	ClosedAt   time.Time `db:"closed_at" json:"closedAt"`
}

// PeriodClosure marks a month as closed, even when nobody sold in it.
type PeriodClosure struct {
	Period     string    `db:"period" json:"period"`
	AgentCount int       `db:"agent_count" json:"agentCount"`
	SalesCount int       `db:"sales_count" json:"salesCount"`
	ClosedAt   time.Time `db:"closed_at" json:"closedAt"`
	ArchiveKey *string   `db:"archive_key" json:"archiveKey,omitempty"`
}
