package models

import "time"

// Region is a sales territory. Name is unique by convention only.
type Region struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// Team groups agents, optionally inside a Region.
type Team struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	RegionID  *string   `db:"region_id" json:"regionId,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`

	Region *Region `db:"-" json:"region,omitempty"`
}
