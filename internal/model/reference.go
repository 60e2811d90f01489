package model

import (
	"time"

	"github.com/google/uuid"
)

// Category is a reference row used to group inventory items.
type Category struct {
	ID        string `db:"id" json:"id"`
	Name      string `db:"name" json:"name" validate:"required"`
	Icon      *string `db:"icon" json:"icon,omitempty"`
	SortOrder int     `db:"sort_order" json:"sort_order"`
}

// Unit is a reference row describing a quantity unit (kg, pcs, l, ...).
type Unit struct {
	ID     string `db:"id" json:"id"`
	Name   string `db:"name" json:"name" validate:"required"`
	Abbrev string `db:"abbrev" json:"abbrev" validate:"required"`
}

// GroceryStore is a physical shop, optionally geo-tagged, used to scope
// price comparison. Named to avoid colliding with the storage package.
type GroceryStore struct {
	ID      string `db:"id" json:"id"`
	OwnerID string `db:"owner_id" json:"owner_id" validate:"required"`
	Name    string `db:"name" json:"name" validate:"required"`

	Address   *string  `db:"address" json:"address,omitempty"`
	Latitude  *float64 `db:"latitude" json:"latitude,omitempty"`
	Longitude *float64 `db:"longitude" json:"longitude,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// SetDefaults fills identity and timestamps when unset.
func (s *GroceryStore) SetDefaults(now time.Time) {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now
	}
	s.UpdatedAt = now
}

// Validate checks field-level rules.
func (s *GroceryStore) Validate() error {
	if errs := checkStruct(s); errs != nil {
		return errs
	}
	return nil
}

// Foodbank is a global donation point. Foodbanks are not owned by any
// user and are pull-only: the sync cycle refreshes them from the remote
// store, local writes never push them back.
type Foodbank struct {
	ID   string `db:"id" json:"id"`
	Name string `db:"name" json:"name" validate:"required"`

	Address   *string  `db:"address" json:"address,omitempty"`
	Latitude  *float64 `db:"latitude" json:"latitude,omitempty"`
	Longitude *float64 `db:"longitude" json:"longitude,omitempty"`
	Phone     *string  `db:"phone" json:"phone,omitempty"`
	Website   *string  `db:"website" json:"website,omitempty"`

	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Validate checks field-level rules.
func (f *Foodbank) Validate() error {
	if errs := checkStruct(f); errs != nil {
		return errs
	}
	return nil
}
