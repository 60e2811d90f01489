package model

import (
	"time"

	"github.com/google/uuid"
)

// CartTTL is how long a cart row survives before the sweep deletes it.
const CartTTL = 24 * time.Hour

// CartItem is a pre-purchase candidate. Cart rows are TTL-bound, never
// pushed to the remote store, and exist only to be consumed by checkout.
type CartItem struct {
	ID      string `db:"id" json:"id"`
	OwnerID string `db:"owner_id" json:"owner_id" validate:"required"`
	Name    string `db:"name" json:"name" validate:"required"`

	Barcode  *string `db:"barcode" json:"barcode,omitempty"`
	Brand    *string `db:"brand" json:"brand,omitempty"`
	Quantity float64 `db:"quantity" json:"quantity" validate:"gt=0"`

	// Price/weight are optional and only used for price comparison and
	// the per-unit price computed at checkout.
	Price      *float64 `db:"price" json:"price,omitempty"`
	Weight     *float64 `db:"weight" json:"weight,omitempty"`
	WeightUnit *string  `db:"weight_unit" json:"weight_unit,omitempty"`

	ExpiresAt time.Time `db:"expires_at" json:"expires_at"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// SetDefaults fills identity, timestamps and the cart TTL when unset.
func (c *CartItem) SetDefaults(now time.Time) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.Quantity == 0 {
		c.Quantity = 1
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	if c.ExpiresAt.IsZero() {
		c.ExpiresAt = c.CreatedAt.Add(CartTTL)
	}
	c.UpdatedAt = now
}

// Validate checks field-level rules.
func (c *CartItem) Validate() error {
	if errs := checkStruct(c); errs != nil {
		return errs
	}
	return nil
}
