package model

import (
	"time"

	"github.com/google/uuid"
)

// PriceRecord is an immutable price observation scoped to a store.
// Records are created only by the checkout transaction and never
// mutated afterwards; price comparison reads them by barcode.
type PriceRecord struct {
	ID      string `db:"id" json:"id"`
	OwnerID string `db:"owner_id" json:"owner_id" validate:"required"`
	Barcode string `db:"barcode" json:"barcode" validate:"required"`

	ProductName *string `db:"product_name" json:"product_name,omitempty"`
	StoreID     string  `db:"store_id" json:"store_id" validate:"required"`

	Price float64 `db:"price" json:"price" validate:"gt=0"`

	// PricePerUnit is price divided by weight, present only when the
	// source item carried a known weight.
	PricePerUnit *float64 `db:"price_per_unit" json:"price_per_unit,omitempty"`
	WeightUnit   *string  `db:"weight_unit" json:"weight_unit,omitempty"`

	PurchaseDate time.Time `db:"purchase_date" json:"purchase_date"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// SetDefaults fills identity and timestamps when unset.
func (p *PriceRecord) SetDefaults(now time.Time) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.PurchaseDate.IsZero() {
		p.PurchaseDate = now
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
}

// Validate checks field-level rules.
func (p *PriceRecord) Validate() error {
	if errs := checkStruct(p); errs != nil {
		return errs
	}
	return nil
}
