package model

import (
	"time"

	"github.com/google/uuid"
)

// ShoppingList is a named collection of desired purchases. Checkout turns
// a list into a purchase record: IsCompleted, IsCheckedOut, CheckoutDate,
// StoreID and TotalPrice are always set together, in one transaction.
type ShoppingList struct {
	ID      string `db:"id" json:"id"`
	OwnerID string `db:"owner_id" json:"owner_id" validate:"required"`
	Name    string `db:"name" json:"name" validate:"required"`

	IsCompleted  bool       `db:"is_completed" json:"is_completed"`
	IsCheckedOut bool       `db:"is_checked_out" json:"is_checked_out"`
	CheckoutDate *time.Time `db:"checkout_date" json:"checkout_date,omitempty"`
	StoreID      *string    `db:"store_id" json:"store_id,omitempty"`
	TotalPrice   *float64   `db:"total_price" json:"total_price,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// SetDefaults fills identity and timestamps when unset.
func (l *ShoppingList) SetDefaults(now time.Time) {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	if l.CreatedAt.IsZero() {
		l.CreatedAt = now
	}
	l.UpdatedAt = now
}

// Validate checks field-level rules.
func (l *ShoppingList) Validate() error {
	if errs := checkStruct(l); errs != nil {
		return errs
	}
	return nil
}

// ListItem is one desired purchase inside a shopping list. IsPurchased
// flags it eligible for list checkout.
type ListItem struct {
	ID     string `db:"id" json:"id"`
	ListID string `db:"list_id" json:"list_id" validate:"required"`
	Name   string `db:"name" json:"name" validate:"required"`

	Barcode    *string  `db:"barcode" json:"barcode,omitempty"`
	Quantity   float64  `db:"quantity" json:"quantity" validate:"gt=0"`
	Price      *float64 `db:"price" json:"price,omitempty"`
	Weight     *float64 `db:"weight" json:"weight,omitempty"`
	WeightUnit *string  `db:"weight_unit" json:"weight_unit,omitempty"`

	IsPurchased bool `db:"is_purchased" json:"is_purchased"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// SetDefaults fills identity and timestamps when unset.
func (li *ListItem) SetDefaults(now time.Time) {
	if li.ID == "" {
		li.ID = uuid.NewString()
	}
	if li.Quantity == 0 {
		li.Quantity = 1
	}
	if li.CreatedAt.IsZero() {
		li.CreatedAt = now
	}
	li.UpdatedAt = now
}

// Validate checks field-level rules.
func (li *ListItem) Validate() error {
	if errs := checkStruct(li); errs != nil {
		return errs
	}
	return nil
}
