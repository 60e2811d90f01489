// Package model defines the entity records persisted by the local store.
//
// Every per-user entity carries an owner identifier and RFC 3339
// creation/update timestamps; the update timestamp is what last-write-wins
// reconciliation compares during sync. Records are passive data: all
// mutation goes through the repositories in internal/repo, which open an
// explicit transaction, mutate, and commit.
package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ItemStatus is the lifecycle stage of an inventory item.
type ItemStatus string

const (
	// StatusActive is stage 2: the item sits in live inventory.
	StatusActive ItemStatus = "active"
	// StatusConsumed is stage 3: the item was used up normally.
	StatusConsumed ItemStatus = "consumed"
	// StatusExpired is stage 3: the item reached its expiry date.
	StatusExpired ItemStatus = "expired"
	// StatusDiscarded is stage 3: the user threw the item away.
	StatusDiscarded ItemStatus = "discarded"
)

// IsValid reports whether s is a known lifecycle status.
func (s ItemStatus) IsValid() bool {
	switch s {
	case StatusActive, StatusConsumed, StatusExpired, StatusDiscarded:
		return true
	}
	return false
}

// Terminal reports whether s is a stage-3 (consumed-family) status.
func (s ItemStatus) Terminal() bool {
	return s.IsValid() && s != StatusActive
}

// ConsumeReason records why an item left active inventory.
type ConsumeReason string

const (
	ReasonUsedUp    ConsumeReason = "used_up"
	ReasonExpired   ConsumeReason = "expired"
	ReasonDiscarded ConsumeReason = "discarded"
)

// IsValid reports whether r is a known consume reason.
func (r ConsumeReason) IsValid() bool {
	switch r {
	case ReasonUsedUp, ReasonExpired, ReasonDiscarded:
		return true
	}
	return false
}

// StatusFor maps a consume reason to the stage-3 status it produces.
func (r ConsumeReason) StatusFor() ItemStatus {
	switch r {
	case ReasonExpired:
		return StatusExpired
	case ReasonDiscarded:
		return StatusDiscarded
	default:
		return StatusConsumed
	}
}

// Default storage locations. The set is open ended: users may store any
// non-empty location string, these are just the ones the UI offers.
const (
	LocationFridge  = "fridge"
	LocationFreezer = "freezer"
	LocationPantry  = "pantry"
	LocationOther   = "other"
)

// ScanTTL is how long a stage-1 scan survives before the sweep deletes it.
const ScanTTL = 24 * time.Hour

// ScannedItem is a stage-1 record produced by a barcode scan. It is
// ephemeral: deleted on promotion to inventory or by the TTL sweep, and
// never pushed to the remote store.
type ScannedItem struct {
	ID       string  `db:"id" json:"id"`
	OwnerID  string  `db:"owner_id" json:"owner_id" validate:"required"`
	Barcode  string  `db:"barcode" json:"barcode" validate:"required"`
	Name     *string `db:"name" json:"name,omitempty"`
	Brand    *string `db:"brand" json:"brand,omitempty"`
	ImageURL *string `db:"image_url" json:"image_url,omitempty"`

	// RawPayload holds the unmodified lookup response for later review.
	RawPayload json.RawMessage `db:"raw_payload" json:"raw_payload,omitempty"`

	ScannedAt time.Time `db:"scanned_at" json:"scanned_at"`
	ExpiresAt time.Time `db:"expires_at" json:"expires_at"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// SetDefaults fills identity, timestamps and the scan TTL when unset.
func (s *ScannedItem) SetDefaults(now time.Time) {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.ScannedAt.IsZero() {
		s.ScannedAt = now
	}
	if s.ExpiresAt.IsZero() {
		s.ExpiresAt = s.ScannedAt.Add(ScanTTL)
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now
	}
	s.UpdatedAt = now
}

// Validate checks field-level rules and returns a ValidationErrors list.
func (s *ScannedItem) Validate() error {
	if errs := checkStruct(s); errs != nil {
		return errs
	}
	return nil
}

// InventoryItem is the unified stage-2/stage-3 record. Stage is carried
// by Status; the consumed fields are present exactly when the status is
// terminal. Barcode is deliberately not unique: repeat purchases produce
// multiple rows sharing one barcode.
type InventoryItem struct {
	ID      string `db:"id" json:"id"`
	OwnerID string `db:"owner_id" json:"owner_id" validate:"required"`
	Name    string `db:"name" json:"name" validate:"required"`

	Barcode    *string `db:"barcode" json:"barcode,omitempty"`
	Brand      *string `db:"brand" json:"brand,omitempty"`
	ImageURL   *string `db:"image_url" json:"image_url,omitempty"`
	CategoryID *string `db:"category_id" json:"category_id,omitempty"`
	UnitID     *string `db:"unit_id" json:"unit_id,omitempty"`

	Quantity float64 `db:"quantity" json:"quantity" validate:"gt=0"`
	Location string  `db:"location" json:"location" validate:"required"`

	ExpiryDate   *time.Time `db:"expiry_date" json:"expiry_date,omitempty"`
	Price        *float64   `db:"price" json:"price,omitempty"`
	PurchaseDate *time.Time `db:"purchase_date" json:"purchase_date,omitempty"`

	// SourceScanID links back to the stage-1 scan that produced this row,
	// when the item entered inventory through promotion.
	SourceScanID *string `db:"source_scan_id" json:"source_scan_id,omitempty"`

	IsImportant      bool     `db:"is_important" json:"is_important"`
	RestockThreshold *float64 `db:"restock_threshold" json:"restock_threshold,omitempty"`
	ExpiryConfirmed  bool     `db:"expiry_confirmed" json:"expiry_confirmed"`
	NeedsReview      bool     `db:"needs_review" json:"needs_review"`
	SyncedToCloud    bool     `db:"synced_to_cloud" json:"synced_to_cloud"`

	Status            ItemStatus     `db:"status" json:"status"`
	ConsumedDate      *time.Time     `db:"consumed_date" json:"consumed_date,omitempty"`
	Reason            *ConsumeReason `db:"reason" json:"reason,omitempty"`
	QuantityRemaining *float64       `db:"quantity_remaining" json:"quantity_remaining,omitempty"`

	AddedDate time.Time `db:"added_date" json:"added_date"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// SetDefaults fills identity, status and timestamps when unset.
func (it *InventoryItem) SetDefaults(now time.Time) {
	if it.ID == "" {
		it.ID = uuid.NewString()
	}
	if it.Status == "" {
		it.Status = StatusActive
	}
	if it.Location == "" {
		it.Location = LocationPantry
	}
	if it.AddedDate.IsZero() {
		it.AddedDate = now
	}
	if it.CreatedAt.IsZero() {
		it.CreatedAt = now
	}
	it.UpdatedAt = now
}

// Touch bumps the update timestamp; call before persisting a mutation.
func (it *InventoryItem) Touch(now time.Time) {
	it.UpdatedAt = now
}

// Validate checks field rules plus the lifecycle invariant:
// status != active ⇔ consumed_date and reason are set.
func (it *InventoryItem) Validate() error {
	errs := checkStruct(it)
	if !it.Status.IsValid() {
		errs = append(errs, FieldError{Field: "Status", Message: "unknown status " + string(it.Status)})
	}
	if it.Reason != nil && !it.Reason.IsValid() {
		errs = append(errs, FieldError{Field: "Reason", Message: "unknown reason " + string(*it.Reason)})
	}
	if it.Status.Terminal() {
		if it.ConsumedDate == nil {
			errs = append(errs, FieldError{Field: "ConsumedDate", Message: "required when status is " + string(it.Status)})
		}
		if it.Reason == nil {
			errs = append(errs, FieldError{Field: "Reason", Message: "required when status is " + string(it.Status)})
		}
	} else if it.Status == StatusActive {
		if it.ConsumedDate != nil {
			errs = append(errs, FieldError{Field: "ConsumedDate", Message: "must be empty while status is active"})
		}
		if it.Reason != nil {
			errs = append(errs, FieldError{Field: "Reason", Message: "must be empty while status is active"})
		}
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}
