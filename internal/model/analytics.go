package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Analytics event types emitted by the lifecycle and checkout paths.
const (
	EventBarcodeScanned = "barcode_scanned"
	EventItemAdded      = "item_added"
	EventItemConsumed   = "item_consumed"
	EventItemRestored   = "item_restored"
	EventCheckout       = "checkout_completed"
	EventListCreated    = "list_created"
)

// AnalyticsEvent is an append-only usage event with a JSON payload.
// Events are pushed to the remote store in fixed-size batches and purged
// locally once synced and older than the retention window.
type AnalyticsEvent struct {
	ID        string          `db:"id" json:"id"`
	OwnerID   string          `db:"owner_id" json:"owner_id" validate:"required"`
	EventType string          `db:"event_type" json:"event_type" validate:"required"`
	EventData json.RawMessage `db:"event_data" json:"event_data,omitempty"`

	Timestamp time.Time  `db:"timestamp" json:"timestamp"`
	Synced    bool       `db:"synced" json:"synced"`
	SyncedAt  *time.Time `db:"synced_at" json:"synced_at,omitempty"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
}

// SetDefaults fills identity and timestamps when unset.
func (e *AnalyticsEvent) SetDefaults(now time.Time) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = now
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
}

// Validate checks field-level rules.
func (e *AnalyticsEvent) Validate() error {
	if errs := checkStruct(e); errs != nil {
		return errs
	}
	return nil
}

// UsageStats aggregates analytics events for one owner over a period.
type UsageStats struct {
	TotalScans      int     `json:"total_scans"`
	ItemsAdded      int     `json:"items_added"`
	ItemsConsumed   int     `json:"items_consumed"`
	ItemsExpired    int     `json:"items_expired"`
	ItemsDiscarded  int     `json:"items_discarded"`
	WastePercentage float64 `json:"waste_percentage"`
	TotalSpent      float64 `json:"total_spent"`
	EventCount      int     `json:"event_count"`
}
