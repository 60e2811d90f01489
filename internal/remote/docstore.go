// Package remote defines the external collaborators the core talks to:
// the per-owner document store used as the sync target, the thin API
// server fronting it, and the connectivity prober.
//
// The core never assumes these are reachable. Every call takes a
// context with its own timeout, and callers (the sync orchestrator and
// the offline request queue) own all retry and buffering policy.
package remote

import (
	"context"
	"errors"
	"time"
)

// MaxBatchOps is the document store's maximum operation count per
// atomic write group. Pushes exceeding it must be split by the caller.
const MaxBatchOps = 500

// ErrBatchTooLarge is returned by Commit when a write group exceeds the
// store's operation limit.
var ErrBatchTooLarge = errors.New("remote: write group exceeds operation limit")

// Collections exposed per owner by the document store.
const (
	CollectionInventory = "grocery_items"
	CollectionLists     = "shopping_lists"
	CollectionListItems = "shopping_list_items"
	CollectionAnalytics = "analytics"
	CollectionFoodbanks = "foodbanks"
)

// WriteOp is one document write inside an atomic group.
type WriteOp struct {
	Collection string         `json:"collection"`
	OwnerID    string         `json:"owner_id"`
	DocID      string         `json:"doc_id"`
	Data       map[string]any `json:"data,omitempty"`
	Delete     bool           `json:"delete,omitempty"`
}

// Document is one remote row as seen during reconciliation. UpdatedAt
// drives last-write-wins conflict resolution.
type Document struct {
	ID        string         `json:"id"`
	Data      map[string]any `json:"data"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// DocStore is the remote sync target: per-owner, per-entity collections
// with atomic bounded write groups.
type DocStore interface {
	// Commit applies one atomic write group. The whole group succeeds
	// or fails together. Groups larger than MaxBatchOps are rejected
	// with ErrBatchTooLarge before any network traffic.
	Commit(ctx context.Context, ops []WriteOp) error

	// List returns every document in one owner's collection.
	List(ctx context.Context, ownerID, collection string) ([]Document, error)
}

// Prober answers the preflight connectivity check. Implementations must
// be cheap enough to call between retry backoff steps.
type Prober interface {
	Online(ctx context.Context) bool
}

// ProberFunc adapts a function to the Prober interface.
type ProberFunc func(ctx context.Context) bool

// Online implements Prober.
func (f ProberFunc) Online(ctx context.Context) bool { return f(ctx) }
