package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/zhiliushi/pantry/internal/model"
	"github.com/zhiliushi/pantry/internal/store"
)

// ErrNotFound is returned when a row does not exist.
var ErrNotFound = errors.New("not found")

// ScannedRepo manages stage-1 scan records.
type ScannedRepo struct {
	db  *store.DB
	ttl time.Duration
}

// NewScannedRepo creates a scanned-item repository with the default scan TTL.
func NewScannedRepo(db *store.DB) *ScannedRepo {
	return &ScannedRepo{db: db, ttl: model.ScanTTL}
}

// WithTTL overrides the expiry window for scans created through this
// repository. Non-positive values keep the default.
func (r *ScannedRepo) WithTTL(ttl time.Duration) *ScannedRepo {
	if ttl > 0 {
		r.ttl = ttl
	}
	return r
}

const scannedCols = `id, owner_id, barcode, name, brand, image_url, raw_payload,
	scanned_at, expires_at, created_at, updated_at`

// Create validates and inserts a scan row, applying the repository's TTL
// unless the caller preset an expiry.
func (r *ScannedRepo) Create(ctx context.Context, item *model.ScannedItem) error {
	now := time.Now()
	if item.ExpiresAt.IsZero() {
		scannedAt := item.ScannedAt
		if scannedAt.IsZero() {
			scannedAt = now
		}
		item.ExpiresAt = scannedAt.Add(r.ttl)
	}
	item.SetDefaults(now)
	if err := item.Validate(); err != nil {
		return err
	}
	return r.db.InTx(ctx, func(tx *store.Tx) error {
		_, err := tx.NamedExecContext(ctx, `
			INSERT INTO scanned_items (`+scannedCols+`)
			VALUES (:id, :owner_id, :barcode, :name, :brand, :image_url, :raw_payload,
				:scanned_at, :expires_at, :created_at, :updated_at)`, item)
		if err != nil {
			return fmt.Errorf("failed to insert scanned item: %w", err)
		}
		tx.MarkChanged(store.TableScannedItems)
		return nil
	})
}

// Get returns one scan row, or ErrNotFound.
func (r *ScannedRepo) Get(ctx context.Context, id string) (*model.ScannedItem, error) {
	var item model.ScannedItem
	err := r.db.Conn().GetContext(ctx, &item,
		`SELECT `+scannedCols+` FROM scanned_items WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get scanned item %s: %w", id, err)
	}
	return &item, nil
}

// ListByOwner returns an owner's pending scans, newest first.
func (r *ScannedRepo) ListByOwner(ctx context.Context, ownerID string) ([]model.ScannedItem, error) {
	var items []model.ScannedItem
	err := r.db.Conn().SelectContext(ctx, &items,
		`SELECT `+scannedCols+` FROM scanned_items WHERE owner_id = ? ORDER BY scanned_at DESC`,
		ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list scanned items: %w", err)
	}
	return items, nil
}

// Delete removes a scan row. Idempotent: deleting a missing row is nil.
func (r *ScannedRepo) Delete(ctx context.Context, id string) error {
	return r.db.InTx(ctx, func(tx *store.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM scanned_items WHERE id = ?`, id); err != nil {
			return fmt.Errorf("failed to delete scanned item %s: %w", id, err)
		}
		tx.MarkChanged(store.TableScannedItems)
		return nil
	})
}

// PromotionInput carries the user-supplied fields that turn a scan into
// active inventory.
type PromotionInput struct {
	CategoryID *string
	UnitID     *string
	Quantity   float64
	Location   string
	ExpiryDate *time.Time
	Price      *float64
}

// Promote converts a stage-1 scan into a stage-2 inventory row and
// permanently deletes the scan, atomically: both effects happen in one
// transaction or neither does. The new row carries the scan's identity
// fields and links back through SourceScanID.
func (r *ScannedRepo) Promote(ctx context.Context, scanID string, in PromotionInput) (*model.InventoryItem, error) {
	scan, err := r.Get(ctx, scanID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	name := scan.Barcode
	if scan.Name != nil && *scan.Name != "" {
		name = *scan.Name
	}
	item := &model.InventoryItem{
		OwnerID:         scan.OwnerID,
		Name:            name,
		Barcode:         &scan.Barcode,
		Brand:           scan.Brand,
		ImageURL:        scan.ImageURL,
		CategoryID:      in.CategoryID,
		UnitID:          in.UnitID,
		Quantity:        in.Quantity,
		Location:        in.Location,
		ExpiryDate:      in.ExpiryDate,
		Price:           in.Price,
		SourceScanID:    &scan.ID,
		ExpiryConfirmed: in.ExpiryDate != nil,
		Status:          model.StatusActive,
	}
	item.SetDefaults(now)
	if err := item.Validate(); err != nil {
		return nil, err
	}

	err = r.db.InTx(ctx, func(tx *store.Tx) error {
		if _, err := tx.NamedExecContext(ctx, insertInventorySQL, item); err != nil {
			return fmt.Errorf("failed to insert promoted item: %w", err)
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM scanned_items WHERE id = ?`, scan.ID)
		if err != nil {
			return fmt.Errorf("failed to delete promoted scan: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			// The scan vanished between read and transaction; do not
			// create the inventory row from stale data.
			return fmt.Errorf("promote %s: %w", scan.ID, ErrNotFound)
		}
		tx.MarkChanged(store.TableScannedItems)
		tx.MarkChanged(store.TableInventory)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}
