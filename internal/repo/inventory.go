package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/zhiliushi/pantry/internal/model"
	"github.com/zhiliushi/pantry/internal/store"
)

// InventoryRepo manages stage-2/3 inventory rows and their lifecycle
// transitions.
type InventoryRepo struct {
	db *store.DB
}

// NewInventoryRepo creates an inventory repository.
func NewInventoryRepo(db *store.DB) *InventoryRepo {
	return &InventoryRepo{db: db}
}

const inventoryCols = `id, owner_id, name, barcode, brand, image_url, category_id, unit_id,
	quantity, location, expiry_date, price, purchase_date, source_scan_id,
	is_important, restock_threshold, expiry_confirmed, needs_review, synced_to_cloud,
	status, consumed_date, reason, quantity_remaining, added_date, created_at, updated_at`

const insertInventorySQL = `
	INSERT INTO inventory_items (` + inventoryCols + `)
	VALUES (:id, :owner_id, :name, :barcode, :brand, :image_url, :category_id, :unit_id,
		:quantity, :location, :expiry_date, :price, :purchase_date, :source_scan_id,
		:is_important, :restock_threshold, :expiry_confirmed, :needs_review, :synced_to_cloud,
		:status, :consumed_date, :reason, :quantity_remaining, :added_date, :created_at, :updated_at)`

// Create validates and inserts an inventory row. Manual adds skip stage 1
// and land directly in active inventory.
func (r *InventoryRepo) Create(ctx context.Context, item *model.InventoryItem) error {
	item.SetDefaults(time.Now())
	if err := item.Validate(); err != nil {
		return err
	}
	return r.db.InTx(ctx, func(tx *store.Tx) error {
		if _, err := tx.NamedExecContext(ctx, insertInventorySQL, item); err != nil {
			return fmt.Errorf("failed to insert inventory item: %w", err)
		}
		tx.MarkChanged(store.TableInventory)
		return nil
	})
}

// Get returns one inventory row, or ErrNotFound.
func (r *InventoryRepo) Get(ctx context.Context, id string) (*model.InventoryItem, error) {
	var item model.InventoryItem
	err := r.db.Conn().GetContext(ctx, &item,
		`SELECT `+inventoryCols+` FROM inventory_items WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get inventory item %s: %w", id, err)
	}
	return &item, nil
}

// ListFilter narrows List results. Zero values mean "no filter".
type ListFilter struct {
	Status      model.ItemStatus
	Location    string
	Barcode     string
	NeedsReview *bool
	Limit       int
}

// List returns an owner's inventory rows matching the filter, most
// recently updated first.
func (r *InventoryRepo) List(ctx context.Context, ownerID string, f ListFilter) ([]model.InventoryItem, error) {
	conditions := []string{"owner_id = ?"}
	args := []any{ownerID}
	if f.Status != "" {
		conditions = append(conditions, "status = ?")
		args = append(args, f.Status)
	}
	if f.Location != "" {
		conditions = append(conditions, "location = ?")
		args = append(args, f.Location)
	}
	if f.Barcode != "" {
		conditions = append(conditions, "barcode = ?")
		args = append(args, f.Barcode)
	}
	if f.NeedsReview != nil {
		conditions = append(conditions, "needs_review = ?")
		args = append(args, *f.NeedsReview)
	}
	query := `SELECT ` + inventoryCols + ` FROM inventory_items WHERE ` +
		strings.Join(conditions, " AND ") + ` ORDER BY updated_at DESC`
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	var items []model.InventoryItem
	if err := r.db.Conn().SelectContext(ctx, &items, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list inventory: %w", err)
	}
	return items, nil
}

// Update validates and fully rewrites an inventory row. Any edit clears
// the synced marker so the next sync cycle pushes the row again.
func (r *InventoryRepo) Update(ctx context.Context, item *model.InventoryItem) error {
	item.Touch(time.Now())
	item.SyncedToCloud = false
	if err := item.Validate(); err != nil {
		return err
	}
	return r.db.InTx(ctx, func(tx *store.Tx) error {
		res, err := tx.NamedExecContext(ctx, `
			UPDATE inventory_items SET
				name = :name, barcode = :barcode, brand = :brand, image_url = :image_url,
				category_id = :category_id, unit_id = :unit_id,
				quantity = :quantity, location = :location,
				expiry_date = :expiry_date, price = :price, purchase_date = :purchase_date,
				is_important = :is_important, restock_threshold = :restock_threshold,
				expiry_confirmed = :expiry_confirmed, needs_review = :needs_review,
				synced_to_cloud = :synced_to_cloud,
				status = :status, consumed_date = :consumed_date, reason = :reason,
				quantity_remaining = :quantity_remaining, updated_at = :updated_at
			WHERE id = :id`, item)
		if err != nil {
			return fmt.Errorf("failed to update inventory item %s: %w", item.ID, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("update %s: %w", item.ID, ErrNotFound)
		}
		tx.MarkChanged(store.TableInventory)
		return nil
	})
}

// Consume moves an active item to its stage-3 status for the given
// reason. quantityRemaining optionally records leftovers.
func (r *InventoryRepo) Consume(ctx context.Context, id string, reason model.ConsumeReason, quantityRemaining *float64) error {
	if !reason.IsValid() {
		return model.ValidationErrors{{Field: "Reason", Message: "unknown reason " + string(reason)}}
	}
	now := time.Now()
	return r.db.InTx(ctx, func(tx *store.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE inventory_items
			SET status = ?, reason = ?, consumed_date = ?, quantity_remaining = ?,
				synced_to_cloud = 0, updated_at = ?
			WHERE id = ? AND status = ?`,
			reason.StatusFor(), reason, now, quantityRemaining, now, id, model.StatusActive)
		if err != nil {
			return fmt.Errorf("failed to consume item %s: %w", id, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("consume %s: no active item: %w", id, ErrNotFound)
		}
		tx.MarkChanged(store.TableInventory)
		return nil
	})
}

// Restore reverses a consumption: clears the stage-3 fields and sets the
// item active again.
func (r *InventoryRepo) Restore(ctx context.Context, id string) error {
	now := time.Now()
	return r.db.InTx(ctx, func(tx *store.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE inventory_items
			SET status = ?, reason = NULL, consumed_date = NULL, quantity_remaining = NULL,
				synced_to_cloud = 0, updated_at = ?
			WHERE id = ? AND status != ?`,
			model.StatusActive, now, id, model.StatusActive)
		if err != nil {
			return fmt.Errorf("failed to restore item %s: %w", id, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("restore %s: no consumed item: %w", id, ErrNotFound)
		}
		tx.MarkChanged(store.TableInventory)
		return nil
	})
}

// ListUnsynced returns the owner's rows not yet pushed to the remote
// store, oldest update first so pushes replay in order.
func (r *InventoryRepo) ListUnsynced(ctx context.Context, ownerID string) ([]model.InventoryItem, error) {
	var items []model.InventoryItem
	err := r.db.Conn().SelectContext(ctx, &items,
		`SELECT `+inventoryCols+` FROM inventory_items
		 WHERE owner_id = ? AND synced_to_cloud = 0 ORDER BY updated_at ASC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list unsynced inventory: %w", err)
	}
	return items, nil
}

// MarkSynced sets the cloud marker on the given rows in one transaction.
func (r *InventoryRepo) MarkSynced(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.InTx(ctx, func(tx *store.Tx) error {
		query, args, err := buildInClause(
			`UPDATE inventory_items SET synced_to_cloud = 1 WHERE id IN (%s)`, ids)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("failed to mark inventory synced: %w", err)
		}
		tx.MarkChanged(store.TableInventory)
		return nil
	})
}

// Upsert writes a row from reconciliation verbatim, preserving its
// remote timestamps. Used when the remote copy wins a conflict.
func (r *InventoryRepo) Upsert(ctx context.Context, item *model.InventoryItem) error {
	if err := item.Validate(); err != nil {
		return err
	}
	return r.db.InTx(ctx, func(tx *store.Tx) error {
		_, err := tx.NamedExecContext(ctx, `
			INSERT INTO inventory_items (`+inventoryCols+`)
			VALUES (:id, :owner_id, :name, :barcode, :brand, :image_url, :category_id, :unit_id,
				:quantity, :location, :expiry_date, :price, :purchase_date, :source_scan_id,
				:is_important, :restock_threshold, :expiry_confirmed, :needs_review, :synced_to_cloud,
				:status, :consumed_date, :reason, :quantity_remaining, :added_date, :created_at, :updated_at)
			ON CONFLICT(id) DO UPDATE SET
				name = excluded.name, barcode = excluded.barcode, brand = excluded.brand,
				image_url = excluded.image_url, category_id = excluded.category_id,
				unit_id = excluded.unit_id, quantity = excluded.quantity,
				location = excluded.location, expiry_date = excluded.expiry_date,
				price = excluded.price, purchase_date = excluded.purchase_date,
				is_important = excluded.is_important, restock_threshold = excluded.restock_threshold,
				expiry_confirmed = excluded.expiry_confirmed, needs_review = excluded.needs_review,
				synced_to_cloud = excluded.synced_to_cloud, status = excluded.status,
				consumed_date = excluded.consumed_date, reason = excluded.reason,
				quantity_remaining = excluded.quantity_remaining, updated_at = excluded.updated_at`, item)
		if err != nil {
			return fmt.Errorf("failed to upsert inventory item %s: %w", item.ID, err)
		}
		tx.MarkChanged(store.TableInventory)
		return nil
	})
}

// Delete removes an inventory row. Idempotent.
func (r *InventoryRepo) Delete(ctx context.Context, id string) error {
	return r.db.InTx(ctx, func(tx *store.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM inventory_items WHERE id = ?`, id); err != nil {
			return fmt.Errorf("failed to delete inventory item %s: %w", id, err)
		}
		tx.MarkChanged(store.TableInventory)
		return nil
	})
}

// buildInClause expands ids into a ?,?,... placeholder list for the
// given query template.
func buildInClause(template string, ids []string) (string, []any, error) {
	if len(ids) == 0 {
		return "", nil, errors.New("empty id list")
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return fmt.Sprintf(template, placeholders), args, nil
}
