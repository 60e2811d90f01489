package repo

import (
	"context"
	"fmt"
	"time"

	"github.com/zhiliushi/pantry/internal/model"
	"github.com/zhiliushi/pantry/internal/store"
)

// CartRepo manages TTL-bound pre-purchase cart rows.
type CartRepo struct {
	db  *store.DB
	ttl time.Duration
}

// NewCartRepo creates a cart repository with the default cart TTL.
func NewCartRepo(db *store.DB) *CartRepo {
	return &CartRepo{db: db, ttl: model.CartTTL}
}

// WithTTL overrides the expiry window for rows added through this
// repository. Non-positive values keep the default.
func (r *CartRepo) WithTTL(ttl time.Duration) *CartRepo {
	if ttl > 0 {
		r.ttl = ttl
	}
	return r
}

const cartCols = `id, owner_id, name, barcode, brand, quantity, price, weight, weight_unit,
	expires_at, created_at, updated_at`

// Add validates and inserts a cart row, applying the repository's TTL
// unless the caller preset an expiry.
func (r *CartRepo) Add(ctx context.Context, item *model.CartItem) error {
	now := time.Now()
	if item.ExpiresAt.IsZero() {
		createdAt := item.CreatedAt
		if createdAt.IsZero() {
			createdAt = now
		}
		item.ExpiresAt = createdAt.Add(r.ttl)
	}
	item.SetDefaults(now)
	if err := item.Validate(); err != nil {
		return err
	}
	return r.db.InTx(ctx, func(tx *store.Tx) error {
		_, err := tx.NamedExecContext(ctx, `
			INSERT INTO cart_items (`+cartCols+`)
			VALUES (:id, :owner_id, :name, :barcode, :brand, :quantity, :price, :weight,
				:weight_unit, :expires_at, :created_at, :updated_at)`, item)
		if err != nil {
			return fmt.Errorf("failed to insert cart item: %w", err)
		}
		tx.MarkChanged(store.TableCartItems)
		return nil
	})
}

// ListByOwner returns an owner's cart, oldest first (checkout order).
func (r *CartRepo) ListByOwner(ctx context.Context, ownerID string) ([]model.CartItem, error) {
	var items []model.CartItem
	err := r.db.Conn().SelectContext(ctx, &items,
		`SELECT `+cartCols+` FROM cart_items WHERE owner_id = ? ORDER BY created_at ASC`,
		ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list cart items: %w", err)
	}
	return items, nil
}

// Remove deletes one cart row. Idempotent.
func (r *CartRepo) Remove(ctx context.Context, id string) error {
	return r.db.InTx(ctx, func(tx *store.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM cart_items WHERE id = ?`, id); err != nil {
			return fmt.Errorf("failed to remove cart item %s: %w", id, err)
		}
		tx.MarkChanged(store.TableCartItems)
		return nil
	})
}

// Clear deletes an owner's entire cart, returning the number of rows
// removed.
func (r *CartRepo) Clear(ctx context.Context, ownerID string) (int, error) {
	var n int64
	err := r.db.InTx(ctx, func(tx *store.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM cart_items WHERE owner_id = ?`, ownerID)
		if err != nil {
			return fmt.Errorf("failed to clear cart: %w", err)
		}
		n, _ = res.RowsAffected()
		tx.MarkChanged(store.TableCartItems)
		return nil
	})
	return int(n), err
}
