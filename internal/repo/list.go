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

// ListRepo manages shopping lists and their items.
type ListRepo struct {
	db *store.DB
}

// NewListRepo creates a shopping-list repository.
func NewListRepo(db *store.DB) *ListRepo {
	return &ListRepo{db: db}
}

const listCols = `id, owner_id, name, is_completed, is_checked_out, checkout_date,
	store_id, total_price, created_at, updated_at`

const listItemCols = `id, list_id, name, barcode, quantity, price, weight, weight_unit,
	is_purchased, created_at, updated_at`

// CreateList validates and inserts a shopping list.
func (r *ListRepo) CreateList(ctx context.Context, list *model.ShoppingList) error {
	list.SetDefaults(time.Now())
	if err := list.Validate(); err != nil {
		return err
	}
	return r.db.InTx(ctx, func(tx *store.Tx) error {
		_, err := tx.NamedExecContext(ctx, `
			INSERT INTO shopping_lists (`+listCols+`)
			VALUES (:id, :owner_id, :name, :is_completed, :is_checked_out, :checkout_date,
				:store_id, :total_price, :created_at, :updated_at)`, list)
		if err != nil {
			return fmt.Errorf("failed to insert shopping list: %w", err)
		}
		tx.MarkChanged(store.TableLists)
		return nil
	})
}

// GetList returns one list, or ErrNotFound.
func (r *ListRepo) GetList(ctx context.Context, id string) (*model.ShoppingList, error) {
	var list model.ShoppingList
	err := r.db.Conn().GetContext(ctx, &list,
		`SELECT `+listCols+` FROM shopping_lists WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get shopping list %s: %w", id, err)
	}
	return &list, nil
}

// ListsByOwner returns an owner's lists, newest first.
func (r *ListRepo) ListsByOwner(ctx context.Context, ownerID string) ([]model.ShoppingList, error) {
	var lists []model.ShoppingList
	err := r.db.Conn().SelectContext(ctx, &lists,
		`SELECT `+listCols+` FROM shopping_lists WHERE owner_id = ? ORDER BY created_at DESC`,
		ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list shopping lists: %w", err)
	}
	return lists, nil
}

// AddItem validates and inserts a list item, bumping the parent list's
// update timestamp in the same transaction.
func (r *ListRepo) AddItem(ctx context.Context, item *model.ListItem) error {
	now := time.Now()
	item.SetDefaults(now)
	if err := item.Validate(); err != nil {
		return err
	}
	return r.db.InTx(ctx, func(tx *store.Tx) error {
		if _, err := tx.NamedExecContext(ctx, `
			INSERT INTO list_items (`+listItemCols+`)
			VALUES (:id, :list_id, :name, :barcode, :quantity, :price, :weight,
				:weight_unit, :is_purchased, :created_at, :updated_at)`, item); err != nil {
			return fmt.Errorf("failed to insert list item: %w", err)
		}
		res, err := tx.ExecContext(ctx,
			`UPDATE shopping_lists SET updated_at = ? WHERE id = ?`, now, item.ListID)
		if err != nil {
			return fmt.Errorf("failed to touch parent list: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("add item to %s: %w", item.ListID, ErrNotFound)
		}
		tx.MarkChanged(store.TableLists)
		tx.MarkChanged(store.TableListItems)
		return nil
	})
}

// Items returns a list's items, oldest first.
func (r *ListRepo) Items(ctx context.Context, listID string) ([]model.ListItem, error) {
	var items []model.ListItem
	err := r.db.Conn().SelectContext(ctx, &items,
		`SELECT `+listItemCols+` FROM list_items WHERE list_id = ? ORDER BY created_at ASC`,
		listID)
	if err != nil {
		return nil, fmt.Errorf("failed to list items for %s: %w", listID, err)
	}
	return items, nil
}

// SetItemPurchased toggles the purchased flag, marking the item eligible
// for list checkout.
func (r *ListRepo) SetItemPurchased(ctx context.Context, itemID string, purchased bool) error {
	now := time.Now()
	return r.db.InTx(ctx, func(tx *store.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE list_items SET is_purchased = ?, updated_at = ? WHERE id = ?`,
			purchased, now, itemID)
		if err != nil {
			return fmt.Errorf("failed to set purchased on %s: %w", itemID, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("set purchased %s: %w", itemID, ErrNotFound)
		}
		tx.MarkChanged(store.TableListItems)
		return nil
	})
}

// DeleteList removes a list and (by cascade) its items. Idempotent.
func (r *ListRepo) DeleteList(ctx context.Context, id string) error {
	return r.db.InTx(ctx, func(tx *store.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM shopping_lists WHERE id = ?`, id); err != nil {
			return fmt.Errorf("failed to delete list %s: %w", id, err)
		}
		tx.MarkChanged(store.TableLists)
		tx.MarkChanged(store.TableListItems)
		return nil
	})
}

// UpsertItem writes a list item verbatim, timestamps preserved. Used by
// restore paths; interactive adds go through AddItem.
func (r *ListRepo) UpsertItem(ctx context.Context, item *model.ListItem) error {
	if err := item.Validate(); err != nil {
		return err
	}
	return r.db.InTx(ctx, func(tx *store.Tx) error {
		_, err := tx.NamedExecContext(ctx, `
			INSERT INTO list_items (`+listItemCols+`)
			VALUES (:id, :list_id, :name, :barcode, :quantity, :price, :weight,
				:weight_unit, :is_purchased, :created_at, :updated_at)
			ON CONFLICT(id) DO UPDATE SET
				name = excluded.name, barcode = excluded.barcode,
				quantity = excluded.quantity, price = excluded.price,
				weight = excluded.weight, weight_unit = excluded.weight_unit,
				is_purchased = excluded.is_purchased, updated_at = excluded.updated_at`, item)
		if err != nil {
			return fmt.Errorf("failed to upsert list item %s: %w", item.ID, err)
		}
		tx.MarkChanged(store.TableListItems)
		return nil
	})
}

// Upsert writes a list row from reconciliation verbatim, preserving its
// remote timestamps.
func (r *ListRepo) Upsert(ctx context.Context, list *model.ShoppingList) error {
	if err := list.Validate(); err != nil {
		return err
	}
	return r.db.InTx(ctx, func(tx *store.Tx) error {
		_, err := tx.NamedExecContext(ctx, `
			INSERT INTO shopping_lists (`+listCols+`)
			VALUES (:id, :owner_id, :name, :is_completed, :is_checked_out, :checkout_date,
				:store_id, :total_price, :created_at, :updated_at)
			ON CONFLICT(id) DO UPDATE SET
				name = excluded.name, is_completed = excluded.is_completed,
				is_checked_out = excluded.is_checked_out, checkout_date = excluded.checkout_date,
				store_id = excluded.store_id, total_price = excluded.total_price,
				updated_at = excluded.updated_at`, list)
		if err != nil {
			return fmt.Errorf("failed to upsert shopping list %s: %w", list.ID, err)
		}
		tx.MarkChanged(store.TableLists)
		return nil
	})
}
