// Package checkout implements the multi-table atomic conversion of cart
// or shopping-list items into permanent inventory and price-history rows.
//
// The entire conversion — inventory inserts, price-history inserts, and
// clearing or completing the source collection — commits as one
// transaction. On any failure nothing is persisted and the caller
// receives a single aggregate error. Once started, a checkout runs to
// completion: no cancellation is consulted inside the transaction body.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/zhiliushi/pantry/internal/model"
	"github.com/zhiliushi/pantry/internal/store"
)

// ErrEmptyCheckout is returned before any write when the eligible item
// set is empty.
var ErrEmptyCheckout = errors.New("checkout: no eligible items")

// Override adjusts one source item during checkout.
type Override struct {
	Location   *string
	ExpiryDate *time.Time
}

// Result reports what a successful checkout created.
type Result struct {
	InventoryIDs   []string
	PriceRecordIDs []string
	TotalPrice     float64
}

// Checkout converts cart and list items into inventory + price history.
type Checkout struct {
	db *store.DB
}

// New creates a checkout runner over the store.
func New(db *store.DB) *Checkout {
	return &Checkout{db: db}
}

// sourceItem is the common shape of a cart or purchased list item.
type sourceItem struct {
	ID         string
	Name       string
	Barcode    *string
	Brand      *string
	Quantity   float64
	Price      *float64
	Weight     *float64
	WeightUnit *string
}

// Cart converts the owner's entire cart. Every cart row becomes one
// active inventory row; rows carrying both a price and a barcode also
// produce one price-history row. The cart is emptied in the same
// transaction.
func (c *Checkout) Cart(ctx context.Context, ownerID, storeID, defaultLocation string, overrides map[string]Override) (*Result, error) {
	var cart []model.CartItem
	err := c.db.Conn().SelectContext(ctx, &cart, `
		SELECT id, owner_id, name, barcode, brand, quantity, price, weight, weight_unit,
			expires_at, created_at, updated_at
		FROM cart_items WHERE owner_id = ? ORDER BY created_at ASC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("checkout: failed to read cart: %w", err)
	}
	if len(cart) == 0 {
		return nil, ErrEmptyCheckout
	}

	sources := make([]sourceItem, len(cart))
	for i, ci := range cart {
		sources[i] = sourceItem{
			ID: ci.ID, Name: ci.Name, Barcode: ci.Barcode, Brand: ci.Brand,
			Quantity: ci.Quantity, Price: ci.Price, Weight: ci.Weight, WeightUnit: ci.WeightUnit,
		}
	}

	result := &Result{}
	err = c.db.InTx(ctx, func(tx *store.Tx) error {
		if err := c.stageItems(ctx, tx, sources, ownerID, storeID, defaultLocation, overrides, result); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM cart_items WHERE owner_id = ?`, ownerID); err != nil {
			return fmt.Errorf("checkout: failed to clear cart: %w", err)
		}
		tx.MarkChanged(store.TableCartItems)
		tx.MarkChanged(store.TableInventory)
		tx.MarkChanged(store.TablePriceHistory)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// List converts a shopping list's purchased items and marks the list
// checked out: is_completed, is_checked_out, checkout_date, store_id and
// total_price (Σ price × quantity over purchased items) are set together
// in the same transaction.
func (c *Checkout) List(ctx context.Context, listID, storeID, defaultLocation string, overrides map[string]Override) (*Result, error) {
	var list model.ShoppingList
	err := c.db.Conn().GetContext(ctx, &list, `
		SELECT id, owner_id, name, is_completed, is_checked_out, checkout_date,
			store_id, total_price, created_at, updated_at
		FROM shopping_lists WHERE id = ?`, listID)
	if err != nil {
		return nil, fmt.Errorf("checkout: failed to read list %s: %w", listID, err)
	}
	if list.IsCheckedOut {
		return nil, fmt.Errorf("checkout: list %s is already checked out", listID)
	}

	var items []model.ListItem
	err = c.db.Conn().SelectContext(ctx, &items, `
		SELECT id, list_id, name, barcode, quantity, price, weight, weight_unit,
			is_purchased, created_at, updated_at
		FROM list_items WHERE list_id = ? AND is_purchased = 1 ORDER BY created_at ASC`, listID)
	if err != nil {
		return nil, fmt.Errorf("checkout: failed to read list items: %w", err)
	}
	if len(items) == 0 {
		return nil, ErrEmptyCheckout
	}

	sources := make([]sourceItem, len(items))
	total := 0.0
	for i, li := range items {
		sources[i] = sourceItem{
			ID: li.ID, Name: li.Name, Barcode: li.Barcode,
			Quantity: li.Quantity, Price: li.Price, Weight: li.Weight, WeightUnit: li.WeightUnit,
		}
		if li.Price != nil {
			total += *li.Price * li.Quantity
		}
	}

	now := time.Now()
	result := &Result{TotalPrice: total}
	err = c.db.InTx(ctx, func(tx *store.Tx) error {
		if err := c.stageItems(ctx, tx, sources, list.OwnerID, storeID, defaultLocation, overrides, result); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, `
			UPDATE shopping_lists
			SET is_completed = 1, is_checked_out = 1, checkout_date = ?,
				store_id = ?, total_price = ?, updated_at = ?
			WHERE id = ? AND is_checked_out = 0`,
			now, storeID, total, now, listID)
		if err != nil {
			return fmt.Errorf("checkout: failed to complete list: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("checkout: list %s changed underneath the transaction", listID)
		}
		tx.MarkChanged(store.TableLists)
		tx.MarkChanged(store.TableInventory)
		tx.MarkChanged(store.TablePriceHistory)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// stageItems inserts one inventory row per source item and, for items
// carrying both a price and a barcode, one immutable price-history row
// with price_per_unit = price / weight when the weight is known.
func (c *Checkout) stageItems(ctx context.Context, tx *store.Tx, sources []sourceItem, ownerID, storeID, defaultLocation string, overrides map[string]Override, result *Result) error {
	now := time.Now()
	for _, src := range sources {
		location := defaultLocation
		var expiry *time.Time
		if ov, ok := overrides[src.ID]; ok {
			if ov.Location != nil {
				location = *ov.Location
			}
			expiry = ov.ExpiryDate
		}

		purchase := now
		item := &model.InventoryItem{
			OwnerID:         ownerID,
			Name:            src.Name,
			Barcode:         src.Barcode,
			Brand:           src.Brand,
			Quantity:        src.Quantity,
			Location:        location,
			ExpiryDate:      expiry,
			Price:           src.Price,
			PurchaseDate:    &purchase,
			ExpiryConfirmed: expiry != nil,
			Status:          model.StatusActive,
		}
		item.SetDefaults(now)
		if err := item.Validate(); err != nil {
			return fmt.Errorf("checkout: item %q invalid: %w", src.Name, err)
		}
		if _, err := tx.NamedExecContext(ctx, insertInventoryCheckoutSQL, item); err != nil {
			return fmt.Errorf("checkout: failed to insert inventory row for %q: %w", src.Name, err)
		}
		result.InventoryIDs = append(result.InventoryIDs, item.ID)

		if src.Price == nil || src.Barcode == nil || *src.Barcode == "" {
			continue
		}
		record := &model.PriceRecord{
			OwnerID:      ownerID,
			Barcode:      *src.Barcode,
			ProductName:  &src.Name,
			StoreID:      storeID,
			Price:        *src.Price,
			PricePerUnit: perUnitPrice(*src.Price, src.Weight),
			WeightUnit:   src.WeightUnit,
			PurchaseDate: now,
		}
		record.SetDefaults(now)
		if err := record.Validate(); err != nil {
			return fmt.Errorf("checkout: price record for %q invalid: %w", src.Name, err)
		}
		if _, err := tx.NamedExecContext(ctx, `
			INSERT INTO price_history (id, owner_id, barcode, product_name, store_id,
				price, price_per_unit, weight_unit, purchase_date, created_at)
			VALUES (:id, :owner_id, :barcode, :product_name, :store_id,
				:price, :price_per_unit, :weight_unit, :purchase_date, :created_at)`,
			record); err != nil {
			return fmt.Errorf("checkout: failed to insert price record for %q: %w", src.Name, err)
		}
		result.PriceRecordIDs = append(result.PriceRecordIDs, record.ID)
	}
	return nil
}

// perUnitPrice returns price/weight, or nil when the weight is unknown
// or zero.
func perUnitPrice(price float64, weight *float64) *float64 {
	if weight == nil || *weight <= 0 {
		return nil
	}
	v := price / *weight
	return &v
}

const insertInventoryCheckoutSQL = `
	INSERT INTO inventory_items (id, owner_id, name, barcode, brand, image_url,
		category_id, unit_id, quantity, location, expiry_date, price, purchase_date,
		source_scan_id, is_important, restock_threshold, expiry_confirmed, needs_review,
		synced_to_cloud, status, consumed_date, reason, quantity_remaining,
		added_date, created_at, updated_at)
	VALUES (:id, :owner_id, :name, :barcode, :brand, :image_url,
		:category_id, :unit_id, :quantity, :location, :expiry_date, :price, :purchase_date,
		:source_scan_id, :is_important, :restock_threshold, :expiry_confirmed, :needs_review,
		:synced_to_cloud, :status, :consumed_date, :reason, :quantity_remaining,
		:added_date, :created_at, :updated_at)`
