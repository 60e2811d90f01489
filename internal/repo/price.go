package repo

import (
	"context"
	"fmt"

	"github.com/zhiliushi/pantry/internal/model"
	"github.com/zhiliushi/pantry/internal/store"
)

// PriceRepo reads the immutable price history. Rows are only ever
// created by the checkout transaction; this repository exposes no
// update or single-row insert path.
type PriceRepo struct {
	db *store.DB
}

// NewPriceRepo creates a price-history repository.
func NewPriceRepo(db *store.DB) *PriceRepo {
	return &PriceRepo{db: db}
}

const priceCols = `id, owner_id, barcode, product_name, store_id, price, price_per_unit,
	weight_unit, purchase_date, created_at`

// ByBarcode returns an owner's price observations for one barcode,
// newest purchase first, for cross-store comparison.
func (r *PriceRepo) ByBarcode(ctx context.Context, ownerID, barcode string) ([]model.PriceRecord, error) {
	var records []model.PriceRecord
	err := r.db.Conn().SelectContext(ctx, &records,
		`SELECT `+priceCols+` FROM price_history
		 WHERE owner_id = ? AND barcode = ? ORDER BY purchase_date DESC`,
		ownerID, barcode)
	if err != nil {
		return nil, fmt.Errorf("failed to query price history for %s: %w", barcode, err)
	}
	return records, nil
}

// ByStore returns an owner's price observations at one store.
func (r *PriceRepo) ByStore(ctx context.Context, ownerID, storeID string) ([]model.PriceRecord, error) {
	var records []model.PriceRecord
	err := r.db.Conn().SelectContext(ctx, &records,
		`SELECT `+priceCols+` FROM price_history
		 WHERE owner_id = ? AND store_id = ? ORDER BY purchase_date DESC`,
		ownerID, storeID)
	if err != nil {
		return nil, fmt.Errorf("failed to query price history for store %s: %w", storeID, err)
	}
	return records, nil
}

// CountByOwner returns the number of price observations for an owner.
func (r *PriceRepo) CountByOwner(ctx context.Context, ownerID string) (int, error) {
	var count int
	err := r.db.Conn().GetContext(ctx, &count,
		`SELECT COUNT(*) FROM price_history WHERE owner_id = ?`, ownerID)
	if err != nil {
		return 0, fmt.Errorf("failed to count price history: %w", err)
	}
	return count, nil
}
