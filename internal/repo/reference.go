package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/zhiliushi/pantry/internal/model"
	"github.com/zhiliushi/pantry/internal/store"
)

// ReferenceRepo manages the lookup tables: categories, units, stores and
// the global pull-only foodbank directory.
type ReferenceRepo struct {
	db *store.DB
}

// NewReferenceRepo creates a reference-data repository.
func NewReferenceRepo(db *store.DB) *ReferenceRepo {
	return &ReferenceRepo{db: db}
}

// UpsertCategory inserts or updates a category by name, so seeding the
// same file twice never duplicates rows.
func (r *ReferenceRepo) UpsertCategory(ctx context.Context, c *model.Category) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.Name == "" {
		return model.ValidationErrors{{Field: "Name", Message: "required"}}
	}
	return r.db.InTx(ctx, func(tx *store.Tx) error {
		_, err := tx.NamedExecContext(ctx, `
			INSERT INTO categories (id, name, icon, sort_order)
			VALUES (:id, :name, :icon, :sort_order)
			ON CONFLICT(name) DO UPDATE SET
				icon = excluded.icon, sort_order = excluded.sort_order`, c)
		if err != nil {
			return fmt.Errorf("failed to upsert category %s: %w", c.Name, err)
		}
		tx.MarkChanged(store.TableCategories)
		return nil
	})
}

// Categories returns all categories in sort order.
func (r *ReferenceRepo) Categories(ctx context.Context) ([]model.Category, error) {
	var cats []model.Category
	err := r.db.Conn().SelectContext(ctx, &cats,
		`SELECT id, name, icon, sort_order FROM categories ORDER BY sort_order, name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	return cats, nil
}

// CategoryByName returns one category, or ErrNotFound.
func (r *ReferenceRepo) CategoryByName(ctx context.Context, name string) (*model.Category, error) {
	var c model.Category
	err := r.db.Conn().GetContext(ctx, &c,
		`SELECT id, name, icon, sort_order FROM categories WHERE name = ?`, name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get category %s: %w", name, err)
	}
	return &c, nil
}

// UpsertUnit inserts or updates a unit.
func (r *ReferenceRepo) UpsertUnit(ctx context.Context, u *model.Unit) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.Name == "" || u.Abbrev == "" {
		return model.ValidationErrors{{Field: "Name", Message: "name and abbrev are required"}}
	}
	return r.db.InTx(ctx, func(tx *store.Tx) error {
		_, err := tx.NamedExecContext(ctx, `
			INSERT INTO units (id, name, abbrev) VALUES (:id, :name, :abbrev)
			ON CONFLICT(abbrev) DO UPDATE SET name = excluded.name`, u)
		if err != nil {
			return fmt.Errorf("failed to upsert unit %s: %w", u.Name, err)
		}
		tx.MarkChanged(store.TableUnits)
		return nil
	})
}

// Units returns all units.
func (r *ReferenceRepo) Units(ctx context.Context) ([]model.Unit, error) {
	var units []model.Unit
	err := r.db.Conn().SelectContext(ctx, &units,
		`SELECT id, name, abbrev FROM units ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list units: %w", err)
	}
	return units, nil
}

// UnitByAbbrev returns one unit by abbreviation, or ErrNotFound.
func (r *ReferenceRepo) UnitByAbbrev(ctx context.Context, abbrev string) (*model.Unit, error) {
	var u model.Unit
	err := r.db.Conn().GetContext(ctx, &u,
		`SELECT id, name, abbrev FROM units WHERE abbrev = ?`, abbrev)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get unit %s: %w", abbrev, err)
	}
	return &u, nil
}

// CreateStore validates and inserts a grocery store.
func (r *ReferenceRepo) CreateStore(ctx context.Context, s *model.GroceryStore) error {
	s.SetDefaults(time.Now())
	if err := s.Validate(); err != nil {
		return err
	}
	return r.db.InTx(ctx, func(tx *store.Tx) error {
		_, err := tx.NamedExecContext(ctx, `
			INSERT INTO stores (id, owner_id, name, address, latitude, longitude, created_at, updated_at)
			VALUES (:id, :owner_id, :name, :address, :latitude, :longitude, :created_at, :updated_at)`, s)
		if err != nil {
			return fmt.Errorf("failed to insert store: %w", err)
		}
		tx.MarkChanged(store.TableStores)
		return nil
	})
}

// StoresByOwner returns an owner's stores.
func (r *ReferenceRepo) StoresByOwner(ctx context.Context, ownerID string) ([]model.GroceryStore, error) {
	var stores []model.GroceryStore
	err := r.db.Conn().SelectContext(ctx, &stores,
		`SELECT id, owner_id, name, address, latitude, longitude, created_at, updated_at
		 FROM stores WHERE owner_id = ? ORDER BY name`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list stores: %w", err)
	}
	return stores, nil
}

// ReplaceFoodbanks refreshes the global foodbank directory from a remote
// pull. The table is replaced wholesale in one transaction; foodbanks
// never flow back to the remote store.
func (r *ReferenceRepo) ReplaceFoodbanks(ctx context.Context, banks []model.Foodbank) error {
	for i := range banks {
		if err := banks[i].Validate(); err != nil {
			return err
		}
	}
	return r.db.InTx(ctx, func(tx *store.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM foodbanks`); err != nil {
			return fmt.Errorf("failed to clear foodbanks: %w", err)
		}
		for i := range banks {
			if _, err := tx.NamedExecContext(ctx, `
				INSERT INTO foodbanks (id, name, address, latitude, longitude, phone, website, updated_at)
				VALUES (:id, :name, :address, :latitude, :longitude, :phone, :website, :updated_at)`,
				&banks[i]); err != nil {
				return fmt.Errorf("failed to insert foodbank %s: %w", banks[i].Name, err)
			}
		}
		tx.MarkChanged(store.TableFoodbanks)
		return nil
	})
}

// Foodbanks returns the cached global foodbank directory.
func (r *ReferenceRepo) Foodbanks(ctx context.Context) ([]model.Foodbank, error) {
	var banks []model.Foodbank
	err := r.db.Conn().SelectContext(ctx, &banks,
		`SELECT id, name, address, latitude, longitude, phone, website, updated_at
		 FROM foodbanks ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list foodbanks: %w", err)
	}
	return banks, nil
}
