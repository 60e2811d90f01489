package store

import (
	"context"
	"fmt"
)

// Table names, shared with repositories and hub subscribers.
const (
	TableCategories   = "categories"
	TableUnits        = "units"
	TableScannedItems = "scanned_items"
	TableInventory    = "inventory_items"
	TableLists        = "shopping_lists"
	TableListItems    = "list_items"
	TableAnalytics    = "analytics_events"
	TableStores       = "stores"
	TableCartItems    = "cart_items"
	TablePriceHistory = "price_history"
	TableFoodbanks    = "foodbanks"
)

// migration is one additive schema step. Steps are append-only: never
// edit a shipped step, add a new one.
type migration struct {
	version int
	name    string
	stmts   []string
}

var migrations = []migration{
	{
		version: 1,
		name:    "base tables",
		stmts: []string{
			`CREATE TABLE IF NOT EXISTS categories (
				id TEXT PRIMARY KEY,
				name TEXT NOT NULL UNIQUE,
				icon TEXT,
				sort_order INTEGER NOT NULL DEFAULT 0
			)`,
			`CREATE TABLE IF NOT EXISTS units (
				id TEXT PRIMARY KEY,
				name TEXT NOT NULL,
				abbrev TEXT NOT NULL UNIQUE
			)`,
			`CREATE TABLE IF NOT EXISTS scanned_items (
				id TEXT PRIMARY KEY,
				owner_id TEXT NOT NULL,
				barcode TEXT NOT NULL,
				name TEXT,
				brand TEXT,
				image_url TEXT,
				raw_payload TEXT,
				scanned_at DATETIME NOT NULL,
				expires_at DATETIME NOT NULL,
				created_at DATETIME NOT NULL,
				updated_at DATETIME NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS inventory_items (
				id TEXT PRIMARY KEY,
				owner_id TEXT NOT NULL,
				name TEXT NOT NULL,
				barcode TEXT,
				brand TEXT,
				image_url TEXT,
				category_id TEXT REFERENCES categories(id),
				unit_id TEXT REFERENCES units(id),
				quantity REAL NOT NULL,
				location TEXT NOT NULL,
				expiry_date DATETIME,
				price REAL,
				purchase_date DATETIME,
				source_scan_id TEXT,
				expiry_confirmed INTEGER NOT NULL DEFAULT 0,
				synced_to_cloud INTEGER NOT NULL DEFAULT 0,
				status TEXT NOT NULL DEFAULT 'active',
				consumed_date DATETIME,
				reason TEXT,
				quantity_remaining REAL,
				added_date DATETIME NOT NULL,
				created_at DATETIME NOT NULL,
				updated_at DATETIME NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS shopping_lists (
				id TEXT PRIMARY KEY,
				owner_id TEXT NOT NULL,
				name TEXT NOT NULL,
				is_completed INTEGER NOT NULL DEFAULT 0,
				is_checked_out INTEGER NOT NULL DEFAULT 0,
				checkout_date DATETIME,
				store_id TEXT,
				total_price REAL,
				created_at DATETIME NOT NULL,
				updated_at DATETIME NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS list_items (
				id TEXT PRIMARY KEY,
				list_id TEXT NOT NULL REFERENCES shopping_lists(id) ON DELETE CASCADE,
				name TEXT NOT NULL,
				barcode TEXT,
				quantity REAL NOT NULL,
				price REAL,
				weight REAL,
				weight_unit TEXT,
				is_purchased INTEGER NOT NULL DEFAULT 0,
				created_at DATETIME NOT NULL,
				updated_at DATETIME NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS analytics_events (
				id TEXT PRIMARY KEY,
				owner_id TEXT NOT NULL,
				event_type TEXT NOT NULL,
				event_data TEXT,
				timestamp DATETIME NOT NULL,
				synced INTEGER NOT NULL DEFAULT 0,
				synced_at DATETIME,
				created_at DATETIME NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS stores (
				id TEXT PRIMARY KEY,
				owner_id TEXT NOT NULL,
				name TEXT NOT NULL,
				address TEXT,
				latitude REAL,
				longitude REAL,
				created_at DATETIME NOT NULL,
				updated_at DATETIME NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS cart_items (
				id TEXT PRIMARY KEY,
				owner_id TEXT NOT NULL,
				name TEXT NOT NULL,
				barcode TEXT,
				brand TEXT,
				quantity REAL NOT NULL,
				price REAL,
				weight REAL,
				weight_unit TEXT,
				expires_at DATETIME NOT NULL,
				created_at DATETIME NOT NULL,
				updated_at DATETIME NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS price_history (
				id TEXT PRIMARY KEY,
				owner_id TEXT NOT NULL,
				barcode TEXT NOT NULL,
				product_name TEXT,
				store_id TEXT NOT NULL,
				price REAL NOT NULL,
				price_per_unit REAL,
				weight_unit TEXT,
				purchase_date DATETIME NOT NULL,
				created_at DATETIME NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_scanned_owner ON scanned_items(owner_id)`,
			`CREATE INDEX IF NOT EXISTS idx_scanned_expires ON scanned_items(expires_at)`,
			`CREATE INDEX IF NOT EXISTS idx_inventory_owner_status ON inventory_items(owner_id, status)`,
			`CREATE INDEX IF NOT EXISTS idx_inventory_barcode ON inventory_items(barcode)`,
			`CREATE INDEX IF NOT EXISTS idx_inventory_unsynced ON inventory_items(owner_id, synced_to_cloud)`,
			`CREATE INDEX IF NOT EXISTS idx_cart_owner ON cart_items(owner_id)`,
			`CREATE INDEX IF NOT EXISTS idx_cart_expires ON cart_items(expires_at)`,
			`CREATE INDEX IF NOT EXISTS idx_analytics_unsynced ON analytics_events(owner_id, synced)`,
			`CREATE INDEX IF NOT EXISTS idx_price_barcode ON price_history(barcode)`,
			`CREATE INDEX IF NOT EXISTS idx_list_items_list ON list_items(list_id)`,
		},
	},
	{
		version: 2,
		name:    "restock tracking and review flags",
		stmts: []string{
			`ALTER TABLE inventory_items ADD COLUMN is_important INTEGER NOT NULL DEFAULT 0`,
			`ALTER TABLE inventory_items ADD COLUMN restock_threshold REAL`,
			`ALTER TABLE inventory_items ADD COLUMN needs_review INTEGER NOT NULL DEFAULT 0`,
		},
	},
	{
		version: 3,
		name:    "foodbank directory",
		stmts: []string{
			`CREATE TABLE IF NOT EXISTS foodbanks (
				id TEXT PRIMARY KEY,
				name TEXT NOT NULL,
				address TEXT,
				latitude REAL,
				longitude REAL,
				phone TEXT,
				website TEXT,
				updated_at DATETIME NOT NULL
			)`,
		},
	},
}

// SchemaVersion returns the current schema version (0 when the database
// is brand new).
func (db *DB) SchemaVersion(ctx context.Context) (int, error) {
	if _, err := db.conn.ExecContext(ctx,
		`CREATE TABLE IF NOT EXISTS schema_version (version INTEGER NOT NULL)`); err != nil {
		return 0, fmt.Errorf("failed to ensure schema_version table: %w", err)
	}
	var version int
	err := db.conn.GetContext(ctx, &version,
		`SELECT COALESCE(MAX(version), 0) FROM schema_version`)
	if err != nil {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}
	return version, nil
}

// Migrate applies every pending migration step in order, each inside its
// own transaction that also records the new version. The version only
// ever increases; downgrades are not supported.
func (db *DB) Migrate(ctx context.Context) error {
	current, err := db.SchemaVersion(ctx)
	if err != nil {
		return err
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}
		if m.version != current+1 {
			return fmt.Errorf("migration gap: at version %d, next step is %d (%s)", current, m.version, m.name)
		}

		tx, err := db.conn.BeginTxx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin migration %d: %w", m.version, err)
		}
		ok := false
		func() {
			defer func() {
				if !ok {
					_ = tx.Rollback()
				}
			}()
			for _, stmt := range m.stmts {
				if _, err2 := tx.ExecContext(ctx, stmt); err2 != nil {
					err = fmt.Errorf("migration %d (%s) failed: %w", m.version, m.name, err2)
					return
				}
			}
			if _, err2 := tx.ExecContext(ctx,
				`INSERT INTO schema_version (version) VALUES (?)`, m.version); err2 != nil {
				err = fmt.Errorf("failed to record migration %d: %w", m.version, err2)
				return
			}
			if err2 := tx.Commit(); err2 != nil {
				err = fmt.Errorf("failed to commit migration %d: %w", m.version, err2)
				return
			}
			ok = true
		}()
		if !ok {
			return err
		}
		current = m.version
	}
	return nil
}
