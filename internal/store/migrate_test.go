package store

import (
	"context"
	"path/filepath"
	"testing"
)

func TestMigrateFreshDatabase(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "pantry.db")

	db, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer db.Close()

	version, err := db.SchemaVersion(ctx)
	if err != nil {
		t.Fatalf("SchemaVersion failed: %v", err)
	}
	if want := len(migrations); version != want {
		t.Errorf("expected schema version %d, got %d", want, version)
	}

	// Every table must exist after migration.
	tables := []string{
		TableCategories, TableUnits, TableScannedItems, TableInventory,
		TableLists, TableListItems, TableAnalytics, TableStores,
		TableCartItems, TablePriceHistory, TableFoodbanks,
	}
	for _, table := range tables {
		var name string
		err := db.Conn().GetContext(ctx, &name,
			`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table)
		if err != nil {
			t.Errorf("table %s missing after migration: %v", table, err)
		}
	}
}

func TestMigrateIsIdempotent(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "pantry.db")

	db, err := Open(path)
	if err != nil {
		t.Fatalf("first Open failed: %v", err)
	}
	first, err := db.SchemaVersion(ctx)
	if err != nil {
		t.Fatalf("SchemaVersion failed: %v", err)
	}
	if err := db.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	// Reopening runs Migrate again; the version must not move and no
	// error may surface.
	db, err = Open(path)
	if err != nil {
		t.Fatalf("second Open failed: %v", err)
	}
	defer db.Close()

	second, err := db.SchemaVersion(ctx)
	if err != nil {
		t.Fatalf("SchemaVersion after reopen failed: %v", err)
	}
	if first != second {
		t.Errorf("schema version changed on reopen: %d -> %d", first, second)
	}
}

func TestMigrationVersionsAreOrdered(t *testing.T) {
	for i, m := range migrations {
		if m.version != i+1 {
			t.Errorf("migration at index %d has version %d, want %d", i, m.version, i+1)
		}
	}
}

func TestMigrationStepsRecorded(t *testing.T) {
	ctx := context.Background()
	db, err := Open(filepath.Join(t.TempDir(), "pantry.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer db.Close()

	var versions []int
	if err := db.Conn().SelectContext(ctx, &versions,
		`SELECT version FROM schema_version ORDER BY version`); err != nil {
		t.Fatalf("failed to read schema_version: %v", err)
	}
	if len(versions) != len(migrations) {
		t.Fatalf("expected %d recorded steps, got %d", len(migrations), len(versions))
	}
	for i, v := range versions {
		if v != i+1 {
			t.Errorf("recorded step %d has version %d", i, v)
		}
	}
}
