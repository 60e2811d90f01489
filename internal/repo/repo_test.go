package repo

import (
	"path/filepath"
	"testing"

	"github.com/zhiliushi/pantry/internal/store"
)

// testDB opens a fresh migrated database under a temp dir.
func testDB(t *testing.T) *store.DB {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func strPtr(s string) *string   { return &s }
func f64Ptr(f float64) *float64 { return &f }
