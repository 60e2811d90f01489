package repo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/zhiliushi/pantry/internal/model"
)

func TestScannedCreateAppliesTTL(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	scans := NewScannedRepo(db)

	scan := &model.ScannedItem{OwnerID: "owner-1", Barcode: "012345678905"}
	if err := scans.Create(ctx, scan); err != nil {
		t.Fatalf("failed to create scan: %v", err)
	}

	got, err := scans.Get(ctx, scan.ID)
	if err != nil {
		t.Fatalf("failed to read scan back: %v", err)
	}
	want := got.ScannedAt.Add(model.ScanTTL)
	if !got.ExpiresAt.Equal(want) {
		t.Errorf("ExpiresAt = %v, want %v", got.ExpiresAt, want)
	}
}

func TestScannedCreateHonorsConfiguredTTL(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	scans := NewScannedRepo(db).WithTTL(2 * time.Hour)

	scan := &model.ScannedItem{OwnerID: "owner-1", Barcode: "012345678905"}
	if err := scans.Create(ctx, scan); err != nil {
		t.Fatalf("failed to create scan: %v", err)
	}

	got, err := scans.Get(ctx, scan.ID)
	if err != nil {
		t.Fatalf("failed to read scan back: %v", err)
	}
	want := got.ScannedAt.Add(2 * time.Hour)
	if !got.ExpiresAt.Equal(want) {
		t.Errorf("ExpiresAt = %v, want %v", got.ExpiresAt, want)
	}
}

func TestPromoteMovesScanToInventory(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	scans := NewScannedRepo(db)
	inventory := NewInventoryRepo(db)

	scan := &model.ScannedItem{
		OwnerID: "owner-1",
		Barcode: "012345678905",
		Name:    strPtr("Oat Milk"),
		Brand:   strPtr("Oatly"),
	}
	if err := scans.Create(ctx, scan); err != nil {
		t.Fatalf("failed to create scan: %v", err)
	}

	item, err := scans.Promote(ctx, scan.ID, PromotionInput{
		Quantity: 2,
		Location: model.LocationFridge,
	})
	if err != nil {
		t.Fatalf("failed to promote scan: %v", err)
	}

	if item.Status != model.StatusActive {
		t.Errorf("promoted status = %s, want active", item.Status)
	}
	if item.Name != "Oat Milk" {
		t.Errorf("promoted name = %q, want scan name", item.Name)
	}
	if item.Barcode == nil || *item.Barcode != "012345678905" {
		t.Error("promoted item did not carry the barcode")
	}
	if item.SourceScanID == nil || *item.SourceScanID != scan.ID {
		t.Error("promoted item does not link back to the scan")
	}

	// The scan row is gone and the inventory row is queryable.
	if _, err := scans.Get(ctx, scan.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected scan to be deleted, got err = %v", err)
	}
	active, err := inventory.List(ctx, "owner-1", ListFilter{Status: model.StatusActive})
	if err != nil {
		t.Fatalf("failed to list inventory: %v", err)
	}
	if len(active) != 1 {
		t.Fatalf("active inventory rows = %d, want 1", len(active))
	}
	if active[0].Quantity != 2 || active[0].Location != model.LocationFridge {
		t.Errorf("promoted row = %+v, want quantity 2 in fridge", active[0])
	}
}

func TestPromoteFallsBackToBarcodeName(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	scans := NewScannedRepo(db)

	scan := &model.ScannedItem{OwnerID: "owner-1", Barcode: "555"}
	if err := scans.Create(ctx, scan); err != nil {
		t.Fatalf("failed to create scan: %v", err)
	}
	item, err := scans.Promote(ctx, scan.ID, PromotionInput{Quantity: 1, Location: model.LocationPantry})
	if err != nil {
		t.Fatalf("failed to promote scan: %v", err)
	}
	if item.Name != "555" {
		t.Errorf("name = %q, want the barcode when lookup gave no name", item.Name)
	}
}

func TestPromoteMissingScan(t *testing.T) {
	db := testDB(t)
	scans := NewScannedRepo(db)

	_, err := scans.Promote(context.Background(), "no-such-scan", PromotionInput{
		Quantity: 1,
		Location: model.LocationPantry,
	})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestPromoteRejectsInvalidInput(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	scans := NewScannedRepo(db)

	scan := &model.ScannedItem{OwnerID: "owner-1", Barcode: "777"}
	if err := scans.Create(ctx, scan); err != nil {
		t.Fatalf("failed to create scan: %v", err)
	}

	_, err := scans.Promote(ctx, scan.ID, PromotionInput{Quantity: 0, Location: model.LocationFridge})
	if err == nil {
		t.Fatal("expected validation error for zero quantity")
	}

	// The scan must survive a failed promotion.
	if _, err := scans.Get(ctx, scan.ID); err != nil {
		t.Errorf("scan should still exist after failed promotion: %v", err)
	}
}

func TestScannedDeleteIsIdempotent(t *testing.T) {
	db := testDB(t)
	scans := NewScannedRepo(db)

	if err := scans.Delete(context.Background(), "missing"); err != nil {
		t.Errorf("deleting a missing scan should be nil, got %v", err)
	}
}

func TestScannedListByOwnerNewestFirst(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	scans := NewScannedRepo(db)

	older := &model.ScannedItem{OwnerID: "owner-1", Barcode: "1", ScannedAt: time.Now().Add(-time.Hour)}
	newer := &model.ScannedItem{OwnerID: "owner-1", Barcode: "2"}
	other := &model.ScannedItem{OwnerID: "owner-2", Barcode: "3"}
	for _, s := range []*model.ScannedItem{older, newer, other} {
		if err := scans.Create(ctx, s); err != nil {
			t.Fatalf("failed to create scan: %v", err)
		}
	}

	got, err := scans.ListByOwner(ctx, "owner-1")
	if err != nil {
		t.Fatalf("failed to list scans: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("scans = %d, want 2", len(got))
	}
	if got[0].Barcode != "2" || got[1].Barcode != "1" {
		t.Errorf("scans out of order: %s, %s", got[0].Barcode, got[1].Barcode)
	}
}
