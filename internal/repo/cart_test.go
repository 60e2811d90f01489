package repo

import (
	"context"
	"testing"
	"time"

	"github.com/zhiliushi/pantry/internal/model"
)

func TestCartAddAppliesTTL(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	cart := NewCartRepo(db)

	item := &model.CartItem{OwnerID: "owner-1", Name: "Milk", Quantity: 1}
	if err := cart.Add(ctx, item); err != nil {
		t.Fatalf("failed to add cart item: %v", err)
	}

	items, err := cart.ListByOwner(ctx, "owner-1")
	if err != nil {
		t.Fatalf("failed to list cart: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("len(items) = %d, want 1", len(items))
	}
	want := items[0].CreatedAt.Add(model.CartTTL)
	if !items[0].ExpiresAt.Equal(want) {
		t.Errorf("ExpiresAt = %v, want %v", items[0].ExpiresAt, want)
	}
}

func TestCartAddHonorsConfiguredTTL(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	cart := NewCartRepo(db).WithTTL(30 * time.Minute)

	item := &model.CartItem{OwnerID: "owner-1", Name: "Eggs", Quantity: 1}
	if err := cart.Add(ctx, item); err != nil {
		t.Fatalf("failed to add cart item: %v", err)
	}

	items, err := cart.ListByOwner(ctx, "owner-1")
	if err != nil {
		t.Fatalf("failed to list cart: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("len(items) = %d, want 1", len(items))
	}
	want := items[0].CreatedAt.Add(30 * time.Minute)
	if !items[0].ExpiresAt.Equal(want) {
		t.Errorf("ExpiresAt = %v, want %v", items[0].ExpiresAt, want)
	}
}
