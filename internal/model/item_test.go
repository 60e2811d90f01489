package model

import (
	"testing"
	"time"
)

func validItem() *InventoryItem {
	item := &InventoryItem{
		OwnerID:  "owner-1",
		Name:     "Milk",
		Quantity: 1,
		Location: LocationFridge,
		Status:   StatusActive,
	}
	item.SetDefaults(time.Now())
	return item
}

func TestInventoryItemLifecycleInvariant(t *testing.T) {
	now := time.Now()
	reason := ReasonUsedUp

	t.Run("terminal status requires consumed fields", func(t *testing.T) {
		item := validItem()
		item.Status = StatusConsumed
		if err := item.Validate(); err == nil {
			t.Error("terminal status without consumedDate/reason passed validation")
		}

		item.ConsumedDate = &now
		item.Reason = &reason
		if err := item.Validate(); err != nil {
			t.Errorf("fully populated terminal item rejected: %v", err)
		}
	})

	t.Run("active status forbids consumed fields", func(t *testing.T) {
		item := validItem()
		item.ConsumedDate = &now
		if err := item.Validate(); err == nil {
			t.Error("active item with consumedDate passed validation")
		}

		item = validItem()
		item.Reason = &reason
		if err := item.Validate(); err == nil {
			t.Error("active item with reason passed validation")
		}
	})
}

func TestInventoryItemFieldValidation(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*InventoryItem)
	}{
		{"missing owner", func(i *InventoryItem) { i.OwnerID = "" }},
		{"missing name", func(i *InventoryItem) { i.Name = "" }},
		{"zero quantity", func(i *InventoryItem) { i.Quantity = 0 }},
		{"negative quantity", func(i *InventoryItem) { i.Quantity = -2 }},
		{"missing location", func(i *InventoryItem) { i.Location = "" }},
		{"unknown status", func(i *InventoryItem) { i.Status = "eaten" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			item := validItem()
			tc.mutate(item)
			err := item.Validate()
			if err == nil {
				t.Fatal("expected a validation error")
			}
			if !IsValidationError(err) {
				t.Errorf("expected field-level validation errors, got %T: %v", err, err)
			}
		})
	}
}

func TestConsumeReasonStatusFor(t *testing.T) {
	cases := map[ConsumeReason]ItemStatus{
		ReasonUsedUp:    StatusConsumed,
		ReasonExpired:   StatusExpired,
		ReasonDiscarded: StatusDiscarded,
	}
	for reason, want := range cases {
		if got := reason.StatusFor(); got != want {
			t.Errorf("StatusFor(%s) = %s, want %s", reason, got, want)
		}
	}
}

func TestScannedItemDefaultsApplyTTL(t *testing.T) {
	now := time.Now()
	scan := &ScannedItem{OwnerID: "owner-1", Barcode: "012345678905"}
	scan.SetDefaults(now)

	if scan.ID == "" {
		t.Error("expected a generated id")
	}
	if want := now.Add(ScanTTL); !scan.ExpiresAt.Equal(want) {
		t.Errorf("ExpiresAt = %v, want scannedAt+%v", scan.ExpiresAt, ScanTTL)
	}
}

func TestCartItemDefaultsApplyTTL(t *testing.T) {
	now := time.Now()
	item := &CartItem{OwnerID: "owner-1", Name: "Eggs"}
	item.SetDefaults(now)

	if item.Quantity != 1 {
		t.Errorf("default quantity = %g, want 1", item.Quantity)
	}
	if want := now.Add(CartTTL); !item.ExpiresAt.Equal(want) {
		t.Errorf("ExpiresAt = %v, want createdAt+%v", item.ExpiresAt, CartTTL)
	}
}
