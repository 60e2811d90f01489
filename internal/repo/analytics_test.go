package repo

import (
	"context"
	"testing"
	"time"

	"github.com/zhiliushi/pantry/internal/model"
)

func TestAnalyticsAppendAndDrain(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	analytics := NewAnalyticsRepo(db)

	for i := 0; i < 5; i++ {
		if err := analytics.Append(ctx, "owner-1", model.EventBarcodeScanned, map[string]any{"barcode": "1"}); err != nil {
			t.Fatalf("failed to append event: %v", err)
		}
	}

	// Batches respect the limit and drain oldest-first.
	batch, err := analytics.ListUnsynced(ctx, "owner-1", 3)
	if err != nil {
		t.Fatalf("failed to list unsynced: %v", err)
	}
	if len(batch) != 3 {
		t.Fatalf("batch size = %d, want 3", len(batch))
	}

	ids := make([]string, len(batch))
	for i, evt := range batch {
		ids[i] = evt.ID
	}
	if err := analytics.MarkSynced(ctx, ids); err != nil {
		t.Fatalf("failed to mark synced: %v", err)
	}

	rest, err := analytics.ListUnsynced(ctx, "owner-1", 0)
	if err != nil {
		t.Fatalf("failed to list unsynced: %v", err)
	}
	if len(rest) != 2 {
		t.Errorf("remaining unsynced = %d, want 2", len(rest))
	}
	for _, evt := range rest {
		for _, id := range ids {
			if evt.ID == id {
				t.Errorf("event %s still unsynced after MarkSynced", id)
			}
		}
	}
}

func TestPurgeSyncedRespectsCutoff(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	analytics := NewAnalyticsRepo(db)

	for i := 0; i < 3; i++ {
		if err := analytics.Append(ctx, "owner-1", model.EventItemAdded, nil); err != nil {
			t.Fatalf("failed to append event: %v", err)
		}
	}
	events, err := analytics.ListUnsynced(ctx, "owner-1", 0)
	if err != nil {
		t.Fatalf("failed to list events: %v", err)
	}
	// Sync two of the three; the third stays local.
	if err := analytics.MarkSynced(ctx, []string{events[0].ID, events[1].ID}); err != nil {
		t.Fatalf("failed to mark synced: %v", err)
	}

	// Cutoff in the past removes nothing.
	n, err := analytics.PurgeSynced(ctx, time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("purge failed: %v", err)
	}
	if n != 0 {
		t.Errorf("purge with past cutoff removed %d events, want 0", n)
	}

	// Cutoff in the future removes only the synced pair.
	n, err = analytics.PurgeSynced(ctx, time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("purge failed: %v", err)
	}
	if n != 2 {
		t.Errorf("purge removed %d events, want 2", n)
	}
	remaining, err := analytics.ListUnsynced(ctx, "owner-1", 0)
	if err != nil {
		t.Fatalf("failed to list events: %v", err)
	}
	if len(remaining) != 1 {
		t.Errorf("unsynced survivors = %d, want 1", len(remaining))
	}
}

func TestStatsComputesWastePercentage(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	analytics := NewAnalyticsRepo(db)

	appendEvent := func(eventType string, payload any) {
		t.Helper()
		if err := analytics.Append(ctx, "owner-1", eventType, payload); err != nil {
			t.Fatalf("failed to append %s: %v", eventType, err)
		}
	}

	appendEvent(model.EventBarcodeScanned, nil)
	appendEvent(model.EventItemAdded, map[string]any{"price": 4.50})
	appendEvent(model.EventItemAdded, map[string]any{"price": 2.25})
	appendEvent(model.EventItemAdded, nil)
	appendEvent(model.EventItemAdded, nil)
	appendEvent(model.EventItemConsumed, map[string]any{"reason": "used_up"})
	appendEvent(model.EventItemConsumed, map[string]any{"reason": "expired"})

	stats, err := analytics.Stats(ctx, "owner-1", time.Time{})
	if err != nil {
		t.Fatalf("failed to compute stats: %v", err)
	}

	if stats.TotalScans != 1 {
		t.Errorf("TotalScans = %d, want 1", stats.TotalScans)
	}
	if stats.ItemsAdded != 4 {
		t.Errorf("ItemsAdded = %d, want 4", stats.ItemsAdded)
	}
	if stats.ItemsConsumed != 1 || stats.ItemsExpired != 1 {
		t.Errorf("consumed = %d, expired = %d; want 1 and 1", stats.ItemsConsumed, stats.ItemsExpired)
	}
	if stats.TotalSpent != 6.75 {
		t.Errorf("TotalSpent = %g, want 6.75", stats.TotalSpent)
	}
	// 1 wasted out of 4 added.
	if stats.WastePercentage != 25.0 {
		t.Errorf("WastePercentage = %g, want 25.0", stats.WastePercentage)
	}
}

func TestStatsSinceFiltersOldEvents(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	analytics := NewAnalyticsRepo(db)

	if err := analytics.Append(ctx, "owner-1", model.EventBarcodeScanned, nil); err != nil {
		t.Fatalf("failed to append event: %v", err)
	}

	stats, err := analytics.Stats(ctx, "owner-1", time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("failed to compute stats: %v", err)
	}
	if stats.EventCount != 0 {
		t.Errorf("EventCount with future cutoff = %d, want 0", stats.EventCount)
	}
}
