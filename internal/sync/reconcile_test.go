package sync

import (
	"testing"
	"time"

	"github.com/zhiliushi/pantry/internal/remote"
)

func TestReconcileLastWriteWins(t *testing.T) {
	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	local := map[string]time.Time{
		"local-newer": base.Add(time.Hour),
		"tie":         base,
		"local-older": base.Add(-time.Hour),
		"local-only":  base,
	}
	remoteDocs := []remote.Document{
		{ID: "local-newer", UpdatedAt: base},
		{ID: "tie", UpdatedAt: base},
		{ID: "local-older", UpdatedAt: base},
		{ID: "remote-only", UpdatedAt: base},
	}

	rec := reconcile(local, remoteDocs)

	// Local wins on newer timestamps and on exact ties.
	wantPush := map[string]bool{"local-newer": true, "tie": true, "local-only": true}
	if len(rec.PushLocal) != len(wantPush) {
		t.Errorf("PushLocal = %v, want %v", rec.PushLocal, wantPush)
	}
	for _, id := range rec.PushLocal {
		if !wantPush[id] {
			t.Errorf("unexpected id %s in PushLocal", id)
		}
	}

	if len(rec.ApplyRemote) != 1 || rec.ApplyRemote[0].ID != "local-older" {
		t.Errorf("ApplyRemote = %v, want the strictly newer remote doc only", rec.ApplyRemote)
	}
	if len(rec.NeedsLocal) != 1 || rec.NeedsLocal[0] != "remote-only" {
		t.Errorf("NeedsLocal = %v, want the remote-only doc", rec.NeedsLocal)
	}
}

func TestReconcileEmptySides(t *testing.T) {
	rec := reconcile(nil, nil)
	if len(rec.PushLocal)+len(rec.ApplyRemote)+len(rec.NeedsLocal) != 0 {
		t.Errorf("reconcile of empty sides produced %+v", rec)
	}

	rec = reconcile(map[string]time.Time{"a": time.Now()}, nil)
	if len(rec.PushLocal) != 1 || rec.PushLocal[0] != "a" {
		t.Errorf("local-only doc not queued for push: %+v", rec)
	}
}

func TestDocRoundTrip(t *testing.T) {
	type sample struct {
		ID   string  `json:"id"`
		Name string  `json:"name"`
		Qty  float64 `json:"qty"`
	}
	in := sample{ID: "x", Name: "Milk", Qty: 2}

	data, err := toDoc(in)
	if err != nil {
		t.Fatalf("toDoc failed: %v", err)
	}
	if data["name"] != "Milk" {
		t.Errorf("flattened name = %v, want json tag keys", data["name"])
	}

	var out sample
	if err := fromDoc(remote.Document{ID: "x", Data: data}, &out); err != nil {
		t.Fatalf("fromDoc failed: %v", err)
	}
	if out != in {
		t.Errorf("round trip = %+v, want %+v", out, in)
	}
}

func TestDocToInventoryFallsBackToDocID(t *testing.T) {
	doc := remote.Document{
		ID: "doc-7",
		Data: map[string]any{
			"owner_id": "owner-1",
			"name":     "Tofu",
			"quantity": 1.0,
			"location": "fridge",
			"status":   "active",
		},
	}
	item, err := docToInventory(doc)
	if err != nil {
		t.Fatalf("docToInventory failed: %v", err)
	}
	if item.ID != "doc-7" {
		t.Errorf("ID = %q, want the document id", item.ID)
	}
	if item.Name != "Tofu" {
		t.Errorf("Name = %q", item.Name)
	}
}
