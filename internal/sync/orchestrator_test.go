package sync

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	stdsync "sync"
	"testing"
	"time"

	"github.com/zhiliushi/pantry/internal/model"
	"github.com/zhiliushi/pantry/internal/remote"
	"github.com/zhiliushi/pantry/internal/repo"
	"github.com/zhiliushi/pantry/internal/store"
)

// fakeDocStore records committed write groups and serves canned
// collection listings.
type fakeDocStore struct {
	mu       stdsync.Mutex
	commits  [][]remote.WriteOp
	listings map[string][]remote.Document

	failCommits int // fail this many Commit calls before succeeding
	commitErr   error
}

func (f *fakeDocStore) Commit(ctx context.Context, ops []remote.WriteOp) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(ops) > remote.MaxBatchOps {
		return remote.ErrBatchTooLarge
	}
	if f.failCommits > 0 {
		f.failCommits--
		if f.commitErr != nil {
			return f.commitErr
		}
		return errors.New("transient write failure")
	}
	f.commits = append(f.commits, ops)
	return nil
}

func (f *fakeDocStore) List(ctx context.Context, ownerID, collection string) ([]remote.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listings[collection], nil
}

func (f *fakeDocStore) committed() [][]remote.WriteOp {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]remote.WriteOp(nil), f.commits...)
}

// flakyProber reports online for the first n checks, then offline.
type flakyProber struct {
	mu     stdsync.Mutex
	online int
}

func (p *flakyProber) Online(ctx context.Context) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.online > 0 {
		p.online--
		return true
	}
	return false
}

func alwaysOnline() remote.Prober {
	return remote.ProberFunc(func(context.Context) bool { return true })
}

func testDB(t *testing.T) *store.DB {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func newTestOrchestrator(t *testing.T, db *store.DB, docs remote.DocStore, prober remote.Prober, tier Tier) *Orchestrator {
	t.Helper()
	return New(db, docs, prober, Config{
		OwnerID:     "owner-1",
		Tier:        tier,
		MaxAttempts: 3,
		BaseBackoff: time.Millisecond,
	}, nil)
}

func appendEvents(t *testing.T, db *store.DB, n int) {
	t.Helper()
	analytics := repo.NewAnalyticsRepo(db)
	for i := 0; i < n; i++ {
		if err := analytics.Append(context.Background(), "owner-1", model.EventBarcodeScanned, nil); err != nil {
			t.Fatalf("failed to append event: %v", err)
		}
	}
}

func TestSyncOfflinePreflight(t *testing.T) {
	db := testDB(t)
	appendEvents(t, db, 2)
	docs := &fakeDocStore{}
	offline := remote.ProberFunc(func(context.Context) bool { return false })

	orch := newTestOrchestrator(t, db, docs, offline, TierPaid)
	result, err := orch.Sync(context.Background())
	if err != nil {
		t.Fatalf("Sync returned error: %v", err)
	}

	if result.Status != StatusError {
		t.Errorf("Status = %s, want error", result.Status)
	}
	if len(result.Errors) != 1 || result.Errors[0] != ErrNoConnection {
		t.Errorf("Errors = %v, want [%q]", result.Errors, ErrNoConnection)
	}
	if result.Pushed() != 0 {
		t.Errorf("Pushed = %d, want 0 when offline", result.Pushed())
	}
	if len(docs.committed()) != 0 {
		t.Error("offline cycle reached the remote store")
	}
}

func TestSyncFreeTierPushesAnalyticsOnly(t *testing.T) {
	db := testDB(t)
	appendEvents(t, db, 3)
	inventory := repo.NewInventoryRepo(db)
	item := &model.InventoryItem{OwnerID: "owner-1", Name: "Milk", Quantity: 1, Location: model.LocationFridge}
	if err := inventory.Create(context.Background(), item); err != nil {
		t.Fatalf("failed to create item: %v", err)
	}

	docs := &fakeDocStore{}
	orch := newTestOrchestrator(t, db, docs, alwaysOnline(), TierFree)
	result, err := orch.Sync(context.Background())
	if err != nil {
		t.Fatalf("Sync returned error: %v", err)
	}

	if result.Status != StatusOK {
		t.Errorf("Status = %s, want ok (errors: %v)", result.Status, result.Errors)
	}
	if result.AnalyticsPushed != 3 {
		t.Errorf("AnalyticsPushed = %d, want 3", result.AnalyticsPushed)
	}
	if result.InventoryPushed != 0 || result.ListsPushed != 0 {
		t.Error("free tier must not push inventory or lists")
	}
	for _, group := range docs.committed() {
		for _, op := range group {
			if op.Collection != remote.CollectionAnalytics {
				t.Errorf("free tier wrote to %s", op.Collection)
			}
		}
	}

	// A second cycle pushes nothing new.
	result, err = orch.Sync(context.Background())
	if err != nil {
		t.Fatalf("second Sync returned error: %v", err)
	}
	if result.AnalyticsPushed != 0 {
		t.Errorf("second cycle pushed %d events, want 0", result.AnalyticsPushed)
	}
}

func TestSyncPaidTierPushesInventoryAndLists(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	inventory := repo.NewInventoryRepo(db)
	lists := repo.NewListRepo(db)

	item := &model.InventoryItem{OwnerID: "owner-1", Name: "Milk", Quantity: 1, Location: model.LocationFridge}
	if err := inventory.Create(ctx, item); err != nil {
		t.Fatalf("failed to create item: %v", err)
	}
	list := &model.ShoppingList{OwnerID: "owner-1", Name: "Weekly"}
	if err := lists.CreateList(ctx, list); err != nil {
		t.Fatalf("failed to create list: %v", err)
	}
	li := &model.ListItem{ListID: list.ID, Name: "Eggs", Quantity: 1}
	if err := lists.AddItem(ctx, li); err != nil {
		t.Fatalf("failed to add list item: %v", err)
	}

	docs := &fakeDocStore{}
	orch := newTestOrchestrator(t, db, docs, alwaysOnline(), TierPaid)
	result, err := orch.Sync(ctx)
	if err != nil {
		t.Fatalf("Sync returned error: %v", err)
	}

	if result.Status != StatusOK {
		t.Fatalf("Status = %s (errors: %v)", result.Status, result.Errors)
	}
	if result.InventoryPushed != 1 {
		t.Errorf("InventoryPushed = %d, want 1", result.InventoryPushed)
	}
	if result.ListsPushed != 1 || result.ListItemsPushed != 1 {
		t.Errorf("lists pushed = %d/%d, want 1 list and 1 item",
			result.ListsPushed, result.ListItemsPushed)
	}

	// The pushed inventory row is marked synced locally.
	unsynced, err := inventory.ListUnsynced(ctx, "owner-1")
	if err != nil {
		t.Fatalf("failed to list unsynced: %v", err)
	}
	if len(unsynced) != 0 {
		t.Errorf("unsynced after push = %d, want 0", len(unsynced))
	}
}

func TestSetTierTakesEffectNextCycle(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	inventory := repo.NewInventoryRepo(db)
	item := &model.InventoryItem{OwnerID: "owner-1", Name: "Milk", Quantity: 1, Location: model.LocationFridge}
	if err := inventory.Create(ctx, item); err != nil {
		t.Fatalf("failed to create item: %v", err)
	}

	docs := &fakeDocStore{}
	orch := newTestOrchestrator(t, db, docs, alwaysOnline(), TierFree)

	result, err := orch.Sync(ctx)
	if err != nil {
		t.Fatalf("Sync returned error: %v", err)
	}
	if result.InventoryPushed != 0 {
		t.Errorf("free tier pushed %d inventory rows, want 0", result.InventoryPushed)
	}

	orch.SetTier(TierPaid)
	result, err = orch.Sync(ctx)
	if err != nil {
		t.Fatalf("Sync after upgrade returned error: %v", err)
	}
	if result.InventoryPushed != 1 {
		t.Errorf("InventoryPushed after upgrade = %d, want 1", result.InventoryPushed)
	}

	// Unknown values are ignored rather than opening the gate.
	orch.SetTier(Tier("enterprise"))
	if got := orch.currentTier(); got != TierPaid {
		t.Errorf("tier after bad SetTier = %s, want paid", got)
	}
}

func TestSyncAppliesNewerRemoteCopy(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	inventory := repo.NewInventoryRepo(db)

	item := &model.InventoryItem{OwnerID: "owner-1", Name: "Milk", Quantity: 1, Location: model.LocationFridge}
	if err := inventory.Create(ctx, item); err != nil {
		t.Fatalf("failed to create item: %v", err)
	}
	if err := inventory.MarkSynced(ctx, []string{item.ID}); err != nil {
		t.Fatalf("failed to mark synced: %v", err)
	}

	remoteAt := time.Now().Add(time.Hour)
	docs := &fakeDocStore{listings: map[string][]remote.Document{
		remote.CollectionInventory: {
			{
				ID:        item.ID,
				UpdatedAt: remoteAt,
				Data: map[string]any{
					"id": item.ID, "owner_id": "owner-1", "name": "Whole Milk",
					"quantity": 2.0, "location": "fridge", "status": "active",
					"synced_to_cloud": true,
					"updated_at":      remoteAt.Format(time.RFC3339Nano),
				},
			},
			{ID: "remote-only-1", UpdatedAt: remoteAt, Data: map[string]any{
				"id": "remote-only-1", "owner_id": "owner-1", "name": "Ghost",
				"quantity": 1.0, "location": "pantry", "status": "active",
			}},
		},
	}}

	orch := newTestOrchestrator(t, db, docs, alwaysOnline(), TierPaid)
	result, err := orch.Sync(ctx)
	if err != nil {
		t.Fatalf("Sync returned error: %v", err)
	}

	got, err := inventory.Get(ctx, item.ID)
	if err != nil {
		t.Fatalf("failed to read item back: %v", err)
	}
	if got.Name != "Whole Milk" || got.Quantity != 2 {
		t.Errorf("remote winner not applied: %+v", got)
	}

	// Remote-only documents are reported, never materialized.
	want := remote.CollectionInventory + "/remote-only-1"
	found := false
	for _, id := range result.NeedsLocalUpdate {
		if id == want {
			found = true
		}
	}
	if !found {
		t.Errorf("NeedsLocalUpdate = %v, want to contain %s", result.NeedsLocalUpdate, want)
	}
	if _, err := inventory.Get(ctx, "remote-only-1"); !errors.Is(err, repo.ErrNotFound) {
		t.Errorf("remote-only doc was materialized locally: %v", err)
	}
}

func TestSyncRetriesTransientFailures(t *testing.T) {
	db := testDB(t)
	appendEvents(t, db, 1)

	docs := &fakeDocStore{failCommits: 2}
	orch := newTestOrchestrator(t, db, docs, alwaysOnline(), TierFree)
	result, err := orch.Sync(context.Background())
	if err != nil {
		t.Fatalf("Sync returned error: %v", err)
	}

	if result.Status != StatusOK {
		t.Errorf("Status = %s, want ok after retries (errors: %v)", result.Status, result.Errors)
	}
	if result.AnalyticsPushed != 1 {
		t.Errorf("AnalyticsPushed = %d, want 1", result.AnalyticsPushed)
	}
}

func TestSyncStopsWhenConnectionDropsMidRetry(t *testing.T) {
	db := testDB(t)
	appendEvents(t, db, 1)

	// Preflight passes, then the prober check after the first backoff
	// reports offline.
	docs := &fakeDocStore{failCommits: 3}
	prober := &flakyProber{online: 1}
	orch := newTestOrchestrator(t, db, docs, prober, TierFree)

	result, err := orch.Sync(context.Background())
	if err != nil {
		t.Fatalf("Sync returned error: %v", err)
	}
	if result.Status != StatusPartial {
		t.Errorf("Status = %s, want partial", result.Status)
	}
	found := false
	for _, msg := range result.Errors {
		if strings.Contains(msg, ErrConnectionLost.Error()) {
			found = true
		}
	}
	if !found {
		t.Errorf("Errors = %v, want a lost-connection message", result.Errors)
	}

	// The failed batch stays unsynced for the next cycle.
	unsynced, err := repo.NewAnalyticsRepo(db).ListUnsynced(context.Background(), "owner-1", 0)
	if err != nil {
		t.Fatalf("failed to list unsynced: %v", err)
	}
	if len(unsynced) != 1 {
		t.Errorf("unsynced after failed push = %d, want 1", len(unsynced))
	}
}

func TestSyncRejectsConcurrentCycle(t *testing.T) {
	db := testDB(t)
	docs := &fakeDocStore{}

	started := make(chan struct{})
	release := make(chan struct{})
	var once stdsync.Once
	blocking := remote.ProberFunc(func(context.Context) bool {
		once.Do(func() {
			close(started)
			<-release
		})
		return true
	})

	orch := newTestOrchestrator(t, db, docs, blocking, TierFree)
	done := make(chan struct{})
	go func() {
		defer close(done)
		orch.Sync(context.Background())
	}()

	<-started
	if _, err := orch.Sync(context.Background()); !errors.Is(err, ErrSyncInProgress) {
		t.Errorf("concurrent Sync err = %v, want ErrSyncInProgress", err)
	}
	close(release)
	<-done

	// The guard resets once the cycle finishes.
	if _, err := orch.Sync(context.Background()); err != nil {
		t.Errorf("Sync after completed cycle failed: %v", err)
	}
}

func TestSyncNotifiesObservers(t *testing.T) {
	db := testDB(t)
	appendEvents(t, db, 1)
	docs := &fakeDocStore{}
	orch := newTestOrchestrator(t, db, docs, alwaysOnline(), TierFree)

	var got []Result
	unregister := orch.Register(func(r Result) { got = append(got, r) })

	if _, err := orch.Sync(context.Background()); err != nil {
		t.Fatalf("Sync returned error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("observer called %d times, want 1", len(got))
	}
	if got[0].Status != StatusOK || got[0].AnalyticsPushed != 1 {
		t.Errorf("observer saw %+v", got[0])
	}

	unregister()
	if _, err := orch.Sync(context.Background()); err != nil {
		t.Fatalf("Sync returned error: %v", err)
	}
	if len(got) != 1 {
		t.Error("unregistered observer was still notified")
	}
}

func TestSyncPullsFoodbanks(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	docs := &fakeDocStore{listings: map[string][]remote.Document{
		remote.CollectionFoodbanks: {
			{ID: "fb-1", Data: map[string]any{
				"id": "fb-1", "name": "Community Pantry", "address": "Kuala Lumpur",
			}},
		},
	}}

	orch := newTestOrchestrator(t, db, docs, alwaysOnline(), TierFree)
	result, err := orch.Sync(ctx)
	if err != nil {
		t.Fatalf("Sync returned error: %v", err)
	}
	if result.FoodbanksPulled != 1 {
		t.Errorf("FoodbanksPulled = %d, want 1", result.FoodbanksPulled)
	}

	banks, err := repo.NewReferenceRepo(db).Foodbanks(ctx)
	if err != nil {
		t.Fatalf("failed to list foodbanks: %v", err)
	}
	if len(banks) != 1 || banks[0].Name != "Community Pantry" {
		t.Errorf("foodbanks = %+v", banks)
	}
}
