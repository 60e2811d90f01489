package sync

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	stdsync "sync"
	"sync/atomic"
	"time"

	"github.com/zhiliushi/pantry/internal/model"
	"github.com/zhiliushi/pantry/internal/remote"
	"github.com/zhiliushi/pantry/internal/repo"
	"github.com/zhiliushi/pantry/internal/store"
)

// Tier gates which collections an owner may sync.
type Tier string

const (
	// TierFree syncs analytics events only.
	TierFree Tier = "free"
	// TierPaid additionally syncs inventory and shopping lists.
	TierPaid Tier = "paid"
)

// ErrSyncInProgress is returned when Sync is called while a cycle is
// already running. Concurrent calls are rejected, not queued.
var ErrSyncInProgress = errors.New("sync already in progress")

// Default sizing for a sync cycle.
const (
	DefaultBatchSize = remote.MaxBatchOps
	DefaultRetention = 30 * 24 * time.Hour
	DefaultInterval  = 6 * time.Hour
)

// Config tunes one Orchestrator. Zero fields fall back to defaults.
type Config struct {
	OwnerID string
	Tier    Tier

	// BatchSize caps analytics events per remote write group. Clamped
	// to remote.MaxBatchOps.
	BatchSize int
	// Retention is how long synced analytics events are kept locally.
	Retention time.Duration

	MaxAttempts int
	BaseBackoff time.Duration
}

// Orchestrator runs sync cycles for one owner. It enforces a single
// in-flight cycle per process and fans each cycle's Result out to
// registered observers.
type Orchestrator struct {
	ownerID   string
	tier      Tier
	batchSize int
	retention time.Duration

	maxAttempts int
	baseBackoff time.Duration

	db        *store.DB
	inventory *repo.InventoryRepo
	lists     *repo.ListRepo
	analytics *repo.AnalyticsRepo
	reference *repo.ReferenceRepo

	store  remote.DocStore
	prober remote.Prober
	logger *log.Logger
	now    func() time.Time

	inFlight atomic.Bool

	mu        stdsync.Mutex
	observers map[int]Observer
	nextObsID int
}

// New creates an Orchestrator over an opened database and a remote
// document store. logger may be nil.
func New(db *store.DB, docs remote.DocStore, prober remote.Prober, cfg Config, logger *log.Logger) *Orchestrator {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	if cfg.BatchSize <= 0 || cfg.BatchSize > remote.MaxBatchOps {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.Retention <= 0 {
		cfg.Retention = DefaultRetention
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.BaseBackoff <= 0 {
		cfg.BaseBackoff = DefaultBaseBackoff
	}
	if cfg.Tier == "" {
		cfg.Tier = TierFree
	}
	return &Orchestrator{
		ownerID:     cfg.OwnerID,
		tier:        cfg.Tier,
		batchSize:   cfg.BatchSize,
		retention:   cfg.Retention,
		maxAttempts: cfg.MaxAttempts,
		baseBackoff: cfg.BaseBackoff,
		db:          db,
		inventory:   repo.NewInventoryRepo(db),
		lists:       repo.NewListRepo(db),
		analytics:   repo.NewAnalyticsRepo(db),
		reference:   repo.NewReferenceRepo(db),
		store:       docs,
		prober:      prober,
		logger:      logger,
		now:         time.Now,
		observers:   make(map[int]Observer),
	}
}

// Register adds an observer for future cycle results and returns an
// unregister function.
func (o *Orchestrator) Register(obs Observer) func() {
	o.mu.Lock()
	defer o.mu.Unlock()
	id := o.nextObsID
	o.nextObsID++
	o.observers[id] = obs
	return func() {
		o.mu.Lock()
		defer o.mu.Unlock()
		delete(o.observers, id)
	}
}

// SetTier changes the tier gating future cycles. Safe to call while a
// cycle is running; the running cycle keeps the tier it started with.
func (o *Orchestrator) SetTier(tier Tier) {
	if tier != TierFree && tier != TierPaid {
		return
	}
	o.mu.Lock()
	o.tier = tier
	o.mu.Unlock()
}

func (o *Orchestrator) currentTier() Tier {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.tier
}

func (o *Orchestrator) notify(r Result) {
	o.mu.Lock()
	obs := make([]Observer, 0, len(o.observers))
	for _, fn := range o.observers {
		obs = append(obs, fn)
	}
	o.mu.Unlock()
	for _, fn := range obs {
		fn(r)
	}
}

// Sync runs one full cycle and returns its Result. Remote failures are
// captured inside the Result, never returned as an error; the only
// error conditions are a concurrent cycle already running or context
// cancellation before the cycle starts.
func (o *Orchestrator) Sync(ctx context.Context) (Result, error) {
	if !o.inFlight.CompareAndSwap(false, true) {
		return Result{}, ErrSyncInProgress
	}
	defer o.inFlight.Store(false)

	result := Result{StartedAt: o.now()}

	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	if !o.prober.Online(ctx) {
		result.Status = StatusError
		result.Errors = []string{ErrNoConnection}
		result.FinishedAt = o.now()
		o.logger.Printf("sync aborted: %s", ErrNoConnection)
		o.notify(result)
		return result, nil
	}

	// Stages are fault-isolated: each records its own error and the
	// rest still run.
	o.pushAnalytics(ctx, &result)
	if o.currentTier() == TierPaid {
		o.pushInventory(ctx, &result)
		o.pushLists(ctx, &result)
	}
	o.purgeAnalytics(ctx, &result)
	o.pullFoodbanks(ctx, &result)

	result.finalize(o.now())
	o.logger.Printf("sync complete: status=%s pushed=%d purged=%d errors=%d",
		result.Status, result.Pushed(), result.EventsPurged, len(result.Errors))
	o.notify(result)
	return result, nil
}

// Run calls Sync on a fixed interval until ctx is cancelled. The first
// cycle runs immediately.
func (o *Orchestrator) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if _, err := o.Sync(ctx); err != nil && !errors.Is(err, ErrSyncInProgress) {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// pushAnalytics drains unsynced events in bounded batches, marking each
// batch synced only after its remote write succeeds.
func (o *Orchestrator) pushAnalytics(ctx context.Context, result *Result) {
	for {
		events, err := o.analytics.ListUnsynced(ctx, o.ownerID, o.batchSize)
		if err != nil {
			result.addError(fmt.Sprintf("analytics push: %v", err))
			return
		}
		if len(events) == 0 {
			return
		}

		ops := make([]remote.WriteOp, 0, len(events))
		ids := make([]string, 0, len(events))
		for _, ev := range events {
			data, err := toDoc(ev)
			if err != nil {
				result.addError(fmt.Sprintf("analytics push: %v", err))
				return
			}
			ops = append(ops, remote.WriteOp{
				Collection: remote.CollectionAnalytics,
				OwnerID:    o.ownerID,
				DocID:      ev.ID,
				Data:       data,
			})
			ids = append(ids, ev.ID)
		}

		if err := o.commitWithRetry(ctx, ops); err != nil {
			result.addError(fmt.Sprintf("analytics push: %v", err))
			return
		}
		if err := o.analytics.MarkSynced(ctx, ids); err != nil {
			result.addError(fmt.Sprintf("analytics mark synced: %v", err))
			return
		}
		result.AnalyticsPushed += len(events)

		if len(events) < o.batchSize {
			return
		}
	}
}

// pushInventory reconciles local and remote grocery items, applies
// remote winners locally, then pushes unsynced local rows.
func (o *Orchestrator) pushInventory(ctx context.Context, result *Result) {
	remoteDocs, err := o.store.List(ctx, o.ownerID, remote.CollectionInventory)
	if err != nil {
		result.addError(fmt.Sprintf("inventory pull: %v", err))
		// Reconciliation needs the remote view; pushing blind would
		// clobber newer remote rows. Skip the stage.
		return
	}

	local, err := o.inventory.List(ctx, o.ownerID, repo.ListFilter{})
	if err != nil {
		result.addError(fmt.Sprintf("inventory list: %v", err))
		return
	}
	localAt := make(map[string]time.Time, len(local))
	for _, item := range local {
		localAt[item.ID] = item.UpdatedAt
	}

	rec := reconcile(localAt, remoteDocs)
	for _, doc := range rec.ApplyRemote {
		item, err := docToInventory(doc)
		if err != nil {
			result.addError(fmt.Sprintf("inventory reconcile: %v", err))
			continue
		}
		if err := o.inventory.Upsert(ctx, item); err != nil {
			result.addError(fmt.Sprintf("inventory reconcile %s: %v", doc.ID, err))
		}
	}
	for _, id := range rec.NeedsLocal {
		result.NeedsLocalUpdate = append(result.NeedsLocalUpdate,
			remote.CollectionInventory+"/"+id)
	}

	unsynced, err := o.inventory.ListUnsynced(ctx, o.ownerID)
	if err != nil {
		result.addError(fmt.Sprintf("inventory push: %v", err))
		return
	}
	if len(unsynced) == 0 {
		return
	}

	ops := make([]remote.WriteOp, 0, len(unsynced))
	for _, item := range unsynced {
		data, err := toDoc(item)
		if err != nil {
			result.addError(fmt.Sprintf("inventory push: %v", err))
			return
		}
		ops = append(ops, remote.WriteOp{
			Collection: remote.CollectionInventory,
			OwnerID:    o.ownerID,
			DocID:      item.ID,
			Data:       data,
		})
	}

	pushed := 0
	for _, group := range chunkOps(nil, ops, remote.MaxBatchOps) {
		if err := o.commitWithRetry(ctx, group); err != nil {
			result.addError(fmt.Sprintf("inventory push: %v", err))
			break
		}
		ids := make([]string, len(group))
		for i, op := range group {
			ids[i] = op.DocID
		}
		if err := o.inventory.MarkSynced(ctx, ids); err != nil {
			result.addError(fmt.Sprintf("inventory mark synced: %v", err))
			break
		}
		pushed += len(group)
	}
	result.InventoryPushed += pushed
}

// pushLists reconciles shopping lists, then pushes each list together
// with its items, split into write groups within the store's limit.
func (o *Orchestrator) pushLists(ctx context.Context, result *Result) {
	remoteDocs, err := o.store.List(ctx, o.ownerID, remote.CollectionLists)
	if err != nil {
		result.addError(fmt.Sprintf("lists pull: %v", err))
		return
	}

	local, err := o.lists.ListsByOwner(ctx, o.ownerID)
	if err != nil {
		result.addError(fmt.Sprintf("lists list: %v", err))
		return
	}
	localAt := make(map[string]time.Time, len(local))
	byID := make(map[string]model.ShoppingList, len(local))
	for _, l := range local {
		localAt[l.ID] = l.UpdatedAt
		byID[l.ID] = l
	}

	rec := reconcile(localAt, remoteDocs)
	for _, doc := range rec.ApplyRemote {
		list, err := docToList(doc)
		if err != nil {
			result.addError(fmt.Sprintf("lists reconcile: %v", err))
			continue
		}
		if err := o.lists.Upsert(ctx, list); err != nil {
			result.addError(fmt.Sprintf("lists reconcile %s: %v", doc.ID, err))
		}
		byID[list.ID] = *list
	}
	for _, id := range rec.NeedsLocal {
		result.NeedsLocalUpdate = append(result.NeedsLocalUpdate,
			remote.CollectionLists+"/"+id)
	}

	for _, list := range local {
		list = byID[list.ID]
		if err := o.pushOneList(ctx, list, result); err != nil {
			result.addError(fmt.Sprintf("list push %s: %v", list.ID, err))
		}
	}
}

// pushOneList writes a list row plus its item rows. The list row leads
// the first group; items fill the remainder of that group and spill
// into further groups of at most remote.MaxBatchOps operations.
func (o *Orchestrator) pushOneList(ctx context.Context, list model.ShoppingList, result *Result) error {
	items, err := o.lists.Items(ctx, list.ID)
	if err != nil {
		return fmt.Errorf("failed to load items: %w", err)
	}

	listData, err := toDoc(list)
	if err != nil {
		return err
	}
	parent := &remote.WriteOp{
		Collection: remote.CollectionLists,
		OwnerID:    o.ownerID,
		DocID:      list.ID,
		Data:       listData,
	}

	children := make([]remote.WriteOp, 0, len(items))
	for _, item := range items {
		data, err := toDoc(item)
		if err != nil {
			return err
		}
		children = append(children, remote.WriteOp{
			Collection: remote.CollectionListItems,
			OwnerID:    o.ownerID,
			DocID:      item.ID,
			Data:       data,
		})
	}

	for _, group := range chunkOps(parent, children, remote.MaxBatchOps) {
		if err := o.commitWithRetry(ctx, group); err != nil {
			return err
		}
		for _, op := range group {
			if op.Collection == remote.CollectionLists {
				result.ListsPushed++
			} else {
				result.ListItemsPushed++
			}
		}
	}
	return nil
}

// purgeAnalytics deletes events that are both synced and older than the
// retention window.
func (o *Orchestrator) purgeAnalytics(ctx context.Context, result *Result) {
	cutoff := o.now().Add(-o.retention)
	n, err := o.analytics.PurgeSynced(ctx, cutoff)
	if err != nil {
		result.addError(fmt.Sprintf("analytics purge: %v", err))
		return
	}
	result.EventsPurged = n
}

// pullFoodbanks refreshes the global foodbank directory. Foodbanks are
// pull-only: local rows are wholesale replaced and never pushed back.
func (o *Orchestrator) pullFoodbanks(ctx context.Context, result *Result) {
	docs, err := o.store.List(ctx, "", remote.CollectionFoodbanks)
	if err != nil {
		result.addError(fmt.Sprintf("foodbank pull: %v", err))
		return
	}
	if len(docs) == 0 {
		return
	}
	banks := make([]model.Foodbank, 0, len(docs))
	for _, doc := range docs {
		bank, err := docToFoodbank(doc)
		if err != nil {
			result.addError(fmt.Sprintf("foodbank pull: %v", err))
			return
		}
		banks = append(banks, *bank)
	}
	if err := o.reference.ReplaceFoodbanks(ctx, banks); err != nil {
		result.addError(fmt.Sprintf("foodbank pull: %v", err))
		return
	}
	result.FoodbanksPulled = len(banks)
}
