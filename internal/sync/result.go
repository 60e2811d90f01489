package sync

import "time"

// Status summarizes one sync cycle.
type Status string

const (
	// StatusOK means every stage completed without error.
	StatusOK Status = "ok"
	// StatusPartial means at least one stage failed but others ran.
	StatusPartial Status = "partial"
	// StatusError means the cycle could not start, usually because the
	// preflight connectivity check failed.
	StatusError Status = "error"
)

// ErrNoConnection is the reason string reported when the preflight
// connectivity check fails.
const ErrNoConnection = "No internet connection"

// Result is the aggregate outcome of one sync cycle. It is delivered
// to every registered observer and returned from Sync.
type Result struct {
	Status Status `json:"status"`

	AnalyticsPushed int `json:"analytics_pushed"`
	InventoryPushed int `json:"inventory_pushed"`
	ListsPushed     int `json:"lists_pushed"`
	ListItemsPushed int `json:"list_items_pushed"`
	EventsPurged    int `json:"events_purged"`
	FoodbanksPulled int `json:"foodbanks_pulled"`

	// NeedsLocalUpdate lists remote-only document IDs discovered during
	// reconciliation, keyed as "collection/id". The caller decides
	// whether to materialize them locally.
	NeedsLocalUpdate []string `json:"needs_local_update,omitempty"`

	// Errors holds one human-readable message per failed stage, in
	// stage order.
	Errors []string `json:"errors,omitempty"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// Pushed reports the total rows written to the remote store.
func (r Result) Pushed() int {
	return r.AnalyticsPushed + r.InventoryPushed + r.ListsPushed + r.ListItemsPushed
}

func (r *Result) addError(msg string) {
	r.Errors = append(r.Errors, msg)
}

// finalize stamps the end time and derives the status from the error
// list. A preflight failure sets StatusError directly and never reaches
// here.
func (r *Result) finalize(now time.Time) {
	r.FinishedAt = now
	if len(r.Errors) == 0 {
		r.Status = StatusOK
	} else {
		r.Status = StatusPartial
	}
}

// Observer receives the Result of every completed sync cycle. Observers
// must not block; long-running work should be handed off.
type Observer func(Result)
