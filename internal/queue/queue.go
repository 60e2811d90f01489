// Package queue buffers user-initiated remote calls that fail while the
// device is offline, for replay once connectivity returns.
//
// The queue is deliberately volatile: entries live only in process
// memory and are lost on restart. Background sync covers durable data;
// this queue exists so an interactive scan or contribution is not
// simply discarded when the network drops.
package queue

import (
	"context"
	"errors"
	"io"
	"log"
	"sync"
	"time"
)

// ErrOfflineQueued is returned to callers whose request was captured
// for later replay instead of executing. Callers distinguish it from a
// hard failure with errors.Is.
var ErrOfflineQueued = errors.New("offline, request queued for replay")

// MaxEntryAge is how long a queued request stays eligible for replay.
// Older entries are dropped silently during a flush.
const MaxEntryAge = 24 * time.Hour

// RequestType identifies what a queued entry should do on replay.
type RequestType string

const (
	RequestScanLookup   RequestType = "scan_lookup"
	RequestContribution RequestType = "contribution"
)

// Entry is one buffered request.
type Entry struct {
	Type       RequestType
	Payload    any
	EnqueuedAt time.Time
}

// Replayer executes a queued entry against the remote. A non-nil error
// re-queues the entry for the next flush.
type Replayer func(ctx context.Context, e Entry) error

// Queue is an in-memory FIFO of offline requests. Safe for concurrent
// use.
type Queue struct {
	mu      sync.Mutex
	entries []Entry
	logger  *log.Logger
	now     func() time.Time
}

// New creates an empty queue. logger may be nil.
func New(logger *log.Logger) *Queue {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Queue{logger: logger, now: time.Now}
}

// Enqueue appends a request and returns ErrOfflineQueued for the caller
// to surface.
func (q *Queue) Enqueue(reqType RequestType, payload any) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.entries = append(q.entries, Entry{
		Type:       reqType,
		Payload:    payload,
		EnqueuedAt: q.now(),
	})
	q.logger.Printf("[queue] buffered %s request (%d pending)", reqType, len(q.entries))
	return ErrOfflineQueued
}

// Len reports the number of pending entries.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

// Flush replays every entry younger than MaxEntryAge through replay.
// Stale entries are dropped without replay. Entries that fail again are
// kept for the next flush; everything else is removed. Returns the
// number of entries successfully replayed.
func (q *Queue) Flush(ctx context.Context, replay Replayer) int {
	q.mu.Lock()
	pending := q.entries
	q.entries = nil
	q.mu.Unlock()

	if len(pending) == 0 {
		return 0
	}

	cutoff := q.now().Add(-MaxEntryAge)
	replayed := 0
	var requeue []Entry
	for _, e := range pending {
		if e.EnqueuedAt.Before(cutoff) {
			continue
		}
		if err := replay(ctx, e); err != nil {
			q.logger.Printf("[queue] replay of %s failed, keeping: %v", e.Type, err)
			requeue = append(requeue, e)
			continue
		}
		replayed++
	}

	if len(requeue) > 0 {
		q.mu.Lock()
		// Entries enqueued during the flush go behind the retries.
		q.entries = append(requeue, q.entries...)
		q.mu.Unlock()
	}
	return replayed
}
