package sync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/zhiliushi/pantry/internal/remote"
)

// Default retry policy for remote writes.
const (
	DefaultMaxAttempts = 3
	DefaultBaseBackoff = 2 * time.Second
)

// ErrConnectionLost is returned when connectivity drops between retry
// attempts. It aborts the remaining attempts immediately instead of
// burning them against a dead link.
var ErrConnectionLost = errors.New("lost connection during retry")

// commitWithRetry pushes one write group, retrying transient failures
// with doubling backoff. Before each retry the prober is consulted; if
// the device went offline mid-backoff the retry is abandoned with
// ErrConnectionLost.
func (o *Orchestrator) commitWithRetry(ctx context.Context, ops []remote.WriteOp) error {
	var lastErr error
	delay := o.baseBackoff

	for attempt := 1; attempt <= o.maxAttempts; attempt++ {
		lastErr = o.store.Commit(ctx, ops)
		if lastErr == nil {
			return nil
		}
		if errors.Is(lastErr, remote.ErrBatchTooLarge) {
			// Retrying an oversized group can never succeed.
			return lastErr
		}
		if attempt == o.maxAttempts {
			break
		}

		o.logger.Printf("remote write failed (attempt %d/%d), retrying in %s: %v",
			attempt, o.maxAttempts, delay, lastErr)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2

		if !o.prober.Online(ctx) {
			return ErrConnectionLost
		}
	}
	return fmt.Errorf("remote write failed after %d attempts: %w", o.maxAttempts, lastErr)
}
