package repo

import (
	"context"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/zhiliushi/pantry/internal/store"
)

// SweepResult reports what one TTL sweep removed.
type SweepResult struct {
	ScansDeleted int
	CartDeleted  int
}

// Total returns the combined number of deleted rows.
func (s SweepResult) Total() int { return s.ScansDeleted + s.CartDeleted }

// Sweeper deletes scanned and cart rows whose TTL has passed. It runs at
// process start and periodically from the serve loop; running it again
// with no intervening writes is a no-op.
type Sweeper struct {
	db     *store.DB
	logger *log.Logger
}

// NewSweeper creates a TTL sweeper. A nil logger silences it.
func NewSweeper(db *store.DB, logger *log.Logger) *Sweeper {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Sweeper{db: db, logger: logger}
}

// Sweep deletes all expired stage-1 scans and cart rows in one
// transaction. Idempotent and side-effect-free on an empty expired set;
// silent on success.
func (s *Sweeper) Sweep(ctx context.Context, now time.Time) (SweepResult, error) {
	var result SweepResult
	err := s.db.InTx(ctx, func(tx *store.Tx) error {
		res, err := tx.ExecContext(ctx,
			`DELETE FROM scanned_items WHERE expires_at <= ?`, now)
		if err != nil {
			return fmt.Errorf("failed to sweep scanned items: %w", err)
		}
		n, _ := res.RowsAffected()
		result.ScansDeleted = int(n)

		res, err = tx.ExecContext(ctx,
			`DELETE FROM cart_items WHERE expires_at <= ?`, now)
		if err != nil {
			return fmt.Errorf("failed to sweep cart items: %w", err)
		}
		n, _ = res.RowsAffected()
		result.CartDeleted = int(n)

		if result.ScansDeleted > 0 {
			tx.MarkChanged(store.TableScannedItems)
		}
		if result.CartDeleted > 0 {
			tx.MarkChanged(store.TableCartItems)
		}
		return nil
	})
	if err != nil {
		return SweepResult{}, err
	}
	if result.Total() > 0 {
		s.logger.Printf("sweep removed %d expired scans, %d expired cart items",
			result.ScansDeleted, result.CartDeleted)
	}
	return result, nil
}
