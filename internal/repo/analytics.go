package repo

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/zhiliushi/pantry/internal/model"
	"github.com/zhiliushi/pantry/internal/store"
)

// AnalyticsRepo manages the append-only usage event log.
type AnalyticsRepo struct {
	db *store.DB
}

// NewAnalyticsRepo creates an analytics repository.
func NewAnalyticsRepo(db *store.DB) *AnalyticsRepo {
	return &AnalyticsRepo{db: db}
}

const analyticsCols = `id, owner_id, event_type, event_data, timestamp, synced, synced_at, created_at`

// Append records one event. payload may be nil.
func (r *AnalyticsRepo) Append(ctx context.Context, ownerID, eventType string, payload any) error {
	var data json.RawMessage
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal event payload: %w", err)
		}
		data = b
	}
	event := &model.AnalyticsEvent{
		OwnerID:   ownerID,
		EventType: eventType,
		EventData: data,
	}
	event.SetDefaults(time.Now())
	if err := event.Validate(); err != nil {
		return err
	}
	return r.db.InTx(ctx, func(tx *store.Tx) error {
		_, err := tx.NamedExecContext(ctx, `
			INSERT INTO analytics_events (`+analyticsCols+`)
			VALUES (:id, :owner_id, :event_type, :event_data, :timestamp, :synced, :synced_at, :created_at)`,
			event)
		if err != nil {
			return fmt.Errorf("failed to append analytics event: %w", err)
		}
		tx.MarkChanged(store.TableAnalytics)
		return nil
	})
}

// ListUnsynced returns up to limit unsynced events, oldest first, so the
// orchestrator can drain them in fixed-size batches.
func (r *AnalyticsRepo) ListUnsynced(ctx context.Context, ownerID string, limit int) ([]model.AnalyticsEvent, error) {
	query := `SELECT ` + analyticsCols + ` FROM analytics_events
		WHERE owner_id = ? AND synced = 0 ORDER BY timestamp ASC`
	args := []any{ownerID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	var events []model.AnalyticsEvent
	if err := r.db.Conn().SelectContext(ctx, &events, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list unsynced events: %w", err)
	}
	return events, nil
}

// MarkSynced flags the given events as pushed, stamping synced_at.
func (r *AnalyticsRepo) MarkSynced(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	now := time.Now()
	return r.db.InTx(ctx, func(tx *store.Tx) error {
		query, args, err := buildInClause(
			`UPDATE analytics_events SET synced = 1, synced_at = ? WHERE id IN (%s)`, ids)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, query, append([]any{now}, args...)...); err != nil {
			return fmt.Errorf("failed to mark events synced: %w", err)
		}
		tx.MarkChanged(store.TableAnalytics)
		return nil
	})
}

// PurgeSynced deletes events that are both synced and older than cutoff,
// returning the number removed.
func (r *AnalyticsRepo) PurgeSynced(ctx context.Context, cutoff time.Time) (int, error) {
	var n int64
	err := r.db.InTx(ctx, func(tx *store.Tx) error {
		res, err := tx.ExecContext(ctx,
			`DELETE FROM analytics_events WHERE synced = 1 AND timestamp < ?`, cutoff)
		if err != nil {
			return fmt.Errorf("failed to purge synced events: %w", err)
		}
		n, _ = res.RowsAffected()
		if n > 0 {
			tx.MarkChanged(store.TableAnalytics)
		}
		return nil
	})
	return int(n), err
}

// Stats aggregates an owner's events since the cutoff (zero time means
// all events) into the usage counters shown by the status command.
func (r *AnalyticsRepo) Stats(ctx context.Context, ownerID string, since time.Time) (*model.UsageStats, error) {
	query := `SELECT ` + analyticsCols + ` FROM analytics_events WHERE owner_id = ?`
	args := []any{ownerID}
	if !since.IsZero() {
		query += ` AND timestamp >= ?`
		args = append(args, since)
	}
	var events []model.AnalyticsEvent
	if err := r.db.Conn().SelectContext(ctx, &events, query, args...); err != nil {
		return nil, fmt.Errorf("failed to load events for stats: %w", err)
	}

	stats := &model.UsageStats{EventCount: len(events)}
	for _, evt := range events {
		var data map[string]any
		if len(evt.EventData) > 0 {
			_ = json.Unmarshal(evt.EventData, &data)
		}
		switch evt.EventType {
		case model.EventBarcodeScanned:
			stats.TotalScans++
		case model.EventItemAdded:
			stats.ItemsAdded++
			if price, ok := data["price"].(float64); ok {
				stats.TotalSpent += price
			}
		case model.EventItemConsumed:
			reason, _ := data["reason"].(string)
			switch model.ConsumeReason(reason) {
			case model.ReasonExpired:
				stats.ItemsExpired++
			case model.ReasonDiscarded:
				stats.ItemsDiscarded++
			default:
				stats.ItemsConsumed++
			}
		}
	}

	total := stats.ItemsAdded
	if total == 0 {
		total = 1 // avoid division by zero
	}
	stats.WastePercentage = math.Round(float64(stats.ItemsExpired+stats.ItemsDiscarded)/float64(total)*1000) / 10
	stats.TotalSpent = math.Round(stats.TotalSpent*100) / 100
	return stats, nil
}
