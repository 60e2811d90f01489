package sync

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/zhiliushi/pantry/internal/model"
	"github.com/zhiliushi/pantry/internal/remote"
)

// reconcileResult classifies every document seen on either side during
// bidirectional reconciliation.
type reconcileResult struct {
	// PushLocal holds IDs whose local copy wins and should reach the
	// remote store.
	PushLocal []string
	// ApplyRemote holds remote documents that win over the local copy
	// and must be written back locally, timestamps preserved.
	ApplyRemote []remote.Document
	// NeedsLocal holds IDs present only remotely. They are reported to
	// the caller rather than materialized automatically.
	NeedsLocal []string
}

// reconcile resolves conflicts row by row with last-write-wins. For a
// document present on both sides the copy with the strictly greater
// updatedAt wins; an exact tie keeps the local copy. There is no
// field-level merge.
func reconcile(local map[string]time.Time, remoteDocs []remote.Document) reconcileResult {
	var out reconcileResult
	seen := make(map[string]bool, len(remoteDocs))

	for _, doc := range remoteDocs {
		seen[doc.ID] = true
		localAt, ok := local[doc.ID]
		switch {
		case !ok:
			out.NeedsLocal = append(out.NeedsLocal, doc.ID)
		case localAt.Before(doc.UpdatedAt):
			out.ApplyRemote = append(out.ApplyRemote, doc)
		default:
			out.PushLocal = append(out.PushLocal, doc.ID)
		}
	}
	for id := range local {
		if !seen[id] {
			out.PushLocal = append(out.PushLocal, id)
		}
	}
	return out
}

// toDoc flattens a model struct into a document payload through its
// JSON form, so wire field names match the json tags.
func toDoc(v any) (map[string]any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode document: %w", err)
	}
	var data map[string]any
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("failed to flatten document: %w", err)
	}
	return data, nil
}

// fromDoc decodes a remote document payload back into a model struct.
func fromDoc(doc remote.Document, v any) error {
	raw, err := json.Marshal(doc.Data)
	if err != nil {
		return fmt.Errorf("failed to re-encode document %s: %w", doc.ID, err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("failed to decode document %s: %w", doc.ID, err)
	}
	return nil
}

func docToInventory(doc remote.Document) (*model.InventoryItem, error) {
	var item model.InventoryItem
	if err := fromDoc(doc, &item); err != nil {
		return nil, err
	}
	if item.ID == "" {
		item.ID = doc.ID
	}
	return &item, nil
}

func docToList(doc remote.Document) (*model.ShoppingList, error) {
	var list model.ShoppingList
	if err := fromDoc(doc, &list); err != nil {
		return nil, err
	}
	if list.ID == "" {
		list.ID = doc.ID
	}
	return &list, nil
}

func docToFoodbank(doc remote.Document) (*model.Foodbank, error) {
	var bank model.Foodbank
	if err := fromDoc(doc, &bank); err != nil {
		return nil, err
	}
	if bank.ID == "" {
		bank.ID = doc.ID
	}
	return &bank, nil
}
