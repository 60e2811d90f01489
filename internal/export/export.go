// Package export reads and writes the pantry as JSON Lines, one record
// per line tagged with its table. Used for backup, restore and moving a
// household to another device.
package export

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/zhiliushi/pantry/internal/model"
	"github.com/zhiliushi/pantry/internal/repo"
	"github.com/zhiliushi/pantry/internal/store"
)

// Record tags one exported row with its origin table so a single file
// can round-trip the whole pantry.
type Record struct {
	Table string          `json:"table"`
	Data  json.RawMessage `json:"data"`
}

// Result counts rows handled by an export or import.
type Result struct {
	Inventory int
	Lists     int
	ListItems int
	Errors    []string
}

// Total reports all rows written or read.
func (r Result) Total() int { return r.Inventory + r.Lists + r.ListItems }

// Exporter walks one owner's durable tables and streams them out.
// Ephemeral rows (scans, cart) are deliberately excluded; they expire
// within a day and are not worth carrying between devices.
type Exporter struct {
	inventory *repo.InventoryRepo
	lists     *repo.ListRepo
}

// NewExporter creates an Exporter over an opened database.
func NewExporter(db *store.DB) *Exporter {
	return &Exporter{
		inventory: repo.NewInventoryRepo(db),
		lists:     repo.NewListRepo(db),
	}
}

// Export writes every inventory row, shopping list and list item for
// one owner as JSONL.
func (e *Exporter) Export(ctx context.Context, ownerID string, w io.Writer) (*Result, error) {
	result := &Result{}
	enc := json.NewEncoder(w)

	write := func(table string, v any) error {
		raw, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("failed to encode %s row: %w", table, err)
		}
		return enc.Encode(Record{Table: table, Data: raw})
	}

	items, err := e.inventory.List(ctx, ownerID, repo.ListFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to read inventory: %w", err)
	}
	for _, item := range items {
		if err := write(store.TableInventory, item); err != nil {
			return nil, err
		}
		result.Inventory++
	}

	lists, err := e.lists.ListsByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to read lists: %w", err)
	}
	for _, list := range lists {
		if err := write(store.TableLists, list); err != nil {
			return nil, err
		}
		result.Lists++

		items, err := e.lists.Items(ctx, list.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to read items of list %s: %w", list.ID, err)
		}
		for _, li := range items {
			if err := write(store.TableListItems, li); err != nil {
				return nil, err
			}
			result.ListItems++
		}
	}
	return result, nil
}

// ExportFile exports to path, writing atomically via a temp file.
func (e *Exporter) ExportFile(ctx context.Context, ownerID, path string) (*Result, error) {
	tmpPath := path + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create export file: %w", err)
	}

	result, err := e.Export(ctx, ownerID, f)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(tmpPath)
		return nil, err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return nil, fmt.Errorf("failed to finalize export file: %w", err)
	}
	return result, nil
}

// Importer replays a JSONL export into the local database.
type Importer struct {
	inventory *repo.InventoryRepo
	lists     *repo.ListRepo
}

// NewImporter creates an Importer over an opened database.
func NewImporter(db *store.DB) *Importer {
	return &Importer{
		inventory: repo.NewInventoryRepo(db),
		lists:     repo.NewListRepo(db),
	}
}

// Import upserts every record from r. Rows keep their exported IDs and
// timestamps so a restore does not look like a fresh edit to sync.
// Invalid lines are collected in the result, not fatal.
func (im *Importer) Import(ctx context.Context, r io.Reader) (*Result, error) {
	result := &Result{}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec Record
		if err := json.Unmarshal(line, &rec); err != nil {
			result.Errors = append(result.Errors,
				fmt.Sprintf("line %d: invalid record: %v", lineNum, err))
			continue
		}
		if err := im.apply(ctx, rec, result); err != nil {
			result.Errors = append(result.Errors,
				fmt.Sprintf("line %d: %v", lineNum, err))
		}
	}
	if err := scanner.Err(); err != nil {
		return result, fmt.Errorf("failed to read export: %w", err)
	}
	return result, nil
}

func (im *Importer) apply(ctx context.Context, rec Record, result *Result) error {
	switch rec.Table {
	case store.TableInventory:
		var item model.InventoryItem
		if err := json.Unmarshal(rec.Data, &item); err != nil {
			return fmt.Errorf("invalid inventory row: %w", err)
		}
		if err := im.inventory.Upsert(ctx, &item); err != nil {
			return err
		}
		result.Inventory++
	case store.TableLists:
		var list model.ShoppingList
		if err := json.Unmarshal(rec.Data, &list); err != nil {
			return fmt.Errorf("invalid list row: %w", err)
		}
		if err := im.lists.Upsert(ctx, &list); err != nil {
			return err
		}
		result.Lists++
	case store.TableListItems:
		var li model.ListItem
		if err := json.Unmarshal(rec.Data, &li); err != nil {
			return fmt.Errorf("invalid list item row: %w", err)
		}
		if err := im.lists.UpsertItem(ctx, &li); err != nil {
			return err
		}
		result.ListItems++
	default:
		return fmt.Errorf("unknown table %q", rec.Table)
	}
	return nil
}

// ImportFile imports from path.
func (im *Importer) ImportFile(ctx context.Context, path string) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open export file: %w", err)
	}
	defer f.Close()
	return im.Import(ctx, f)
}

// BackupName derives a timestamped sibling path for pre-import backups.
func BackupName(path string, now time.Time) string {
	return path + ".backup." + now.Format("20060102-150405")
}
