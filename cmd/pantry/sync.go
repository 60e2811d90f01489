package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/zhiliushi/pantry/internal/metrics"
	"github.com/zhiliushi/pantry/internal/repo"
	"github.com/zhiliushi/pantry/internal/sync"
	"github.com/zhiliushi/pantry/internal/ui"
)

var syncCmd = &cobra.Command{
	Use:     "sync",
	GroupID: "sync",
	Short:   "Run one sync cycle against the cloud",
	Long: `Push unsynced analytics (and, on the paid tier, inventory and
shopping lists) to the cloud, purge old synced analytics, and refresh
the foodbank directory.

Sync never fails hard on remote errors: the cycle reports a status and
an error list, and local data is always authoritative until pushed.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		cfg, err := loadConfig()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		db, err := openDB(cfg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer db.Close()

		result, err := newOrchestrator(cfg, db).Sync(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		metrics.SyncCycles.WithLabelValues(string(result.Status)).Inc()
		printSyncResult(result)
		if result.Status == sync.StatusError {
			os.Exit(1)
		}
	},
}

var sweepCmd = &cobra.Command{
	Use:     "sweep",
	GroupID: "sync",
	Short:   "Delete expired scans and cart items",
	Long: `Remove every staged scan and cart row whose TTL has passed. Runs
automatically in serve mode; safe to call repeatedly.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		db, err := openDB(cfg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer db.Close()

		result, err := repo.NewSweeper(db, nil).Sweep(cmd.Context(), time.Now())
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		metrics.SweepDeleted.WithLabelValues("scanned_items").Add(float64(result.ScansDeleted))
		metrics.SweepDeleted.WithLabelValues("cart_items").Add(float64(result.CartDeleted))

		if result.Total() == 0 {
			fmt.Println(ui.Dim("Nothing expired."))
			return
		}
		fmt.Printf("Swept %d scan(s), %d cart item(s).\n",
			result.ScansDeleted, result.CartDeleted)
	},
}

func printSyncResult(r sync.Result) {
	switch r.Status {
	case sync.StatusOK:
		fmt.Println(ui.Success("Sync complete."))
	case sync.StatusPartial:
		fmt.Println(ui.Warn("Sync completed with errors."))
	default:
		fmt.Println(ui.Fail("Sync failed."))
	}
	fmt.Printf("  analytics: %d  inventory: %d  lists: %d (+%d items)  purged: %d\n",
		r.AnalyticsPushed, r.InventoryPushed, r.ListsPushed, r.ListItemsPushed, r.EventsPurged)
	if len(r.NeedsLocalUpdate) > 0 {
		fmt.Printf("  %s %d remote document(s) missing locally\n",
			ui.Warn("note:"), len(r.NeedsLocalUpdate))
	}
	for _, msg := range r.Errors {
		fmt.Printf("  %s %s\n", ui.Fail("error:"), msg)
	}
}

func init() {
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(sweepCmd)
}
