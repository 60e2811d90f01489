package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/zhiliushi/pantry/internal/model"
	"github.com/zhiliushi/pantry/internal/repo"
	"github.com/zhiliushi/pantry/internal/ui"
)

var statusSince time.Duration

var statusCmd = &cobra.Command{
	Use:     "status",
	GroupID: "sync",
	Short:   "Show database and usage overview",
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

		version, err := db.SchemaVersion(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		inventory := repo.NewInventoryRepo(db)
		active, err := inventory.List(ctx, cfg.OwnerID, repo.ListFilter{Status: model.StatusActive})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		unsynced, err := inventory.ListUnsynced(ctx, cfg.OwnerID)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		stats, err := repo.NewAnalyticsRepo(db).Stats(ctx, cfg.OwnerID, time.Now().Add(-statusSince))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		fmt.Println(ui.Header("Pantry"))
		fmt.Printf("  database:       %s (schema v%d)\n", cfg.DBPath, version)
		fmt.Printf("  owner:          %s (%s tier)\n", cfg.OwnerID, cfg.Tier)
		fmt.Printf("  active items:   %d (%d awaiting sync)\n", len(active), len(unsynced))
		fmt.Println(ui.Header(fmt.Sprintf("Last %s", statusSince)))
		fmt.Printf("  scans:          %d\n", stats.TotalScans)
		fmt.Printf("  items added:    %d\n", stats.ItemsAdded)
		fmt.Printf("  items consumed: %d\n", stats.ItemsConsumed)
		fmt.Printf("  total spent:    %.2f\n", stats.TotalSpent)
		if stats.WastePercentage > 0 {
			fmt.Printf("  waste:          %s\n", ui.Warn(fmt.Sprintf("%.1f%%", stats.WastePercentage)))
		}
	},
}

func init() {
	statusCmd.Flags().DurationVar(&statusSince, "since", 30*24*time.Hour, "stats window")
	rootCmd.AddCommand(statusCmd)
}
