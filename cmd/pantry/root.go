package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/zhiliushi/pantry/internal/config"
	"github.com/zhiliushi/pantry/internal/remote"
	"github.com/zhiliushi/pantry/internal/store"
	"github.com/zhiliushi/pantry/internal/sync"
	"github.com/zhiliushi/pantry/internal/ui"
)

var (
	flagConfig  string
	flagNoColor bool
)

var rootCmd = &cobra.Command{
	Use:   "pantry",
	Short: "Offline-first household grocery tracker",
	Long: `Track groceries from barcode scan to consumption, entirely offline,
with optional background sync to the cloud.

All data lives in a local SQLite database. Scans and cart entries
expire after 24 hours; inventory is permanent until consumed.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if flagNoColor {
			ui.Plain()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "config file (default: ./pantry.yaml or ~/.pantry/pantry.yaml)")
	rootCmd.PersistentFlags().BoolVar(&flagNoColor, "no-color", false, "disable colored output")

	rootCmd.AddGroup(
		&cobra.Group{ID: "items", Title: "Item Commands:"},
		&cobra.Group{ID: "shopping", Title: "Shopping Commands:"},
		&cobra.Group{ID: "sync", Title: "Sync & Maintenance:"},
	)
}

// loadConfig reads the effective configuration for this invocation.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// openDB opens the local database, running migrations as needed.
func openDB(cfg *config.Config) (*store.DB, error) {
	db, err := store.Open(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database at %s: %w", cfg.DBPath, err)
	}
	return db, nil
}

// newAPIClient builds the remote API client from config.
func newAPIClient(cfg *config.Config) *remote.APIClient {
	return remote.NewAPIClient(cfg.Remote.BaseURL, cfg.Remote.FallbackURL, cfg.Remote.Timeout)
}

// newOrchestrator wires a sync orchestrator against the API server's
// document store endpoints.
func newOrchestrator(cfg *config.Config, db *store.DB) *sync.Orchestrator {
	docs := remote.NewHTTPDocStore(cfg.Remote.BaseURL, cfg.Remote.Timeout)
	prober := remote.NewHTTPProber(cfg.Remote.BaseURL, 3*time.Second)
	return sync.New(db, docs, prober, sync.Config{
		OwnerID:     cfg.OwnerID,
		Tier:        sync.Tier(cfg.Tier),
		BatchSize:   cfg.Sync.BatchSize,
		Retention:   cfg.Sync.Retention,
		MaxAttempts: cfg.Sync.MaxAttempts,
		BaseBackoff: cfg.Sync.BaseBackoff,
	}, nil)
}
