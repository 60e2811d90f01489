package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/zhiliushi/pantry/internal/config"
	"github.com/zhiliushi/pantry/internal/dashboard"
	"github.com/zhiliushi/pantry/internal/metrics"
	"github.com/zhiliushi/pantry/internal/queue"
	"github.com/zhiliushi/pantry/internal/remote"
	"github.com/zhiliushi/pantry/internal/repo"
	"github.com/zhiliushi/pantry/internal/seed"
	"github.com/zhiliushi/pantry/internal/store"
	"github.com/zhiliushi/pantry/internal/sync"
)

var serveCmd = &cobra.Command{
	Use:     "serve",
	GroupID: "sync",
	Short:   "Run the background daemon",
	Long: `Serve mode keeps the pantry healthy without user interaction: it
sweeps expired scans and cart rows, syncs on an interval, replays
queued offline requests once connectivity returns, and hosts the live
dashboard with a WebSocket feed and Prometheus metrics.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		logger := serveLogger(cfg)

		db, err := openDB(cfg)
		if err != nil {
			return err
		}
		defer db.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if err := seed.Run(ctx, db, logger); err != nil {
			return err
		}

		// Startup sweep; expired rows should never survive a restart.
		sweeper := repo.NewSweeper(db, logger)
		if result, err := sweeper.Sweep(ctx, time.Now()); err != nil {
			logger.Printf("startup sweep failed: %v", err)
		} else {
			metrics.SweepDeleted.WithLabelValues("scanned_items").Add(float64(result.ScansDeleted))
			metrics.SweepDeleted.WithLabelValues("cart_items").Add(float64(result.CartDeleted))
		}

		prober := remote.NewHTTPProber(cfg.Remote.BaseURL, 3*time.Second)
		api := newAPIClient(cfg)
		offline := queue.New(logger)

		dash := dashboard.NewServer(cfg.Serve.Addr, logger)
		dash.Handle("/api/contribute", contributeHandler(cfg, api, prober, offline))
		dash.Handle("/api/lookup", lookupHandler(api, prober, offline))
		if err := dash.Start(); err != nil {
			return err
		}
		defer func() {
			if err := dash.Stop(); err != nil {
				logger.Printf("dashboard stop: %v", err)
			}
		}()

		orch := newOrchestrator(cfg, db)
		unregister := orch.Register(func(r sync.Result) {
			metrics.SyncCycles.WithLabelValues(string(r.Status)).Inc()
			metrics.SyncPushed.WithLabelValues("analytics").Add(float64(r.AnalyticsPushed))
			metrics.SyncPushed.WithLabelValues("grocery_items").Add(float64(r.InventoryPushed))
			metrics.SyncPushed.WithLabelValues("shopping_lists").Add(float64(r.ListsPushed + r.ListItemsPushed))
			dash.Broadcast(dashboard.MessageTypeSyncResult, r)
		})
		defer unregister()

		// Apply tier changes on config edits; structural settings
		// (db path, listen addr) still need a restart.
		if flagConfig != "" {
			if err := config.Watch(flagConfig, func(next *config.Config) {
				orch.SetTier(sync.Tier(next.Tier))
				logger.Printf("config reloaded from %s (tier=%s)", flagConfig, next.Tier)
			}); err != nil {
				logger.Printf("config watch unavailable: %v", err)
			}
		}

		go watchTables(ctx, db, dash)
		go sweepLoop(ctx, sweeper, dash, logger)
		go flushLoop(ctx, offline, prober, api, logger)
		go orch.Run(ctx, cfg.Sync.Interval)

		logger.Printf("serving on %s (owner=%s tier=%s)", dash.Addr(), cfg.OwnerID, cfg.Tier)
		<-ctx.Done()
		logger.Printf("shutting down")
		return nil
	},
}

// serveLogger writes to a rotating file when configured, else stderr.
func serveLogger(cfg *config.Config) *log.Logger {
	if cfg.Serve.LogFile == "" {
		return log.New(os.Stderr, "[pantry] ", log.LstdFlags)
	}
	return log.New(&lumberjack.Logger{
		Filename:   cfg.Serve.LogFile,
		MaxSize:    cfg.Serve.LogMaxSize,
		MaxBackups: cfg.Serve.LogBackups,
	}, "[pantry] ", log.LstdFlags)
}

// watchTables relays committed table changes to dashboard clients.
func watchTables(ctx context.Context, db *store.DB, dash *dashboard.Server) {
	tables := []string{
		store.TableScannedItems, store.TableInventory, store.TableLists,
		store.TableListItems, store.TableCartItems, store.TablePriceHistory,
	}
	for _, table := range tables {
		sub := db.Hub().Subscribe(table)
		go func(table string, sub *store.Subscription) {
			defer sub.Close()
			for {
				select {
				case <-ctx.Done():
					return
				case <-sub.C:
					dash.Broadcast(dashboard.MessageTypeTableChange,
						dashboard.TableChangeData{Table: table})
				}
			}
		}(table, sub)
	}
}

// sweepLoop runs the TTL sweep hourly.
func sweepLoop(ctx context.Context, sweeper *repo.Sweeper, dash *dashboard.Server, logger *log.Logger) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			result, err := sweeper.Sweep(ctx, time.Now())
			if err != nil {
				logger.Printf("sweep failed: %v", err)
				continue
			}
			if result.Total() > 0 {
				metrics.SweepDeleted.WithLabelValues("scanned_items").Add(float64(result.ScansDeleted))
				metrics.SweepDeleted.WithLabelValues("cart_items").Add(float64(result.CartDeleted))
				dash.Broadcast(dashboard.MessageTypeSweep, dashboard.SweepData{
					ScansDeleted: result.ScansDeleted,
					CartDeleted:  result.CartDeleted,
				})
			}
		}
	}
}

// flushLoop replays queued offline requests whenever connectivity is
// back. Silent when the queue is empty.
func flushLoop(ctx context.Context, offline *queue.Queue, prober remote.Prober, api *remote.APIClient, logger *log.Logger) {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			metrics.OfflineQueueDepth.Set(float64(offline.Len()))
			if offline.Len() == 0 || !prober.Online(ctx) {
				continue
			}
			n := offline.Flush(ctx, replayRequest(api))
			if n > 0 {
				logger.Printf("replayed %d offline request(s)", n)
			}
			metrics.OfflineQueueDepth.Set(float64(offline.Len()))
		}
	}
}

// replayRequest executes one queued entry against the API server.
func replayRequest(api *remote.APIClient) queue.Replayer {
	return func(ctx context.Context, e queue.Entry) error {
		switch e.Type {
		case queue.RequestContribution:
			contrib, ok := e.Payload.(remote.Contribution)
			if !ok {
				return fmt.Errorf("bad contribution payload %T", e.Payload)
			}
			return api.Contribute(ctx, contrib)
		case queue.RequestScanLookup:
			barcode, ok := e.Payload.(string)
			if !ok {
				return fmt.Errorf("bad lookup payload %T", e.Payload)
			}
			_, err := api.Lookup(ctx, barcode)
			return err
		default:
			return fmt.Errorf("unknown request type %q", e.Type)
		}
	}
}

// contributeHandler accepts product contributions over HTTP (from the
// companion app on the same network). When the API server is down the
// contribution is queued for replay instead of lost.
func contributeHandler(cfg *config.Config, api *remote.APIClient, prober remote.Prober, offline *queue.Queue) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var contrib remote.Contribution
		if err := json.NewDecoder(r.Body).Decode(&contrib); err != nil {
			http.Error(w, "invalid body", http.StatusBadRequest)
			return
		}
		if contrib.OwnerID == "" {
			contrib.OwnerID = cfg.OwnerID
		}

		if err := api.Contribute(r.Context(), contrib); err != nil {
			if !prober.Online(r.Context()) {
				err := offline.Enqueue(queue.RequestContribution, contrib)
				metrics.OfflineQueueDepth.Set(float64(offline.Len()))
				w.WriteHeader(http.StatusAccepted)
				_ = json.NewEncoder(w).Encode(map[string]any{
					"success": false,
					"status":  "queued",
					"detail":  err.Error(),
				})
				return
			}
			http.Error(w, err.Error(), http.StatusBadGateway)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"success": true})
	})
}

// lookupHandler resolves a barcode against the API server (for the
// companion app on the same network). A lookup that fails while offline
// is queued, so the product still reaches the local cache on replay.
func lookupHandler(api *remote.APIClient, prober remote.Prober, offline *queue.Queue) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		barcode := r.URL.Query().Get("barcode")
		if barcode == "" {
			http.Error(w, "missing barcode", http.StatusBadRequest)
			return
		}

		product, err := api.Lookup(r.Context(), barcode)
		if err != nil {
			if !prober.Online(r.Context()) {
				err := offline.Enqueue(queue.RequestScanLookup, barcode)
				metrics.OfflineQueueDepth.Set(float64(offline.Len()))
				w.WriteHeader(http.StatusAccepted)
				_ = json.NewEncoder(w).Encode(map[string]any{
					"found":  false,
					"status": "queued",
					"detail": err.Error(),
				})
				return
			}
			http.Error(w, err.Error(), http.StatusBadGateway)
			return
		}
		_ = json.NewEncoder(w).Encode(product)
	})
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
