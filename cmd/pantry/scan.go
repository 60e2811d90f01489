package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/zhiliushi/pantry/internal/metrics"
	"github.com/zhiliushi/pantry/internal/model"
	"github.com/zhiliushi/pantry/internal/repo"
	"github.com/zhiliushi/pantry/internal/ui"
)

var scanCmd = &cobra.Command{
	Use:     "scan <barcode>",
	GroupID: "items",
	Short:   "Scan a barcode and stage it for review",
	Long: `Look up a barcode against the product database and create a staged
scan entry. Staged scans expire after 24 hours unless promoted into
inventory with "pantry promote".

Works offline: if the lookup fails the scan is still staged with the
bare barcode, flagged for later review.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		barcode := args[0]
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

		scan := &model.ScannedItem{
			OwnerID: cfg.OwnerID,
			Barcode: barcode,
		}

		product, err := newAPIClient(cfg).Lookup(ctx, barcode)
		switch {
		case err != nil:
			metrics.ScansTotal.WithLabelValues("offline").Inc()
			fmt.Println(ui.Warn("Lookup unavailable, staging barcode only: " + err.Error()))
		case !product.Found:
			metrics.ScansTotal.WithLabelValues("not_found").Inc()
			fmt.Println(ui.Warn("Product not known. Staged for manual naming."))
		default:
			metrics.ScansTotal.WithLabelValues("found").Inc()
			scan.Name = &product.Name
			if product.Brands != "" {
				scan.Brand = &product.Brands
			}
			if product.ImageURL != "" {
				scan.ImageURL = &product.ImageURL
			}
			if raw, err := json.Marshal(product); err == nil {
				scan.RawPayload = raw
			}
			fmt.Printf("%s %s (source: %s)\n", ui.Success("Found:"), ui.Accent(product.Name), product.Source)
		}

		scans := repo.NewScannedRepo(db).WithTTL(cfg.TTL.Scan)
		if err := scans.Create(ctx, scan); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		analytics := repo.NewAnalyticsRepo(db)
		_ = analytics.Append(ctx, cfg.OwnerID, model.EventBarcodeScanned,
			map[string]string{"barcode": barcode})

		fmt.Printf("Staged scan %s (expires %s)\n",
			ui.Accent(scan.ID), scan.ExpiresAt.Format("2006-01-02 15:04"))
	},
}

func init() {
	rootCmd.AddCommand(scanCmd)
}
