package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/zhiliushi/pantry/internal/checkout"
	"github.com/zhiliushi/pantry/internal/metrics"
	"github.com/zhiliushi/pantry/internal/model"
	"github.com/zhiliushi/pantry/internal/repo"
	"github.com/zhiliushi/pantry/internal/ui"
)

var (
	checkoutStore    string
	checkoutLocation string
	checkoutList     string
)

var checkoutCmd = &cobra.Command{
	Use:     "checkout",
	GroupID: "shopping",
	Short:   "Convert the cart or a shopping list into inventory",
	Long: `Checkout moves purchases into inventory in one transaction: every
source item becomes an active inventory row, items with both a price
and a barcode also record a price history entry, and the source (cart
or list) is cleared. On any failure nothing is written.

By default the cart is checked out; pass --list to check out the
purchased items of a shopping list instead.`,
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

		co := checkout.New(db)
		var (
			result *checkout.Result
			source = "cart"
		)
		if checkoutList != "" {
			source = "list"
			result, err = co.List(ctx, checkoutList, checkoutStore, checkoutLocation, nil)
		} else {
			result, err = co.Cart(ctx, cfg.OwnerID, checkoutStore, checkoutLocation, nil)
		}
		if err != nil {
			metrics.CheckoutsTotal.WithLabelValues(source, "error").Inc()
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		metrics.CheckoutsTotal.WithLabelValues(source, "ok").Inc()

		_ = repo.NewAnalyticsRepo(db).Append(ctx, cfg.OwnerID, model.EventCheckout,
			map[string]any{
				"source":      source,
				"items":       len(result.InventoryIDs),
				"total_price": result.TotalPrice,
			})

		fmt.Printf("%s %d item(s) into inventory, %d price record(s), total %.2f\n",
			ui.Success("Checked out"), len(result.InventoryIDs),
			len(result.PriceRecordIDs), result.TotalPrice)
	},
}

func init() {
	checkoutCmd.Flags().StringVarP(&checkoutStore, "store", "s", "", "store id for price history")
	checkoutCmd.Flags().StringVarP(&checkoutLocation, "location", "l", model.LocationPantry, "default storage location")
	checkoutCmd.Flags().StringVar(&checkoutList, "list", "", "check out a shopping list instead of the cart")
	rootCmd.AddCommand(checkoutCmd)
}
