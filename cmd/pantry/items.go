package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/zhiliushi/pantry/internal/metrics"
	"github.com/zhiliushi/pantry/internal/model"
	"github.com/zhiliushi/pantry/internal/repo"
	"github.com/zhiliushi/pantry/internal/ui"
)

var (
	addQuantity float64
	addUnit     string
	addCategory string
	addLocation string
	addExpiry   string
	addPrice    float64

	itemsStatus   string
	itemsLocation string

	consumeReason    string
	consumeRemaining float64
)

var addCmd = &cobra.Command{
	Use:     "add <name>",
	GroupID: "items",
	Short:   "Add an item directly to inventory",
	Long: `Add an item to active inventory without scanning. Skips the staged
scan step entirely.`,
	Args: cobra.ExactArgs(1),
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

		item := &model.InventoryItem{
			OwnerID:  cfg.OwnerID,
			Name:     args[0],
			Quantity: addQuantity,
			Location: addLocation,
			Status:   model.StatusActive,
		}
		if addPrice > 0 {
			item.Price = &addPrice
		}

		ref := repo.NewReferenceRepo(db)
		if addUnit != "" {
			unit, err := ref.UnitByAbbrev(ctx, addUnit)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: unknown unit %q\n", addUnit)
				os.Exit(1)
			}
			item.UnitID = &unit.ID
		}
		if addCategory != "" {
			cat, err := ref.CategoryByName(ctx, addCategory)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: unknown category %q\n", addCategory)
				os.Exit(1)
			}
			item.CategoryID = &cat.ID
		}
		expiry, err := parseExpiry(addExpiry)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		item.ExpiryDate = expiry
		item.ExpiryConfirmed = expiry != nil

		if err := repo.NewInventoryRepo(db).Create(ctx, item); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		_ = repo.NewAnalyticsRepo(db).Append(ctx, cfg.OwnerID, model.EventItemAdded,
			map[string]any{"item_id": item.ID, "name": item.Name, "price": item.Price})

		fmt.Printf("%s %s (%s)\n", ui.Success("Added"), ui.Accent(item.Name), item.ID)
	},
}

var itemsCmd = &cobra.Command{
	Use:     "items",
	GroupID: "items",
	Short:   "List inventory items",
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

		filter := repo.ListFilter{}
		if itemsStatus != "" {
			filter.Status = model.ItemStatus(itemsStatus)
		}
		if itemsLocation != "" {
			filter.Location = itemsLocation
		}

		items, err := repo.NewInventoryRepo(db).List(ctx, cfg.OwnerID, filter)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		if len(items) == 0 {
			fmt.Println(ui.Dim("No items."))
			return
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, ui.Header("ID\tNAME\tQTY\tLOCATION\tSTATUS\tEXPIRES"))
		for _, it := range items {
			expires := "-"
			if it.ExpiryDate != nil {
				expires = it.ExpiryDate.Format("2006-01-02")
			}
			fmt.Fprintf(w, "%s\t%s\t%g\t%s\t%s\t%s\n",
				it.ID[:8], it.Name, it.Quantity, it.Location,
				ui.StatusBadge(string(it.Status)), expires)
		}
		_ = w.Flush()
	},
}

var consumeCmd = &cobra.Command{
	Use:     "consume <item-id>",
	GroupID: "items",
	Short:   "Mark an inventory item used up, expired or discarded",
	Args:    cobra.ExactArgs(1),
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

		reason := model.ConsumeReason(consumeReason)
		if !reason.IsValid() {
			fmt.Fprintf(os.Stderr, "Error: invalid reason %q (used_up, expired, discarded)\n", consumeReason)
			os.Exit(1)
		}
		var remaining *float64
		if cmd.Flags().Changed("remaining") {
			remaining = &consumeRemaining
		}

		if err := repo.NewInventoryRepo(db).Consume(ctx, args[0], reason, remaining); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		metrics.ItemsConsumed.WithLabelValues(string(reason)).Inc()

		_ = repo.NewAnalyticsRepo(db).Append(ctx, cfg.OwnerID, model.EventItemConsumed,
			map[string]any{"item_id": args[0], "reason": reason})

		fmt.Printf("%s %s (%s)\n", ui.Success("Consumed"), ui.Accent(args[0]), reason)
	},
}

var restoreCmd = &cobra.Command{
	Use:     "restore <item-id>",
	GroupID: "items",
	Short:   "Undo a consume, returning the item to active",
	Args:    cobra.ExactArgs(1),
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

		if err := repo.NewInventoryRepo(db).Restore(ctx, args[0]); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		_ = repo.NewAnalyticsRepo(db).Append(ctx, cfg.OwnerID, model.EventItemRestored,
			map[string]string{"item_id": args[0]})

		fmt.Printf("%s %s\n", ui.Success("Restored"), ui.Accent(args[0]))
	},
}

func init() {
	addCmd.Flags().Float64VarP(&addQuantity, "quantity", "q", 1, "quantity")
	addCmd.Flags().StringVarP(&addUnit, "unit", "u", "", "unit abbreviation")
	addCmd.Flags().StringVarP(&addCategory, "category", "c", "", "category name")
	addCmd.Flags().StringVarP(&addLocation, "location", "l", model.LocationPantry, "storage location")
	addCmd.Flags().StringVarP(&addExpiry, "expiry", "e", "", "expiry date")
	addCmd.Flags().Float64VarP(&addPrice, "price", "p", 0, "purchase price")

	itemsCmd.Flags().StringVar(&itemsStatus, "status", "", "filter by status (active, consumed, expired, discarded)")
	itemsCmd.Flags().StringVar(&itemsLocation, "location", "", "filter by location")

	consumeCmd.Flags().StringVarP(&consumeReason, "reason", "r", string(model.ReasonUsedUp), "reason (used_up, expired, discarded)")
	consumeCmd.Flags().Float64Var(&consumeRemaining, "remaining", 0, "quantity left over")

	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(itemsCmd)
	rootCmd.AddCommand(consumeCmd)
	rootCmd.AddCommand(restoreCmd)
}
