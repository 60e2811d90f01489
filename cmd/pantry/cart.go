package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/zhiliushi/pantry/internal/model"
	"github.com/zhiliushi/pantry/internal/repo"
	"github.com/zhiliushi/pantry/internal/ui"
)

var (
	cartQuantity float64
	cartBarcode  string
	cartPrice    float64
	cartWeight   float64
	cartWeightU  string
)

var cartCmd = &cobra.Command{
	Use:     "cart",
	GroupID: "shopping",
	Short:   "Manage the shopping cart",
	Long: `The cart holds items picked up in the store before checkout. Cart
rows expire after 24 hours; checkout converts them into inventory.`,
}

var cartAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Put an item in the cart",
	Args:  cobra.ExactArgs(1),
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

		item := &model.CartItem{
			OwnerID:  cfg.OwnerID,
			Name:     args[0],
			Quantity: cartQuantity,
		}
		if cartBarcode != "" {
			item.Barcode = &cartBarcode
		}
		if cartPrice > 0 {
			item.Price = &cartPrice
		}
		if cartWeight > 0 {
			item.Weight = &cartWeight
			if cartWeightU != "" {
				item.WeightUnit = &cartWeightU
			}
		}

		if err := repo.NewCartRepo(db).WithTTL(cfg.TTL.Cart).Add(ctx, item); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("%s %s\n", ui.Success("In cart:"), ui.Accent(item.Name))
	},
}

var cartListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show the cart",
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

		items, err := repo.NewCartRepo(db).ListByOwner(ctx, cfg.OwnerID)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		if len(items) == 0 {
			fmt.Println(ui.Dim("Cart is empty."))
			return
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, ui.Header("ID\tNAME\tQTY\tPRICE\tEXPIRES"))
		for _, it := range items {
			price := "-"
			if it.Price != nil {
				price = fmt.Sprintf("%.2f", *it.Price)
			}
			fmt.Fprintf(w, "%s\t%s\t%g\t%s\t%s\n",
				it.ID[:8], it.Name, it.Quantity, price,
				it.ExpiresAt.Format("15:04"))
		}
		_ = w.Flush()
	},
}

var cartRemoveCmd = &cobra.Command{
	Use:   "remove <item-id>",
	Short: "Remove one item from the cart",
	Args:  cobra.ExactArgs(1),
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

		if err := repo.NewCartRepo(db).Remove(cmd.Context(), args[0]); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(ui.Success("Removed."))
	},
}

var cartClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Empty the cart without checking out",
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

		n, err := repo.NewCartRepo(db).Clear(cmd.Context(), cfg.OwnerID)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Removed %d item(s).\n", n)
	},
}

func init() {
	cartAddCmd.Flags().Float64VarP(&cartQuantity, "quantity", "q", 1, "quantity")
	cartAddCmd.Flags().StringVarP(&cartBarcode, "barcode", "b", "", "barcode, enables price history at checkout")
	cartAddCmd.Flags().Float64VarP(&cartPrice, "price", "p", 0, "shelf price")
	cartAddCmd.Flags().Float64VarP(&cartWeight, "weight", "w", 0, "weight, for per-unit price")
	cartAddCmd.Flags().StringVar(&cartWeightU, "weight-unit", "kg", "weight unit")

	cartCmd.AddCommand(cartAddCmd)
	cartCmd.AddCommand(cartListCmd)
	cartCmd.AddCommand(cartRemoveCmd)
	cartCmd.AddCommand(cartClearCmd)
	rootCmd.AddCommand(cartCmd)
}
