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
	listItemQuantity float64
	listItemPrice    float64
	listItemBarcode  string
	listItemWeight   float64
)

var listsCmd = &cobra.Command{
	Use:     "lists",
	GroupID: "shopping",
	Short:   "Manage shopping lists",
}

var listsCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a shopping list",
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

		list := &model.ShoppingList{OwnerID: cfg.OwnerID, Name: args[0]}
		if err := repo.NewListRepo(db).CreateList(ctx, list); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		_ = repo.NewAnalyticsRepo(db).Append(ctx, cfg.OwnerID, model.EventListCreated,
			map[string]string{"list_id": list.ID, "name": list.Name})

		fmt.Printf("%s %s (%s)\n", ui.Success("Created"), ui.Accent(list.Name), list.ID)
	},
}

var listsShowCmd = &cobra.Command{
	Use:   "show [list-id]",
	Short: "Show lists, or one list's items",
	Args:  cobra.MaximumNArgs(1),
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

		lists := repo.NewListRepo(db)
		if len(args) == 0 {
			all, err := lists.ListsByOwner(ctx, cfg.OwnerID)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			if len(all) == 0 {
				fmt.Println(ui.Dim("No lists."))
				return
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, ui.Header("ID\tNAME\tSTATUS"))
			for _, l := range all {
				status := "open"
				if l.IsCheckedOut {
					status = "checked out"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\n", l.ID[:8], l.Name, status)
			}
			_ = w.Flush()
			return
		}

		items, err := lists.Items(ctx, args[0])
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		if len(items) == 0 {
			fmt.Println(ui.Dim("List is empty."))
			return
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, ui.Header("ID\tNAME\tQTY\tPRICE\tPURCHASED"))
		for _, it := range items {
			price := "-"
			if it.Price != nil {
				price = fmt.Sprintf("%.2f", *it.Price)
			}
			bought := ""
			if it.IsPurchased {
				bought = "✓"
			}
			fmt.Fprintf(w, "%s\t%s\t%g\t%s\t%s\n", it.ID[:8], it.Name, it.Quantity, price, bought)
		}
		_ = w.Flush()
	},
}

var listsAddCmd = &cobra.Command{
	Use:   "add <list-id> <name>",
	Short: "Add an item to a list",
	Args:  cobra.ExactArgs(2),
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

		item := &model.ListItem{
			ListID:   args[0],
			Name:     args[1],
			Quantity: listItemQuantity,
		}
		if listItemPrice > 0 {
			item.Price = &listItemPrice
		}
		if listItemBarcode != "" {
			item.Barcode = &listItemBarcode
		}
		if listItemWeight > 0 {
			item.Weight = &listItemWeight
		}

		if err := repo.NewListRepo(db).AddItem(cmd.Context(), item); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("%s %s\n", ui.Success("Added"), ui.Accent(item.Name))
	},
}

var listsBoughtCmd = &cobra.Command{
	Use:   "bought <item-id>",
	Short: "Mark a list item as purchased",
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

		if err := repo.NewListRepo(db).SetItemPurchased(cmd.Context(), args[0], true); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(ui.Success("Marked purchased."))
	},
}

var listsDeleteCmd = &cobra.Command{
	Use:   "delete <list-id>",
	Short: "Delete a list and its items",
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

		if err := repo.NewListRepo(db).DeleteList(cmd.Context(), args[0]); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(ui.Success("Deleted."))
	},
}

func init() {
	listsAddCmd.Flags().Float64VarP(&listItemQuantity, "quantity", "q", 1, "quantity")
	listsAddCmd.Flags().Float64VarP(&listItemPrice, "price", "p", 0, "expected price")
	listsAddCmd.Flags().StringVarP(&listItemBarcode, "barcode", "b", "", "barcode")
	listsAddCmd.Flags().Float64VarP(&listItemWeight, "weight", "w", 0, "weight")

	listsCmd.AddCommand(listsCreateCmd)
	listsCmd.AddCommand(listsShowCmd)
	listsCmd.AddCommand(listsAddCmd)
	listsCmd.AddCommand(listsBoughtCmd)
	listsCmd.AddCommand(listsDeleteCmd)
	rootCmd.AddCommand(listsCmd)
}
