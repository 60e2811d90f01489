package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
	"github.com/spf13/cobra"

	"github.com/zhiliushi/pantry/internal/model"
	"github.com/zhiliushi/pantry/internal/repo"
	"github.com/zhiliushi/pantry/internal/store"
	"github.com/zhiliushi/pantry/internal/ui"
)

var (
	promoteQuantity float64
	promoteUnit     string
	promoteCategory string
	promoteLocation string
	promoteExpiry   string
	promotePrice    float64
)

var promoteCmd = &cobra.Command{
	Use:     "promote <scan-id>",
	GroupID: "items",
	Short:   "Move a staged scan into active inventory",
	Long: `Promote a staged scan into inventory. The scan row is deleted and an
active inventory item is created in its place, in one transaction.

Without flags an interactive form collects quantity, unit, category,
location and expiry. The expiry accepts natural language, e.g.
"next friday" or "in 2 weeks".`,
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

		input := repo.PromotionInput{
			Quantity: promoteQuantity,
			Location: promoteLocation,
		}
		if promotePrice > 0 {
			input.Price = &promotePrice
		}

		if !cmd.Flags().Changed("quantity") {
			if err := runPromoteForm(db, &input); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
		} else {
			if err := resolvePromoteFlags(cmd, db, &input); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
		}

		item, err := repo.NewScannedRepo(db).Promote(ctx, args[0], input)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		_ = repo.NewAnalyticsRepo(db).Append(ctx, cfg.OwnerID, model.EventItemAdded,
			map[string]any{"item_id": item.ID, "name": item.Name, "price": item.Price})

		fmt.Printf("%s %s → %s (%s)\n", ui.Success("Promoted"),
			ui.Accent(item.Name), item.Location, ui.StatusBadge(string(item.Status)))
	},
}

// parseExpiry turns a natural-language or ISO date into a timestamp.
func parseExpiry(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return &t, nil
	}
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	r, err := w.Parse(s, time.Now())
	if err != nil || r == nil {
		return nil, fmt.Errorf("could not understand expiry date %q", s)
	}
	return &r.Time, nil
}

// resolvePromoteFlags maps flag values onto the promotion input,
// resolving unit abbreviation and category name to reference rows.
func resolvePromoteFlags(cmd *cobra.Command, db *store.DB, input *repo.PromotionInput) error {
	ctx := cmd.Context()
	ref := repo.NewReferenceRepo(db)

	if promoteUnit != "" {
		unit, err := ref.UnitByAbbrev(ctx, promoteUnit)
		if err != nil {
			return fmt.Errorf("unknown unit %q", promoteUnit)
		}
		input.UnitID = &unit.ID
	}
	if promoteCategory != "" {
		cat, err := ref.CategoryByName(ctx, promoteCategory)
		if err != nil {
			return fmt.Errorf("unknown category %q", promoteCategory)
		}
		input.CategoryID = &cat.ID
	}
	expiry, err := parseExpiry(promoteExpiry)
	if err != nil {
		return err
	}
	input.ExpiryDate = expiry
	return nil
}

// runPromoteForm collects promotion fields interactively.
func runPromoteForm(db *store.DB, input *repo.PromotionInput) error {
	ctx := context.Background()
	ref := repo.NewReferenceRepo(db)

	cats, err := ref.Categories(ctx)
	if err != nil {
		return err
	}
	units, err := ref.Units(ctx)
	if err != nil {
		return err
	}

	catOpts := make([]huh.Option[string], 0, len(cats)+1)
	catOpts = append(catOpts, huh.NewOption("(none)", ""))
	for _, c := range cats {
		catOpts = append(catOpts, huh.NewOption(c.Name, c.ID))
	}
	unitOpts := make([]huh.Option[string], 0, len(units)+1)
	unitOpts = append(unitOpts, huh.NewOption("(none)", ""))
	for _, u := range units {
		unitOpts = append(unitOpts, huh.NewOption(u.Name+" ("+u.Abbrev+")", u.ID))
	}

	var (
		qtyStr    = "1"
		catID     string
		unitID    string
		location  = model.LocationPantry
		expiryStr string
	)

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Quantity").
				Value(&qtyStr).
				Validate(func(s string) error {
					v, err := strconv.ParseFloat(s, 64)
					if err != nil || v <= 0 {
						return fmt.Errorf("enter a positive number")
					}
					return nil
				}),
			huh.NewSelect[string]().
				Title("Unit").
				Options(unitOpts...).
				Value(&unitID),
			huh.NewSelect[string]().
				Title("Category").
				Options(catOpts...).
				Value(&catID),
			huh.NewSelect[string]().
				Title("Storage location").
				Options(
					huh.NewOption("Fridge", model.LocationFridge),
					huh.NewOption("Freezer", model.LocationFreezer),
					huh.NewOption("Pantry", model.LocationPantry),
					huh.NewOption("Other", model.LocationOther),
				).
				Value(&location),
			huh.NewInput().
				Title("Expiry (optional, e.g. \"next friday\")").
				Value(&expiryStr).
				Validate(func(s string) error {
					_, err := parseExpiry(s)
					return err
				}),
		),
	)
	if err := form.Run(); err != nil {
		return err
	}

	input.Quantity, _ = strconv.ParseFloat(qtyStr, 64)
	input.Location = location
	if catID != "" {
		input.CategoryID = &catID
	}
	if unitID != "" {
		input.UnitID = &unitID
	}
	input.ExpiryDate, _ = parseExpiry(expiryStr)
	return nil
}

func init() {
	promoteCmd.Flags().Float64VarP(&promoteQuantity, "quantity", "q", 1, "quantity to add")
	promoteCmd.Flags().StringVarP(&promoteUnit, "unit", "u", "", "unit abbreviation (kg, pcs, ...)")
	promoteCmd.Flags().StringVarP(&promoteCategory, "category", "c", "", "category name")
	promoteCmd.Flags().StringVarP(&promoteLocation, "location", "l", model.LocationPantry, "storage location (fridge, freezer, pantry, other)")
	promoteCmd.Flags().StringVarP(&promoteExpiry, "expiry", "e", "", "expiry date (ISO or natural language)")
	promoteCmd.Flags().Float64VarP(&promotePrice, "price", "p", 0, "purchase price")
	rootCmd.AddCommand(promoteCmd)
}
