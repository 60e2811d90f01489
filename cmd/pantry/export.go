package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/zhiliushi/pantry/internal/export"
	"github.com/zhiliushi/pantry/internal/ui"
)

var exportCmd = &cobra.Command{
	Use:     "export <file>",
	GroupID: "sync",
	Short:   "Export inventory and lists as JSONL",
	Args:    cobra.ExactArgs(1),
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

		result, err := export.NewExporter(db).ExportFile(cmd.Context(), cfg.OwnerID, args[0])
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("%s %d row(s) (%d inventory, %d lists, %d list items) to %s\n",
			ui.Success("Exported"), result.Total(), result.Inventory,
			result.Lists, result.ListItems, ui.Accent(args[0]))
	},
}

var importCmd = &cobra.Command{
	Use:     "import <file>",
	GroupID: "sync",
	Short:   "Import a JSONL export into the local database",
	Long: `Replay a file produced by "pantry export". Rows are upserted by id,
keeping their exported timestamps, so importing the same file twice is
harmless.`,
	Args: cobra.ExactArgs(1),
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

		result, err := export.NewImporter(db).ImportFile(cmd.Context(), args[0])
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("%s %d row(s)\n", ui.Success("Imported"), result.Total())
		for _, msg := range result.Errors {
			fmt.Printf("  %s %s\n", ui.Warn("skipped:"), msg)
		}
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(importCmd)
}
