package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/zhiliushi/pantry/internal/remote"
	"github.com/zhiliushi/pantry/internal/ui"
)

var (
	contributeBrand    string
	contributeCategory string
)

var contributeCmd = &cobra.Command{
	Use:     "contribute <barcode> <name>",
	GroupID: "items",
	Short:   "Submit a product the database does not know",
	Long: `Contribute a barcode-to-product mapping back to the shared product
database, so the next scan of this barcode resolves for everyone.`,
	Args: cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		contrib := remote.Contribution{
			Barcode:  args[0],
			Name:     args[1],
			Brand:    contributeBrand,
			Category: contributeCategory,
			OwnerID:  cfg.OwnerID,
		}
		if err := newAPIClient(cfg).Contribute(cmd.Context(), contrib); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			fmt.Fprintln(os.Stderr, ui.Dim("Tip: contributions replay automatically in serve mode once back online."))
			os.Exit(1)
		}
		fmt.Printf("%s %s → %s\n", ui.Success("Contributed"), args[0], ui.Accent(args[1]))
	},
}

func init() {
	contributeCmd.Flags().StringVar(&contributeBrand, "brand", "", "brand name")
	contributeCmd.Flags().StringVar(&contributeCategory, "category", "", "category")
	rootCmd.AddCommand(contributeCmd)
}
