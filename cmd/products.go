package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hanzlahyasir/price-alert-notifier-telegram-bot/internal/storage"
)

var productsCmd = &cobra.Command{
	Use:   "products",
	Short: "Inspect stored products and toggle alerts",
}

var productsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored products",
	Args:  cobra.NoArgs,
	RunE:  runProductsList,
}

var trackCmd = &cobra.Command{
	Use:   "track [site] [code]",
	Short: "Enable alerts for a product",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setTracking(args[0], args[1], true)
	},
}

var untrackCmd = &cobra.Command{
	Use:   "untrack [site] [code]",
	Short: "Disable alerts for a product",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setTracking(args[0], args[1], false)
	},
}

func init() {
	productsListCmd.Flags().String("site", "", "Only products from this site")
	productsListCmd.Flags().Bool("tracked", false, "Only products with alerts enabled")
	productsListCmd.Flags().Int("limit", 0, "Maximum number of products (0 = all)")
	productsListCmd.Flags().String("format", "table", "Output format: json, table")

	productsCmd.AddCommand(productsListCmd, trackCmd, untrackCmd)
	rootCmd.AddCommand(productsCmd)
}

func runProductsList(cmd *cobra.Command, args []string) error {
	site, _ := cmd.Flags().GetString("site")
	tracked, _ := cmd.Flags().GetBool("tracked")
	limit, _ := cmd.Flags().GetInt("limit")
	format, _ := cmd.Flags().GetString("format")

	ctx := context.Background()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	products, err := a.store.List(ctx, storage.Filter{Site: site, TrackedOnly: tracked, Limit: limit})
	if err != nil {
		return fmt.Errorf("list products: %w", err)
	}

	switch format {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(products)
	default:
		printProductsTable(os.Stdout, products)
	}
	return nil
}

func setTracking(site, code string, tracked bool) error {
	ctx := context.Background()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	err = a.store.SetTracked(ctx, site, code, tracked)
	if errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("no product %q on site %q", code, site)
	}
	if err != nil {
		return err
	}

	state := "disabled"
	if tracked {
		state = "enabled"
	}
	fmt.Fprintf(os.Stdout, "Alerts %s for %s/%s\n", state, site, code)
	return nil
}
