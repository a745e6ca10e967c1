package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/hanzlahyasir/price-alert-notifier-telegram-bot/internal/platform"
	"github.com/hanzlahyasir/price-alert-notifier-telegram-bot/internal/ui"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Scrape every source once, record changes and send alerts",
	Args:  cobra.NoArgs,
	RunE:  runRun,
}

func init() {
	runCmd.Flags().String("format", "table", "Output format: json, table")
	runCmd.Flags().Bool("quiet", false, "Hide the progress spinner")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")
	quiet, _ := cmd.Flags().GetBool("quiet")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	runner, err := a.buildRunner()
	if err != nil {
		return err
	}

	var spin *ui.Spinner
	if !quiet {
		spin = ui.NewSpinner(os.Stderr)
		spin.Start(fmt.Sprintf("Scraping %d sources...", len(runner.Sources)))
		ctx = platform.WithProgress(ctx, spin.Update)
	}

	summary, err := runner.RunOnce(ctx)
	spin.Stop()

	switch format {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if encErr := enc.Encode(summary); encErr != nil {
			return encErr
		}
	default:
		printSummary(os.Stdout, summary)
	}
	return err
}
