package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	mcpserver "github.com/hanzlahyasir/price-alert-notifier-telegram-bot/mcp"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start MCP stdio server",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	svc, err := a.mcpService()
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.ErrOrStderr(), "Starting pricewatch MCP server on stdio...")
	if err := mcpserver.Serve(svc); err != nil {
		return fmt.Errorf("MCP server error: %w", err)
	}
	return nil
}

// mcpService exposes the store, plus run_scrape when sources are configured.
func (a *app) mcpService() (*mcpserver.Service, error) {
	svc := &mcpserver.Service{Store: a.store}
	if len(cfg.Sources) == 0 {
		return svc, nil
	}

	runner, err := a.buildRunner()
	if err != nil {
		return nil, err
	}
	svc.Run = runner.RunOnce
	return svc, nil
}
