package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/hanzlahyasir/price-alert-notifier-telegram-bot/internal/api"
	mcpserver "github.com/hanzlahyasir/price-alert-notifier-telegram-bot/mcp"
)

var serveHTTPCmd = &cobra.Command{
	Use:   "serve-http",
	Short: "Start the HTTP API and MCP endpoint",
	Long:  "Serve the product API under /api and the MCP server under /mcp for remote access.",
	RunE:  runServeHTTP,
}

func init() {
	serveHTTPCmd.Flags().String("port", "", "HTTP port (default from $PORT or 8080)")
	rootCmd.AddCommand(serveHTTPCmd)
}

func runServeHTTP(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	svc, err := a.mcpService()
	if err != nil {
		return err
	}

	port := cfg.HTTP.Port
	if p, _ := cmd.Flags().GetString("port"); p != "" {
		port = p
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", port),
		Handler:      api.NewRouter(log, a.store, cfg.HTTP.APIKey, mcpserver.HTTPHandler(svc)),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 10 * time.Minute, // run_scrape can take a while
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("HTTP server listening", slog.String("addr", srv.Addr), slog.Bool("auth", cfg.HTTP.APIKey != ""))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
