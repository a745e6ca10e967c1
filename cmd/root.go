package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/hanzlahyasir/price-alert-notifier-telegram-bot/config"
)

var (
	cfg *config.Config
	log *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "pricewatch",
	Short: "Pricewatch - price and stock alerts for online shops",
	Long: "Scrapes configured shops on a schedule, keeps the last known price and stock of every\n" +
		"product, and sends Telegram, email or queue alerts when they change.",
	SilenceUsage:      true,
	PersistentPreRunE: initConfig,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("config", "config.yaml", "Path to YAML config file")
	rootCmd.PersistentFlags().String("env", "", "Environment: local, dev, prod")
	rootCmd.PersistentFlags().String("db", "", "SQLite database path")
	rootCmd.PersistentFlags().String("delay-profile", "", "Delay profile: cautious, normal, aggressive, off")
	rootCmd.PersistentFlags().Bool("respect-robots", true, "Respect robots.txt rules")
	rootCmd.PersistentFlags().String("proxy-file", "", "Path to proxy list file")
}

func initConfig(cmd *cobra.Command, _ []string) error {
	cfg = config.DefaultConfig()

	flags := cmd.Root().PersistentFlags()
	path, _ := flags.GetString("config")
	if err := cfg.LoadFile(path); err != nil {
		return err
	}
	if err := cfg.LoadFromEnv(); err != nil {
		return err
	}

	// Override from flags
	if v, _ := flags.GetString("env"); v != "" {
		cfg.Env = v
	}
	if v, _ := flags.GetString("db"); v != "" {
		cfg.Store.Driver = "sqlite"
		cfg.Store.Path = v
	}
	if v, _ := flags.GetString("delay-profile"); v != "" {
		cfg.Scrape.DelayProfile = v
	}
	if flags.Changed("respect-robots") {
		cfg.Scrape.RespectRobots, _ = flags.GetBool("respect-robots")
	}
	if v, _ := flags.GetString("proxy-file"); v != "" {
		cfg.Scrape.ProxyFile = v
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	log = setupLogger(cfg.Env)
	slog.SetDefault(log)
	return nil
}

// setupLogger writes to stderr so stdout stays clean for command output.
func setupLogger(env string) *slog.Logger {
	var log *slog.Logger

	switch env {
	case config.EnvDev:
		log = slog.New(
			slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case config.EnvProd:
		log = slog.New(
			slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	default:
		log = slog.New(
			slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	}

	return log
}
