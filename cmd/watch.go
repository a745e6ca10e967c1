package cmd

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/hanzlahyasir/price-alert-notifier-telegram-bot/internal/scheduler"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Run the scrape pipeline on a fixed interval until interrupted",
	Args:  cobra.NoArgs,
	RunE:  runWatch,
}

func init() {
	watchCmd.Flags().Duration("interval", 0, "Time between runs (default from config, 1h)")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	interval := cfg.Interval
	if v, _ := cmd.Flags().GetDuration("interval"); v > 0 {
		interval = v
	}

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	runner, err := a.buildRunner()
	if err != nil {
		return err
	}

	var lock scheduler.Locker
	if cfg.Redis.Enabled() {
		rl, err := scheduler.NewRedisLock(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB,
			cfg.Redis.LockKey, cfg.Redis.LockTTL, log)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, rl.Close)
		lock = rl
		log.Info("using redis run lock", slog.String("key", cfg.Redis.LockKey))
	}

	run := func(ctx context.Context) error {
		_, err := runner.RunOnce(ctx)
		return err
	}

	err = scheduler.New(interval, run, lock, log).Start(ctx)
	if errors.Is(err, context.Canceled) {
		log.Info("watch stopped")
		return nil
	}
	return err
}
