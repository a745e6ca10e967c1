package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/hanzlahyasir/price-alert-notifier-telegram-bot/internal/alert"
	"github.com/hanzlahyasir/price-alert-notifier-telegram-bot/internal/diff"
	"github.com/hanzlahyasir/price-alert-notifier-telegram-bot/internal/httputil"
	"github.com/hanzlahyasir/price-alert-notifier-telegram-bot/internal/notify"
	"github.com/hanzlahyasir/price-alert-notifier-telegram-bot/internal/orchestrator"
	"github.com/hanzlahyasir/price-alert-notifier-telegram-bot/internal/pipeline"
	"github.com/hanzlahyasir/price-alert-notifier-telegram-bot/internal/platform"
	"github.com/hanzlahyasir/price-alert-notifier-telegram-bot/internal/retry"
	"github.com/hanzlahyasir/price-alert-notifier-telegram-bot/internal/sites"
	"github.com/hanzlahyasir/price-alert-notifier-telegram-bot/internal/stealth"
	"github.com/hanzlahyasir/price-alert-notifier-telegram-bot/internal/storage"
	"github.com/hanzlahyasir/price-alert-notifier-telegram-bot/internal/storage/postgres"
	"github.com/hanzlahyasir/price-alert-notifier-telegram-bot/internal/storage/sqlite"
)

// app holds the long-lived resources a command works with.
type app struct {
	store   storage.Store
	closers []func() error
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			log.Warn("close failed", slog.Any("error", err))
		}
	}
}

// openApp opens the configured store. Every command needs it.
func openApp(ctx context.Context) (*app, error) {
	st, err := openStore(ctx)
	if err != nil {
		return nil, err
	}
	return &app{store: st, closers: []func() error{st.Close}}, nil
}

func openStore(ctx context.Context) (storage.Store, error) {
	var (
		st  storage.Store
		err error
	)
	switch cfg.Store.Driver {
	case "postgres":
		st, err = postgres.New(ctx, cfg.Store.DSN, nil)
	default:
		st, err = sqlite.Open(cfg.Store.Path)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.Store.Driver, err)
	}
	return storage.Serialize(st), nil
}

// buildHTTPClient creates the stealth-wrapped HTTP client from config.
func buildHTTPClient() (*http.Client, error) {
	profile, err := stealth.ParseDelayProfile(cfg.Scrape.DelayProfile)
	if err != nil {
		return nil, err
	}

	baseTransport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	}

	var proxyRotator *stealth.ProxyRotator
	if cfg.Scrape.ProxyFile != "" {
		urls, err := stealth.LoadProxyFile(cfg.Scrape.ProxyFile)
		if err != nil {
			return nil, err
		}
		if proxyRotator, err = stealth.NewProxyRotator(urls); err != nil {
			return nil, err
		}
	}

	robotsClient := httputil.NewHTTPClient(baseTransport, 10*time.Second)
	transport := &stealth.Transport{
		Base:        baseTransport,
		Robots:      stealth.NewRobotsChecker(robotsClient, cfg.Scrape.RespectRobots),
		Fingerprint: stealth.NewFingerprintPool(cfg.Scrape.AcceptLanguage),
		Proxy:       proxyRotator,
		Delay:       stealth.NewHumanDelay(profile),
		RateLimiter: rate.NewLimiter(rate.Limit(cfg.Scrape.RatePerSecond), cfg.Scrape.RateBurst),
		Logger:      log,
	}

	return httputil.NewHTTPClient(transport, cfg.Scrape.Timeout), nil
}

// initSources registers one scraper per configured source.
func initSources() error {
	client, err := buildHTTPClient()
	if err != nil {
		return err
	}
	limiter := rate.NewLimiter(rate.Limit(cfg.Scrape.RatePerSecond), cfg.Scrape.RateBurst)

	platform.Reset()
	for _, src := range cfg.Sources {
		platform.Register(sites.NewScraper(src, sites.Options{
			Client:          client,
			RateLimiter:     limiter,
			PageConcurrency: cfg.Scrape.PageConcurrency,
			BrowserBin:      cfg.Scrape.BrowserBin,
			Timeout:         cfg.Scrape.Timeout,
			Logger:          log,
		}))
	}
	return nil
}

// buildDispatcher enables every transport whose settings are complete.
func (a *app) buildDispatcher() (*alert.Dispatcher, error) {
	var transports []alert.Transport

	if cfg.Telegram.Enabled() {
		tg := notify.NewTelegram(cfg.Telegram.BotToken, nil).WithBaseURL(cfg.Telegram.APIURL)
		transports = append(transports, alert.MessengerTransport{Messenger: tg, TargetID: cfg.Telegram.ChatID})
	} else {
		log.Info("telegram alerts disabled, bot token or chat id missing")
	}

	smtp := notify.SMTPConfig{
		Host:     cfg.Email.Server,
		Port:     cfg.Email.Port,
		Username: cfg.Email.Username,
		Password: cfg.Email.Password,
		From:     cfg.Email.Sender,
		To:       cfg.Email.Receiver,
	}
	if smtp.Complete() {
		transports = append(transports, alert.MailTransport{Mailer: notify.NewEmail(smtp)})
	} else {
		log.Info("email alerts disabled, smtp settings incomplete")
	}

	if cfg.AMQP.Enabled() {
		client, err := notify.DialAMQP(cfg.AMQP.URL)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, client.Close)
		q, err := notify.NewQueueTransport(client.Channel, cfg.AMQP.Queue)
		if err != nil {
			return nil, err
		}
		transports = append(transports, q)
	}

	if len(transports) == 0 {
		log.Warn("no alert transports configured, alerts will be logged and dropped")
	}
	return alert.NewDispatcher(log, transports...), nil
}

// buildRunner wires sources, the diff engine and transports into a pipeline.
func (a *app) buildRunner() (*pipeline.Runner, error) {
	if len(cfg.Sources) == 0 {
		return nil, errors.New("no sources configured")
	}
	if err := initSources(); err != nil {
		return nil, err
	}
	dispatcher, err := a.buildDispatcher()
	if err != nil {
		return nil, err
	}

	engine := diff.New(log)
	for _, src := range cfg.Sources {
		engine.DecimalComma[src.Name] = src.DecimalComma
	}

	return &pipeline.Runner{
		Sources:      orchestrator.FromSources(platform.Sources()),
		Orchestrator: orchestrator.New(retry.New(cfg.Retry.MaxAttempts, cfg.Retry.BaseDelay), cfg.MaxConcurrent, log),
		Engine:       engine,
		Store:        a.store,
		Dispatcher:   dispatcher,
		Logger:       log,
	}, nil
}
