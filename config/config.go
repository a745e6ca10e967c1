package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

const (
	EnvLocal = "local"
	EnvDev   = "dev"
	EnvProd  = "prod"
)

// Source kinds.
const (
	KindAuto     = "auto"
	KindJSONLD   = "jsonld"
	KindSelector = "selector"
	KindHeadless = "headless"
)

// Config holds all application configuration.
type Config struct {
	Env      string        `yaml:"env" env:"PRICEWATCH_ENV" validate:"oneof=local dev prod"`
	Interval time.Duration `yaml:"interval" env:"PRICEWATCH_INTERVAL" validate:"gt=0"`

	// Orchestrator
	Retry         Retry `yaml:"retry"`
	MaxConcurrent int   `yaml:"max_concurrent" env:"PRICEWATCH_MAX_CONCURRENT" validate:"gte=0"`

	Scrape   Scrape         `yaml:"scrape"`
	Sources  []SourceConfig `yaml:"sources" validate:"unique=Name,dive"`
	Store    Store          `yaml:"store"`
	Telegram Telegram       `yaml:"telegram"`
	Email    Email          `yaml:"email"`
	AMQP     AMQP           `yaml:"amqp"`
	Redis    Redis          `yaml:"redis"`
	HTTP     HTTP           `yaml:"http"`
}

type Retry struct {
	MaxAttempts int           `yaml:"max_attempts" env:"PRICEWATCH_RETRY_ATTEMPTS" validate:"gte=1"`
	BaseDelay   time.Duration `yaml:"base_delay" env:"PRICEWATCH_RETRY_DELAY" validate:"gt=0"`
}

type Scrape struct {
	RatePerSecond   float64       `yaml:"rate_per_second" env:"PRICEWATCH_RATE_PER_SECOND" validate:"gt=0"`
	RateBurst       int           `yaml:"rate_burst" env:"PRICEWATCH_RATE_BURST" validate:"gte=1"`
	DelayProfile    string        `yaml:"delay_profile" env:"PRICEWATCH_DELAY_PROFILE" validate:"omitempty,oneof=cautious normal aggressive off"`
	RespectRobots   bool          `yaml:"respect_robots" env:"PRICEWATCH_RESPECT_ROBOTS"`
	ProxyFile       string        `yaml:"proxy_file" env:"PRICEWATCH_PROXIES"`
	AcceptLanguage  string        `yaml:"accept_language" env:"PRICEWATCH_ACCEPT_LANGUAGE"`
	PageConcurrency int           `yaml:"page_concurrency" env:"PRICEWATCH_PAGE_CONCURRENCY" validate:"gte=1"`
	Timeout         time.Duration `yaml:"timeout" env:"PRICEWATCH_HTTP_TIMEOUT" validate:"gt=0"`
	BrowserBin      string        `yaml:"browser_bin" env:"ROD_BROWSER_BIN"`
}

// SourceConfig describes one site to poll.
type SourceConfig struct {
	Name         string    `yaml:"name" validate:"required"`
	Kind         string    `yaml:"kind" validate:"omitempty,oneof=auto jsonld selector headless"`
	URLs         []string  `yaml:"urls" validate:"required,min=1,dive,url"`
	Selectors    Selectors `yaml:"selectors"`
	StockDefault string    `yaml:"stock_default"`
	DecimalComma bool      `yaml:"decimal_comma"`
}

// Selectors are CSS selectors evaluated inside each Item match.
// An empty Code selector reads the code from the item element itself.
type Selectors struct {
	Item     string `yaml:"item"`
	Code     string `yaml:"code"`
	CodeAttr string `yaml:"code_attr"`
	Name     string `yaml:"name"`
	Price    string `yaml:"price"`
	Stock    string `yaml:"stock"`
	Link     string `yaml:"link"`
}

func (s Selectors) IsZero() bool { return s.Item == "" }

// EffectiveKind resolves an empty kind to auto.
func (s SourceConfig) EffectiveKind() string {
	if s.Kind == "" {
		return KindAuto
	}
	return s.Kind
}

type Store struct {
	Driver string `yaml:"driver" env:"PRICEWATCH_DB_DRIVER" validate:"oneof=sqlite postgres"`
	Path   string `yaml:"path" env:"PRICEWATCH_DB_PATH" validate:"required_if=Driver sqlite"`
	DSN    string `yaml:"dsn" env:"PRICEWATCH_DB_DSN" validate:"required_if=Driver postgres"`
}

type Telegram struct {
	BotToken string `yaml:"bot_token" env:"TELEGRAM_BOT_TOKEN"`
	ChatID   string `yaml:"chat_id" env:"TELEGRAM_CHAT_ID"`
	APIURL   string `yaml:"api_url" env:"TELEGRAM_API_URL" validate:"omitempty,url"`
}

func (t Telegram) Enabled() bool { return t.BotToken != "" && t.ChatID != "" }

type Email struct {
	Sender   string `yaml:"sender" env:"EMAIL_SENDER" validate:"omitempty,email"`
	Receiver string `yaml:"receiver" env:"EMAIL_RECEIVER" validate:"omitempty,email"`
	Server   string `yaml:"smtp_server" env:"SMTP_SERVER"`
	Port     int    `yaml:"smtp_port" env:"SMTP_PORT" validate:"gte=0,lte=65535"`
	Username string `yaml:"smtp_username" env:"SMTP_USERNAME"`
	Password string `yaml:"smtp_password" env:"SMTP_PASSWORD"`
}

func (e Email) Enabled() bool {
	return e.Sender != "" && e.Receiver != "" && e.Server != "" && e.Port > 0
}

type AMQP struct {
	URL   string `yaml:"url" env:"PRICEWATCH_AMQP_URL"`
	Queue string `yaml:"queue" env:"PRICEWATCH_AMQP_QUEUE"`
}

func (a AMQP) Enabled() bool { return a.URL != "" }

type Redis struct {
	Addr     string        `yaml:"addr" env:"PRICEWATCH_REDIS_ADDR"`
	Password string        `yaml:"password" env:"PRICEWATCH_REDIS_PASSWORD"`
	DB       int           `yaml:"db" env:"PRICEWATCH_REDIS_DB"`
	LockKey  string        `yaml:"lock_key" env:"PRICEWATCH_LOCK_KEY"`
	LockTTL  time.Duration `yaml:"lock_ttl" env:"PRICEWATCH_LOCK_TTL"`
}

func (r Redis) Enabled() bool { return r.Addr != "" }

type HTTP struct {
	Port   string `yaml:"port" env:"PORT"`
	APIKey string `yaml:"api_key" env:"PRICEWATCH_API_KEY"`
}

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Env:           EnvLocal,
		Interval:      time.Hour,
		Retry:         Retry{MaxAttempts: 3, BaseDelay: time.Second},
		MaxConcurrent: 5,
		Scrape: Scrape{
			RatePerSecond:   2.0,
			RateBurst:       3,
			DelayProfile:    "normal",
			RespectRobots:   true,
			PageConcurrency: 3,
			Timeout:         30 * time.Second,
		},
		Store:    Store{Driver: "sqlite", Path: "products.db"},
		Telegram: Telegram{APIURL: "https://api.telegram.org"},
		Email:    Email{Port: 587},
		AMQP:     AMQP{Queue: "price_alerts"},
		Redis:    Redis{LockKey: "pricewatch:run-lock", LockTTL: 30 * time.Minute},
		HTTP:     HTTP{Port: "8080"},
	}
}

// LoadFile merges a YAML file over the current values. A missing file is not
// an error so the binary runs on defaults and environment alone.
func (c *Config) LoadFile(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := cleanenv.ReadConfig(path, c); err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	return nil
}

// LoadFromEnv loads .env file (if present) then overrides config from environment variables.
func (c *Config) LoadFromEnv() error {
	// Auto-load .env file; silently ignored if missing
	_ = godotenv.Load()

	if err := cleanenv.ReadEnv(c); err != nil {
		return fmt.Errorf("read env: %w", err)
	}

	// DATABASE_URL is what most hosts inject for a managed Postgres.
	if v := os.Getenv("DATABASE_URL"); v != "" && c.Store.DSN == "" {
		c.Store.Driver = "postgres"
		c.Store.DSN = v
	}
	if v := os.Getenv("PRICEWATCH_SOURCES_URLS"); v != "" {
		// name=url[,url...];name=url
		for _, entry := range strings.Split(v, ";") {
			name, urls, ok := strings.Cut(strings.TrimSpace(entry), "=")
			if !ok || name == "" {
				continue
			}
			c.upsertSource(name, strings.Split(urls, ","))
		}
	}
	return nil
}

func (c *Config) upsertSource(name string, urls []string) {
	for i := range c.Sources {
		if c.Sources[i].Name == name {
			c.Sources[i].URLs = urls
			return
		}
	}
	c.Sources = append(c.Sources, SourceConfig{Name: name, Kind: KindAuto, URLs: urls})
}

// Source returns the source named name.
func (c *Config) Source(name string) (SourceConfig, bool) {
	for _, s := range c.Sources {
		if s.Name == name {
			return s, true
		}
	}
	return SourceConfig{}, false
}

var validate = validator.New()

// Validate checks field constraints and cross-field rules.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s: failed %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}

	for _, s := range c.Sources {
		if s.EffectiveKind() == KindSelector && s.Selectors.IsZero() {
			return fmt.Errorf("invalid config: source %q: kind selector needs selectors.item", s.Name)
		}
	}
	return nil
}
