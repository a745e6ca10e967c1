// Package sqlite is the default product store, backed by modernc.org/sqlite.
//
// Usage:
//
//	st, err := sqlite.Open("data/products.db")
//	store := storage.Serialize(st)
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"github.com/hanzlahyasir/price-alert-notifier-telegram-bot/internal/models"
	"github.com/hanzlahyasir/price-alert-notifier-telegram-bot/internal/storage"
)

const Schema = `
CREATE TABLE IF NOT EXISTS products (
    id                   INTEGER PRIMARY KEY AUTOINCREMENT,
    site_name            TEXT NOT NULL,
    product_code         TEXT NOT NULL,
    name                 TEXT NOT NULL,
    url                  TEXT,
    last_price_usd       REAL,
    last_stock_status    TEXT,
    is_tracked           INTEGER NOT NULL DEFAULT 1,
    first_seen_timestamp TEXT NOT NULL,
    last_seen_timestamp  TEXT NOT NULL,
    UNIQUE(site_name, product_code)
);
CREATE INDEX IF NOT EXISTS idx_products_site ON products(site_name, is_tracked);
`

const upsertQuery = `
INSERT INTO products (site_name, product_code, name, url,
                      last_price_usd, last_stock_status,
                      first_seen_timestamp, last_seen_timestamp)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(site_name, product_code) DO UPDATE SET
    name                = excluded.name,
    url                 = excluded.url,
    last_price_usd      = COALESCE(excluded.last_price_usd, products.last_price_usd),
    last_stock_status   = excluded.last_stock_status,
    last_seen_timestamp = MAX(products.last_seen_timestamp, excluded.last_seen_timestamp)`

const selectColumns = `site_name, product_code, name, COALESCE(url, ''), last_price_usd,
       COALESCE(last_stock_status, ''), is_tracked, first_seen_timestamp, last_seen_timestamp`

type config struct {
	busyTimeout int
	clock       storage.Clock
}

type Option func(*config)

// WithBusyTimeout sets PRAGMA busy_timeout in milliseconds. Default: 10000.
func WithBusyTimeout(ms int) Option { return func(c *config) { c.busyTimeout = ms } }

// WithClock replaces time.Now for timestamps.
func WithClock(clock storage.Clock) Option { return func(c *config) { c.clock = clock } }

type Store struct {
	db  *sql.DB
	now storage.Clock
}

// Open opens (creating if needed) the database at path and applies the schema.
// ":memory:" gives a private in-memory database.
func Open(path string, opts ...Option) (*Store, error) {
	const op = "storage.sqlite.Open"

	cfg := config{busyTimeout: 10_000, clock: time.Now}
	for _, o := range opts {
		o(&cfg)
	}

	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("%s: mkdir: %w", op, err)
			}
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if path == ":memory:" {
		// every connection to :memory: is a separate database
		db.SetMaxOpenConns(1)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		fmt.Sprintf("PRAGMA busy_timeout = %d", cfg.busyTimeout),
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("%s: %s: %w", op, p, err)
		}
	}
	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("%s: schema: %w", op, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("%s: ping: %w", op, err)
	}

	return &Store{db: db, now: cfg.clock}, nil
}

func (s *Store) Get(ctx context.Context, site, code string) (models.ProductRecord, error) {
	const op = "storage.sqlite.Get"

	row := s.db.QueryRowContext(ctx,
		`SELECT `+selectColumns+` FROM products WHERE site_name = ? AND product_code = ?`,
		site, code)
	rec, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.ProductRecord{}, storage.ErrNotFound
		}
		return models.ProductRecord{}, fmt.Errorf("%s: %w", op, err)
	}
	return rec, nil
}

func (s *Store) Upsert(ctx context.Context, u models.ProductUpdate) error {
	const op = "storage.sqlite.Upsert"

	if err := storage.ValidateUpdate(u); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	var price sql.NullFloat64
	if u.Price != nil {
		price = sql.NullFloat64{Float64: u.Price.InexactFloat64(), Valid: true}
	}
	now := s.now().UTC().Format(storage.TimeLayout)

	if _, err := s.db.ExecContext(ctx, upsertQuery,
		u.Site, u.Code, u.Name, u.URL, price, u.StockStatus, now, now,
	); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (s *Store) SetTracked(ctx context.Context, site, code string, tracked bool) error {
	const op = "storage.sqlite.SetTracked"

	res, err := s.db.ExecContext(ctx,
		`UPDATE products SET is_tracked = ? WHERE site_name = ? AND product_code = ?`,
		tracked, site, code)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *Store) List(ctx context.Context, f storage.Filter) ([]models.ProductRecord, error) {
	const op = "storage.sqlite.List"

	query := `SELECT ` + selectColumns + ` FROM products WHERE 1=1`
	var args []any
	if f.Site != "" {
		query += ` AND site_name = ?`
		args = append(args, f.Site)
	}
	if f.TrackedOnly {
		query += ` AND is_tracked = 1`
	}
	query += ` ORDER BY site_name, product_code`
	if f.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var out []models.ProductRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return out, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(sc scanner) (models.ProductRecord, error) {
	var (
		rec             models.ProductRecord
		price           sql.NullFloat64
		tracked         int
		first, lastSeen string
	)
	if err := sc.Scan(&rec.Site, &rec.Code, &rec.Name, &rec.URL, &price,
		&rec.LastStockStatus, &tracked, &first, &lastSeen); err != nil {
		return models.ProductRecord{}, err
	}
	if price.Valid {
		d := decimal.NewFromFloat(price.Float64)
		rec.LastPrice = &d
	}
	rec.IsTracked = tracked != 0

	var err error
	if rec.FirstSeenAt, err = parseTime(first); err != nil {
		return models.ProductRecord{}, err
	}
	if rec.LastSeenAt, err = parseTime(lastSeen); err != nil {
		return models.ProductRecord{}, err
	}
	return rec, nil
}

// parseTime accepts our fixed layout and plain RFC 3339 rows written by older
// versions of the tracker.
func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t.UTC(), nil
}
