// Package postgres is the product store for shared deployments.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/hanzlahyasir/price-alert-notifier-telegram-bot/internal/models"
	"github.com/hanzlahyasir/price-alert-notifier-telegram-bot/internal/storage"
)

const Schema = `
CREATE TABLE IF NOT EXISTS products (
    id                   BIGSERIAL PRIMARY KEY,
    site_name            TEXT NOT NULL,
    product_code         TEXT NOT NULL,
    name                 TEXT NOT NULL,
    url                  TEXT,
    last_price_usd       NUMERIC,
    last_stock_status    TEXT,
    is_tracked           BOOLEAN NOT NULL DEFAULT TRUE,
    first_seen_timestamp TIMESTAMPTZ NOT NULL,
    last_seen_timestamp  TIMESTAMPTZ NOT NULL,
    UNIQUE (site_name, product_code)
);
CREATE INDEX IF NOT EXISTS idx_products_site ON products (site_name, is_tracked);
`

const selectColumns = `site_name, product_code, name, COALESCE(url, ''), last_price_usd::text,
       COALESCE(last_stock_status, ''), is_tracked, first_seen_timestamp, last_seen_timestamp`

type Store struct {
	pool *pgxpool.Pool
	now  storage.Clock
}

// New connects to dsn, applies the schema and pings. A nil clock means time.Now.
func New(ctx context.Context, dsn string, clock storage.Clock) (*Store, error) {
	const op = "storage.postgres.New"

	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse config: %w", op, err)
	}

	poolConfig.MaxConns = 10
	poolConfig.MinConns = 1
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to create pool: %w", op, err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%s: ping failed: %w", op, err)
	}

	if _, err := pool.Exec(ctx, Schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%s: schema: %w", op, err)
	}

	if clock == nil {
		clock = time.Now
	}
	return &Store{pool: pool, now: clock}, nil
}

func (s *Store) Get(ctx context.Context, site, code string) (models.ProductRecord, error) {
	const op = "storage.postgres.Get"

	const query = `SELECT ` + selectColumns + ` FROM products WHERE site_name = $1 AND product_code = $2`

	rec, err := scanRecord(s.pool.QueryRow(ctx, query, site, code))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.ProductRecord{}, storage.ErrNotFound
		}
		return models.ProductRecord{}, fmt.Errorf("%s: %w", op, err)
	}
	return rec, nil
}

func (s *Store) Upsert(ctx context.Context, u models.ProductUpdate) error {
	const op = "storage.postgres.Upsert"

	if err := storage.ValidateUpdate(u); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	const query = `
		INSERT INTO products (site_name, product_code, name, url,
		                      last_price_usd, last_stock_status,
		                      first_seen_timestamp, last_seen_timestamp)
		VALUES ($1, $2, $3, $4, $5::numeric, $6, $7, $7)
		ON CONFLICT (site_name, product_code) DO UPDATE SET
		    name                = EXCLUDED.name,
		    url                 = EXCLUDED.url,
		    last_price_usd      = COALESCE(EXCLUDED.last_price_usd, products.last_price_usd),
		    last_stock_status   = EXCLUDED.last_stock_status,
		    last_seen_timestamp = GREATEST(products.last_seen_timestamp, EXCLUDED.last_seen_timestamp)
	`

	var price *string
	if u.Price != nil {
		p := u.Price.String()
		price = &p
	}

	if _, err := s.pool.Exec(ctx, query,
		u.Site, u.Code, u.Name, u.URL, price, u.StockStatus, s.now().UTC(),
	); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (s *Store) SetTracked(ctx context.Context, site, code string, tracked bool) error {
	const op = "storage.postgres.SetTracked"

	tag, err := s.pool.Exec(ctx,
		`UPDATE products SET is_tracked = $1 WHERE site_name = $2 AND product_code = $3`,
		tracked, site, code)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *Store) List(ctx context.Context, f storage.Filter) ([]models.ProductRecord, error) {
	const op = "storage.postgres.List"

	query := `SELECT ` + selectColumns + ` FROM products WHERE TRUE`
	var args []any
	if f.Site != "" {
		args = append(args, f.Site)
		query += fmt.Sprintf(` AND site_name = $%d`, len(args))
	}
	if f.TrackedOnly {
		query += ` AND is_tracked`
	}
	query += ` ORDER BY site_name, product_code`
	if f.Limit > 0 {
		args = append(args, f.Limit)
		query += fmt.Sprintf(` LIMIT $%d`, len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: query: %w", op, err)
	}
	defer rows.Close()

	var out []models.ProductRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: scan: %w", op, err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return out, nil
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func scanRecord(row pgx.Row) (models.ProductRecord, error) {
	var (
		rec   models.ProductRecord
		price *string
	)
	if err := row.Scan(&rec.Site, &rec.Code, &rec.Name, &rec.URL, &price,
		&rec.LastStockStatus, &rec.IsTracked, &rec.FirstSeenAt, &rec.LastSeenAt); err != nil {
		return models.ProductRecord{}, err
	}
	if price != nil {
		d, err := decimal.NewFromString(*price)
		if err != nil {
			return models.ProductRecord{}, fmt.Errorf("parse price %q: %w", *price, err)
		}
		rec.LastPrice = &d
	}
	rec.FirstSeenAt = rec.FirstSeenAt.UTC()
	rec.LastSeenAt = rec.LastSeenAt.UTC()
	return rec, nil
}
