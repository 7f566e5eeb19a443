package store

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// PostgresConfig controls the connection pool behind the availability table.
type PostgresConfig struct {
	DSN      string
	Table    string
	TTL      time.Duration
	MaxConns int32
}

type execCloser interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Close()
}

// PostgresStore writes availability rows into Postgres. One row per
// composite key, enforced by a unique constraint the upsert targets:
//
// The key columns hold the normalized form so differently-decorated scrapes
// of one theme collapse onto one row; the display columns keep the catalog's
// canonical casing for readers:
//
//	CREATE TABLE availability (
//	    brand           TEXT NOT NULL,
//	    title           TEXT NOT NULL,
//	    date            TEXT NOT NULL,
//	    branch          TEXT NOT NULL,
//	    display_brand   TEXT NOT NULL,
//	    display_title   TEXT NOT NULL,
//	    display_branch  TEXT NOT NULL,
//	    numeric_id      INTEGER NOT NULL,
//	    location        TEXT NOT NULL,
//	    available_times JSONB NOT NULL,
//	    updated_at      TIMESTAMPTZ NOT NULL,
//	    expire_at       TIMESTAMPTZ NOT NULL,
//	    PRIMARY KEY (brand, title, date, branch)
//	);
//
// A scheduled job outside this process deletes rows past expire_at.
type PostgresStore struct {
	pool  execCloser
	table string
	ttl   time.Duration
	now   func() time.Time
}

// NewPostgresStore creates a Postgres-backed Store using the provided config.
func NewPostgresStore(ctx context.Context, cfg PostgresConfig) (*PostgresStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("store.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return newPostgresStore(pool, cfg.Table, cfg.TTL)
}

// NewPostgresStoreWithPool constructs a store from an existing pool
// (primarily for testing).
func NewPostgresStoreWithPool(pool execCloser, table string, ttl time.Duration) (*PostgresStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return newPostgresStore(pool, table, ttl)
}

func newPostgresStore(pool execCloser, table string, ttl time.Duration) (*PostgresStore, error) {
	if table == "" {
		table = "availability"
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &PostgresStore{
		pool:  pool,
		table: table,
		ttl:   ttl,
		now:   time.Now,
	}, nil
}

// WithClock overrides the time source, for tests.
func (s *PostgresStore) WithClock(now func() time.Time) *PostgresStore {
	s.now = now
	return s
}

// Upsert writes one availability row, replacing the previous row under the
// same composite key. The single-statement ON CONFLICT form keeps
// concurrent writers from different site tasks atomic per key.
func (s *PostgresStore) Upsert(ctx context.Context, record Record) error {
	if s == nil || s.pool == nil {
		return fmt.Errorf("availability store is not configured")
	}
	key := KeyOf(record)
	if key.Brand == "" || key.Title == "" || key.Date == "" || key.Branch == "" {
		return fmt.Errorf("incomplete composite key %+v", key)
	}

	times := record.AvailableTimes
	if times == nil {
		times = []string{}
	}
	timesJSON, err := json.Marshal(times)
	if err != nil {
		return fmt.Errorf("marshal available times: %w", err)
	}

	now := s.now().UTC()
	query := fmt.Sprintf(`
INSERT INTO %s (
	brand,
	title,
	date,
	branch,
	display_brand,
	display_title,
	display_branch,
	numeric_id,
	location,
	available_times,
	updated_at,
	expire_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
ON CONFLICT (brand, title, date, branch) DO UPDATE SET
	display_brand = EXCLUDED.display_brand,
	display_title = EXCLUDED.display_title,
	display_branch = EXCLUDED.display_branch,
	numeric_id = EXCLUDED.numeric_id,
	location = EXCLUDED.location,
	available_times = EXCLUDED.available_times,
	updated_at = EXCLUDED.updated_at,
	expire_at = EXCLUDED.expire_at
`, s.table)

	_, err = s.pool.Exec(ctx, query,
		key.Brand,
		key.Title,
		key.Date,
		key.Branch,
		strings.TrimSpace(record.Brand),
		strings.TrimSpace(record.Title),
		strings.TrimSpace(record.Branch),
		record.NumericID,
		record.Location,
		timesJSON,
		now,
		now.Add(s.ttl),
	)
	if err != nil {
		return fmt.Errorf("upsert availability row: %w", err)
	}
	return nil
}

// Close releases the underlying pool resources.
func (s *PostgresStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}
