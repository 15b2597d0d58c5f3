package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"dealbase/internal/config"
)

// Store is the SQLite persistence layer. All multi-row mutations run inside
// a single transaction so readers never observe a partially replaced
// dataset.
type Store struct {
	db     *sql.DB
	cfg    config.StoreConfig
	logger *slog.Logger
}

// Open opens (creating if needed) the database at cfg.DatabasePath and
// applies the schema.
func Open(cfg config.StoreConfig, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("component", "store"))

	if dir := filepath.Dir(cfg.DatabasePath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// The driver serializes writes; one connection avoids lock churn.
	db.SetMaxOpenConns(1)

	s := &Store{db: db, cfg: cfg, logger: logger}
	if err := s.init(); err != nil {
		db.Close()
		return nil, err
	}
	logger.Info("store opened", slog.String("path", cfg.DatabasePath))
	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) init() error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := s.db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

const schema = `
CREATE TABLE IF NOT EXISTS deals (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	name          TEXT NOT NULL,
	property_type TEXT NOT NULL DEFAULT '',
	status        TEXT NOT NULL DEFAULT 'active',
	created_at    TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS documents (
	id                TEXT PRIMARY KEY,
	deal_id           INTEGER NOT NULL REFERENCES deals(id),
	kind              TEXT NOT NULL,
	original_filename TEXT NOT NULL,
	file_size         INTEGER NOT NULL,
	content_type      TEXT NOT NULL DEFAULT '',
	content_hash      TEXT NOT NULL,
	status            TEXT NOT NULL,
	error             TEXT NOT NULL DEFAULT '',
	created_at        TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_documents_deal ON documents(deal_id, kind, content_hash);

CREATE TABLE IF NOT EXISTS unit_records (
	id               INTEGER PRIMARY KEY AUTOINCREMENT,
	deal_id          INTEGER NOT NULL REFERENCES deals(id),
	unit_number      TEXT NOT NULL,
	unit_label       TEXT,
	unit_type        TEXT NOT NULL,
	square_feet      INTEGER,
	bedrooms         INTEGER,
	bathrooms        REAL,
	actual_rent      REAL NOT NULL,
	market_rent      REAL NOT NULL,
	lease_start      TEXT,
	move_in_date     TEXT,
	lease_expiration TEXT,
	tenant_name      TEXT NOT NULL DEFAULT '',
	lease_status     TEXT NOT NULL,
	is_duplicate     INTEGER NOT NULL DEFAULT 0,
	is_application   INTEGER NOT NULL DEFAULT 0,
	data_source      TEXT NOT NULL DEFAULT 'upload'
);
CREATE INDEX IF NOT EXISTS idx_unit_records_deal ON unit_records(deal_id);

CREATE TABLE IF NOT EXISTS unit_mix_groups (
	id                   INTEGER PRIMARY KEY AUTOINCREMENT,
	deal_id              INTEGER NOT NULL REFERENCES deals(id),
	group_key            TEXT NOT NULL,
	unit_type            TEXT NOT NULL,
	unit_label           TEXT,
	total_units          INTEGER NOT NULL,
	occupied_units       INTEGER NOT NULL,
	vacant_units         INTEGER NOT NULL,
	avg_square_feet      REAL,
	total_square_feet    REAL,
	avg_bedrooms         REAL,
	avg_bathrooms        REAL,
	avg_actual_rent      REAL NOT NULL,
	avg_market_rent      REAL NOT NULL,
	total_actual_rent    REAL NOT NULL,
	total_market_rent    REAL NOT NULL,
	rent_premium         REAL NOT NULL,
	pro_forma_rent       REAL,
	total_pro_forma_rent REAL NOT NULL,
	provenance           TEXT NOT NULL,
	is_linked            INTEGER NOT NULL,
	source_name          TEXT,
	last_derived_at      TEXT,
	last_manual_edit_at  TEXT
);
CREATE INDEX IF NOT EXISTS idx_unit_mix_deal ON unit_mix_groups(deal_id);

CREATE TABLE IF NOT EXISTS financial_periods (
	id                   INTEGER PRIMARY KEY AUTOINCREMENT,
	deal_id              INTEGER NOT NULL REFERENCES deals(id),
	month                INTEGER NOT NULL,
	year                 INTEGER NOT NULL,
	gross_rent           REAL NOT NULL,
	other_income         REAL NOT NULL,
	total_income         REAL NOT NULL,
	operating_expenses   REAL NOT NULL,
	net_operating_income REAL NOT NULL,
	UNIQUE(deal_id, year, month)
);

CREATE TABLE IF NOT EXISTS valuation_runs (
	id          TEXT PRIMARY KEY,
	deal_id     INTEGER NOT NULL REFERENCES deals(id),
	name        TEXT NOT NULL,
	status      TEXT NOT NULL,
	assumptions TEXT NOT NULL,
	kpis        TEXT NOT NULL,
	created_at  TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_valuation_runs_deal ON valuation_runs(deal_id);

CREATE TABLE IF NOT EXISTS audit_events (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	deal_id     INTEGER NOT NULL REFERENCES deals(id),
	event_type  TEXT NOT NULL,
	description TEXT NOT NULL,
	metadata    TEXT NOT NULL DEFAULT '{}',
	created_at  TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_audit_events_deal ON audit_events(deal_id);
`

// withRetry runs op, retrying transient lock contention with a bounded
// linear backoff. Non-transient errors fail immediately.
func (s *Store) withRetry(ctx context.Context, op func() error) error {
	var err error
	for attempt := 1; attempt <= s.cfg.MaxRetries; attempt++ {
		err = op()
		if err == nil || !transient(err) {
			return err
		}
		s.logger.WarnContext(ctx, "transient store error, retrying",
			slog.Int("attempt", attempt),
			slog.String("error", err.Error()))
		select {
		case <-time.After(time.Duration(attempt) * s.cfg.RetryBackoff):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return fmt.Errorf("store operation failed after %d attempts: %w", s.cfg.MaxRetries, err)
}

func transient(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "locked") || strings.Contains(msg, "busy")
}

// inTx runs fn inside a transaction, rolling back on error.
func (s *Store) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Time columns are stored as RFC 3339 strings.
const timeFormat = time.RFC3339Nano

func formatTime(t time.Time) string {
	return t.UTC().Format(timeFormat)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(timeFormat, s)
	return t
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func timePtr(ns sql.NullString) *time.Time {
	if !ns.Valid {
		return nil
	}
	t := parseTime(ns.String)
	return &t
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func nullInt(i *int) sql.NullInt64 {
	if i == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*i), Valid: true}
}

func intPtr(ni sql.NullInt64) *int {
	if !ni.Valid {
		return nil
	}
	i := int(ni.Int64)
	return &i
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func floatPtr(nf sql.NullFloat64) *float64 {
	if !nf.Valid {
		return nil
	}
	f := nf.Float64
	return &f
}
