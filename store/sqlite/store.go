// Package sqlite persists save slots in a SQLite database through the pure-Go
// modernc.org/sqlite driver.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/xraph/embers/store"
)

// compile-time interface check
var _ store.Store = (*Store)(nil)

// DefaultSlot is the save slot used when none is given.
const DefaultSlot = "default"

// Store implements store.Store on a single embers_kv table keyed by
// (slot, key). Several slots may share one database.
type Store struct {
	db   *sql.DB
	slot string
}

// Open opens (or creates) the database at path with WAL journaling.
func Open(path string) (*sql.DB, error) {
	if path == "" {
		return nil, errors.New("embers/sqlite: path is required")
	}
	dsn := path + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("embers/sqlite: open: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("embers/sqlite: ping: %w", err)
	}
	return db, nil
}

// New creates a store for slot on db. An empty slot selects DefaultSlot.
func New(db *sql.DB, slot string) *Store {
	if slot == "" {
		slot = DefaultSlot
	}
	return &Store{db: db, slot: slot}
}

// DB returns the underlying database for direct access.
func (s *Store) DB() *sql.DB { return s.db }

// Migrate creates the required tables.
func (s *Store) Migrate(ctx context.Context) error {
	if err := applyMigrations(ctx, s.db); err != nil {
		return fmt.Errorf("embers/sqlite: migration failed: %w", err)
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ==================== Reads ====================

type row struct {
	kind store.Kind
	i    int64
	f    float64
	s    string
}

func (s *Store) get(ctx context.Context, key string) (row, bool, error) {
	var r row
	err := s.db.QueryRowContext(ctx,
		`SELECT kind, int_value, float_value, string_value FROM embers_kv WHERE slot = ? AND key = ?`,
		s.slot, key,
	).Scan(&r.kind, &r.i, &r.f, &r.s)
	if err != nil {
		if isNoRows(err) {
			return row{}, false, nil
		}
		return row{}, false, fmt.Errorf("embers/sqlite: get %q: %w", key, err)
	}
	return r, true, nil
}

func (s *Store) GetInt(ctx context.Context, key string, def int64) (int64, error) {
	r, ok, err := s.get(ctx, key)
	if err != nil || !ok || r.kind != store.KindInt {
		return def, err
	}
	return r.i, nil
}

func (s *Store) GetFloat(ctx context.Context, key string, def float64) (float64, error) {
	r, ok, err := s.get(ctx, key)
	if err != nil || !ok || r.kind != store.KindFloat {
		return def, err
	}
	return r.f, nil
}

func (s *Store) GetString(ctx context.Context, key, def string) (string, error) {
	r, ok, err := s.get(ctx, key)
	if err != nil || !ok || r.kind != store.KindString {
		return def, err
	}
	return r.s, nil
}

func (s *Store) Has(ctx context.Context, key string) (bool, error) {
	_, ok, err := s.get(ctx, key)
	return ok, err
}

func (s *Store) Keys(ctx context.Context, prefix string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT key FROM embers_kv WHERE slot = ? AND substr(key, 1, length(?)) = ? ORDER BY key ASC`,
		s.slot, prefix, prefix,
	)
	if err != nil {
		return nil, fmt.Errorf("embers/sqlite: keys: %w", err)
	}
	defer rows.Close()

	keys := make([]string, 0)
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("embers/sqlite: scan key: %w", err)
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// ==================== Writes ====================

func (s *Store) SetInt(ctx context.Context, key string, v int64) error {
	return s.Apply(ctx, store.NewBatch().SetInt(key, v))
}

func (s *Store) SetFloat(ctx context.Context, key string, v float64) error {
	return s.Apply(ctx, store.NewBatch().SetFloat(key, v))
}

func (s *Store) SetString(ctx context.Context, key, v string) error {
	return s.Apply(ctx, store.NewBatch().SetString(key, v))
}

const upsertSQL = `
INSERT INTO embers_kv (slot, key, kind, int_value, float_value, string_value, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (slot, key) DO UPDATE SET
    kind = excluded.kind,
    int_value = excluded.int_value,
    float_value = excluded.float_value,
    string_value = excluded.string_value,
    updated_at = excluded.updated_at`

// Apply runs the batch in one transaction.
func (s *Store) Apply(ctx context.Context, b *store.Batch) error {
	ops := b.Ops()
	if len(ops) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("embers/sqlite: begin: %w", err)
	}
	now := time.Now().UTC().UnixMilli()
	for _, op := range ops {
		if op.Delete {
			_, err = tx.ExecContext(ctx, `DELETE FROM embers_kv WHERE slot = ? AND key = ?`, s.slot, op.Key)
		} else {
			_, err = tx.ExecContext(ctx, upsertSQL, s.slot, op.Key, string(op.Kind), op.Int, op.Float, op.String, now)
		}
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("embers/sqlite: write %q: %w", op.Key, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("embers/sqlite: commit: %w", err)
	}
	return nil
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
