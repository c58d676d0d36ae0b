// Package postgres persists save slots in PostgreSQL through a pgx pool.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xraph/embers/store"
)

// compile-time interface check
var _ store.Store = (*Store)(nil)

// DefaultSlot is the save slot used when none is given.
const DefaultSlot = "default"

// Store implements store.Store on the embers_kv table keyed by (slot, key).
type Store struct {
	pool *pgxpool.Pool
	slot string
}

// Connect opens a pool for the given connection string.
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("embers/postgres: connect: %w", err)
	}
	return pool, nil
}

// New creates a store for slot on pool. An empty slot selects DefaultSlot.
func New(pool *pgxpool.Pool, slot string) *Store {
	if slot == "" {
		slot = DefaultSlot
	}
	return &Store{pool: pool, slot: slot}
}

// Pool returns the underlying pool for direct access.
func (s *Store) Pool() *pgxpool.Pool { return s.pool }

// Migrate creates the required tables.
func (s *Store) Migrate(ctx context.Context) error {
	if err := s.applyMigrations(ctx); err != nil {
		return fmt.Errorf("embers/postgres: migration failed: %w", err)
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close closes the pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// ==================== Reads ====================

type row struct {
	kind string
	i    int64
	f    float64
	s    string
}

func (s *Store) get(ctx context.Context, key string) (row, bool, error) {
	var r row
	err := s.pool.QueryRow(ctx,
		`SELECT kind, int_value, float_value, string_value FROM embers_kv WHERE slot = $1 AND key = $2`,
		s.slot, key,
	).Scan(&r.kind, &r.i, &r.f, &r.s)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return row{}, false, nil
		}
		return row{}, false, fmt.Errorf("embers/postgres: get %q: %w", key, err)
	}
	return r, true, nil
}

func (s *Store) GetInt(ctx context.Context, key string, def int64) (int64, error) {
	r, ok, err := s.get(ctx, key)
	if err != nil || !ok || store.Kind(r.kind) != store.KindInt {
		return def, err
	}
	return r.i, nil
}

func (s *Store) GetFloat(ctx context.Context, key string, def float64) (float64, error) {
	r, ok, err := s.get(ctx, key)
	if err != nil || !ok || store.Kind(r.kind) != store.KindFloat {
		return def, err
	}
	return r.f, nil
}

func (s *Store) GetString(ctx context.Context, key, def string) (string, error) {
	r, ok, err := s.get(ctx, key)
	if err != nil || !ok || store.Kind(r.kind) != store.KindString {
		return def, err
	}
	return r.s, nil
}

func (s *Store) Has(ctx context.Context, key string) (bool, error) {
	_, ok, err := s.get(ctx, key)
	return ok, err
}

func (s *Store) Keys(ctx context.Context, prefix string) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT key FROM embers_kv WHERE slot = $1 AND left(key, char_length($2)) = $2 ORDER BY key COLLATE "C"`,
		s.slot, prefix,
	)
	if err != nil {
		return nil, fmt.Errorf("embers/postgres: keys: %w", err)
	}
	keys, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("embers/postgres: keys: %w", err)
	}
	return keys, nil
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
VALUES ($1, $2, $3, $4, $5, $6, NOW())
ON CONFLICT (slot, key) DO UPDATE SET
    kind = EXCLUDED.kind,
    int_value = EXCLUDED.int_value,
    float_value = EXCLUDED.float_value,
    string_value = EXCLUDED.string_value,
    updated_at = EXCLUDED.updated_at`

// Apply sends the whole batch in one transaction.
func (s *Store) Apply(ctx context.Context, b *store.Batch) error {
	ops := b.Ops()
	if len(ops) == 0 {
		return nil
	}

	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, op := range ops {
			if op.Delete {
				batch.Queue(`DELETE FROM embers_kv WHERE slot = $1 AND key = $2`, s.slot, op.Key)
				continue
			}
			batch.Queue(upsertSQL, s.slot, op.Key, string(op.Kind), op.Int, op.Float, op.String)
		}
		return tx.SendBatch(ctx, batch).Close()
	})
	if err != nil {
		return fmt.Errorf("embers/postgres: apply batch: %w", err)
	}
	return nil
}
