package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// migration is one versioned schema step, applied at most once.
type migration struct {
	Name    string
	Version string
	Up      string
}

// Migrations lists the embers schema steps for PostgreSQL, oldest first.
var Migrations = []migration{
	{
		Name:    "create_embers_kv",
		Version: "20260101000001",
		Up: `
CREATE TABLE IF NOT EXISTS embers_kv (
    slot         TEXT NOT NULL,
    key          TEXT NOT NULL,
    kind         TEXT NOT NULL,
    int_value    BIGINT NOT NULL DEFAULT 0,
    float_value  DOUBLE PRECISION NOT NULL DEFAULT 0,
    string_value TEXT NOT NULL DEFAULT '',
    updated_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    PRIMARY KEY (slot, key)
);
`,
	},
}

const migrationTable = "embers_migrations"

// migrationLock serialises concurrent Migrate calls across processes.
const migrationLock = 7_263_011

func (s *Store) applyMigrations(ctx context.Context) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, migrationLock); err != nil {
			return fmt.Errorf("acquire migration lock: %w", err)
		}
		if _, err := tx.Exec(ctx, `
CREATE TABLE IF NOT EXISTS `+migrationTable+` (
    version    TEXT PRIMARY KEY,
    name       TEXT NOT NULL,
    applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);`); err != nil {
			return fmt.Errorf("ensure migration table: %w", err)
		}

		for _, m := range Migrations {
			var applied bool
			if err := tx.QueryRow(ctx,
				`SELECT EXISTS (SELECT 1 FROM `+migrationTable+` WHERE version = $1)`, m.Version,
			).Scan(&applied); err != nil {
				return fmt.Errorf("check migration %s: %w", m.Name, err)
			}
			if applied {
				continue
			}
			if _, err := tx.Exec(ctx, m.Up); err != nil {
				return fmt.Errorf("exec migration %s: %w", m.Name, err)
			}
			if _, err := tx.Exec(ctx,
				`INSERT INTO `+migrationTable+` (version, name) VALUES ($1, $2)`, m.Version, m.Name,
			); err != nil {
				return fmt.Errorf("record migration %s: %w", m.Name, err)
			}
		}
		return nil
	})
}
