package extension

import (
	"context"
	"errors"
	"fmt"

	mongodrv "go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/xraph/embers/store"
	"github.com/xraph/embers/store/memory"
	"github.com/xraph/embers/store/mongo"
	"github.com/xraph/embers/store/postgres"
	"github.com/xraph/embers/store/sqlite"
)

// openStore builds the store named by cfg.Backend.
func openStore(ctx context.Context, cfg Config) (store.Store, error) {
	switch cfg.Backend {
	case "", BackendMemory:
		return memory.New(), nil

	case BackendSQLite:
		if cfg.DSN == "" {
			return nil, errors.New("embers: sqlite backend requires dsn")
		}
		db, err := sqlite.Open(cfg.DSN)
		if err != nil {
			return nil, err
		}
		return sqlite.New(db, cfg.Slot), nil

	case BackendPostgres:
		if cfg.DSN == "" {
			return nil, errors.New("embers: postgres backend requires dsn")
		}
		pool, err := postgres.Connect(ctx, cfg.DSN)
		if err != nil {
			return nil, err
		}
		return postgres.New(pool, cfg.Slot), nil

	case BackendMongo:
		if cfg.DSN == "" {
			return nil, errors.New("embers: mongo backend requires dsn")
		}
		client, err := mongodrv.Connect(options.Client().ApplyURI(cfg.DSN))
		if err != nil {
			return nil, fmt.Errorf("embers: mongo connect: %w", err)
		}
		return mongo.New(client.Database(cfg.Database), cfg.Slot), nil

	default:
		return nil, fmt.Errorf("embers: unknown store backend %q", cfg.Backend)
	}
}
