// Package mongo persists each save slot as a single MongoDB document so that
// a batch maps to one atomic update.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/xraph/embers/store"
)

// Collection name constants.
const (
	colSaves = "embers_saves"
)

// DefaultSlot is the save slot used when none is given.
const DefaultSlot = "default"

// compile-time interface check
var _ store.Store = (*Store)(nil)

// Store implements store.Store on one document per slot.
type Store struct {
	db   *mongo.Database
	slot string
}

// New creates a store for slot in db. An empty slot selects DefaultSlot.
func New(db *mongo.Database, slot string) *Store {
	if slot == "" {
		slot = DefaultSlot
	}
	return &Store{db: db, slot: slot}
}

// DB returns the underlying database for direct access.
func (s *Store) DB() *mongo.Database { return s.db }

func (s *Store) saves() *mongo.Collection { return s.db.Collection(colSaves) }

// Migrate creates the collection indexes.
func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.saves().Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "updated_at", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("embers/mongo: migrate %s indexes: %w", colSaves, err)
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Client().Ping(ctx, nil)
}

// Close disconnects the client.
func (s *Store) Close() error {
	return s.db.Client().Disconnect(context.Background())
}

// ==================== Reads ====================

func valuePath(key string) string { return "values." + key }

func (s *Store) get(ctx context.Context, key string) (valueModel, bool, error) {
	if err := checkKey(key); err != nil {
		return valueModel{}, false, err
	}

	var doc saveDocument
	err := s.saves().FindOne(ctx,
		bson.M{"_id": s.slot},
		options.FindOne().SetProjection(bson.M{valuePath(key): 1}),
	).Decode(&doc)
	if err != nil {
		if isNoDocuments(err) {
			return valueModel{}, false, nil
		}
		return valueModel{}, false, fmt.Errorf("embers/mongo: get %q: %w", key, err)
	}
	v, ok := doc.Values[key]
	return v, ok, nil
}

func (s *Store) GetInt(ctx context.Context, key string, def int64) (int64, error) {
	v, ok, err := s.get(ctx, key)
	if err != nil || !ok || store.Kind(v.Kind) != store.KindInt {
		return def, err
	}
	return v.Int, nil
}

func (s *Store) GetFloat(ctx context.Context, key string, def float64) (float64, error) {
	v, ok, err := s.get(ctx, key)
	if err != nil || !ok || store.Kind(v.Kind) != store.KindFloat {
		return def, err
	}
	return v.Float, nil
}

func (s *Store) GetString(ctx context.Context, key, def string) (string, error) {
	v, ok, err := s.get(ctx, key)
	if err != nil || !ok || store.Kind(v.Kind) != store.KindString {
		return def, err
	}
	return v.String, nil
}

func (s *Store) Has(ctx context.Context, key string) (bool, error) {
	_, ok, err := s.get(ctx, key)
	return ok, err
}

func (s *Store) Keys(ctx context.Context, prefix string) ([]string, error) {
	var doc saveDocument
	err := s.saves().FindOne(ctx, bson.M{"_id": s.slot}).Decode(&doc)
	if err != nil {
		if isNoDocuments(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("embers/mongo: keys: %w", err)
	}

	keys := make([]string, 0, len(doc.Values))
	for k := range doc.Values {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
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

// Apply folds the batch into a single upserting UpdateOne; MongoDB applies
// all operators of one update to a document atomically.
func (s *Store) Apply(ctx context.Context, b *store.Batch) error {
	ops := b.Ops()
	if len(ops) == 0 {
		return nil
	}

	set := bson.M{"updated_at": time.Now().UTC()}
	unset := bson.M{}
	for _, op := range ops {
		if err := checkKey(op.Key); err != nil {
			return err
		}
		if op.Delete {
			unset[valuePath(op.Key)] = ""
			continue
		}
		set[valuePath(op.Key)] = toValueModel(op)
	}

	update := bson.M{"$set": set}
	if len(unset) > 0 {
		update["$unset"] = unset
	}

	_, err := s.saves().UpdateOne(ctx,
		bson.M{"_id": s.slot},
		update,
		options.UpdateOne().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("embers/mongo: apply batch: %w", err)
	}
	return nil
}

// checkKey rejects keys that MongoDB would treat as a nested path.
func checkKey(key string) error {
	if key == "" || strings.ContainsAny(key, ".$") {
		return fmt.Errorf("embers/mongo: invalid key %q", key)
	}
	return nil
}

// isNoDocuments checks if an error wraps mongo.ErrNoDocuments.
func isNoDocuments(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}
