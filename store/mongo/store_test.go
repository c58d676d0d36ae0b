package mongo_test

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	mongodrv "go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/xraph/embers/id"
	"github.com/xraph/embers/store"
	"github.com/xraph/embers/store/mongo"
	"github.com/xraph/embers/store/storetest"
)

// Set EMBERS_TEST_MONGO_URI to run against a live server.
func TestStoreContract(t *testing.T) {
	uri := os.Getenv("EMBERS_TEST_MONGO_URI")
	if uri == "" {
		t.Skip("EMBERS_TEST_MONGO_URI not set")
	}

	client, err := mongodrv.Connect(options.Client().ApplyURI(uri))
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Disconnect(context.Background()) })

	db := client.Database("embers_test")
	storetest.Run(t, func(*testing.T) store.Store {
		return mongo.New(db, id.NewRunID().String())
	})
}

func TestRejectsDottedKeys(t *testing.T) {
	// Key validation happens before any round trip, so a nil database is fine.
	s := mongo.New(&mongodrv.Database{}, "")
	err := s.Apply(context.Background(), store.NewBatch().SetInt("a.b", 1))
	assert.Error(t, err)
}
