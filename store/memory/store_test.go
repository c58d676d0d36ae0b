package memory_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/embers"
	"github.com/xraph/embers/store"
	"github.com/xraph/embers/store/memory"
	"github.com/xraph/embers/store/storetest"
)

func TestStoreContract(t *testing.T) {
	storetest.Run(t, func(*testing.T) store.Store { return memory.New() })
}

func TestClosedStore(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	require.NoError(t, s.Close())

	_, err := s.GetInt(ctx, "k", 0)
	assert.ErrorIs(t, err, embers.ErrStoreClosed)
	assert.ErrorIs(t, s.SetInt(ctx, "k", 1), embers.ErrStoreClosed)
	assert.ErrorIs(t, s.Ping(ctx), embers.ErrStoreClosed)
}
