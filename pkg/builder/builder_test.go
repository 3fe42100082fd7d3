package builder

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shouni/fic-comment-pipe-go/pkg/store"
)

func TestParseStoreKind(t *testing.T) {
	k, err := ParseStoreKind(" Memory ")
	require.NoError(t, err)
	assert.Equal(t, StoreMemory, k)

	_, err = ParseStoreKind("sqlite")
	assert.Error(t, err)
}

func TestBuildStore_Memory(t *testing.T) {
	s, closeFn, err := BuildStore(context.Background(), Options{Store: StoreMemory})
	require.NoError(t, err)
	defer closeFn()
	assert.IsType(t, &store.Memory{}, s)
}

func TestBuildStore_PostgresNeedsDSN(t *testing.T) {
	_, _, err := BuildStore(context.Background(), Options{Store: StorePostgres})
	assert.ErrorIs(t, err, ErrMissingDSN)
}

func TestBuildBatchRunner(t *testing.T) {
	client := BuildFetcher(Options{})
	_, err := BuildBatchRunner(client, store.NewMemory(), "https://archiveofourown.org")
	require.NoError(t, err)

	_, err = BuildBatchRunner(client, store.NewMemory(), "not a url")
	assert.Error(t, err)
}
