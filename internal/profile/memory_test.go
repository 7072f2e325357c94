package profile

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMemoryBatchSemantics(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	b := store.NewBatch()
	require.NoError(t, b.Set("users", "U1", map[string]interface{}{"email": "a@x.com"}))
	require.NoError(t, b.Set("users", "U2", map[string]interface{}{"email": "b@x.com"}))
	require.Equal(t, 2, b.Len())

	// nothing visible before commit
	require.Nil(t, store.Get("users", "U1"))

	require.NoError(t, b.Commit(ctx))
	require.Equal(t, "a@x.com", store.Get("users", "U1")["email"])
	require.Equal(t, 2, store.Count("users"))
	require.Equal(t, 1, store.CommittedBatches())

	require.ErrorIs(t, b.Set("users", "U3", nil), ErrBatchCommitted)
	require.ErrorIs(t, b.Commit(ctx), ErrBatchCommitted)
}

func TestMemoryBatchFull(t *testing.T) {
	store := NewMemoryStore().WithMaxBatchOps(2)
	b := store.NewBatch()
	require.NoError(t, b.Set("users", "U1", map[string]interface{}{}))
	require.NoError(t, b.Set("users", "U2", map[string]interface{}{}))
	require.ErrorIs(t, b.Set("users", "U3", map[string]interface{}{}), ErrBatchFull)
}

func TestMemoryCommitFailureIsAtomic(t *testing.T) {
	store := NewMemoryStore()
	store.CommitErr = errors.New("boom")

	b := store.NewBatch()
	require.NoError(t, b.Set("users", "U1", map[string]interface{}{"email": "a@x.com"}))
	err := b.Commit(context.Background())
	require.ErrorIs(t, err, ErrCommitFailed)
	require.Nil(t, store.Get("users", "U1"))
	require.Equal(t, 0, store.CommittedBatches())
}

func TestMemoryOverwriteIsFullReplace(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	b := store.NewBatch()
	require.NoError(t, b.Set("users", "U1", map[string]interface{}{"email": "a@x.com", "extra": "x"}))
	require.NoError(t, b.Commit(ctx))

	b2 := store.NewBatch()
	require.NoError(t, b2.Set("users", "U1", map[string]interface{}{"email": "a@x.com"}))
	require.NoError(t, b2.Commit(ctx))

	doc := store.Get("users", "U1")
	_, hasExtra := doc["extra"]
	require.False(t, hasExtra, "overwrite must replace the whole document")
}
