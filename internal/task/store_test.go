package task

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryStore_CreateGetUpdateDelete(t *testing.T) {
	store := NewInMemoryStore(nil)
	ctx := context.Background()

	tk := &Task{ID: "t1", Type: "QUERY", Status: StatusQueued, CreatedAt: time.Now()}
	require.NoError(t, store.Create(ctx, tk))

	got, err := store.Get(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, StatusQueued, got.Status)

	got.Status = StatusRunning
	require.NoError(t, store.Update(ctx, got))

	updated, err := store.Get(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, StatusRunning, updated.Status)

	require.NoError(t, store.Delete(ctx, "t1"))
	_, err = store.Get(ctx, "t1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestInMemoryStore_ListOrdersByCreatedAt(t *testing.T) {
	store := NewInMemoryStore(nil)
	ctx := context.Background()

	older := time.Now().Add(-time.Hour)
	newer := time.Now()
	require.NoError(t, store.Create(ctx, &Task{ID: "new", CreatedAt: newer}))
	require.NoError(t, store.Create(ctx, &Task{ID: "old", CreatedAt: older}))

	all, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "old", all[0].ID)
}
