package soul

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKnowledgeStore_CreateGetDelete(t *testing.T) {
	store := NewKnowledgeStore()
	ctx := context.Background()

	k := &Knowledge{Title: "on-call runbook", Content: "escalate to #ops", Tags: []string{"ops"}}
	require.NoError(t, store.Create(ctx, k))
	assert.NotEmpty(t, k.ID)

	got, err := store.Get(ctx, k.ID)
	require.NoError(t, err)
	assert.Equal(t, "on-call runbook", got.Title)

	require.NoError(t, store.Delete(ctx, k.ID))
	_, err = store.Get(ctx, k.ID)
	assert.Error(t, err)
}

func TestKnowledgeStore_List(t *testing.T) {
	store := NewKnowledgeStore()
	ctx := context.Background()
	require.NoError(t, store.Create(ctx, &Knowledge{Title: "a"}))
	require.NoError(t, store.Create(ctx, &Knowledge{Title: "b"}))

	list, err := store.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestKnowledgeStore_DeleteUnknownFails(t *testing.T) {
	store := NewKnowledgeStore()
	err := store.Delete(context.Background(), "missing")
	assert.Error(t, err)
}
