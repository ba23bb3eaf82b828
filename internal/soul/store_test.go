package soul

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_FirstCreatedPersonalityBecomesActive(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	p := &Personality{Name: "default"}
	require.NoError(t, store.Create(ctx, p))
	assert.NotEmpty(t, p.ID)

	active, err := store.Active(ctx)
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, p.ID, active.ID)
	assert.True(t, active.Active)
}

func TestStore_ActivateSwitchesExclusively(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	a := &Personality{Name: "a"}
	b := &Personality{Name: "b"}
	require.NoError(t, store.Create(ctx, a))
	require.NoError(t, store.Create(ctx, b))

	require.NoError(t, store.Activate(ctx, b.ID))

	active, err := store.Active(ctx)
	require.NoError(t, err)
	assert.Equal(t, b.ID, active.ID)

	stale, err := store.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.False(t, stale.Active)
}

func TestStore_ActivateUnknownIDFails(t *testing.T) {
	store := NewStore()
	err := store.Activate(context.Background(), "missing")
	assert.Error(t, err)
}

func TestStore_ActivePersonalityAdaptsForIntegrationRouter(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, &Personality{
		Name: "ops", Voice: "alloy", SelectedIntegrations: []string{"slack-1"},
	}))

	active, err := store.ActivePersonality(ctx)
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, "alloy", active.Voice)
	assert.Equal(t, []string{"slack-1"}, active.SelectedIntegrations)
}

func TestStore_ActivePersonalityNilWhenEmpty(t *testing.T) {
	store := NewStore()
	active, err := store.ActivePersonality(context.Background())
	require.NoError(t, err)
	assert.Nil(t, active)
}
