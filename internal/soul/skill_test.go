package soul

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSkillStore_CreateDefaultsToPendingApproval(t *testing.T) {
	store := NewSkillStore()
	sk := &Skill{Name: "web_search"}
	require.NoError(t, store.Create(context.Background(), sk))
	assert.NotEmpty(t, sk.ID)
	assert.Equal(t, SkillPendingApproval, sk.Status)
}

func TestSkillStore_ApprovalWorkflow(t *testing.T) {
	store := NewSkillStore()
	ctx := context.Background()
	sk := &Skill{Name: "web_search"}
	require.NoError(t, store.Create(ctx, sk))

	approved, err := store.Transition(ctx, sk.ID, "approve")
	require.NoError(t, err)
	assert.Equal(t, SkillApproved, approved.Status)

	enabled, err := store.Transition(ctx, sk.ID, "enable")
	require.NoError(t, err)
	assert.Equal(t, SkillEnabled, enabled.Status)

	disabled, err := store.Transition(ctx, sk.ID, "disable")
	require.NoError(t, err)
	assert.Equal(t, SkillDisabled, disabled.Status)

	reEnabled, err := store.Transition(ctx, sk.ID, "enable")
	require.NoError(t, err)
	assert.Equal(t, SkillEnabled, reEnabled.Status)
}

func TestSkillStore_RejectFromPendingApproval(t *testing.T) {
	store := NewSkillStore()
	ctx := context.Background()
	sk := &Skill{Name: "shell_exec"}
	require.NoError(t, store.Create(ctx, sk))

	rejected, err := store.Transition(ctx, sk.ID, "reject")
	require.NoError(t, err)
	assert.Equal(t, SkillRejected, rejected.Status)
}

func TestSkillStore_InvalidTransitionRejected(t *testing.T) {
	store := NewSkillStore()
	ctx := context.Background()
	sk := &Skill{Name: "shell_exec"}
	require.NoError(t, store.Create(ctx, sk))

	_, err := store.Transition(ctx, sk.ID, "enable")
	assert.Error(t, err)
}

func TestSkillStore_UnknownActionRejected(t *testing.T) {
	store := NewSkillStore()
	ctx := context.Background()
	sk := &Skill{Name: "shell_exec"}
	require.NoError(t, store.Create(ctx, sk))

	_, err := store.Transition(ctx, sk.ID, "reformat")
	assert.Error(t, err)
}
