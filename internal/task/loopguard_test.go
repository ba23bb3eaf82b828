package task

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoopGuard_TimeoutDetected(t *testing.T) {
	g := NewLoopGuard(10*time.Millisecond, 2)
	time.Sleep(20 * time.Millisecond)

	reason := g.CheckStuck()
	require.NotNil(t, reason)
	assert.Equal(t, StuckTimeout, reason.Type)
}

// TestLoopGuard_RepetitionDetected matches spec §8 scenario 6: two
// consecutive identical (search,{"q":"x"}) calls trigger repetition.
func TestLoopGuard_RepetitionDetected(t *testing.T) {
	g := NewLoopGuard(time.Minute, 2)
	require.NoError(t, g.RecordToolCall("search", map[string]interface{}{"q": "x"}, "error"))
	require.NoError(t, g.RecordToolCall("search", map[string]interface{}{"q": "x"}, "error"))

	reason := g.CheckStuck()
	require.NotNil(t, reason)
	assert.Equal(t, StuckRepetition, reason.Type)
	assert.Contains(t, reason.Detail, "search")
	assert.Contains(t, reason.Detail, "2 consecutive")
}

func TestLoopGuard_DifferentArgsNotRepetition(t *testing.T) {
	g := NewLoopGuard(time.Minute, 2)
	require.NoError(t, g.RecordToolCall("search", map[string]interface{}{"q": "x"}, "ok"))
	require.NoError(t, g.RecordToolCall("search", map[string]interface{}{"q": "y"}, "ok"))

	assert.Nil(t, g.CheckStuck())
}

func TestLoopGuard_ArgFieldOrderDoesNotAffectCanonicalization(t *testing.T) {
	g := NewLoopGuard(time.Minute, 2)
	require.NoError(t, g.RecordToolCall("search", map[string]interface{}{"q": "x", "limit": 5}, "ok"))
	require.NoError(t, g.RecordToolCall("search", map[string]interface{}{"limit": 5, "q": "x"}, "ok"))

	require.NotNil(t, g.CheckStuck())
}

func TestBuildRecoveryPrompt_ContainsRequiredFields(t *testing.T) {
	g := NewLoopGuard(time.Minute, 2)
	require.NoError(t, g.RecordToolCall("search", map[string]interface{}{"q": "x"}, "error"))
	require.NoError(t, g.RecordToolCall("search", map[string]interface{}{"q": "x"}, "error"))

	reason := g.CheckStuck()
	require.NotNil(t, reason)
	prompt := BuildRecoveryPrompt(reason, g.History())

	assert.Contains(t, prompt, "looping")
	assert.Contains(t, prompt, "search")
	assert.Contains(t, prompt, "error")
	assert.Contains(t, prompt, "Try a different approach")
}

func TestLoopGuard_ResetClearsHistoryAndClock(t *testing.T) {
	g := NewLoopGuard(time.Minute, 2)
	require.NoError(t, g.RecordToolCall("search", map[string]interface{}{"q": "x"}, "ok"))
	g.Reset()

	assert.Empty(t, g.History())
	assert.Nil(t, g.CheckStuck())
}
