package memory

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMatchesCron_DailyAtThreeAM(t *testing.T) {
	spec := "0 3 * * *"
	assert.True(t, matchesCron(spec, time.Date(2026, 1, 1, 3, 0, 0, 0, time.UTC)))
	assert.False(t, matchesCron(spec, time.Date(2026, 1, 1, 3, 1, 0, 0, time.UTC)))
	assert.False(t, matchesCron(spec, time.Date(2026, 1, 1, 4, 0, 0, 0, time.UTC)))
}

func TestMatchesCron_EveryFiveMinutes(t *testing.T) {
	spec := "*/5 * * * *"
	assert.True(t, matchesCron(spec, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)))
	assert.True(t, matchesCron(spec, time.Date(2026, 1, 1, 0, 25, 0, 0, time.UTC)))
	assert.False(t, matchesCron(spec, time.Date(2026, 1, 1, 0, 7, 0, 0, time.UTC)))
}

func TestMatchesCron_CommaList(t *testing.T) {
	spec := "0 9,17 * * *"
	assert.True(t, matchesCron(spec, time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)))
	assert.True(t, matchesCron(spec, time.Date(2026, 1, 1, 17, 0, 0, 0, time.UTC)))
	assert.False(t, matchesCron(spec, time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)))
}

func TestMatchesCron_MalformedSpecNeverMatches(t *testing.T) {
	assert.False(t, matchesCron("not a cron", time.Now()))
}
