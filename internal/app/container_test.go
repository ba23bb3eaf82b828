package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/secureyeoman/secureyeoman/internal/audit"
	"github.com/secureyeoman/secureyeoman/internal/config"
)

func validOptions() config.Options {
	return config.Options{
		ServiceName:              "secureyeoman-test",
		SigningKey:               "0123456789abcdef0123456789abcdef",
		TokenSecret:              "fedcba9876543210fedcba9876543210",
		AdminPassword:            "correct horse battery staple",
		AccessTokenTTL:           time.Hour,
		RefreshTokenTTL:          24 * time.Hour,
		AuthAttemptsMax:          5,
		AuthAttemptsWindow:       15 * time.Minute,
		MemoryFlagThreshold:      0.85,
		MemoryAutoDedupThreshold: 0.95,
		MemoryReplaceThreshold:   0.90,
		ConsolidationCron:        "0 3 * * *",
		ConsolidationBatchSize:   50,
		ConsolidationTimeout:     120 * time.Second,
		TaskStuckTimeout:         30 * time.Second,
		TaskRepetitionThreshold:  2,
		ExtensionWebhooksEnabled: true,
		ExtensionWebhookTimeout:  5 * time.Second,
	}
}

func TestBuild_WiresEveryInMemorySubsystem(t *testing.T) {
	c, err := Build(context.Background(), validOptions())
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Shutdown(context.Background()) })

	assert.NotNil(t, c.Audit)
	assert.NotNil(t, c.Auth)
	assert.NotNil(t, c.MemoryStore)
	assert.NotNil(t, c.MemoryIndex)
	assert.NotNil(t, c.QuickChecker)
	assert.NotNil(t, c.Consolidator)
	assert.NotNil(t, c.Embedder)
	assert.NotNil(t, c.AIGateway)
	assert.NotNil(t, c.Executor)
	assert.NotNil(t, c.Integrations)
	assert.NotNil(t, c.Extensions)
	assert.NotNil(t, c.Soul)
	assert.NotNil(t, c.Skills)
	assert.NotNil(t, c.Knowledge)
}

func TestBuild_RejectsShortSigningKey(t *testing.T) {
	opts := validOptions()
	opts.SigningKey = "too-short"
	_, err := Build(context.Background(), opts)
	assert.Error(t, err)
}

func TestBuild_RejectsMissingAdminPassword(t *testing.T) {
	opts := validOptions()
	opts.AdminPassword = ""
	_, err := Build(context.Background(), opts)
	assert.Error(t, err)
}

func TestContainer_RecordStartupWritesAuditEntry(t *testing.T) {
	c, err := Build(context.Background(), validOptions())
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Shutdown(context.Background()) })

	c.RecordStartup(context.Background())

	entries, err := c.Audit.Query(context.Background(), audit.Filter{Event: "process_start"})
	require.NoError(t, err)
	require.Len(t, entries, 1)
}
