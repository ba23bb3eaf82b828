package audit

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestChain(t *testing.T) (*Chain, *MemoryStorage) {
	t.Helper()
	storage := NewMemoryStorage()
	chain, err := NewChain(context.Background(), storage, "test-signing-key-at-least-32-bytes!!", nil)
	require.NoError(t, err)
	return chain, storage
}

func TestChain_RecordLinksSequentially(t *testing.T) {
	chain, _ := newTestChain(t)
	ctx := context.Background()

	e1, err := chain.Record(ctx, Event{Event: "legit_1", Level: LevelInfo, Message: "first"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), e1.Sequence)
	assert.Equal(t, ZeroHash, e1.PreviousHash)

	e2, err := chain.Record(ctx, Event{Event: "legit_2", Level: LevelInfo, Message: "second"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), e2.Sequence)
	assert.Equal(t, e1.Hash, e2.PreviousHash)

	e3, err := chain.Record(ctx, Event{Event: "legit_3", Level: LevelInfo, Message: "third"})
	require.NoError(t, err)
	assert.Equal(t, e2.Hash, e3.PreviousHash)
}

func TestChain_VerifyValidChain(t *testing.T) {
	chain, _ := newTestChain(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := chain.Record(ctx, Event{Event: "evt", Level: LevelInfo, Message: "m"})
		require.NoError(t, err)
	}

	result, err := chain.Verify(ctx, nil)
	require.NoError(t, err)
	assert.True(t, result.Valid)
	assert.Equal(t, int64(5), result.EntriesChecked)
}

// TestChain_TamperDetection matches spec §8 scenario 1: mutating a
// persisted entry's message must be caught by Verify, naming the first
// bad sequence number.
func TestChain_TamperDetection(t *testing.T) {
	chain, storage := newTestChain(t)
	ctx := context.Background()

	_, err := chain.Record(ctx, Event{Event: "legit_1", Level: LevelInfo, Message: "one"})
	require.NoError(t, err)
	_, err = chain.Record(ctx, Event{Event: "legit_2", Level: LevelInfo, Message: "two"})
	require.NoError(t, err)
	_, err = chain.Record(ctx, Event{Event: "legit_3", Level: LevelInfo, Message: "three"})
	require.NoError(t, err)

	tampered, err := storage.Get(ctx, 2)
	require.NoError(t, err)
	tampered.Message = "TAMPERED"
	require.NoError(t, storage.Put(ctx, tampered))

	result, err := chain.Verify(ctx, nil)
	require.NoError(t, err)
	assert.False(t, result.Valid)
	assert.Equal(t, int64(1), result.EntriesChecked)
	assert.Contains(t, result.Error, "Signature verification failed")
}

func TestChain_RestartContinuity(t *testing.T) {
	ctx := context.Background()
	storage := NewMemoryStorage()

	chain1, err := NewChain(ctx, storage, "test-signing-key-at-least-32-bytes!!", nil)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		_, err := chain1.Record(ctx, Event{Event: "e", Level: LevelInfo, Message: "m"})
		require.NoError(t, err)
	}

	// Simulate process restart: load a fresh Chain against the same storage.
	chain2, err := NewChain(ctx, storage, "test-signing-key-at-least-32-bytes!!", nil)
	require.NoError(t, err)
	for i := 0; i < 2; i++ {
		_, err := chain2.Record(ctx, Event{Event: "e2", Level: LevelInfo, Message: "m2"})
		require.NoError(t, err)
	}

	result, err := chain2.Verify(ctx, nil)
	require.NoError(t, err)
	assert.True(t, result.Valid)
	assert.Equal(t, int64(5), result.EntriesChecked)
}

func TestChain_SignatureMatchesHMAC(t *testing.T) {
	chain, _ := newTestChain(t)
	ctx := context.Background()

	e, err := chain.Record(ctx, Event{Event: "e", Level: LevelInfo, Message: "m"})
	require.NoError(t, err)
	assert.True(t, chain.verifySignature(e.Hash, e.Signature))
	assert.False(t, chain.verifySignature(e.Hash, "deadbeef"))
}

func TestChain_RejectsFloatMetadata(t *testing.T) {
	chain, _ := newTestChain(t)
	_, err := chain.Record(context.Background(), Event{
		Event: "e", Level: LevelInfo, Message: "m",
		Metadata: map[string]MetaValue{"ratio": 0.5},
	})
	assert.Error(t, err)
}

func TestChain_Tail(t *testing.T) {
	chain, _ := newTestChain(t)
	ctx := context.Background()
	for i := 0; i < 10; i++ {
		_, err := chain.Record(ctx, Event{Event: "e", Level: LevelInfo, Message: "m"})
		require.NoError(t, err)
	}

	tail, err := chain.Tail(ctx, 3)
	require.NoError(t, err)
	require.Len(t, tail, 3)
	assert.Equal(t, int64(8), tail[0].Sequence)
	assert.Equal(t, int64(10), tail[2].Sequence)
}
