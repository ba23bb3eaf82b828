package ai

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (sqrt(na) * sqrt(nb))
}

func sqrt(v float64) float64 {
	if v == 0 {
		return 0
	}
	x := v
	for i := 0; i < 50; i++ {
		x = 0.5 * (x + v/x)
	}
	return x
}

func TestHashEmbedder_NearDuplicatesAreClose(t *testing.T) {
	e := NewHashEmbedder(64)
	ctx := context.Background()

	a, err := e.Embed(ctx, "The user prefers dark mode.")
	require.NoError(t, err)
	b, err := e.Embed(ctx, "User prefers dark mode.")
	require.NoError(t, err)
	c, err := e.Embed(ctx, "The weather in Lisbon is sunny today.")
	require.NoError(t, err)

	simAB := cosine(a, b)
	simAC := cosine(a, c)
	assert.Greater(t, simAB, simAC)
}

func TestHashEmbedder_DeterministicForSameInput(t *testing.T) {
	e := NewHashEmbedder(32)
	ctx := context.Background()
	v1, _ := e.Embed(ctx, "hello world")
	v2, _ := e.Embed(ctx, "hello world")
	assert.Equal(t, v1, v2)
}
