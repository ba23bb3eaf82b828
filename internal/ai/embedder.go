package ai

import (
	"context"
	"hash/fnv"
	"strings"
)

// HashEmbedder satisfies memory.Embedder with a zero-cost local
// embedding built on the feature-hashing trick: no embeddings provider's
// wire protocol is in scope (spec.md's Non-goals exclude any provider
// wire protocol beyond the unified chat request/response shape), and the
// quick-check/consolidation dedup flow needs near-duplicate text to land
// near each other in vector space, which a cryptographic hash cannot
// give. Folding each word into a bucket by FNV hash and counting
// occurrences keeps memories that share most of their words close under
// cosine similarity, the same property a real sentence embedding
// provides for near-identical phrasing. Callers with an embeddings
// provider configured should supply that Provider's Embedder instead;
// this is the fallback when none is.
type HashEmbedder struct {
	dims int
}

// NewHashEmbedder builds a HashEmbedder producing vectors of the given
// dimensionality (the feature-hashing bucket count).
func NewHashEmbedder(dims int) *HashEmbedder {
	if dims <= 0 {
		dims = 64
	}
	return &HashEmbedder{dims: dims}
}

func (h *HashEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	out := make([]float32, h.dims)
	for _, word := range strings.Fields(strings.ToLower(text)) {
		sum := fnv.New32a()
		_, _ = sum.Write([]byte(word))
		bucket := int(sum.Sum32() % uint32(h.dims))
		out[bucket]++
	}
	return out, nil
}
