package apiserver

import (
	"net/http"

	"github.com/secureyeoman/secureyeoman/internal/apperrors"
	"github.com/secureyeoman/secureyeoman/internal/memory"
)

func (s *Server) registerBrainRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/v1/brain/memories", s.requirePermissionByMethod("memory.memories", s.handleMemories))
	mux.HandleFunc("/api/v1/brain/knowledge", s.requirePermission("memory.knowledge", "read", s.handleBrainKnowledge))
	mux.HandleFunc("/api/v1/brain/stats", s.requirePermission("memory.stats", "read", s.handleBrainStats))
	mux.HandleFunc("/api/v1/brain/search/similar", s.requirePermission("memory.search", "read", s.handleSearchSimilar))
	mux.HandleFunc("/api/v1/brain/consolidation/run", s.requirePermission("memory.consolidation", "write", s.handleConsolidationRun))
	mux.HandleFunc("/api/v1/brain/reindex", s.requirePermission("memory.reindex", "write", s.handleReindex))
}

func (s *Server) handleMemories(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		q := r.URL.Query()
		list, err := s.c.MemoryStore.List(r.Context(), memory.Filter{
			PersonalityID: q.Get("personalityId"),
			Type:          memory.Type(q.Get("type")),
		})
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"memories": list})
	case http.MethodPost:
		var rec memory.Record
		if err := decodeJSON(r, &rec); err != nil {
			writeError(w, err)
			return
		}
		result, err := s.c.QuickChecker.Save(r.Context(), &rec)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, result)
	default:
		writeError(w, apperrors.Newf(apperrors.KindInvalidInput, "method not allowed"))
	}
}

// handleBrainKnowledge reuses the soul Knowledge store: spec §6 names
// GET /brain/knowledge as a read-through view of the same entity records
// soul/knowledge manages, not a second store.
func (s *Server) handleBrainKnowledge(w http.ResponseWriter, r *http.Request) {
	list, err := s.c.Knowledge.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"knowledge": list})
}

func (s *Server) handleBrainStats(w http.ResponseWriter, r *http.Request) {
	all, err := s.c.MemoryStore.List(r.Context(), memory.Filter{})
	if err != nil {
		writeError(w, err)
		return
	}
	byType := map[memory.Type]int{}
	for _, rec := range all {
		byType[rec.Type]++
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"total":       len(all),
		"byType":      byType,
		"indexCount":  s.c.MemoryIndex.Count(),
		"flaggedIds":  s.c.MemoryFlags.Len(),
	})
}

type searchSimilarRequest struct {
	Embedding []float32 `json:"embedding"`
	Text      string    `json:"text"`
	K         int       `json:"k"`
}

func (s *Server) handleSearchSimilar(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, apperrors.Newf(apperrors.KindInvalidInput, "method not allowed"))
		return
	}
	var req searchSimilarRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	vec := req.Embedding
	if len(vec) == 0 && req.Text != "" {
		embedded, err := s.c.Embedder.Embed(r.Context(), req.Text)
		if err != nil {
			writeError(w, err)
			return
		}
		vec = embedded
	}
	if len(vec) == 0 {
		writeError(w, apperrors.Newf(apperrors.KindInvalidInput, "embedding or text is required"))
		return
	}
	k := req.K
	if k <= 0 {
		k = 10
	}
	matches, err := s.c.MemoryIndex.Search(vec, k, 0)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"matches": matches})
}

type consolidationRunRequest struct {
	DryRun bool `json:"dryRun"`
}

func (s *Server) handleConsolidationRun(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, apperrors.Newf(apperrors.KindInvalidInput, "method not allowed"))
		return
	}
	var req consolidationRunRequest
	_ = decodeJSON(r, &req) // an empty body means dryRun=false, not an error
	summary, err := s.c.Consolidator.Run(r.Context(), req.DryRun)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleReindex(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, apperrors.Newf(apperrors.KindInvalidInput, "method not allowed"))
		return
	}
	if err := s.c.MemoryIndex.Compact(); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"indexCount": s.c.MemoryIndex.Count()})
}
