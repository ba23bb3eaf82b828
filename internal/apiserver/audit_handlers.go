package apiserver

import (
	"net/http"
	"strconv"

	"github.com/secureyeoman/secureyeoman/internal/apperrors"
	"github.com/secureyeoman/secureyeoman/internal/audit"
)

func (s *Server) registerAuditRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/v1/audit", s.requirePermission("audit", "read", s.handleAuditQuery))
	mux.HandleFunc("/api/v1/audit/verify", s.requirePermission("audit", "verify", s.handleAuditVerify))
}

func (s *Server) handleAuditQuery(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := audit.Filter{
		Level:  audit.Level(q.Get("level")),
		Event:  q.Get("event"),
		UserID: q.Get("userId"),
	}
	if v := q.Get("from"); v != "" {
		filter.FromSequence, _ = strconv.ParseInt(v, 10, 64)
	}
	if v := q.Get("to"); v != "" {
		filter.ToSequence, _ = strconv.ParseInt(v, 10, 64)
	}
	entries, err := s.c.Audit.Query(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"entries": entries})
}

type verifyResponse struct {
	Valid          bool   `json:"valid"`
	EntriesChecked int64  `json:"entriesChecked"`
	Error          string `json:"error,omitempty"`
}

func (s *Server) handleAuditVerify(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, apperrors.Newf(apperrors.KindInvalidInput, "method not allowed"))
		return
	}
	result, err := s.c.Audit.Verify(r.Context(), nil)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, verifyResponse{Valid: result.Valid, EntriesChecked: result.EntriesChecked, Error: result.Error})
}
