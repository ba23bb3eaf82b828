package apiserver

import (
	"net/http"

	"github.com/secureyeoman/secureyeoman/internal/ai"
	"github.com/secureyeoman/secureyeoman/internal/apperrors"
)

func (s *Server) registerModelRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/v1/model/info", s.requirePermission("model.info", "read", s.handleModelInfo))
	mux.HandleFunc("/api/v1/model/switch", s.requirePermission("model.switch", "write", s.handleModelSwitch))
	mux.HandleFunc("/api/v1/model/default", s.requirePermissionByMethod("model.default", s.handleModelDefault))
	mux.HandleFunc("/api/v1/model/cost-recommendations", s.requirePermission("model.cost", "read", s.handleCostRecommendations))
}

func (s *Server) handleModelInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"models":  s.c.AIGateway.Models(),
		"usage":   s.c.AIGateway.UsageSnapshot(),
		"default": s.c.AIGateway.DefaultModel(),
	})
}

type modelSwitchRequest struct {
	Provider string `json:"provider"`
	Model    string `json:"model"`
}

func (s *Server) handleModelSwitch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, apperrors.Newf(apperrors.KindInvalidInput, "method not allowed"))
		return
	}
	var req modelSwitchRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if !s.c.AIGateway.HasModel(req.Model) {
		writeError(w, apperrors.Newf(apperrors.KindInvalidInput, "model %q is not reachable through any configured provider", req.Model))
		return
	}
	s.c.AIGateway.SetDefaultModel(req.Model)
	writeJSON(w, http.StatusOK, map[string]string{"provider": req.Provider, "model": req.Model})
}

// handleModelDefault implements GET|POST|DELETE /model/default (spec §6).
// The override lives on ai.Gateway itself (mutex-guarded, not a package
// global): Dispatch consults it to set RouteRequest.ForcedModel whenever
// a caller hasn't already set its own.
func (s *Server) handleModelDefault(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, map[string]string{"model": s.c.AIGateway.DefaultModel()})
	case http.MethodPost:
		var req modelSwitchRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, err)
			return
		}
		if !s.c.AIGateway.HasModel(req.Model) {
			writeError(w, apperrors.Newf(apperrors.KindInvalidInput, "model %q is not reachable through any configured provider", req.Model))
			return
		}
		s.c.AIGateway.SetDefaultModel(req.Model)
		writeJSON(w, http.StatusOK, map[string]string{"model": req.Model})
	case http.MethodDelete:
		s.c.AIGateway.SetDefaultModel("")
		writeJSON(w, http.StatusNoContent, nil)
	default:
		writeError(w, apperrors.Newf(apperrors.KindInvalidInput, "method not allowed"))
	}
}

func (s *Server) handleCostRecommendations(w http.ResponseWriter, r *http.Request) {
	snapshot := s.c.AIGateway.UsageSnapshot()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"recommendations": ai.Analyze(snapshot),
	})
}
