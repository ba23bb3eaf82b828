package apiserver

import (
	"net/http"
	"strings"

	"github.com/secureyeoman/secureyeoman/internal/apperrors"
	"github.com/secureyeoman/secureyeoman/internal/extension"
	"github.com/secureyeoman/secureyeoman/internal/idgen"
)

func (s *Server) registerExtensionRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/v1/extensions", s.requirePermissionByMethod("extensions", s.handleExtensionsCollection))
	mux.HandleFunc("/api/v1/extensions/", s.requirePermissionByMethod("extensions", s.handleExtensionsItem))
	mux.HandleFunc("/api/v1/extensions/hooks", s.requirePermission("extensions.hooks", "write", s.handleHooksCollection))
	mux.HandleFunc("/api/v1/extensions/hooks/test", s.requirePermission("extensions.hooks", "write", s.handleHookTest))
	mux.HandleFunc("/api/v1/extensions/webhooks", s.requirePermissionByMethod("extensions.webhooks", s.handleWebhooksCollection))
	mux.HandleFunc("/api/v1/extensions/discover", s.requirePermission("extensions.discover", "read", s.handleExtensionsDiscover))
}

func (s *Server) handleExtensionsCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		list, err := s.c.ExtStore.ListExtensions(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"extensions": list})
	case http.MethodPost:
		var rec extension.ExtensionRecord
		if err := decodeJSON(r, &rec); err != nil {
			writeError(w, err)
			return
		}
		if rec.ID == "" {
			rec.ID = idgen.New()
		}
		if err := s.c.ExtStore.CreateExtension(r.Context(), &rec); err != nil {
			writeError(w, err)
			return
		}
		if rec.Enabled {
			for _, binding := range rec.Hooks {
				s.c.Extensions.RegisterHook(binding.Point, nil, binding.Priority, binding.Semantics, rec.ID)
			}
		}
		writeJSON(w, http.StatusCreated, rec)
	default:
		writeError(w, apperrors.Newf(apperrors.KindInvalidInput, "method not allowed"))
	}
}

func (s *Server) handleExtensionsItem(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/v1/extensions/")
	if r.Method != http.MethodDelete {
		writeError(w, apperrors.Newf(apperrors.KindInvalidInput, "method not allowed"))
		return
	}
	if err := s.c.ExtStore.DeleteExtension(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

type hookRegistration struct {
	Point       extension.Point     `json:"point"`
	Priority    int                 `json:"priority"`
	Semantics   extension.Semantics `json:"semantics"`
	ExtensionID string              `json:"extensionId"`
}

// handleHooksCollection binds a new placeholder hook under an existing
// extension; it accepts POST only and does not list registrations (spec §4.7
// "registerHook(point, handler, {priority, semantics, extensionId})") —
// a POST here has no code-based handler, so it registers a no-op
// placeholder the way a re-materialized extension does on startup.
func (s *Server) handleHooksCollection(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, apperrors.Newf(apperrors.KindInvalidInput, "method not allowed"))
		return
	}
	var req hookRegistration
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	id := s.c.Extensions.RegisterHook(req.Point, nil, req.Priority, req.Semantics, req.ExtensionID)
	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

type hookTestRequest struct {
	Point string      `json:"point"`
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

// handleHookTest fires emit() synchronously against live registrations so
// an operator can see what an event at a point would resolve to without
// routing it through a real subsystem.
func (s *Server) handleHookTest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, apperrors.Newf(apperrors.KindInvalidInput, "method not allowed"))
		return
	}
	var req hookTestRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	outcome := s.c.Extensions.Emit(r.Context(), extension.Point(req.Point), req.Event, req.Data, idgen.New())
	writeJSON(w, http.StatusOK, outcome)
}

func (s *Server) handleWebhooksCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		list, err := s.c.ExtStore.ListWebhooks(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"webhooks": list})
	case http.MethodPost:
		var wh extension.Webhook
		if err := decodeJSON(r, &wh); err != nil {
			writeError(w, err)
			return
		}
		if wh.ID == "" {
			wh.ID = idgen.New()
		}
		if err := s.c.ExtStore.CreateWebhook(r.Context(), &wh); err != nil {
			writeError(w, err)
			return
		}
		if wh.Enabled {
			s.c.ExtWebhooks.Register(wh)
		}
		writeJSON(w, http.StatusCreated, wh)
	default:
		writeError(w, apperrors.Newf(apperrors.KindInvalidInput, "method not allowed"))
	}
}

// handleExtensionsDiscover reports every hook point an extension could
// bind to, sparing UI clients from hardcoding the enum (spec §4.7's
// point list).
func (s *Server) handleExtensionsDiscover(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"points": []extension.Point{
			extension.PointSystem, extension.PointTask, extension.PointMemory,
			extension.PointMessage, extension.PointAI, extension.PointSecurity,
			extension.PointAgent, extension.PointProactive, extension.PointMultimodal,
		},
		"semantics": []extension.Semantics{
			extension.SemanticsObserve, extension.SemanticsTransform, extension.SemanticsVeto,
		},
	})
}
