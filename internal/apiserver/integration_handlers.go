package apiserver

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/secureyeoman/secureyeoman/internal/apperrors"
	"github.com/secureyeoman/secureyeoman/internal/audit"
	"github.com/secureyeoman/secureyeoman/internal/idgen"
	"github.com/secureyeoman/secureyeoman/internal/integration"
	"github.com/secureyeoman/secureyeoman/internal/integration/adapters"
	"github.com/secureyeoman/secureyeoman/internal/obs"
)

// adapterRegistry tracks the live Adapter instance behind each configured
// Integration, keyed by integration id. integration.Router keeps its own
// copy for outbound sends; apiserver needs a second lookup to route
// inbound platform webhooks to the right adapter's HandleWebhook.
type adapterRegistry struct {
	mu       sync.RWMutex
	adapters map[string]integration.Adapter
}

func newAdapterRegistry() *adapterRegistry {
	return &adapterRegistry{adapters: make(map[string]integration.Adapter)}
}

func (a *adapterRegistry) put(id string, ad integration.Adapter) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.adapters[id] = ad
}

func (a *adapterRegistry) get(id string) (integration.Adapter, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	ad, ok := a.adapters[id]
	return ad, ok
}

func (a *adapterRegistry) remove(id string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.adapters, id)
}

func (s *Server) registerIntegrationRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/v1/integrations", s.requirePermissionByMethod("integrations", s.handleIntegrationsCollection))
	mux.HandleFunc("/api/v1/integrations/", s.requirePermissionByMethod("integrations", s.handleIntegrationsItem))

	// Inbound platform webhooks authenticate via the adapter's own signature
	// scheme, not RBAC — an external platform has no SecureYeoman principal.
	// Path shape is /webhooks/{platform}/:id (spec §6); the platform segment
	// is informational only, the integration id is what selects the adapter.
	mux.HandleFunc("/webhooks/", s.handleInboundWebhook)
}

func (s *Server) handleIntegrationsCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		list, err := s.c.IntegStore.ListIntegrations(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		redacted := make([]integration.Integration, 0, len(list))
		for _, i := range list {
			redacted = append(redacted, i.Redacted())
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"integrations": redacted})
	case http.MethodPost:
		s.handleCreateIntegration(w, r)
	default:
		writeError(w, apperrors.Newf(apperrors.KindInvalidInput, "method not allowed"))
	}
}

type createIntegrationRequest struct {
	Platform    string            `json:"platform"`
	DisplayName string            `json:"displayName"`
	Config      map[string]string `json:"config"`
}

// handleCreateIntegration wires up a new integration from config alone
// (spec §4.6 "a new integration can be wired up from config alone"): it
// builds the platform's adapter, initializes it with the submitted config,
// and registers it with both the Integration Router (outbound) and this
// server's adapterRegistry (inbound webhook routing).
func (s *Server) handleCreateIntegration(w http.ResponseWriter, r *http.Request) {
	var req createIntegrationRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	adapter, ok := adapters.New(req.Platform)
	if !ok {
		writeError(w, apperrors.Newf(apperrors.KindInvalidInput, "unknown integration platform %q", req.Platform))
		return
	}
	if err := adapter.Init(r.Context(), req.Config); err != nil {
		writeError(w, apperrors.New("handleCreateIntegration", apperrors.KindInvalidInput, err))
		return
	}

	now := time.Now()
	rec := &integration.Integration{
		ID:          idgen.New(),
		Platform:    req.Platform,
		DisplayName: req.DisplayName,
		Enabled:     true,
		Status:      integration.StatusActive,
		Config:      req.Config,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.c.IntegStore.CreateIntegration(r.Context(), rec); err != nil {
		writeError(w, err)
		return
	}

	if err := adapter.Start(r.Context()); err != nil {
		s.c.Logger.Warn("integration adapter failed to start", obs.Fields{"integrationId": rec.ID, "error": err.Error()})
	}
	s.c.Integrations.RegisterAdapter(rec.ID, adapter)
	s.adapters.put(rec.ID, adapter)

	writeJSON(w, http.StatusCreated, rec.Redacted())
}

func (s *Server) handleIntegrationsItem(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/v1/integrations/")
	if id, ok := strings.CutSuffix(rest, "/test-connection"); ok && r.Method == http.MethodPost {
		s.handleTestConnection(w, r, id)
		return
	}
	id := rest
	switch r.Method {
	case http.MethodGet:
		i, err := s.c.IntegStore.GetIntegration(r.Context(), id)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, i.Redacted())
	case http.MethodPut:
		existing, err := s.c.IntegStore.GetIntegration(r.Context(), id)
		if err != nil {
			writeError(w, err)
			return
		}
		var patch integration.Integration
		if err := decodeJSON(r, &patch); err != nil {
			writeError(w, err)
			return
		}
		patch.ID = existing.ID
		patch.Platform = existing.Platform
		patch.CreatedAt = existing.CreatedAt
		patch.UpdatedAt = time.Now()
		if err := s.c.IntegStore.UpdateIntegration(r.Context(), &patch); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, patch.Redacted())
	case http.MethodDelete:
		if adapter, ok := s.adapters.get(id); ok {
			_ = adapter.Stop(r.Context())
			s.adapters.remove(id)
		}
		if err := s.c.IntegStore.DeleteIntegration(r.Context(), id); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusNoContent, nil)
	default:
		writeError(w, apperrors.Newf(apperrors.KindInvalidInput, "method not allowed"))
	}
}

func (s *Server) handleTestConnection(w http.ResponseWriter, r *http.Request, id string) {
	adapter, ok := s.adapters.get(id)
	if !ok {
		writeError(w, apperrors.Newf(apperrors.KindNotFound, "no adapter registered for integration %s", id))
		return
	}
	tc, ok := adapter.(integration.TestConnectionAdapter)
	if !ok {
		writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "note": "adapter does not support connection testing"})
		return
	}
	if err := tc.TestConnection(r.Context()); err != nil {
		writeJSON(w, http.StatusOK, map[string]interface{}{"ok": false, "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true})
}

// handleInboundWebhook dispatches POST /webhooks/{platform}/:id (spec §6)
// to the matching adapter's own signature verification and normalization
// (spec §4.6 "the adapter declares... verifyWebhook"), then feeds the
// resulting UnifiedMessage into the router's inbound pipeline. Only the
// trailing :id segment selects the adapter — the platform segment is for
// readability in operator-facing URLs, not routing.
func (s *Server) handleInboundWebhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, apperrors.Newf(apperrors.KindInvalidInput, "method not allowed"))
		return
	}
	rest := strings.TrimPrefix(r.URL.Path, "/webhooks/")
	rest = strings.TrimSuffix(rest, "/")
	segments := strings.Split(rest, "/")
	id := segments[len(segments)-1]
	adapter, ok := s.adapters.get(id)
	if !ok {
		writeError(w, apperrors.Newf(apperrors.KindNotFound, "no adapter registered for integration %s", id))
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, apperrors.New("handleInboundWebhook", apperrors.KindInvalidInput, err))
		return
	}
	sig := r.Header.Get("X-Hub-Signature-256")
	if sig == "" {
		sig = r.Header.Get("X-Signature")
	}
	if !adapter.VerifyWebhook(body, sig) {
		_, _ = s.c.Audit.Record(r.Context(), audit.Event{
			Event: "webhook_signature_invalid", Level: audit.LevelWarn,
			Message:  fmt.Sprintf("webhook signature verification failed for integration %s", id),
			Metadata: map[string]audit.MetaValue{"integrationId": id},
		})
		writeError(w, apperrors.Newf(apperrors.KindUnauthenticated, "webhook signature verification failed"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()
	msg, err := adapter.HandleWebhook(ctx, body, sig)
	if err != nil {
		writeError(w, err)
		return
	}
	if msg != nil {
		msg.IntegrationID = id
		s.c.Integrations.HandleInbound(r.Context(), *msg)
	}
	writeJSON(w, http.StatusOK, map[string]bool{"received": true})
}
