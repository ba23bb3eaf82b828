package apiserver

import (
	"net/http"
	"strings"

	"github.com/secureyeoman/secureyeoman/internal/apperrors"
	"github.com/secureyeoman/secureyeoman/internal/soul"
)

func (s *Server) registerSoulRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/v1/soul/personalities", s.requirePermissionByMethod("soul.personalities", s.handlePersonalitiesCollection))
	mux.HandleFunc("/api/v1/soul/personalities/", s.requirePermissionByMethod("soul.personalities", s.handlePersonalitiesItem))
	mux.HandleFunc("/api/v1/soul/personality", s.requirePermission("soul.personality", "read", s.handleActivePersonality))

	mux.HandleFunc("/api/v1/soul/skills", s.requirePermissionByMethod("soul.skills", s.handleSkillsCollection))
	mux.HandleFunc("/api/v1/soul/skills/", s.requirePermission("soul.skills", "write", s.handleSkillTransition))

	mux.HandleFunc("/api/v1/soul/knowledge", s.requirePermissionByMethod("soul.knowledge", s.handleKnowledgeCollection))
	mux.HandleFunc("/api/v1/soul/knowledge/", s.requirePermissionByMethod("soul.knowledge", s.handleKnowledgeItem))

	mux.HandleFunc("/api/v1/soul/prompt/preview", s.requirePermission("soul.prompt", "read", s.handlePromptPreview))
	mux.HandleFunc("/api/v1/soul/onboarding/status", s.requirePermission("soul.onboarding", "read", s.handleOnboardingStatus))
	mux.HandleFunc("/api/v1/soul/onboarding/complete", s.requirePermission("soul.onboarding", "write", s.handleOnboardingComplete))
}

func (s *Server) handlePersonalitiesCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		list, err := s.c.Soul.List(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"personalities": list})
	case http.MethodPost:
		var p soul.Personality
		if err := decodeJSON(r, &p); err != nil {
			writeError(w, err)
			return
		}
		if err := s.c.Soul.Create(r.Context(), &p); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, p)
	default:
		writeError(w, apperrors.Newf(apperrors.KindInvalidInput, "method not allowed"))
	}
}

func (s *Server) handlePersonalitiesItem(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/v1/soul/personalities/")
	if id, ok := strings.CutSuffix(rest, "/activate"); ok && r.Method == http.MethodPost {
		if err := s.c.Soul.Activate(r.Context(), id); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"id": id, "status": "active"})
		return
	}
	id := rest
	switch r.Method {
	case http.MethodGet:
		p, err := s.c.Soul.Get(r.Context(), id)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, p)
	case http.MethodPut:
		var p soul.Personality
		if err := decodeJSON(r, &p); err != nil {
			writeError(w, err)
			return
		}
		p.ID = id
		if err := s.c.Soul.Update(r.Context(), &p); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, p)
	case http.MethodDelete:
		if err := s.c.Soul.Delete(r.Context(), id); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusNoContent, nil)
	default:
		writeError(w, apperrors.Newf(apperrors.KindInvalidInput, "method not allowed"))
	}
}

func (s *Server) handleActivePersonality(w http.ResponseWriter, r *http.Request) {
	p, err := s.c.Soul.Active(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if p == nil {
		writeError(w, apperrors.Newf(apperrors.KindNotFound, "no active personality"))
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleSkillsCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		list, err := s.c.Skills.List(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"skills": list})
	case http.MethodPost:
		var sk soul.Skill
		if err := decodeJSON(r, &sk); err != nil {
			writeError(w, err)
			return
		}
		if err := s.c.Skills.Create(r.Context(), &sk); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, sk)
	default:
		writeError(w, apperrors.Newf(apperrors.KindInvalidInput, "method not allowed"))
	}
}

// handleSkillTransition implements POST /soul/skills/:id/{enable|disable|approve|reject}.
func (s *Server) handleSkillTransition(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, apperrors.Newf(apperrors.KindInvalidInput, "method not allowed"))
		return
	}
	rest := strings.TrimPrefix(r.URL.Path, "/api/v1/soul/skills/")
	parts := strings.SplitN(rest, "/", 2)
	if len(parts) != 2 {
		writeError(w, apperrors.Newf(apperrors.KindInvalidInput, "expected /soul/skills/:id/:action"))
		return
	}
	sk, err := s.c.Skills.Transition(r.Context(), parts[0], parts[1])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sk)
}

func (s *Server) handleKnowledgeCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		list, err := s.c.Knowledge.List(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"knowledge": list})
	case http.MethodPost:
		var k soul.Knowledge
		if err := decodeJSON(r, &k); err != nil {
			writeError(w, err)
			return
		}
		if err := s.c.Knowledge.Create(r.Context(), &k); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, k)
	default:
		writeError(w, apperrors.Newf(apperrors.KindInvalidInput, "method not allowed"))
	}
}

func (s *Server) handleKnowledgeItem(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/v1/soul/knowledge/")
	switch r.Method {
	case http.MethodGet:
		k, err := s.c.Knowledge.Get(r.Context(), id)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, k)
	case http.MethodDelete:
		if err := s.c.Knowledge.Delete(r.Context(), id); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusNoContent, nil)
	default:
		writeError(w, apperrors.Newf(apperrors.KindInvalidInput, "method not allowed"))
	}
}

// handlePromptPreview renders the active personality's system prompt
// verbatim, the minimal "preview" spec §6 names; no other stored field
// is added to it.
func (s *Server) handlePromptPreview(w http.ResponseWriter, r *http.Request) {
	p, err := s.c.Soul.Active(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if p == nil {
		writeJSON(w, http.StatusOK, map[string]string{"prompt": ""})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"prompt": p.SystemPrompt})
}

// handleOnboardingStatus/handleOnboardingComplete back spec.md's entity-level
// onboarding flag (a single process-lifetime bool, not a persisted workflow
// with steps) with Container's mutex-guarded state rather than a package
// global, per spec §9.
func (s *Server) handleOnboardingStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"complete": s.c.OnboardingComplete()})
}

func (s *Server) handleOnboardingComplete(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, apperrors.Newf(apperrors.KindInvalidInput, "method not allowed"))
		return
	}
	s.c.CompleteOnboarding()
	writeJSON(w, http.StatusOK, map[string]bool{"complete": true})
}
