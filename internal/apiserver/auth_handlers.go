package apiserver

import (
	"net/http"
	"strings"

	"github.com/secureyeoman/secureyeoman/internal/apperrors"
)

func (s *Server) registerAuthRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/v1/auth/login", s.handleLogin)
	mux.HandleFunc("/api/v1/auth/refresh", s.handleRefresh)
	mux.HandleFunc("/api/v1/auth/logout", s.handleLogout)
	mux.HandleFunc("/api/v1/auth/api-keys", s.requirePermission("auth.api-keys", "write", s.handleCreateAPIKey))
}

type loginRequest struct {
	Password string `json:"password"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, apperrors.Newf(apperrors.KindInvalidInput, "method not allowed"))
		return
	}
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	pair, err := s.c.Auth.Login(r.Context(), req.Password, clientIP(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pair)
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, apperrors.Newf(apperrors.KindInvalidInput, "method not allowed"))
		return
	}
	var req refreshRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	pair, err := s.c.Auth.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pair)
}

type logoutRequest struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, apperrors.Newf(apperrors.KindInvalidInput, "method not allowed"))
		return
	}
	var req logoutRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	s.c.Auth.Logout(r.Context(), req.AccessToken, req.RefreshToken)
	writeJSON(w, http.StatusNoContent, nil)
}

type createAPIKeyRequest struct {
	Name string `json:"name"`
	Role string `json:"role"`
}

func (s *Server) handleCreateAPIKey(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, apperrors.Newf(apperrors.KindInvalidInput, "method not allowed"))
		return
	}
	var req createAPIKeyRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.Role) == "" {
		writeError(w, apperrors.Newf(apperrors.KindInvalidInput, "name and role are required"))
		return
	}
	plaintext, rec, err := s.c.Auth.CreateAPIKey(r.Context(), req.Name, req.Role)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"key":       plaintext,
		"id":        rec.ID,
		"name":      rec.Name,
		"role":      rec.RoleID,
		"prefix":    rec.Prefix,
		"createdAt": rec.CreatedAt,
	})
}
