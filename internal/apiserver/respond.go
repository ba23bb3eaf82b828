// Package apiserver implements the versioned HTTP surface of spec §6: a
// single net/http.ServeMux wired to internal/app.Container, matching the
// teacher's own chat_agent.go HTTP shape (mux.HandleFunc + w.Header().Set
// + json.NewEncoder(w).Encode) rather than pulling in a router framework
// the example pack never imports.
package apiserver

import (
	"encoding/json"
	"net/http"

	"github.com/secureyeoman/secureyeoman/internal/apperrors"
)

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		_ = json.NewEncoder(w).Encode(body)
	}
}

// writeError maps err to the HTTP status spec §7 names and writes a
// uniform {"error": {"kind","message"}} body without leaking internals
// for unclassified errors.
func writeError(w http.ResponseWriter, err error) {
	kind := apperrors.KindOf(err)
	status := apperrors.HTTPStatus(kind)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal error"
	}
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]string{
			"kind":    string(kind),
			"message": msg,
		},
	})
}

func decodeJSON(r *http.Request, out interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return apperrors.New("decodeJSON", apperrors.KindInvalidInput, err)
	}
	return nil
}
