package apiserver

import (
	"net/http"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/secureyeoman/secureyeoman/internal/app"
)

// Server holds the wired Container and builds the versioned HTTP surface
// of spec §6.
type Server struct {
	c        *app.Container
	adapters *adapterRegistry
}

func New(c *app.Container) *Server {
	return &Server{c: c, adapters: newAdapterRegistry()}
}

// Handler returns the process's single http.Handler, with every route
// wrapped in OpenTelemetry instrumentation the way the teacher wraps
// agent handlers (spec §9 ambient telemetry).
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.registerAuthRoutes(mux)
	s.registerAuditRoutes(mux)
	s.registerSoulRoutes(mux)
	s.registerBrainRoutes(mux)
	s.registerModelRoutes(mux)
	s.registerExtensionRoutes(mux)
	s.registerIntegrationRoutes(mux)

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
	})

	return otelhttp.NewHandler(mux, "secureyeoman")
}
