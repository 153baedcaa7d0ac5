package core

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"reviewloop/internal/config"
)

// Server encapsulates the router and cross-cutting dependencies of the
// reviewloop API, allowing injection during testing.
type Server struct {
	Config *config.Config
	Logger *slog.Logger

	router *chi.Mux
}

// RouteRegistrar mounts a group of routes on the router. Handlers expose a
// RegisterRoutes method matching this signature.
type RouteRegistrar func(r chi.Router)

// NewServer builds the server and installs the base middleware chain:
// panic recovery (outermost), request IDs, then request logging.
// The caller mounts routes via MountRoutes after construction.
func NewServer(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger must not be nil")
	}

	s := &Server{
		Config: cfg,
		Logger: logger,
		router: chi.NewRouter(),
	}

	s.router.Use(Recoverer(logger))
	s.router.Use(RequestID)
	s.router.Use(RequestLogger(logger))

	return s, nil
}

// MountRoutes registers the given route groups on the router.
func (s *Server) MountRoutes(registrars ...RouteRegistrar) {
	for _, register := range registrars {
		register(s.router)
	}
}

// Handler returns the http.Handler for the router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Router returns the underlying chi.Mux for tests.
func (s *Server) Router() *chi.Mux {
	return s.router
}
