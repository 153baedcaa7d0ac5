package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"reviewloop/internal/core"
)

// Pinger reports whether the backing database is reachable.
// Satisfied by *pgxpool.Pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler serves liveness and readiness probes.
type HealthHandler struct {
	db     Pinger
	logger *slog.Logger
}

// NewHealthHandler creates a HealthHandler. db may be nil, in which case
// readiness only reports process liveness.
func NewHealthHandler(db Pinger, logger *slog.Logger) *HealthHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &HealthHandler{db: db, logger: logger}
}

// RegisterRoutes mounts the probe endpoints.
func (h *HealthHandler) RegisterRoutes(r chi.Router) {
	r.Get("/health", h.Live)
	r.Get("/health/ready", h.Ready)
}

type healthResponse struct {
	Status string `json:"status"`
}

// Live reports process liveness.
func (h *HealthHandler) Live(w http.ResponseWriter, r *http.Request) {
	core.JSON(w, r, http.StatusOK, healthResponse{Status: "ok"})
}

// Ready reports whether the service can do useful work: the database must
// answer a ping within two seconds.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	if h.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.db.Ping(ctx); err != nil {
			h.logger.WarnContext(r.Context(), "readiness probe failed", "error", err)
			core.JSON(w, r, http.StatusServiceUnavailable, healthResponse{Status: "degraded"})
			return
		}
	}
	core.JSON(w, r, http.StatusOK, healthResponse{Status: "ok"})
}
