package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"reviewloop/internal/core"
	"reviewloop/internal/types"
)

// Pagination bounds for the invitation listing.
const (
	defaultListLimit = 20
	maxListLimit     = 100
)

// InvitationReader is the store subset used by the read-side API.
type InvitationReader interface {
	Get(ctx context.Context, conversationID string) (*types.Invitation, error)
	List(ctx context.Context, limit, offset int) ([]*types.Invitation, error)
}

// StatsSource exposes the running outcome counters.
type StatsSource interface {
	Snapshot() types.StatsSnapshot
}

// InvitationsHandler serves the operational read API: invitation history
// and outcome counters.
type InvitationsHandler struct {
	store  InvitationReader
	stats  StatsSource
	logger *slog.Logger
}

// NewInvitationsHandler creates an InvitationsHandler.
func NewInvitationsHandler(store InvitationReader, stats StatsSource, logger *slog.Logger) *InvitationsHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &InvitationsHandler{
		store:  store,
		stats:  stats,
		logger: logger,
	}
}

// RegisterRoutes mounts the read API under /v1.
func (h *InvitationsHandler) RegisterRoutes(r chi.Router) {
	r.Route("/v1", func(r chi.Router) {
		r.Get("/invitations", h.List)
		r.Get("/invitations/{conversationID}", h.Get)
		r.Get("/stats", h.Stats)
	})
}

// invitationListResponse is the payload for the listing endpoint.
type invitationListResponse struct {
	Invitations []*types.Invitation `json:"invitations"`
	Limit       int                 `json:"limit"`
	Offset      int                 `json:"offset"`
}

// List returns invitations ordered by creation time descending.
// Query parameters: limit (1..100, default 20) and offset (>= 0, default 0).
func (h *InvitationsHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", defaultListLimit)
	if err == nil && (limit < 1 || limit > maxListLimit) {
		err = types.NewAppError(types.ErrCodeValidationInvalidQuery,
			"limit must be between 1 and 100", nil)
	}
	if err != nil {
		core.Error(w, r, err)
		return
	}

	offset, err := queryInt(r, "offset", 0)
	if err == nil && offset < 0 {
		err = types.NewAppError(types.ErrCodeValidationInvalidQuery,
			"offset must not be negative", nil)
	}
	if err != nil {
		core.Error(w, r, err)
		return
	}

	invitations, err := h.store.List(r.Context(), limit, offset)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	if invitations == nil {
		invitations = []*types.Invitation{}
	}

	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: invitationListResponse{
		Invitations: invitations,
		Limit:       limit,
		Offset:      offset,
	}})
}

// Get returns the invitation for one conversation.
func (h *InvitationsHandler) Get(w http.ResponseWriter, r *http.Request) {
	conversationID := chi.URLParam(r, "conversationID")

	inv, err := h.store.Get(r.Context(), conversationID)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	if inv == nil {
		core.Error(w, r, types.NewAppError(types.ErrCodeNotFoundInvitation,
			"no invitation for this conversation", nil))
		return
	}

	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: inv})
}

// Stats returns the running success and failure counters.
func (h *InvitationsHandler) Stats(w http.ResponseWriter, r *http.Request) {
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: h.stats.Snapshot()})
}

// queryInt parses an optional integer query parameter.
func queryInt(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, types.NewAppError(types.ErrCodeValidationInvalidQuery,
			name+" must be an integer", err)
	}
	return v, nil
}
