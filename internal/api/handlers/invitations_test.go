package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reviewloop/internal/core"
	"reviewloop/internal/types"
)

type stubReader struct {
	invitation *types.Invitation
	list       []*types.Invitation
	err        error

	lastLimit  int
	lastOffset int
}

func (s *stubReader) Get(_ context.Context, _ string) (*types.Invitation, error) {
	return s.invitation, s.err
}

func (s *stubReader) List(_ context.Context, limit, offset int) ([]*types.Invitation, error) {
	s.lastLimit = limit
	s.lastOffset = offset
	return s.list, s.err
}

type stubStats struct {
	snap types.StatsSnapshot
}

func (s *stubStats) Snapshot() types.StatsSnapshot { return s.snap }

func newReadRouter(store InvitationReader, stats StatsSource) *chi.Mux {
	r := chi.NewRouter()
	NewInvitationsHandler(store, stats, discardLogger()).RegisterRoutes(r)
	return r
}

func getPath(router http.Handler, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestInvitationsHandler_List(t *testing.T) {
	store := &stubReader{list: []*types.Invitation{
		{ConversationID: "conv_2", Status: types.StatusSuccess},
		{ConversationID: "conv_1", Status: types.StatusFailed},
	}}

	rec := getPath(newReadRouter(store, &stubStats{}), "/v1/invitations?limit=10&offset=5")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 10, store.lastLimit)
	assert.Equal(t, 5, store.lastOffset)

	var resp struct {
		Data invitationListResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Data.Invitations, 2)
	assert.Equal(t, "conv_2", resp.Data.Invitations[0].ConversationID)
	assert.Equal(t, 10, resp.Data.Limit)
}

func TestInvitationsHandler_List_Defaults(t *testing.T) {
	store := &stubReader{}

	rec := getPath(newReadRouter(store, &stubStats{}), "/v1/invitations")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, defaultListLimit, store.lastLimit)
	assert.Equal(t, 0, store.lastOffset)
	assert.Contains(t, rec.Body.String(), `"invitations":[]`)
}

func TestInvitationsHandler_List_InvalidQuery(t *testing.T) {
	tests := []struct {
		name string
		path string
	}{
		{"non-numeric limit", "/v1/invitations?limit=ten"},
		{"limit too large", "/v1/invitations?limit=500"},
		{"zero limit", "/v1/invitations?limit=0"},
		{"negative offset", "/v1/invitations?offset=-1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := getPath(newReadRouter(&stubReader{}, &stubStats{}), tt.path)

			require.Equal(t, http.StatusBadRequest, rec.Code)
			var resp core.APIErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, string(types.ErrCodeValidationInvalidQuery), resp.Error.Code)
		})
	}
}

func TestInvitationsHandler_Get(t *testing.T) {
	store := &stubReader{invitation: &types.Invitation{
		ConversationID: "conv_1",
		Status:         types.StatusRetrying,
		RetryCount:     2,
	}}

	rec := getPath(newReadRouter(store, &stubStats{}), "/v1/invitations/conv_1")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"retrying"`)
}

func TestInvitationsHandler_Get_NotFound(t *testing.T) {
	rec := getPath(newReadRouter(&stubReader{}, &stubStats{}), "/v1/invitations/conv_missing")

	require.Equal(t, http.StatusNotFound, rec.Code)
	var resp core.APIErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, string(types.ErrCodeNotFoundInvitation), resp.Error.Code)
}

func TestInvitationsHandler_Get_StoreError(t *testing.T) {
	store := &stubReader{err: types.NewAppError(types.ErrCodeInternalDB, "db down", nil)}

	rec := getPath(newReadRouter(store, &stubStats{}), "/v1/invitations/conv_1")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestInvitationsHandler_Stats(t *testing.T) {
	stats := &stubStats{snap: types.StatsSnapshot{SuccessCount: 7, FailedCount: 2}}

	rec := getPath(newReadRouter(&stubReader{}, stats), "/v1/stats")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"data":{"success_count":7,"failed_count":2}}`, rec.Body.String())
}
