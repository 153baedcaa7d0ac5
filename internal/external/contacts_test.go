package external

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reviewloop/internal/types"
)

func newTestContactClient(serverURL string) *ContactClient {
	return NewContactClient(&http.Client{Timeout: 5 * time.Second}, ContactClientConfig{
		APIBase:     serverURL,
		AccessToken: "test-token",
	})
}

func TestContactClient_Fetch_Found(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/contacts/c_1", r.URL.Path)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"c_1","email":"jo@example.com","name":"Jo"}`))
	}))
	defer server.Close()

	profile, err := newTestContactClient(server.URL).Fetch(context.Background(), "c_1")

	require.NoError(t, err)
	require.NotNil(t, profile)
	assert.Equal(t, "jo@example.com", profile.Email)
	assert.Equal(t, "Jo", profile.Name)
}

func TestContactClient_Fetch_NotFoundIsNil(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	profile, err := newTestContactClient(server.URL).Fetch(context.Background(), "c_missing")

	require.NoError(t, err)
	assert.Nil(t, profile)
}

func TestContactClient_Fetch_UpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"errors":[{"message":"token revoked"}]}`))
	}))
	defer server.Close()

	_, err := newTestContactClient(server.URL).Fetch(context.Background(), "c_1")

	var appErr *types.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, types.ErrCodeUpstreamContacts, appErr.Code)
	assert.Contains(t, appErr.Message, "403")
}
