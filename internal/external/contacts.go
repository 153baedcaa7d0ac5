package external

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"reviewloop/internal/types"
)

// ContactClientConfig holds the configuration for creating a ContactClient.
type ContactClientConfig struct {
	APIBase     string
	AccessToken string
	Logger      *slog.Logger
}

// ContactClient implements types.ContactLookup against the support
// platform's contact API. Lookups are best-effort enrichment, so a small
// transport retry budget is acceptable here.
type ContactClient struct {
	base    *BaseClient
	token   string
	baseURL string
	logger  *slog.Logger
}

var _ types.ContactLookup = (*ContactClient)(nil)

// NewContactClient creates a ContactClient.
func NewContactClient(httpClient *http.Client, cfg ContactClientConfig) *ContactClient {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	base := NewBaseClient(httpClient, "contacts", RetryPolicy{
		MaxRetries: 1,
		MinWait:    200 * time.Millisecond,
		MaxWait:    time.Second,
	}, "ReviewLoop/1.0")

	return &ContactClient{
		base:    base,
		token:   cfg.AccessToken,
		baseURL: strings.TrimSuffix(cfg.APIBase, "/"),
		logger:  logger,
	}
}

// NewContactClientWithBase creates a ContactClient with a pre-configured
// BaseClient.
func NewContactClientWithBase(base *BaseClient, cfg ContactClientConfig) *ContactClient {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &ContactClient{
		base:    base,
		token:   cfg.AccessToken,
		baseURL: strings.TrimSuffix(cfg.APIBase, "/"),
		logger:  logger,
	}
}

// Fetch retrieves one contact profile. A 404 means the contact does not
// exist and returns (nil, nil) so callers fall back to event-provided data.
func (c *ContactClient) Fetch(ctx context.Context, contactID string) (*types.ContactProfile, error) {
	reqURL := c.baseURL + "/contacts/" + url.PathEscape(contactID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalUnexpected, "failed to create contact request", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Intercom-Version", "2.11")

	resp, err := c.base.Do(req)
	if err != nil {
		if _, ok := err.(*types.AppError); ok {
			return nil, err
		}
		return nil, types.NewAppError(types.ErrCodeUpstreamContacts, "contact request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, types.NewAppError(types.ErrCodeUpstreamContacts,
			fmt.Sprintf("contact API returned %d: %s", resp.StatusCode, string(body)), nil)
	}

	var profile types.ContactProfile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return nil, types.NewAppError(types.ErrCodeUpstreamContacts, "failed to decode contact response", err)
	}
	return &profile, nil
}
