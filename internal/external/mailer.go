package external

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"reviewloop/internal/types"
)

// MailClientConfig holds the configuration for creating a MailClient.
type MailClientConfig struct {
	APIBase     string
	APIKey      string
	FromAddress string
	FromName    string
	Logger      *slog.Logger
}

// MailClient implements types.NotificationSender against the Postmark email
// API. It runs with transport retries disabled: the dispatch pipeline is the
// single owner of the retry policy, and a hidden extra attempt here would
// make the observed attempt count wrong.
type MailClient struct {
	base    *BaseClient
	cfg     MailClientConfig
	baseURL string
	logger  *slog.Logger
}

var _ types.NotificationSender = (*MailClient)(nil)

// NewMailClient creates a MailClient. The httpClient timeout bounds each
// individual send attempt.
func NewMailClient(httpClient *http.Client, cfg MailClientConfig) *MailClient {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &MailClient{
		base:    NewBaseClient(httpClient, "mail", NoRetries(), "ReviewLoop/1.0"),
		cfg:     cfg,
		baseURL: strings.TrimSuffix(cfg.APIBase, "/"),
		logger:  logger,
	}
}

// NewMailClientWithBase creates a MailClient with a pre-configured
// BaseClient, for tests that want to control breaker or sleep behavior.
func NewMailClientWithBase(base *BaseClient, cfg MailClientConfig) *MailClient {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &MailClient{
		base:    base,
		cfg:     cfg,
		baseURL: strings.TrimSuffix(cfg.APIBase, "/"),
		logger:  logger,
	}
}

// mailPayload is the Postmark /email request body.
type mailPayload struct {
	From          string `json:"From"`
	To            string `json:"To"`
	Subject       string `json:"Subject"`
	TextBody      string `json:"TextBody"`
	HTMLBody      string `json:"HtmlBody,omitempty"`
	MessageStream string `json:"MessageStream"`
	Tag           string `json:"Tag,omitempty"`
}

// mailResponse is the subset of the Postmark /email response we use.
type mailResponse struct {
	ErrorCode int    `json:"ErrorCode"`
	Message   string `json:"Message"`
	MessageID string `json:"MessageID"`
}

// Send delivers one review-request email. Provider rejections (4xx, or a
// 200 with a non-zero ErrorCode) come back as SendResult.Success=false with
// the raw response preserved for the audit trail; transport failures return
// an error.
func (m *MailClient) Send(ctx context.Context, payload types.SendPayload) (*types.SendResult, error) {
	body, err := json.Marshal(m.buildPayload(payload))
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalUnexpected, "failed to marshal mail payload", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+"/email", bytes.NewReader(body))
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalUnexpected, "failed to create mail request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Postmark-Server-Token", m.cfg.APIKey)

	resp, err := m.base.Do(req)
	if err != nil {
		return nil, m.wrapTransportError(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeUpstreamMailProvider, "mail provider response unreadable", err)
	}

	var parsed mailResponse
	// A non-JSON body still yields a usable result via the raw capture.
	_ = json.Unmarshal(raw, &parsed)

	if resp.StatusCode == http.StatusOK && parsed.ErrorCode == 0 {
		return &types.SendResult{
			Success:           true,
			ProviderMessageID: parsed.MessageID,
			Raw:               string(raw),
		}, nil
	}

	errMsg := parsed.Message
	if errMsg == "" {
		errMsg = fmt.Sprintf("mail provider returned %d", resp.StatusCode)
	}
	return &types.SendResult{
		Success: false,
		Error:   errMsg,
		Raw:     string(raw),
	}, nil
}

// buildPayload renders the review-request message for one conversation.
func (m *MailClient) buildPayload(p types.SendPayload) mailPayload {
	subject := fmt.Sprintf("How was your experience with %s?", p.BusinessName)

	text := fmt.Sprintf(
		"Hi %s,\n\n"+
			"%s from %s recently helped you out. We'd love to hear how it went.\n\n"+
			"Share your experience here:\n%s\n\n"+
			"Thanks,\nThe %s team\n",
		p.RecipientName, p.AgentName, p.BusinessName, p.ReviewLink, p.BusinessName,
	)

	from := m.cfg.FromAddress
	if m.cfg.FromName != "" {
		from = fmt.Sprintf("%s <%s>", m.cfg.FromName, m.cfg.FromAddress)
	}

	return mailPayload{
		From:          from,
		To:            fmt.Sprintf("%s <%s>", p.RecipientName, p.RecipientEmail),
		Subject:       subject,
		TextBody:      text,
		MessageStream: "outbound",
		Tag:           "review-invitation",
	}
}

// wrapTransportError keeps AppErrors from the BaseClient as-is and wraps
// anything else as a mail provider failure.
func (m *MailClient) wrapTransportError(err error) error {
	if _, ok := err.(*types.AppError); ok {
		return err
	}
	return types.NewAppError(types.ErrCodeUpstreamMailProvider, "mail request failed", err)
}
