// Package handlers contains the HTTP handler implementations for the
// reviewloop API.
package handlers

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"reviewloop/internal/core"
	"reviewloop/internal/ingest"
	"reviewloop/internal/invites"
	"reviewloop/internal/types"
)

// maxWebhookBodySize is the maximum allowed size of an inbound event payload
// (256 KB). Conversation events with full part lists can get large, but not
// that large.
const maxWebhookBodySize = 256 * 1024

// EventIngestor classifies a raw event body. Subset of *ingest.Ingestor.
type EventIngestor interface {
	Ingest(ctx context.Context, body []byte) ingest.Result
}

// ConversationAdmitter claims a conversation for dispatch. Subset of
// *invites.Deduplicator.
type ConversationAdmitter interface {
	Admit(ctx context.Context, conv *types.ClosedConversation) (*invites.Admission, error)
}

// AsyncDispatcher starts the delivery pipeline for a freshly admitted
// invitation. Subset of *invites.Dispatcher.
type AsyncDispatcher interface {
	DispatchAsync(inv *types.Invitation)
}

// WebhookHandler handles inbound conversation events from the support
// platform. It is not behind auth middleware; the endpoint acknowledges
// every delivery with 200 so the platform never retries, and all failure
// handling happens internally.
type WebhookHandler struct {
	ingestor   EventIngestor
	admitter   ConversationAdmitter
	dispatcher AsyncDispatcher
	logger     *slog.Logger
}

// NewWebhookHandler creates a WebhookHandler with the provided dependencies.
func NewWebhookHandler(
	ingestor EventIngestor,
	admitter ConversationAdmitter,
	dispatcher AsyncDispatcher,
	logger *slog.Logger,
) *WebhookHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &WebhookHandler{
		ingestor:   ingestor,
		admitter:   admitter,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// RegisterRoutes mounts the webhook endpoints. These are public routes.
func (h *WebhookHandler) RegisterRoutes(r chi.Router) {
	r.Post("/webhooks/conversations", h.Handle)
	r.Get("/webhooks/conversations", h.Verify)
	r.Head("/webhooks/conversations", h.Verify)
}

// webhookAck is the body returned for every acknowledged delivery.
type webhookAck struct {
	Status string `json:"status"`
}

// Handle processes one inbound event delivery.
//
//  1. Reads the body with a size limit.
//  2. Classifies the event; non-dispatch classes are logged and dropped.
//  3. Claims the conversation; duplicates are dropped.
//  4. Starts the async delivery pipeline for a fresh claim.
//  5. Returns 200 in every case so the platform does not retry.
func (h *WebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	r.Body = http.MaxBytesReader(w, r.Body, maxWebhookBodySize)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.logger.WarnContext(ctx, "failed to read webhook body", "error", err)
		h.ack(w, r)
		return
	}

	res := h.ingestor.Ingest(ctx, body)
	if res.Class != ingest.ClassDispatch {
		h.logger.InfoContext(ctx, "event dropped",
			"class", res.Class,
			"reason", res.Reason,
		)
		h.ack(w, r)
		return
	}

	adm, err := h.admitter.Admit(ctx, res.Conversation)
	if err != nil {
		// Internal failure, not the platform's problem. Acknowledge and
		// rely on logs; the record was not created so a redelivery would
		// start over cleanly.
		h.logger.ErrorContext(ctx, "failed to admit conversation",
			"conversation_id", res.Conversation.ConversationID,
			"error", err,
		)
		h.ack(w, r)
		return
	}

	if adm.Created {
		h.logger.InfoContext(ctx, "invitation admitted",
			"conversation_id", adm.Invitation.ConversationID,
			"customer_email", adm.Invitation.CustomerEmail,
		)
		h.dispatcher.DispatchAsync(adm.Invitation)
	}

	h.ack(w, r)
}

// Verify answers the platform's endpoint verification probe. Probes carrying
// a challenge query parameter get it echoed back as plain text.
func (h *WebhookHandler) Verify(w http.ResponseWriter, r *http.Request) {
	if challenge := r.URL.Query().Get("challenge"); challenge != "" {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(challenge))
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h *WebhookHandler) ack(w http.ResponseWriter, r *http.Request) {
	core.JSON(w, r, http.StatusOK, webhookAck{Status: "received"})
}
