package invites

import (
	"context"
	"log/slog"

	"reviewloop/internal/types"
)

// Admission is the outcome of admitting one closed conversation.
type Admission struct {
	Invitation *types.Invitation
	// Created is true when this admission created the record; false means a
	// record already existed and the event is a duplicate.
	Created bool
}

// Deduplicator enforces the one-invitation-per-conversation guarantee. All
// claim attempts funnel through the store's atomic create-if-absent, so two
// concurrent deliveries of the same event race on a single insert and
// exactly one wins.
type Deduplicator struct {
	store  types.InvitationStore
	clock  types.Clock
	logger *slog.Logger
}

// NewDeduplicator creates a Deduplicator backed by the given store.
func NewDeduplicator(store types.InvitationStore, clock types.Clock, logger *slog.Logger) *Deduplicator {
	return &Deduplicator{
		store:  store,
		clock:  clock,
		logger: logger,
	}
}

// Admit claims the conversation by creating its invitation record in the
// processing state. A duplicate is not an error: the pre-existing record is
// returned with Created=false and the caller is expected to stop there.
func (d *Deduplicator) Admit(ctx context.Context, conv *types.ClosedConversation) (*Admission, error) {
	now := d.clock.Now()
	candidate := &types.Invitation{
		ConversationID: conv.ConversationID,
		CustomerEmail:  conv.CustomerEmail,
		CustomerName:   conv.CustomerName,
		AgentName:      conv.AgentName,
		Status:         types.StatusProcessing,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	stored, created, err := d.store.CreateIfAbsent(ctx, candidate)
	if err != nil {
		return nil, err
	}

	if !created {
		d.logger.InfoContext(ctx, "duplicate conversation close ignored",
			"conversation_id", conv.ConversationID,
			"existing_status", stored.Status,
		)
	}

	return &Admission{Invitation: stored, Created: created}, nil
}
