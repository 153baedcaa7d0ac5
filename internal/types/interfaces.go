package types

import (
	"context"
	"time"
)

// InvitationStore is the persistence contract for invitation records.
// Implementations must make CreateIfAbsent atomic with respect to the
// conversation-ID unique key; a separate read-then-write is a known race
// under concurrent redelivery of the same event.
type InvitationStore interface {
	// Get returns the invitation for the conversation, or (nil, nil) when
	// no record exists.
	Get(ctx context.Context, conversationID string) (*Invitation, error)

	// CreateIfAbsent inserts the invitation if no record exists for its
	// ConversationID. It returns the stored record and whether this call
	// created it. When created=false the returned record is the
	// pre-existing one, untouched.
	CreateIfAbsent(ctx context.Context, inv *Invitation) (*Invitation, bool, error)

	// Update applies the patch to the invitation and bumps updated_at.
	Update(ctx context.Context, conversationID string, patch InvitationPatch) (*Invitation, error)

	// List returns invitations ordered by creation time descending.
	List(ctx context.Context, limit, offset int) ([]*Invitation, error)
}

// NotificationSender delivers the outbound review-request message.
// A classified failure is reported through SendResult.Success=false; an
// error return signals the attempt could not be classified (treated as a
// failure by the dispatcher).
type NotificationSender interface {
	Send(ctx context.Context, payload SendPayload) (*SendResult, error)
}

// ContactLookup fetches a contact profile from the support platform.
// A (nil, nil) return means "no usable contact data" and is not an error.
type ContactLookup interface {
	Fetch(ctx context.Context, contactID string) (*ContactProfile, error)
}

// AuditLogger records finalized invitations (terminal state reached).
// Implementations are best-effort: failures must not affect dispatch state.
type AuditLogger interface {
	Record(ctx context.Context, inv *Invitation)
}

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
}

// RealClock implements Clock using the real system time (always UTC).
type RealClock struct{}

// Now returns the current time in UTC.
func (RealClock) Now() time.Time { return time.Now().UTC() }
