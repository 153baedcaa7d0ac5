package types

import "time"

// InvitationStatus tracks the lifecycle of a review invitation.
// Transitions are monotonic: processing -> success, or
// processing -> retrying -> ... -> success | failed. Terminal states are
// never left.
type InvitationStatus string

const (
	StatusProcessing InvitationStatus = "processing"
	StatusRetrying   InvitationStatus = "retrying"
	StatusSuccess    InvitationStatus = "success"
	StatusFailed     InvitationStatus = "failed"
)

// Terminal reports whether the status permits no further transitions.
func (s InvitationStatus) Terminal() bool {
	return s == StatusSuccess || s == StatusFailed
}

// Valid reports whether s is one of the recognized statuses.
func (s InvitationStatus) Valid() bool {
	switch s {
	case StatusProcessing, StatusRetrying, StatusSuccess, StatusFailed:
		return true
	}
	return false
}

// Invitation is the audit/state record for a single conversation's review
// request. Exactly one Invitation exists per ConversationID; the identity
// fields (email, names) are captured once at creation and never rewritten.
type Invitation struct {
	ConversationID string           `json:"conversation_id"`
	CustomerEmail  string           `json:"customer_email"`
	CustomerName   string           `json:"customer_name"`
	AgentName      string           `json:"agent_name"`
	Status         InvitationStatus `json:"status"`
	RetryCount     int              `json:"retry_count"`
	ErrorMessage   string           `json:"error_message,omitempty"`
	ResponseLog    string           `json:"response_log,omitempty"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
}

// InvitationPatch carries the mutable fields written by the dispatcher on a
// state transition. Pointer fields distinguish "leave unchanged" from
// "set to zero value".
type InvitationPatch struct {
	Status       InvitationStatus
	RetryCount   *int
	ErrorMessage *string
	ResponseLog  *string
}

// StatsSnapshot is a consistent pair of terminal-outcome counters.
// Each conversation contributes to exactly one counter, exactly once.
type StatsSnapshot struct {
	SuccessCount uint64 `json:"success_count"`
	FailedCount  uint64 `json:"failed_count"`
}

// ClosedConversation is the normalized result of ingesting a
// conversation-closed event: everything the dispatcher needs to build the
// outbound message.
type ClosedConversation struct {
	ConversationID string
	CustomerEmail  string
	CustomerName   string
	AgentName      string
}

// SendPayload is the outbound review-request message handed to the
// NotificationSender.
type SendPayload struct {
	RecipientEmail string `json:"recipient_email"`
	RecipientName  string `json:"recipient_name"`
	AgentName      string `json:"agent_name"`
	ConversationID string `json:"conversation_id"`
	BusinessName   string `json:"business_name"`
	ReviewLink     string `json:"review_link"`
}

// SendResult is the classified outcome of a single send attempt.
// Success=false with a non-empty Error is an explicit provider failure;
// Raw carries the serialized provider response for the audit trail.
type SendResult struct {
	Success           bool   `json:"success"`
	Error             string `json:"error,omitempty"`
	ProviderMessageID string `json:"provider_message_id,omitempty"`
	Raw               string `json:"raw,omitempty"`
}

// ContactProfile is the subset of a support-platform contact used for
// enrichment when the close event carries incomplete contact data.
type ContactProfile struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}
