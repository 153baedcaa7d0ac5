// Package ingest parses and classifies inbound conversation-closed events.
//
// Decoding is a tagged-variant step: every body produces exactly one
// Classification, and no malformed input ever surfaces as an error to the
// event source. The webhook handler acknowledges receipt regardless of the
// classification; only ClassDispatch leads to further processing.
package ingest

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"reviewloop/internal/types"
)

// Classification is the decode outcome for one inbound event body.
type Classification string

const (
	// ClassDispatch means the event is a recognized close with a usable
	// recipient; the Conversation field is populated.
	ClassDispatch Classification = "dispatch"

	// ClassMalformed means the body was unparsable or missing required
	// fields. No record is created.
	ClassMalformed Classification = "malformed"

	// ClassUnrecognizedTopic means the event parsed but its type is not in
	// the recognized conversation-closed set. Logged and ignored.
	ClassUnrecognizedTopic Classification = "unrecognized_topic"

	// ClassNoRecipient means the conversation has no contacts or no
	// resolvable email address. No record is created.
	ClassNoRecipient Classification = "no_recipient"
)

// Default placeholder names used when the event omits display names.
const (
	DefaultCustomerName = "Customer"
	DefaultAgentName    = "Support Team"
)

// Result is the outcome of ingesting one event body.
type Result struct {
	Class        Classification
	Conversation *types.ClosedConversation // set only when Class == ClassDispatch
	Reason       string                    // diagnostic detail for logging
}

// Ingestor validates inbound events and extracts the dispatch inputs.
// The contact lookup is optional enrichment: when the event-provided contact
// is missing an email or name, the ingestor tries one profile fetch before
// giving up. Lookup failures are logged and treated as "no enrichment".
type Ingestor struct {
	closeTopics map[string]struct{}
	contacts    types.ContactLookup
	logger      *slog.Logger
}

// NewIngestor creates an Ingestor recognizing the given close event types.
// contacts may be nil to disable enrichment.
func NewIngestor(closeTopics []string, contacts types.ContactLookup, logger *slog.Logger) *Ingestor {
	set := make(map[string]struct{}, len(closeTopics))
	for _, t := range closeTopics {
		set[strings.TrimSpace(t)] = struct{}{}
	}
	return &Ingestor{
		closeTopics: set,
		contacts:    contacts,
		logger:      logger,
	}
}

// eventEnvelope is the minimal representation of an inbound webhook event,
// tailored to extract the fields needed for classification and dispatch.
type eventEnvelope struct {
	Type  string `json:"type"`
	Topic string `json:"topic"`
	Data  struct {
		Item eventItem `json:"item"`
	} `json:"data"`
}

type eventItem struct {
	ID                string      `json:"id"`
	Contacts          contactList `json:"contacts"`
	ConversationParts partList    `json:"conversation_parts"`
}

type eventContact struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

type eventPart struct {
	Author struct {
		Name string `json:"name"`
		Type string `json:"type"`
	} `json:"author"`
}

// contactList accepts both the platform's wrapped list object
// ({"contacts": [...]}) and a bare JSON array.
type contactList struct {
	Items []eventContact
}

func (l *contactList) UnmarshalJSON(data []byte) error {
	var wrapped struct {
		Contacts []eventContact `json:"contacts"`
	}
	if err := json.Unmarshal(data, &wrapped); err == nil && wrapped.Contacts != nil {
		l.Items = wrapped.Contacts
		return nil
	}

	var bare []eventContact
	if err := json.Unmarshal(data, &bare); err == nil {
		l.Items = bare
		return nil
	}

	// Unrecognized shape: treat as empty rather than failing the envelope.
	l.Items = nil
	return nil
}

// partList accepts both the wrapped list object
// ({"conversation_parts": [...]}) and a bare JSON array.
type partList struct {
	Items []eventPart
}

func (l *partList) UnmarshalJSON(data []byte) error {
	var wrapped struct {
		Parts []eventPart `json:"conversation_parts"`
	}
	if err := json.Unmarshal(data, &wrapped); err == nil && wrapped.Parts != nil {
		l.Items = wrapped.Parts
		return nil
	}

	var bare []eventPart
	if err := json.Unmarshal(data, &bare); err == nil {
		l.Items = bare
		return nil
	}

	l.Items = nil
	return nil
}

// Ingest classifies a raw event body. It never returns an error: every
// failure mode maps to a non-dispatch Classification.
func (i *Ingestor) Ingest(ctx context.Context, body []byte) Result {
	var env eventEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return Result{Class: ClassMalformed, Reason: "unparsable event body"}
	}

	// The platform wraps domain events in a generic notification envelope;
	// in that case the interesting type lives in "topic".
	eventType := env.Type
	if env.Topic != "" && (eventType == "" || eventType == "notification_event") {
		eventType = env.Topic
	}
	if eventType == "" {
		return Result{Class: ClassMalformed, Reason: "missing event type"}
	}

	if _, ok := i.closeTopics[eventType]; !ok {
		return Result{Class: ClassUnrecognizedTopic, Reason: "event type " + eventType}
	}

	item := env.Data.Item
	if item.ID == "" {
		return Result{Class: ClassMalformed, Reason: "missing conversation identifier"}
	}

	if len(item.Contacts.Items) == 0 {
		return Result{Class: ClassNoRecipient, Reason: "conversation has no contacts"}
	}

	contact := item.Contacts.Items[0]
	if contact.Email == "" || contact.Name == "" {
		contact = i.enrich(ctx, contact)
	}
	if contact.Email == "" {
		return Result{Class: ClassNoRecipient, Reason: "contact has no email address"}
	}

	customerName := contact.Name
	if customerName == "" {
		customerName = DefaultCustomerName
	}

	agentName := DefaultAgentName
	if parts := item.ConversationParts.Items; len(parts) > 0 {
		if name := parts[len(parts)-1].Author.Name; name != "" {
			agentName = name
		}
	}

	return Result{
		Class: ClassDispatch,
		Conversation: &types.ClosedConversation{
			ConversationID: item.ID,
			CustomerEmail:  contact.Email,
			CustomerName:   customerName,
			AgentName:      agentName,
		},
	}
}

// enrich tries a single contact-profile fetch to fill in missing email or
// name. Any lookup failure leaves the event-provided contact unchanged.
func (i *Ingestor) enrich(ctx context.Context, contact eventContact) eventContact {
	if i.contacts == nil || contact.ID == "" {
		return contact
	}

	profile, err := i.contacts.Fetch(ctx, contact.ID)
	if err != nil {
		i.logger.WarnContext(ctx, "contact enrichment failed",
			"contact_id", contact.ID,
			"error", err,
		)
		return contact
	}
	if profile == nil {
		return contact
	}

	if contact.Email == "" {
		contact.Email = profile.Email
	}
	if contact.Name == "" {
		contact.Name = profile.Name
	}
	return contact
}
