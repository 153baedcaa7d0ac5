// Package queue provides the SQS-based audit trail producer. Every
// invitation that reaches a terminal state is published for downstream
// consumers (BI export, compliance archive).
package queue

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqsTypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/google/uuid"

	"reviewloop/internal/types"
)

// SQSSender abstracts the SQS SendMessage operation for testability.
// Production code uses the *sqs.Client from aws-sdk-go-v2.
type SQSSender interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// AuditPublisher implements types.AuditLogger on top of SQS. Publishing is
// best-effort: a failed publish is logged and dropped, never surfaced to the
// dispatch pipeline. The database row remains the source of truth.
type AuditPublisher struct {
	client   SQSSender
	queueURL string
	logger   *slog.Logger
}

var _ types.AuditLogger = (*AuditPublisher)(nil)

// NewAuditPublisher creates an AuditPublisher for the given queue.
func NewAuditPublisher(client SQSSender, queueURL string, logger *slog.Logger) *AuditPublisher {
	return &AuditPublisher{
		client:   client,
		queueURL: queueURL,
		logger:   logger,
	}
}

// auditMessage is the wire format of one audit trail entry.
type auditMessage struct {
	MessageID      string                 `json:"message_id"`
	RecordedAt     time.Time              `json:"recorded_at"`
	ConversationID string                 `json:"conversation_id"`
	Status         types.InvitationStatus `json:"status"`
	RetryCount     int                    `json:"retry_count"`
	ErrorMessage   string                 `json:"error_message,omitempty"`
	CustomerEmail  string                 `json:"customer_email"`
}

// Record publishes one finalized invitation to the audit queue.
func (p *AuditPublisher) Record(ctx context.Context, inv *types.Invitation) {
	msg := auditMessage{
		MessageID:      uuid.New().String(),
		RecordedAt:     time.Now().UTC(),
		ConversationID: inv.ConversationID,
		Status:         inv.Status,
		RetryCount:     inv.RetryCount,
		ErrorMessage:   inv.ErrorMessage,
		CustomerEmail:  inv.CustomerEmail,
	}

	body, err := json.Marshal(msg)
	if err != nil {
		p.logger.ErrorContext(ctx, "failed to marshal audit message",
			"conversation_id", inv.ConversationID,
			"error", err,
		)
		return
	}

	input := &sqs.SendMessageInput{
		QueueUrl:    aws.String(p.queueURL),
		MessageBody: aws.String(string(body)),
		MessageAttributes: map[string]sqsTypes.MessageAttributeValue{
			"status": {
				DataType:    aws.String("String"),
				StringValue: aws.String(string(inv.Status)),
			},
		},
	}

	if _, err := p.client.SendMessage(ctx, input); err != nil {
		p.logger.ErrorContext(ctx, "failed to publish audit message",
			"conversation_id", inv.ConversationID,
			"queue_url", p.queueURL,
			"error", err,
		)
		return
	}

	p.logger.InfoContext(ctx, "audit message published",
		"conversation_id", inv.ConversationID,
		"status", inv.Status,
	)
}
