package invites

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"golang.org/x/sync/semaphore"

	"reviewloop/internal/types"
)

// Dispatcher drives an invitation from the processing state to a terminal
// outcome. One send attempt is made immediately; each failure either
// schedules the next retry after the configured delay or, once the retry
// budget is spent, finalizes the record as failed.
//
// Ordering invariant: the store write for a transition always happens before
// the stats counter and audit record for that transition. Collaborator
// failures (store, audit, metrics) are logged and never abort the pipeline.
type Dispatcher struct {
	store     types.InvitationStore
	sender    types.NotificationSender
	stats     *Stats
	audit     types.AuditLogger
	scheduler RetryScheduler
	sem       *semaphore.Weighted
	logger    *slog.Logger

	maxRetries   int
	delays       []time.Duration
	sendTimeout  time.Duration
	businessName string
	reviewDomain string
}

// DispatcherParams bundles the dispatcher's collaborators and policy.
type DispatcherParams struct {
	Store     types.InvitationStore
	Sender    types.NotificationSender
	Stats     *Stats
	Audit     types.AuditLogger // may be nil to disable the audit trail
	Scheduler RetryScheduler
	Logger    *slog.Logger

	MaxRetries    int
	RetryDelays   []time.Duration // one entry per retry attempt
	SendTimeout   time.Duration
	MaxConcurrent int64
	BusinessName  string
	ReviewDomain  string
}

// NewDispatcher creates a Dispatcher. Concurrent attempts across
// conversations are bounded by MaxConcurrent; attempts for a single
// conversation are naturally serial (each schedules at most one successor).
func NewDispatcher(p DispatcherParams) *Dispatcher {
	return &Dispatcher{
		store:        p.Store,
		sender:       p.Sender,
		stats:        p.Stats,
		audit:        p.Audit,
		scheduler:    p.Scheduler,
		sem:          semaphore.NewWeighted(p.MaxConcurrent),
		logger:       p.Logger,
		maxRetries:   p.MaxRetries,
		delays:       p.RetryDelays,
		sendTimeout:  p.SendTimeout,
		businessName: p.BusinessName,
		reviewDomain: p.ReviewDomain,
	}
}

// DispatchAsync starts the first attempt in the background and returns
// immediately, so the webhook handler can acknowledge without waiting on the
// mail provider. The attempt runs on a fresh context: its lifetime is the
// process, not the inbound HTTP request.
func (d *Dispatcher) DispatchAsync(inv *types.Invitation) {
	go d.Attempt(context.Background(), inv)
}

// Attempt performs one send attempt and applies the resulting transition.
// Calling it with a record already in a terminal state is a no-op.
func (d *Dispatcher) Attempt(ctx context.Context, inv *types.Invitation) {
	if inv.Status.Terminal() {
		d.logger.WarnContext(ctx, "attempt on terminal invitation skipped",
			"conversation_id", inv.ConversationID,
			"status", inv.Status,
		)
		return
	}

	if err := d.sem.Acquire(ctx, 1); err != nil {
		d.logger.ErrorContext(ctx, "dispatch slot acquisition aborted",
			"conversation_id", inv.ConversationID,
			"error", err,
		)
		return
	}
	defer d.sem.Release(1)

	payload := types.SendPayload{
		RecipientEmail: inv.CustomerEmail,
		RecipientName:  inv.CustomerName,
		AgentName:      inv.AgentName,
		ConversationID: inv.ConversationID,
		BusinessName:   d.businessName,
		ReviewLink:     ReviewLink(d.reviewDomain, d.businessName),
	}

	sendCtx, cancel := context.WithTimeout(ctx, d.sendTimeout)
	res, err := d.sender.Send(sendCtx, payload)
	cancel()

	switch {
	case err != nil:
		d.handleFailure(ctx, inv, err.Error(), res)
	case !res.Success:
		d.handleFailure(ctx, inv, res.Error, res)
	default:
		d.handleSuccess(ctx, inv, res)
	}
}

func (d *Dispatcher) handleSuccess(ctx context.Context, inv *types.Invitation, res *types.SendResult) {
	responseLog := res.Raw
	if responseLog == "" {
		if b, err := json.Marshal(res); err == nil {
			responseLog = string(b)
		}
	}

	// Terminal success clears any failure message left by earlier attempts.
	cleared := ""
	updated := d.applyPatch(ctx, inv, types.InvitationPatch{
		Status:       types.StatusSuccess,
		ErrorMessage: &cleared,
		ResponseLog:  &responseLog,
	})

	d.logger.InfoContext(ctx, "invitation delivered",
		"conversation_id", updated.ConversationID,
		"retry_count", updated.RetryCount,
		"provider_message_id", res.ProviderMessageID,
	)

	d.stats.RecordSuccess(ctx)
	if d.audit != nil {
		d.audit.Record(ctx, updated)
	}
}

func (d *Dispatcher) handleFailure(ctx context.Context, inv *types.Invitation, errMsg string, res *types.SendResult) {
	var responseLog *string
	if res != nil && res.Raw != "" {
		responseLog = &res.Raw
	}

	if inv.RetryCount < d.maxRetries {
		nextRetry := inv.RetryCount + 1
		updated := d.applyPatch(ctx, inv, types.InvitationPatch{
			Status:       types.StatusRetrying,
			RetryCount:   &nextRetry,
			ErrorMessage: &errMsg,
			ResponseLog:  responseLog,
		})

		delay := d.delays[nextRetry-1]
		d.logger.WarnContext(ctx, "send attempt failed, retrying",
			"conversation_id", updated.ConversationID,
			"retry_count", updated.RetryCount,
			"max_retries", d.maxRetries,
			"delay", delay,
			"error", errMsg,
		)

		d.scheduler.Schedule(updated.ConversationID, delay, func() {
			d.Attempt(context.Background(), updated)
		})
		return
	}

	updated := d.applyPatch(ctx, inv, types.InvitationPatch{
		Status:       types.StatusFailed,
		ErrorMessage: &errMsg,
		ResponseLog:  responseLog,
	})

	d.logger.ErrorContext(ctx, "invitation permanently failed",
		"conversation_id", updated.ConversationID,
		"retry_count", updated.RetryCount,
		"error", errMsg,
	)

	d.stats.RecordFailure(ctx)
	if d.audit != nil {
		d.audit.Record(ctx, updated)
	}
}

// applyPatch persists the transition and returns the stored record. When the
// store write fails the transition still proceeds on a local copy: a counter
// or retry must not be dropped because the audit row lagged behind.
func (d *Dispatcher) applyPatch(ctx context.Context, inv *types.Invitation, patch types.InvitationPatch) *types.Invitation {
	updated, err := d.store.Update(ctx, inv.ConversationID, patch)
	if err == nil {
		return updated
	}

	d.logger.ErrorContext(ctx, "invitation state write failed",
		"conversation_id", inv.ConversationID,
		"target_status", patch.Status,
		"error", err,
	)

	local := *inv
	local.Status = patch.Status
	if patch.RetryCount != nil {
		local.RetryCount = *patch.RetryCount
	}
	if patch.ErrorMessage != nil {
		local.ErrorMessage = *patch.ErrorMessage
	}
	if patch.ResponseLog != nil {
		local.ResponseLog = *patch.ResponseLog
	}
	return &local
}
