package invites

import (
	"context"
	"sync/atomic"

	"reviewloop/internal/types"
)

// Emitter mirrors terminal outcomes to an external metrics backend.
// Implementations are best-effort and must not block dispatch.
type Emitter interface {
	EmitOutcome(ctx context.Context, status types.InvitationStatus)
}

// Stats maintains the running success/failure counters. Increments are
// atomic and safe under concurrent dispatches reaching terminal state at
// the same time; Snapshot reflects a consistent pair of values at some
// instant but is not linearizable with concurrent increments.
type Stats struct {
	success atomic.Uint64
	failed  atomic.Uint64
	emitter Emitter
}

// NewStats creates a Stats aggregator. emitter may be nil to disable
// external metric emission.
func NewStats(emitter Emitter) *Stats {
	return &Stats{emitter: emitter}
}

// RecordSuccess increments the success counter. Called exactly once per
// conversation, at the moment it reaches the success state.
func (s *Stats) RecordSuccess(ctx context.Context) {
	s.success.Add(1)
	if s.emitter != nil {
		s.emitter.EmitOutcome(ctx, types.StatusSuccess)
	}
}

// RecordFailure increments the failure counter. Called exactly once per
// conversation, at the moment it reaches the failed state.
func (s *Stats) RecordFailure(ctx context.Context) {
	s.failed.Add(1)
	if s.emitter != nil {
		s.emitter.EmitOutcome(ctx, types.StatusFailed)
	}
}

// Snapshot returns the current counter pair.
func (s *Stats) Snapshot() types.StatsSnapshot {
	return types.StatsSnapshot{
		SuccessCount: s.success.Load(),
		FailedCount:  s.failed.Load(),
	}
}
