package invites

import (
	"log/slog"
	"time"
)

// RetryScheduler arranges for a deferred retry attempt to run once, after at
// least the given delay, without blocking the caller. No ordering guarantee
// is made relative to other conversations' scheduled attempts. At most one
// scheduled attempt exists per conversation at a time, enforced by
// construction: a schedule is only issued from the dispatcher's failure
// branch, which runs at most once per transition.
type RetryScheduler interface {
	Schedule(conversationID string, delay time.Duration, attempt func())
}

// TimerScheduler is the production RetryScheduler, backed by in-process
// timers. Pending retries are volatile: a process restart drops them,
// leaving the record in the retrying state with no further progress.
type TimerScheduler struct {
	logger *slog.Logger
}

// NewTimerScheduler creates a timer-backed scheduler.
func NewTimerScheduler(logger *slog.Logger) *TimerScheduler {
	return &TimerScheduler{logger: logger}
}

// Schedule runs attempt once after the delay elapses.
func (s *TimerScheduler) Schedule(conversationID string, delay time.Duration, attempt func()) {
	s.logger.Info("retry scheduled",
		"conversation_id", conversationID,
		"delay", delay,
	)
	time.AfterFunc(delay, attempt)
}

// ManualScheduler is a RetryScheduler for tests: it records scheduled
// entries and runs them only when told to, so retry sequences execute
// deterministically without wall-clock waits.
type ManualScheduler struct {
	Entries []ManualEntry

	delays []time.Duration
}

// ManualEntry is one recorded Schedule call.
type ManualEntry struct {
	ConversationID string
	Delay          time.Duration
	Attempt        func()
}

// Schedule records the entry without running it.
func (s *ManualScheduler) Schedule(conversationID string, delay time.Duration, attempt func()) {
	s.Entries = append(s.Entries, ManualEntry{
		ConversationID: conversationID,
		Delay:          delay,
		Attempt:        attempt,
	})
	s.delays = append(s.delays, delay)
}

// RunNext pops and runs the oldest pending entry. Returns false when no
// entry is pending.
func (s *ManualScheduler) RunNext() bool {
	if len(s.Entries) == 0 {
		return false
	}
	entry := s.Entries[0]
	s.Entries = s.Entries[1:]
	entry.Attempt()
	return true
}

// Delays returns the delays of all Schedule calls seen so far, in order,
// including entries already run by RunNext.
func (s *ManualScheduler) Delays() []time.Duration {
	out := make([]time.Duration, len(s.delays))
	copy(out, s.delays)
	return out
}
