package invites

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"reviewloop/internal/types"
)

type recordingEmitter struct {
	mu       sync.Mutex
	outcomes []types.InvitationStatus
}

func (e *recordingEmitter) EmitOutcome(_ context.Context, status types.InvitationStatus) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.outcomes = append(e.outcomes, status)
}

func TestStats_Counters(t *testing.T) {
	s := NewStats(nil)
	ctx := context.Background()

	s.RecordSuccess(ctx)
	s.RecordSuccess(ctx)
	s.RecordFailure(ctx)

	snap := s.Snapshot()
	assert.Equal(t, uint64(2), snap.SuccessCount)
	assert.Equal(t, uint64(1), snap.FailedCount)
}

func TestStats_ConcurrentIncrements(t *testing.T) {
	s := NewStats(nil)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.RecordSuccess(ctx)
		}()
	}
	wg.Wait()

	assert.Equal(t, uint64(100), s.Snapshot().SuccessCount)
}

func TestStats_EmitsOutcomes(t *testing.T) {
	e := &recordingEmitter{}
	s := NewStats(e)
	ctx := context.Background()

	s.RecordSuccess(ctx)
	s.RecordFailure(ctx)

	assert.Equal(t, []types.InvitationStatus{types.StatusSuccess, types.StatusFailed}, e.outcomes)
}
