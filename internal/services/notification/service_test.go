package notification

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingSender captures deliveries and fails the first failures calls.
type recordingSender struct {
	mu       sync.Mutex
	got      []SideEffect
	failures int
}

func (r *recordingSender) Send(_ context.Context, effect SideEffect) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failures > 0 {
		r.failures--
		return errors.New("transport down")
	}
	r.got = append(r.got, effect)
	return nil
}

func (r *recordingSender) delivered() []SideEffect {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]SideEffect, len(r.got))
	copy(out, r.got)
	return out
}

func TestEnqueue_DeliversAndAssignsIDs(t *testing.T) {
	sender := &recordingSender{}
	s := NewService(map[string]Sender{KindEmail: sender})

	s.Enqueue(SideEffect{Kind: KindEmail, Recipient: "t@example.com", Subject: "Invite"})
	s.Enqueue(SideEffect{Kind: KindEmail, Recipient: "u@example.com", Subject: "Rent due"})
	s.Close()

	got := sender.delivered()
	require.Len(t, got, 2)
	assert.NotEmpty(t, got[0].ID)
	assert.NotEmpty(t, got[1].ID)
	assert.NotEqual(t, got[0].ID, got[1].ID)
	assert.Equal(t, "Invite", got[0].Subject)
}

func TestDeliver_RetriesWithBoundedAttempts(t *testing.T) {
	sender := &recordingSender{failures: 1}
	s := NewService(map[string]Sender{KindSMS: sender})

	s.Enqueue(SideEffect{Kind: KindSMS, Recipient: "+15550101", Body: "Work order assigned"})
	s.Close()

	got := sender.delivered()
	require.Len(t, got, 1, "a transient failure is retried, not dropped")
	assert.Equal(t, 1, got[0].Attempts)
}

func TestDeliver_GivesUpAfterMaxAttempts(t *testing.T) {
	sender := &recordingSender{failures: 100}
	s := NewService(map[string]Sender{KindSMS: sender})

	s.Enqueue(SideEffect{Kind: KindSMS, Recipient: "+15550101"})
	s.Close()

	assert.Empty(t, sender.delivered(), "delivery stops at the attempt cap")
}

func TestEnqueue_UnconfiguredKindFallsBackToLogging(t *testing.T) {
	s := NewService(nil)
	// Nothing to assert beyond not blocking or panicking: the log sender
	// swallows the effect.
	s.Enqueue(SideEffect{Kind: KindNotification, Recipient: "user:1", Subject: "x"})
	done := make(chan struct{})
	go func() {
		s.Close()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Close did not drain the queue")
	}
}
