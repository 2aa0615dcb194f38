package audit

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

func pendingEntry(t *testing.T, outbox *mockOutbox) *OutboxEntry {
	t.Helper()
	entry, err := NewRetryEntry(journeyEvent())
	if err != nil {
		t.Fatalf("build retry entry: %v", err)
	}
	if err := outbox.Insert(context.Background(), entry); err != nil {
		t.Fatalf("insert outbox entry: %v", err)
	}
	return entry
}

func TestDrainOnce_RecoversPending(t *testing.T) {
	repo := newMockRepo()
	outbox := newMockOutbox()
	pendingEntry(t, outbox)
	pendingEntry(t, outbox)

	worker := NewOutboxWorker(repo, outbox, zerolog.Nop())
	n, err := worker.DrainOnce(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 recovered events, got %d", n)
	}
	if len(repo.events) != 2 {
		t.Errorf("expected 2 primary events, got %d", len(repo.events))
	}
	if outbox.pendingCount() != 0 {
		t.Errorf("expected no pending entries, got %d", outbox.pendingCount())
	}
}

func TestDrainOnce_PrimaryStillDown(t *testing.T) {
	repo := newMockRepo()
	repo.insertErr = errors.New("primary still down")
	outbox := newMockOutbox()
	entry := pendingEntry(t, outbox)

	worker := NewOutboxWorker(repo, outbox, zerolog.Nop())
	n, err := worker.DrainOnce(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 0 {
		t.Errorf("expected 0 recovered events, got %d", n)
	}
	if entry.Retries != 1 {
		t.Errorf("expected 1 retry recorded, got %d", entry.Retries)
	}
	if entry.Status != OutboxPending {
		t.Errorf("entry must stay pending below the retry cap, got %s", entry.Status)
	}
}

func TestDrainOnce_RetiresAfterMaxRetries(t *testing.T) {
	repo := newMockRepo()
	repo.insertErr = errors.New("primary still down")
	outbox := newMockOutbox()
	entry := pendingEntry(t, outbox)

	worker := NewOutboxWorker(repo, outbox, zerolog.Nop())
	for i := 0; i < maxOutboxRetries; i++ {
		if _, err := worker.DrainOnce(context.Background()); err != nil {
			t.Fatalf("drain %d: %v", i, err)
		}
	}
	if entry.Status != OutboxFailed {
		t.Errorf("expected entry retired as failed, got %s", entry.Status)
	}
	if entry.LastError == nil {
		t.Error("expected last_error to be recorded")
	}
}

func TestDrainOnce_UnparseablePayloadRetired(t *testing.T) {
	repo := newMockRepo()
	outbox := newMockOutbox()
	entry := &OutboxEntry{
		EventType: EventTypeRetry,
		EntityID:  uuid.New(),
		Payload:   json.RawMessage(`{not json`),
		Status:    OutboxPending,
	}
	if err := outbox.Insert(context.Background(), entry); err != nil {
		t.Fatalf("insert: %v", err)
	}

	worker := NewOutboxWorker(repo, outbox, zerolog.Nop())
	if _, err := worker.DrainOnce(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(repo.events) != 0 {
		t.Error("unparseable payload must not reach the primary store")
	}
	if entry.Retries != 1 {
		t.Errorf("expected retirement attempt recorded, got %d retries", entry.Retries)
	}
}

func TestRun_StopsOnCancel(t *testing.T) {
	repo := newMockRepo()
	outbox := newMockOutbox()
	worker := NewOutboxWorker(repo, outbox, zerolog.Nop()).WithInterval(time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		worker.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop on context cancel")
	}
}

func TestWithInterval_IgnoresNonPositive(t *testing.T) {
	worker := NewOutboxWorker(newMockRepo(), newMockOutbox(), zerolog.Nop())
	if worker.WithInterval(0).every != defaultDrainEvery {
		t.Error("zero interval must be ignored")
	}
	if worker.WithInterval(-time.Second).every != defaultDrainEvery {
		t.Error("negative interval must be ignored")
	}
	if worker.WithInterval(time.Minute).every != time.Minute {
		t.Error("positive interval must be applied")
	}
}
