package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

const (
	maxOutboxRetries  = 5
	drainBatchSize    = 50
	defaultDrainEvery = 30 * time.Second
)

// NewRetryEntry wraps an event into an outbox entry carrying the same
// logical payload.
func NewRetryEntry(ev *Event) (*OutboxEntry, error) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("marshal audit event: %w", err)
	}
	return &OutboxEntry{
		EventType: EventTypeRetry,
		EntityID:  ev.EntityID,
		Payload:   payload,
		Status:    OutboxPending,
	}, nil
}

// OutboxWorker drains pending outbox entries back into the primary audit
// store. Entries that keep failing are retired after maxOutboxRetries.
type OutboxWorker struct {
	repo   Repository
	outbox OutboxRepository
	logger zerolog.Logger
	every  time.Duration
}

func NewOutboxWorker(repo Repository, outbox OutboxRepository, logger zerolog.Logger) *OutboxWorker {
	return &OutboxWorker{repo: repo, outbox: outbox, logger: logger, every: defaultDrainEvery}
}

// WithInterval overrides the polling interval. Zero or negative values are
// ignored.
func (w *OutboxWorker) WithInterval(d time.Duration) *OutboxWorker {
	if d > 0 {
		w.every = d
	}
	return w
}

// Run polls until ctx is cancelled. Call from a dedicated goroutine.
func (w *OutboxWorker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n, err := w.DrainOnce(ctx); err != nil {
				w.logger.Error().Err(err).Msg("audit outbox drain failed")
			} else if n > 0 {
				w.logger.Info().Int("recovered", n).Msg("audit outbox drained")
			}
		}
	}
}

// DrainOnce processes one batch of pending entries and returns the number of
// events recovered into the primary store.
func (w *OutboxWorker) DrainOnce(ctx context.Context) (int, error) {
	pending, err := w.outbox.ListPending(ctx, drainBatchSize)
	if err != nil {
		return 0, fmt.Errorf("list pending outbox entries: %w", err)
	}

	recovered := 0
	for _, entry := range pending {
		var ev Event
		if err := json.Unmarshal(entry.Payload, &ev); err != nil {
			// Unparseable payloads can never succeed; retire immediately.
			if mErr := w.outbox.MarkFailed(ctx, entry.ID, "unparseable payload: "+err.Error()); mErr != nil {
				return recovered, mErr
			}
			continue
		}

		if err := w.repo.Insert(ctx, &ev); err != nil {
			if mErr := w.outbox.MarkFailed(ctx, entry.ID, err.Error()); mErr != nil {
				return recovered, mErr
			}
			continue
		}
		if err := w.outbox.MarkProcessed(ctx, entry.ID); err != nil {
			return recovered, err
		}
		recovered++
	}
	return recovered, nil
}
