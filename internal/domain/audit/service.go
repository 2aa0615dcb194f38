package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/careflow/careflow/internal/platform/db"
)

// DurabilityError reports that both the primary audit write and the outbox
// fallback failed after the underlying state mutation already committed. The
// caller must surface it: the visible state is authoritative but the audit
// trail needs reconciliation.
type DurabilityError struct {
	Primary error
	Outbox  error
}

func (e *DurabilityError) Error() string {
	return fmt.Sprintf("audit durability lost: primary write: %v; outbox write: %v", e.Primary, e.Outbox)
}

func (e *DurabilityError) Unwrap() error { return e.Primary }

// Recorder persists audit events with an explicit durability contract.
//
// Non-strict mode is for read-only events: a failure is logged and swallowed.
// Strict mode is for events paired with a committed mutation: a primary
// failure falls back to the outbox, and a double failure returns a
// *DurabilityError.
type Recorder struct {
	repo   Repository
	outbox OutboxRepository
	logger zerolog.Logger
}

func NewRecorder(repo Repository, outbox OutboxRepository, logger zerolog.Logger) *Recorder {
	return &Recorder{repo: repo, outbox: outbox, logger: logger}
}

// Record persists ev. See the Recorder contract for the strict semantics.
func (r *Recorder) Record(ctx context.Context, ev *Event, strict bool) error {
	if ev.Recorded.IsZero() {
		ev.Recorded = time.Now().UTC()
	}
	if ev.ID == uuid.Nil {
		ev.ID = uuid.New()
	}
	if ev.TenantID == "" {
		ev.TenantID = db.TenantFromContext(ctx)
	}

	primaryErr := r.repo.Insert(ctx, ev)
	if primaryErr == nil {
		return nil
	}

	if !strict {
		r.logger.Error().Err(primaryErr).
			Str("action", ev.Action).
			Str("entity_id", ev.EntityID.String()).
			Msg("audit write failed (non-strict, dropped)")
		return nil
	}

	entry, err := NewRetryEntry(ev)
	if err != nil {
		return &DurabilityError{Primary: primaryErr, Outbox: err}
	}
	if outboxErr := r.outbox.Insert(ctx, entry); outboxErr != nil {
		r.logger.Error().Err(outboxErr).AnErr("primary", primaryErr).
			Str("entity_id", ev.EntityID.String()).
			Msg("audit outbox write failed after primary failure")
		return &DurabilityError{Primary: primaryErr, Outbox: outboxErr}
	}

	r.logger.Warn().Err(primaryErr).
		Str("outbox_id", entry.ID.String()).
		Str("entity_id", ev.EntityID.String()).
		Msg("audit write deferred to outbox")
	return nil
}
