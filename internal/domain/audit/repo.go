package audit

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Insert(ctx context.Context, ev *Event) error
	GetByID(ctx context.Context, id uuid.UUID) (*Event, error)
	Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Event, int, error)
}

// OutboxRepository is the fallback store. Append-only for writers; the drain
// worker owns status transitions.
type OutboxRepository interface {
	Insert(ctx context.Context, entry *OutboxEntry) error
	ListPending(ctx context.Context, limit int) ([]*OutboxEntry, error)
	MarkProcessed(ctx context.Context, id uuid.UUID) error
	MarkFailed(ctx context.Context, id uuid.UUID, cause string) error
}
