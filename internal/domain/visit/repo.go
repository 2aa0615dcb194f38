package visit

import (
	"context"

	"github.com/google/uuid"
)

// Repository is the journey ledger's storage contract. AppendStage is the
// only write against an existing visit: a single atomic
// read-current-stage-then-append keyed on the expected previous stage.
type Repository interface {
	Create(ctx context.Context, v *Visit) error

	// GetByID resolves a visit by id. Facility scope is enforced by the
	// service, which must distinguish a foreign visit from a missing one.
	GetByID(ctx context.Context, id uuid.UUID) (*Visit, error)

	// AppendStage moves the visit to entry.Stage and appends the timeline
	// entry in one atomic operation, conditional on the visit still being at
	// expected. Returns ErrStageConflict when the condition fails and
	// ErrNotFound when the visit does not resolve in the facility scope.
	AppendStage(ctx context.Context, id, facilityID uuid.UUID, expected Stage, status RoutingStatus, entry *StageEntry) error

	// Timeline returns the visit's stage entries in insertion order.
	Timeline(ctx context.Context, id uuid.UUID) ([]*StageEntry, error)

	// ListActive returns visits not yet in a terminal stage, facility-scoped.
	ListActive(ctx context.Context, facilityID uuid.UUID, limit, offset int) ([]*Visit, int, error)
}
