package clinical

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, ds *DischargeSummary) error
	GetByVisit(ctx context.Context, visitID uuid.UUID) (*DischargeSummary, error)
	Sign(ctx context.Context, id uuid.UUID, authorID uuid.UUID) error
}
