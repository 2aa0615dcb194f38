package billing

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	CreateCharge(ctx context.Context, ch *Charge) error
	SettleCharge(ctx context.Context, id, facilityID uuid.UUID) error
	ListByVisit(ctx context.Context, visitID, facilityID uuid.UUID) ([]*Charge, error)

	// UnpaidByCategory returns, per category, the outstanding amount in
	// cents for the visit. Categories with no unpaid charges are absent.
	UnpaidByCategory(ctx context.Context, visitID uuid.UUID) (map[ChargeCategory]int64, error)

	// DischargeSummarySigned reads the clinical collaborator's fact: whether
	// a signed discharge narrative exists for the visit.
	DischargeSummarySigned(ctx context.Context, visitID uuid.UUID) (bool, error)
}
