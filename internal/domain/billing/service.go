package billing

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/careflow/careflow/internal/domain/visit"
)

// Service answers the payment-gate questions journey routing asks. Billing
// computation happens upstream; charges arrive here as recorded facts.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) RecordCharge(ctx context.Context, ch *Charge) error {
	if ch.VisitID == uuid.Nil {
		return fmt.Errorf("visit_id is required")
	}
	if !ValidCategory(ch.Category) {
		return fmt.Errorf("invalid charge category: %s", ch.Category)
	}
	if ch.AmountCents <= 0 {
		return fmt.Errorf("amount_cents must be positive")
	}
	return s.repo.CreateCharge(ctx, ch)
}

func (s *Service) SettleCharge(ctx context.Context, id, facilityID uuid.UUID) error {
	return s.repo.SettleCharge(ctx, id, facilityID)
}

func (s *Service) ListCharges(ctx context.Context, visitID, facilityID uuid.UUID) ([]*Charge, error) {
	return s.repo.ListByVisit(ctx, visitID, facilityID)
}

// PaymentStatus builds the per-visit gate-fact projection.
func (s *Service) PaymentStatus(ctx context.Context, visitID uuid.UUID) (*PaymentStatus, error) {
	unpaid, err := s.repo.UnpaidByCategory(ctx, visitID)
	if err != nil {
		return nil, fmt.Errorf("unpaid aggregates for visit %s: %w", visitID, err)
	}
	signed, err := s.repo.DischargeSummarySigned(ctx, visitID)
	if err != nil {
		return nil, fmt.Errorf("discharge summary fact for visit %s: %w", visitID, err)
	}

	status := &PaymentStatus{
		VisitID:                visitID,
		UnpaidConsultation:     unpaid[CategoryConsultation] > 0,
		UnpaidDiagnostics:      unpaid[CategoryDiagnostics] > 0,
		UnpaidPharmacy:         unpaid[CategoryPharmacy] > 0,
		DischargeSummarySigned: signed,
	}
	for _, cents := range unpaid {
		status.OutstandingCents += cents
	}
	return status, nil
}

// Facts implements visit.GateSource.
func (s *Service) Facts(ctx context.Context, visitID uuid.UUID) (visit.GateFacts, error) {
	status, err := s.PaymentStatus(ctx, visitID)
	if err != nil {
		return visit.GateFacts{}, err
	}
	return visit.GateFacts{
		UnpaidConsultation:     status.UnpaidConsultation,
		UnpaidDiagnostics:      status.UnpaidDiagnostics,
		UnpaidPharmacy:         status.UnpaidPharmacy,
		DischargeSummarySigned: status.DischargeSummarySigned,
	}, nil
}
