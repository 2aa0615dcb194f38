package billing

import (
	"time"

	"github.com/google/uuid"
)

// ChargeCategory groups charges by the journey gate they feed.
type ChargeCategory string

const (
	CategoryConsultation ChargeCategory = "consultation"
	CategoryDiagnostics  ChargeCategory = "diagnostics"
	CategoryPharmacy     ChargeCategory = "pharmacy"
)

func ValidCategory(c ChargeCategory) bool {
	switch c {
	case CategoryConsultation, CategoryDiagnostics, CategoryPharmacy:
		return true
	}
	return false
}

// Charge maps to the billing_charge table. The amount is a recorded fact;
// how it was computed is outside this system.
type Charge struct {
	ID          uuid.UUID      `db:"id" json:"id"`
	VisitID     uuid.UUID      `db:"visit_id" json:"visit_id"`
	FacilityID  uuid.UUID      `db:"facility_id" json:"facility_id"`
	Category    ChargeCategory `db:"category" json:"category"`
	Description string         `db:"description" json:"description"`
	AmountCents int64          `db:"amount_cents" json:"amount_cents"`
	Paid        bool           `db:"paid" json:"paid"`
	PaidAt      *time.Time     `db:"paid_at" json:"paid_at,omitempty"`
	CreatedAt   time.Time      `db:"created_at" json:"created_at"`
}

// PaymentStatus is the per-visit unpaid-balance projection that journey
// routing reads as gate facts.
type PaymentStatus struct {
	VisitID                uuid.UUID `json:"visit_id"`
	UnpaidConsultation     bool      `json:"unpaid_consultation"`
	UnpaidDiagnostics      bool      `json:"unpaid_diagnostics"`
	UnpaidPharmacy         bool      `json:"unpaid_pharmacy"`
	OutstandingCents       int64     `json:"outstanding_cents"`
	DischargeSummarySigned bool      `json:"discharge_summary_signed"`
}
