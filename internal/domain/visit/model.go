package visit

import (
	"time"

	"github.com/google/uuid"
)

// RoutingStatus distinguishes a cleanly-validated transition from a forced
// one whose business invariants were not re-verified.
type RoutingStatus string

const (
	RoutingStable     RoutingStatus = "stable"
	RoutingInProgress RoutingStatus = "routing_in_progress"
)

// Visit maps to the visit table. Identity fields are immutable once created;
// the visit is owned by the facility that created it.
type Visit struct {
	ID            uuid.UUID     `db:"id" json:"id"`
	PatientID     uuid.UUID     `db:"patient_id" json:"patient_id"`
	FacilityID    uuid.UUID     `db:"facility_id" json:"facility_id"`
	TenantID      string        `db:"tenant_id" json:"tenant_id"`
	CurrentStage  Stage         `db:"current_journey_stage" json:"current_stage"`
	RoutingStatus RoutingStatus `db:"routing_status" json:"routing_status"`
	CreatedAt     time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time     `db:"updated_at" json:"updated_at"`
}

// StageEntry maps to the visit_stage_entry table: one point in the journey
// timeline. Entries are append-only; insertion order is chronological order.
type StageEntry struct {
	ID        uuid.UUID  `db:"id" json:"id"`
	VisitID   uuid.UUID  `db:"visit_id" json:"visit_id"`
	Stage     Stage      `db:"stage" json:"stage"`
	EnteredAt time.Time  `db:"entered_at" json:"entered_at"`
	ActorID   *uuid.UUID `db:"actor_id" json:"actor_id,omitempty"`
	Forced    bool       `db:"forced" json:"forced"`
}

// Actor is the staff member (or system process) behind a journey operation,
// resolved from the request's identity claims.
type Actor struct {
	ID         uuid.UUID
	FacilityID uuid.UUID
	Roles      []string
}

// System returns a zero-identity actor for system-initiated milestones.
// Entries it causes carry a NULL actor_id.
func System(facilityID uuid.UUID) Actor {
	return Actor{FacilityID: facilityID}
}

// RouteResult is the outcome of a successful route or milestone append.
type RouteResult struct {
	Stage         Stage         `json:"stage"`
	RoutingStatus RoutingStatus `json:"routing_status"`
	Forced        bool          `json:"forced,omitempty"`
}
