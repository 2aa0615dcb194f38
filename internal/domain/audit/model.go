package audit

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event is a durable record of who did what to which entity when, tagged
// with the compliance metadata reviewers filter on.
type Event struct {
	ID         uuid.UUID  `db:"id" json:"id"`
	Action     string     `db:"action" json:"action"`
	EntityType string     `db:"entity_type" json:"entity_type"`
	EntityID   uuid.UUID  `db:"entity_id" json:"entity_id"`
	ActorID    *uuid.UUID `db:"actor_id" json:"actor_id,omitempty"`
	ActorRole  string     `db:"actor_role" json:"actor_role"`
	FacilityID uuid.UUID  `db:"facility_id" json:"facility_id"`
	TenantID   string     `db:"tenant_id" json:"tenant_id"`

	// Forced is true exactly when the recorded action bypassed validation
	// through the override path.
	Forced bool `db:"forced" json:"forced"`

	Sensitivity        string          `db:"sensitivity" json:"sensitivity"`
	ComplianceCategory string          `db:"compliance_category" json:"compliance_category"`
	Metadata           json.RawMessage `db:"metadata" json:"metadata,omitempty"`
	Recorded           time.Time       `db:"recorded" json:"recorded"`
	CreatedAt          time.Time       `db:"created_at" json:"created_at"`
}

// Sensitivity levels and compliance categories used on journey events.
const (
	SensitivityClinical = "clinical"
	SensitivityRoutine  = "routine"

	CategoryJourney = "visit_journey"
	CategoryAccess  = "record_access"
)

// OutboxStatus tracks an outbox entry through the retry lifecycle.
type OutboxStatus string

const (
	OutboxPending   OutboxStatus = "pending"
	OutboxProcessed OutboxStatus = "processed"
	OutboxFailed    OutboxStatus = "failed"
)

// OutboxEntry is the fallback record written when the primary audit write
// fails: the same event payload, marked for retry, so that no mutation is
// ever silently unaudited.
type OutboxEntry struct {
	ID          uuid.UUID       `db:"id" json:"id"`
	EventType   string          `db:"event_type" json:"event_type"`
	EntityID    uuid.UUID       `db:"entity_id" json:"entity_id"`
	Payload     json.RawMessage `db:"payload" json:"payload"`
	Status      OutboxStatus    `db:"status" json:"status"`
	Retries     int             `db:"retries" json:"retries"`
	LastError   *string         `db:"last_error" json:"last_error,omitempty"`
	ProcessedAt *time.Time      `db:"processed_at" json:"processed_at,omitempty"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
}

// EventTypeRetry marks outbox entries carrying an audit event awaiting
// re-insert into the primary store.
const EventTypeRetry = "audit_event_retry"
