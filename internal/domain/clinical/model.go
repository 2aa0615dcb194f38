package clinical

import (
	"time"

	"github.com/google/uuid"
)

// DischargeSummary is the clinical note that must be signed before a visit
// can be routed to discharged.
type DischargeSummary struct {
	ID        uuid.UUID  `db:"id" json:"id"`
	VisitID   uuid.UUID  `db:"visit_id" json:"visit_id"`
	AuthorID  *uuid.UUID `db:"author_id" json:"author_id,omitempty"`
	Body      string     `db:"body" json:"body"`
	Signed    bool       `db:"signed" json:"signed"`
	SignedAt  *time.Time `db:"signed_at" json:"signed_at,omitempty"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
}
