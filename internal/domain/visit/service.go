package visit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/careflow/careflow/internal/domain/audit"
)

// GateSource resolves the gate-fact snapshot for a visit. Implemented by the
// billing service; faked in tests.
type GateSource interface {
	Facts(ctx context.Context, visitID uuid.UUID) (GateFacts, error)
}

// AuditSink is the strict-capable recorder journey mutations report to.
type AuditSink interface {
	Record(ctx context.Context, ev *audit.Event, strict bool) error
}

// routeAttempts bounds the optimistic retry on stage conflicts.
const routeAttempts = 3

// Service is the visit journey orchestrator: it composes the stage catalog,
// routing validator, override authority, journey ledger and audit recorder
// into the route and milestone operations.
type Service struct {
	repo     Repository
	gates    GateSource
	override OverrideAuthority
	recorder AuditSink
	logger   zerolog.Logger
}

func NewService(repo Repository, gates GateSource, recorder AuditSink, logger zerolog.Logger) *Service {
	return &Service{repo: repo, gates: gates, recorder: recorder, logger: logger}
}

// CreateVisit registers a new visit for the actor's facility and records the
// initial "registered" milestone on the timeline.
func (s *Service) CreateVisit(ctx context.Context, patientID uuid.UUID, actor Actor) (*Visit, error) {
	if patientID == uuid.Nil {
		return nil, fmt.Errorf("patient_id is required")
	}
	v := &Visit{
		PatientID:     patientID,
		FacilityID:    actor.FacilityID,
		CurrentStage:  StageRegistered,
		RoutingStatus: RoutingStable,
	}
	if err := s.repo.Create(ctx, v); err != nil {
		return nil, fmt.Errorf("create visit: %w", err)
	}

	entry := &StageEntry{Stage: StageRegistered, ActorID: actorRef(actor)}
	if err := s.repo.AppendStage(ctx, v.ID, v.FacilityID, StageRegistered, RoutingStable, entry); err != nil {
		return nil, fmt.Errorf("record registration milestone: %w", err)
	}
	if err := s.recordJourneyEvent(ctx, "visit_registered", v.ID, StageRegistered, StageRegistered, false, actor); err != nil {
		return v, err
	}
	return v, nil
}

// Route performs a validated (or forced) transition to the destination stage.
//
// Scope and privilege violations are rejected before any state is touched.
// The read-validate-append sequence retries on stage conflicts so that a
// racing caller either wins cleanly, revalidates against the fresh stage, or
// fails with a consistent error. A destination equal to the current stage is
// an idempotent no-op: success, no timeline entry, no audit event.
func (s *Service) Route(ctx context.Context, visitID uuid.UUID, destination string, force bool, actor Actor) (*RouteResult, error) {
	dest, err := ParseStage(destination)
	if err != nil {
		return nil, err
	}

	if force && !s.override.CanForce(actor.Roles) {
		s.logger.Warn().
			Str("visit_id", visitID.String()).
			Str("actor_id", actor.ID.String()).
			Strs("roles", actor.Roles).
			Str("destination", string(dest)).
			Msg("force routing attempt rejected")
		return nil, ErrForbidden
	}

	for attempt := 0; attempt < routeAttempts; attempt++ {
		v, err := s.visitInScope(ctx, visitID, actor)
		if err != nil {
			return nil, err
		}

		if dest == v.CurrentStage {
			return &RouteResult{Stage: v.CurrentStage, RoutingStatus: v.RoutingStatus}, nil
		}

		status := RoutingStable
		if force {
			// Invariants were not re-verified; downstream consumers may need
			// to reconcile.
			status = RoutingInProgress
		} else {
			facts, err := s.gates.Facts(ctx, visitID)
			if err != nil {
				return nil, fmt.Errorf("resolve gate facts: %w", err)
			}
			if err := ValidateTransition(v.CurrentStage, dest, facts); err != nil {
				return nil, err
			}
		}

		entry := &StageEntry{Stage: dest, ActorID: actorRef(actor), Forced: force}
		err = s.repo.AppendStage(ctx, visitID, actor.FacilityID, v.CurrentStage, status, entry)
		if err == ErrStageConflict {
			continue
		}
		if err != nil {
			return nil, err
		}

		if err := s.recordJourneyEvent(ctx, "stage_routed", visitID, v.CurrentStage, dest, force, actor); err != nil {
			return nil, err
		}
		return &RouteResult{Stage: dest, RoutingStatus: status, Forced: force}, nil
	}

	return nil, ErrStageConflict
}

// AppendMilestone unconditionally records a stage for system-internal
// milestones. It bypasses gates but still serializes against concurrent
// routing through the conditional append.
func (s *Service) AppendMilestone(ctx context.Context, visitID uuid.UUID, stage string, actor Actor) (*RouteResult, error) {
	st, err := ParseStage(stage)
	if err != nil {
		return nil, err
	}

	for attempt := 0; attempt < routeAttempts; attempt++ {
		v, err := s.visitInScope(ctx, visitID, actor)
		if err != nil {
			return nil, err
		}

		if st == v.CurrentStage {
			return &RouteResult{Stage: v.CurrentStage, RoutingStatus: v.RoutingStatus}, nil
		}

		entry := &StageEntry{Stage: st, ActorID: actorRef(actor)}
		err = s.repo.AppendStage(ctx, visitID, actor.FacilityID, v.CurrentStage, RoutingStable, entry)
		if err == ErrStageConflict {
			continue
		}
		if err != nil {
			return nil, err
		}

		if err := s.recordJourneyEvent(ctx, "milestone_recorded", visitID, v.CurrentStage, st, false, actor); err != nil {
			return nil, err
		}
		return &RouteResult{Stage: st, RoutingStatus: RoutingStable}, nil
	}

	return nil, ErrStageConflict
}

func (s *Service) GetVisit(ctx context.Context, id uuid.UUID, actor Actor) (*Visit, error) {
	return s.visitInScope(ctx, id, actor)
}

func (s *Service) Timeline(ctx context.Context, id uuid.UUID, actor Actor) ([]*StageEntry, error) {
	if _, err := s.visitInScope(ctx, id, actor); err != nil {
		return nil, err
	}
	return s.repo.Timeline(ctx, id)
}

// visitInScope resolves the visit and enforces facility ownership. A visit
// held by another facility is a scope violation, not a missing record.
func (s *Service) visitInScope(ctx context.Context, id uuid.UUID, actor Actor) (*Visit, error) {
	v, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if v.FacilityID != actor.FacilityID {
		return nil, ErrForbidden
	}
	return v, nil
}

func (s *Service) ListActive(ctx context.Context, actor Actor, limit, offset int) ([]*Visit, int, error) {
	return s.repo.ListActive(ctx, actor.FacilityID, limit, offset)
}

// recordJourneyEvent writes the strict audit record paired with a committed
// journey mutation. Its error (if any) is the audit durability failure the
// caller must propagate even though the mutation stands.
func (s *Service) recordJourneyEvent(ctx context.Context, action string, visitID uuid.UUID, from, to Stage, forced bool, actor Actor) error {
	meta, _ := json.Marshal(map[string]interface{}{
		"from":   from,
		"to":     to,
		"forced": forced,
	})
	ev := &audit.Event{
		Action:             action,
		EntityType:         "visit",
		EntityID:           visitID,
		ActorID:            actorRef(actor),
		ActorRole:          primaryRole(actor),
		FacilityID:         actor.FacilityID,
		Forced:             forced,
		Sensitivity:        audit.SensitivityClinical,
		ComplianceCategory: audit.CategoryJourney,
		Metadata:           meta,
	}
	return s.recorder.Record(ctx, ev, true)
}

func actorRef(actor Actor) *uuid.UUID {
	if actor.ID == uuid.Nil {
		return nil
	}
	id := actor.ID
	return &id
}

func primaryRole(actor Actor) string {
	if len(actor.Roles) == 0 {
		return "system"
	}
	return actor.Roles[0]
}
