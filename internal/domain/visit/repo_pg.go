package visit

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/careflow/careflow/internal/platform/db"
)

type repoPG struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

type beginner interface {
	querier
	Begin(ctx context.Context) (pgx.Tx, error)
}

func (r *repoPG) conn(ctx context.Context) beginner {
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const visitCols = `id, patient_id, facility_id, tenant_id,
	current_journey_stage, routing_status, created_at, updated_at`

func (r *repoPG) Create(ctx context.Context, v *Visit) error {
	v.ID = uuid.New()
	if v.CurrentStage == "" {
		v.CurrentStage = StageRegistered
	}
	if v.RoutingStatus == "" {
		v.RoutingStatus = RoutingStable
	}
	if v.TenantID == "" {
		v.TenantID = db.TenantFromContext(ctx)
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO visit (id, patient_id, facility_id, tenant_id, current_journey_stage, routing_status)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		v.ID, v.PatientID, v.FacilityID, v.TenantID, v.CurrentStage, v.RoutingStatus,
	)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Visit, error) {
	row := r.conn(ctx).QueryRow(ctx,
		`SELECT `+visitCols+` FROM visit WHERE id = $1`, id)
	v, err := scanVisit(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return v, err
}

// AppendStage performs the read-validate-write sequence's write half as one
// transaction: a conditional update keyed on the expected previous stage,
// then the timeline insert. Two racing appends against the same visit cannot
// both succeed; the loser sees ErrStageConflict.
func (r *repoPG) AppendStage(ctx context.Context, id, facilityID uuid.UUID, expected Stage, status RoutingStatus, entry *StageEntry) error {
	tx, err := r.conn(ctx).Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE visit
		SET current_journey_stage = $3, routing_status = $4, updated_at = NOW()
		WHERE id = $1 AND facility_id = $2 AND current_journey_stage = $5`,
		id, facilityID, entry.Stage, status, expected,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := tx.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM visit WHERE id = $1 AND facility_id = $2)`,
			id, facilityID).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return ErrNotFound
		}
		return ErrStageConflict
	}

	entry.ID = uuid.New()
	entry.VisitID = id
	_, err = tx.Exec(ctx, `
		INSERT INTO visit_stage_entry (id, visit_id, stage, entered_at, actor_id, forced)
		VALUES ($1,$2,$3,NOW(),$4,$5)`,
		entry.ID, entry.VisitID, entry.Stage, entry.ActorID, entry.Forced,
	)
	if err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *repoPG) Timeline(ctx context.Context, id uuid.UUID) ([]*StageEntry, error) {
	if _, err := r.GetByID(ctx, id); err != nil {
		return nil, err
	}
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, visit_id, stage, entered_at, actor_id, forced
		FROM visit_stage_entry WHERE visit_id = $1 ORDER BY entered_at, id`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*StageEntry
	for rows.Next() {
		var e StageEntry
		if err := rows.Scan(&e.ID, &e.VisitID, &e.Stage, &e.EnteredAt, &e.ActorID, &e.Forced); err != nil {
			return nil, err
		}
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}

func (r *repoPG) ListActive(ctx context.Context, facilityID uuid.UUID, limit, offset int) ([]*Visit, int, error) {
	terminal := make([]string, 0, 1)
	for _, s := range AllStages() {
		if IsTerminal(s) {
			terminal = append(terminal, string(s))
		}
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `
		SELECT COUNT(*) FROM visit
		WHERE facility_id = $1 AND NOT (current_journey_stage = ANY($2))`,
		facilityID, terminal).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+visitCols+` FROM visit
		WHERE facility_id = $1 AND NOT (current_journey_stage = ANY($2))
		ORDER BY created_at DESC LIMIT $3 OFFSET $4`,
		facilityID, terminal, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var visits []*Visit
	for rows.Next() {
		v, err := scanVisit(rows)
		if err != nil {
			return nil, 0, err
		}
		visits = append(visits, v)
	}
	return visits, total, rows.Err()
}

func scanVisit(row pgx.Row) (*Visit, error) {
	var v Visit
	err := row.Scan(
		&v.ID, &v.PatientID, &v.FacilityID, &v.TenantID,
		&v.CurrentStage, &v.RoutingStatus, &v.CreatedAt, &v.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &v, nil
}
