package billing

import (
	"context"
	"fmt"

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

func (r *repoPG) conn(ctx context.Context) querier {
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const chargeCols = `id, visit_id, facility_id, category, description, amount_cents, paid, paid_at, created_at`

func (r *repoPG) CreateCharge(ctx context.Context, ch *Charge) error {
	ch.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO billing_charge (id, visit_id, facility_id, category, description, amount_cents, paid)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		ch.ID, ch.VisitID, ch.FacilityID, ch.Category, ch.Description, ch.AmountCents, ch.Paid,
	)
	return err
}

func (r *repoPG) SettleCharge(ctx context.Context, id, facilityID uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE billing_charge SET paid = TRUE, paid_at = NOW()
		WHERE id = $1 AND facility_id = $2 AND NOT paid`,
		id, facilityID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("charge %s: not found or already settled", id)
	}
	return nil
}

func (r *repoPG) ListByVisit(ctx context.Context, visitID, facilityID uuid.UUID) ([]*Charge, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+chargeCols+` FROM billing_charge
		WHERE visit_id = $1 AND facility_id = $2 ORDER BY created_at`, visitID, facilityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var charges []*Charge
	for rows.Next() {
		var ch Charge
		if err := rows.Scan(&ch.ID, &ch.VisitID, &ch.FacilityID, &ch.Category, &ch.Description,
			&ch.AmountCents, &ch.Paid, &ch.PaidAt, &ch.CreatedAt); err != nil {
			return nil, err
		}
		charges = append(charges, &ch)
	}
	return charges, rows.Err()
}

func (r *repoPG) UnpaidByCategory(ctx context.Context, visitID uuid.UUID) (map[ChargeCategory]int64, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT category, SUM(amount_cents)
		FROM billing_charge WHERE visit_id = $1 AND NOT paid
		GROUP BY category`, visitID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	unpaid := make(map[ChargeCategory]int64)
	for rows.Next() {
		var cat ChargeCategory
		var cents int64
		if err := rows.Scan(&cat, &cents); err != nil {
			return nil, err
		}
		unpaid[cat] = cents
	}
	return unpaid, rows.Err()
}

func (r *repoPG) DischargeSummarySigned(ctx context.Context, visitID uuid.UUID) (bool, error) {
	var signed bool
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM discharge_summary WHERE visit_id = $1 AND signed
		)`, visitID).Scan(&signed)
	return signed, err
}
