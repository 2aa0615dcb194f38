package clinical

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

func (r *repoPG) conn(ctx context.Context) querier {
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

func (r *repoPG) Create(ctx context.Context, ds *DischargeSummary) error {
	ds.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO discharge_summary (id, visit_id, author_id, body, signed)
		VALUES ($1,$2,$3,$4,FALSE)`,
		ds.ID, ds.VisitID, ds.AuthorID, ds.Body,
	)
	return err
}

func (r *repoPG) GetByVisit(ctx context.Context, visitID uuid.UUID) (*DischargeSummary, error) {
	row := r.conn(ctx).QueryRow(ctx, `
		SELECT id, visit_id, author_id, body, signed, signed_at, created_at
		FROM discharge_summary WHERE visit_id = $1
		ORDER BY created_at DESC LIMIT 1`, visitID)

	var ds DischargeSummary
	err := row.Scan(&ds.ID, &ds.VisitID, &ds.AuthorID, &ds.Body, &ds.Signed, &ds.SignedAt, &ds.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &ds, nil
}

func (r *repoPG) Sign(ctx context.Context, id uuid.UUID, authorID uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE discharge_summary SET signed = TRUE, signed_at = NOW(), author_id = $2
		WHERE id = $1 AND NOT signed`, id, authorID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := r.conn(ctx).QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM discharge_summary WHERE id = $1)`, id).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return ErrNotFound
		}
		return ErrAlreadySigned
	}
	return nil
}
