package audit

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/careflow/careflow/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type repoPG struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) conn(ctx context.Context) queryable {
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const eventCols = `id, action, entity_type, entity_id, actor_id, actor_role,
	facility_id, tenant_id, forced, sensitivity, compliance_category,
	metadata, recorded, created_at`

func (r *repoPG) Insert(ctx context.Context, ev *Event) error {
	if ev.ID == uuid.Nil {
		ev.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO audit_event (
			id, action, entity_type, entity_id, actor_id, actor_role,
			facility_id, tenant_id, forced, sensitivity, compliance_category,
			metadata, recorded
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`,
		ev.ID, ev.Action, ev.EntityType, ev.EntityID, ev.ActorID, ev.ActorRole,
		ev.FacilityID, ev.TenantID, ev.Forced, ev.Sensitivity, ev.ComplianceCategory,
		ev.Metadata, ev.Recorded,
	)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Event, error) {
	row := r.conn(ctx).QueryRow(ctx,
		`SELECT `+eventCols+` FROM audit_event WHERE id = $1`, id)
	ev, err := scanEvent(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("audit event %s: not found", id)
	}
	return ev, err
}

func (r *repoPG) Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Event, int, error) {
	where := []string{}
	args := []interface{}{}
	idx := 1

	if v, ok := params["action"]; ok {
		where = append(where, fmt.Sprintf("action = $%d", idx))
		args = append(args, v)
		idx++
	}
	if v, ok := params["entity-type"]; ok {
		where = append(where, fmt.Sprintf("entity_type = $%d", idx))
		args = append(args, v)
		idx++
	}
	if v, ok := params["entity"]; ok {
		where = append(where, fmt.Sprintf("entity_id = $%d", idx))
		args = append(args, v)
		idx++
	}
	if v, ok := params["category"]; ok {
		where = append(where, fmt.Sprintf("compliance_category = $%d", idx))
		args = append(args, v)
		idx++
	}
	if v, ok := params["forced"]; ok {
		where = append(where, fmt.Sprintf("forced = $%d", idx))
		args = append(args, v == "true")
		idx++
	}
	if v, ok := params["facility"]; ok {
		where = append(where, fmt.Sprintf("facility_id = $%d", idx))
		args = append(args, v)
		idx++
	}

	whereClause := ""
	if len(where) > 0 {
		whereClause = "WHERE " + strings.Join(where, " AND ")
	}

	var total int
	countQ := fmt.Sprintf("SELECT COUNT(*) FROM audit_event %s", whereClause)
	if err := r.conn(ctx).QueryRow(ctx, countQ, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	q := fmt.Sprintf("SELECT %s FROM audit_event %s ORDER BY recorded DESC LIMIT $%d OFFSET $%d",
		eventCols, whereClause, idx, idx+1)
	args = append(args, limit, offset)

	rows, err := r.conn(ctx).Query(ctx, q, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var events []*Event
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, 0, err
		}
		events = append(events, ev)
	}
	return events, total, rows.Err()
}

func scanEvent(row pgx.Row) (*Event, error) {
	var ev Event
	err := row.Scan(
		&ev.ID, &ev.Action, &ev.EntityType, &ev.EntityID, &ev.ActorID, &ev.ActorRole,
		&ev.FacilityID, &ev.TenantID, &ev.Forced, &ev.Sensitivity, &ev.ComplianceCategory,
		&ev.Metadata, &ev.Recorded, &ev.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &ev, nil
}

type outboxRepoPG struct {
	pool *pgxpool.Pool
}

func NewOutboxRepo(pool *pgxpool.Pool) OutboxRepository {
	return &outboxRepoPG{pool: pool}
}

func (r *outboxRepoPG) conn(ctx context.Context) queryable {
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

func (r *outboxRepoPG) Insert(ctx context.Context, entry *OutboxEntry) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.Status == "" {
		entry.Status = OutboxPending
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO audit_outbox (id, event_type, entity_id, payload, status)
		VALUES ($1,$2,$3,$4,$5)`,
		entry.ID, entry.EventType, entry.EntityID, entry.Payload, entry.Status,
	)
	return err
}

func (r *outboxRepoPG) ListPending(ctx context.Context, limit int) ([]*OutboxEntry, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, event_type, entity_id, payload, status, retries, last_error, processed_at, created_at
		FROM audit_outbox WHERE status = $1 ORDER BY created_at LIMIT $2`,
		OutboxPending, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*OutboxEntry
	for rows.Next() {
		var e OutboxEntry
		if err := rows.Scan(&e.ID, &e.EventType, &e.EntityID, &e.Payload, &e.Status,
			&e.Retries, &e.LastError, &e.ProcessedAt, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}

func (r *outboxRepoPG) MarkProcessed(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE audit_outbox SET status = $2, processed_at = NOW() WHERE id = $1`,
		id, OutboxProcessed)
	return err
}

func (r *outboxRepoPG) MarkFailed(ctx context.Context, id uuid.UUID, cause string) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE audit_outbox
		SET retries = retries + 1, last_error = $2,
		    status = CASE WHEN retries + 1 >= $3 THEN 'failed' ELSE 'pending' END
		WHERE id = $1`,
		id, cause, maxOutboxRetries)
	return err
}
