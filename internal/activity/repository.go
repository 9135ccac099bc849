package activity

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Execer is satisfied by both pgxpool.Pool and pgx.Tx, so the same insert
// can run standalone or inside another aggregate's transaction.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

const insertSQL = `INSERT INTO activity_log (period_id, action, entity_type, entity_id, actor_id, details, old_value, new_value, occurred_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

// Insert appends one entry. Mutating services call this with their open
// transaction so the log write commits atomically with the state change.
func Insert(ctx context.Context, db Execer, e Entry) error {
	if e.Action == "" || e.EntityType == "" || e.EntityID == "" {
		return errors.New("activity: entry requires action/entity_type/entity_id")
	}
	at := e.At
	if at.IsZero() {
		at = time.Now()
	}
	_, err := db.Exec(ctx, insertSQL,
		e.PeriodID, e.Action, e.EntityType, e.EntityID, e.ActorID,
		e.Details, e.OldValue, e.NewValue, at)
	return err
}

// Repository reads and appends activity log rows.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Repository using the provided pool.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Append persists a log entry outside any caller transaction.
func (r *Repository) Append(ctx context.Context, e Entry) error {
	return Insert(ctx, r.pool, e)
}

// ListByPeriod returns up to limit entries for a period, newest first with
// id as the tiebreak so ordering is stable across equal timestamps.
func (r *Repository) ListByPeriod(ctx context.Context, periodID int64, f Filters, limit, offset int) ([]Entry, error) {
	query := strings.Builder{}
	query.WriteString(`SELECT id, period_id, action, entity_type, entity_id, actor_id, details, old_value, new_value, occurred_at
FROM activity_log WHERE period_id = $1`)
	args := []any{periodID}
	if f.Action != "" {
		args = append(args, f.Action)
		query.WriteString(` AND action = $` + itoa(len(args)))
	}
	if f.EntityType != "" {
		args = append(args, f.EntityType)
		query.WriteString(` AND entity_type = $` + itoa(len(args)))
	}
	if !f.From.IsZero() {
		args = append(args, f.From)
		query.WriteString(` AND occurred_at >= $` + itoa(len(args)))
	}
	if !f.To.IsZero() {
		args = append(args, f.To)
		query.WriteString(` AND occurred_at <= $` + itoa(len(args)))
	}
	args = append(args, limit)
	query.WriteString(` ORDER BY occurred_at DESC, id DESC LIMIT $` + itoa(len(args)))
	args = append(args, offset)
	query.WriteString(` OFFSET $` + itoa(len(args)))

	rows, err := r.pool.Query(ctx, query.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.PeriodID, &e.Action, &e.EntityType, &e.EntityID, &e.ActorID, &e.Details, &e.OldValue, &e.NewValue, &e.At); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func itoa(i int) string {
	return strconv.Itoa(i)
}
