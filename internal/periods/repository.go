package periods

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-erp/meridian/internal/activity"
	"github.com/meridian-erp/meridian/internal/checklist"
	"github.com/meridian-erp/meridian/internal/platform/db"
	"github.com/meridian-erp/meridian/internal/shared"
)

// Repository encapsulates DB operations for accounting periods.
type Repository interface {
	GetPeriod(ctx context.Context, id int64) (Period, error)
	ListPeriods(ctx context.Context, tenantID int64, limit, offset int) ([]Period, error)
	RangeConflict(ctx context.Context, tenantID int64, start, end time.Time) (bool, error)
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository exposes the mutations available within a transaction. Every
// transition method is a conditional write keyed on the source status; a
// false return means another writer moved the period first.
type TxRepository interface {
	GetPeriodForUpdate(ctx context.Context, id int64) (Period, error)
	InsertPeriod(ctx context.Context, in CreatePeriodInput) (Period, error)
	StartPeriod(ctx context.Context, id, actorID int64, at time.Time) (bool, error)
	LockPeriod(ctx context.Context, id, actorID int64, at time.Time) (bool, error)
	SubmitPeriod(ctx context.Context, id, actorID int64, at time.Time) (bool, error)
	UnlockPeriod(ctx context.Context, id int64) (bool, error)
	ApprovePeriod(ctx context.Context, id, actorID int64, at time.Time) (bool, error)
	RejectPeriod(ctx context.Context, id int64, reason string) (bool, error)
	ClosePeriod(ctx context.Context, id, actorID int64, at time.Time) (bool, error)
	InsertChecklistItems(ctx context.Context, periodID int64, defs []checklist.Definition) error
	AppendActivity(ctx context.Context, e activity.Entry) error
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository constructs a Repository using the provided pool.
func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const periodColumns = `id, tenant_id, name, kind, start_date, end_date, status,
started_by, started_at, locked_by, locked_at, submitted_by, submitted_at,
approved_by, approved_at, rejection_reason, closed_by, closed_at, created_at, updated_at`

func (r *repository) GetPeriod(ctx context.Context, id int64) (Period, error) {
	row := r.db.QueryRow(ctx, `SELECT `+periodColumns+` FROM accounting_periods WHERE id = $1`, id)
	return scanPeriod(row, id)
}

func (r *repository) ListPeriods(ctx context.Context, tenantID int64, limit, offset int) ([]Period, error) {
	rows, err := r.db.Query(ctx, `SELECT `+periodColumns+`
FROM accounting_periods WHERE tenant_id = $1 ORDER BY start_date DESC LIMIT $2 OFFSET $3`,
		tenantID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Period
	for rows.Next() {
		p, err := scanPeriod(rows, 0)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *repository) RangeConflict(ctx context.Context, tenantID int64, start, end time.Time) (bool, error) {
	var conflict bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS (
SELECT 1 FROM accounting_periods
WHERE tenant_id = $1 AND start_date <= $3 AND end_date >= $2)`,
		tenantID, start, end).Scan(&conflict)
	return conflict, err
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

type txRepository struct {
	tx pgx.Tx
}

func (r *txRepository) GetPeriodForUpdate(ctx context.Context, id int64) (Period, error) {
	row := r.tx.QueryRow(ctx, `SELECT `+periodColumns+` FROM accounting_periods WHERE id = $1 FOR UPDATE`, id)
	return scanPeriod(row, id)
}

func (r *txRepository) InsertPeriod(ctx context.Context, in CreatePeriodInput) (Period, error) {
	row := r.tx.QueryRow(ctx, `INSERT INTO accounting_periods (tenant_id, name, kind, start_date, end_date, status)
VALUES ($1,$2,$3,$4,$5,$6) RETURNING id, created_at, updated_at`,
		in.TenantID, in.Name, in.Kind, in.StartDate, in.EndDate, StatusOpen)
	p := Period{
		TenantID:  in.TenantID,
		Name:      in.Name,
		Kind:      in.Kind,
		StartDate: in.StartDate,
		EndDate:   in.EndDate,
		Status:    StatusOpen,
	}
	if err := row.Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.ConstraintName == "uq_periods_tenant_range" {
			return Period{}, shared.NewValidation("period overlaps an existing period")
		}
		return Period{}, err
	}
	return p, nil
}

func (r *txRepository) StartPeriod(ctx context.Context, id, actorID int64, at time.Time) (bool, error) {
	return r.transition(ctx, `UPDATE accounting_periods
SET status = $2, started_by = $3, started_at = $4, updated_at = NOW()
WHERE id = $1 AND status = $5`, id, StatusInProgress, actorID, at, StatusOpen)
}

func (r *txRepository) LockPeriod(ctx context.Context, id, actorID int64, at time.Time) (bool, error) {
	return r.transition(ctx, `UPDATE accounting_periods
SET status = $2, locked_by = $3, locked_at = $4, updated_at = NOW()
WHERE id = $1 AND status = $5`, id, StatusLocked, actorID, at, StatusInProgress)
}

func (r *txRepository) SubmitPeriod(ctx context.Context, id, actorID int64, at time.Time) (bool, error) {
	return r.transition(ctx, `UPDATE accounting_periods
SET status = $2, submitted_by = $3, submitted_at = $4, updated_at = NOW()
WHERE id = $1 AND status = $5`, id, StatusPendingApproval, actorID, at, StatusInProgress)
}

// UnlockPeriod rolls the period back to in_progress and clears every stamp
// the lock/submit/approve gates had set.
func (r *txRepository) UnlockPeriod(ctx context.Context, id int64) (bool, error) {
	return r.transition(ctx, `UPDATE accounting_periods
SET status = $2, locked_by = NULL, locked_at = NULL,
    submitted_by = NULL, submitted_at = NULL,
    approved_by = NULL, approved_at = NULL, updated_at = NOW()
WHERE id = $1 AND status = $3`, id, StatusInProgress, StatusLocked)
}

// ApprovePeriod hands the period back to locked. The lock stamp is kept if
// present and set to the approver otherwise, so a locked-for-close period
// always names who froze it.
func (r *txRepository) ApprovePeriod(ctx context.Context, id, actorID int64, at time.Time) (bool, error) {
	return r.transition(ctx, `UPDATE accounting_periods
SET status = $2, approved_by = $3, approved_at = $4,
    locked_by = COALESCE(locked_by, $3), locked_at = COALESCE(locked_at, $4), updated_at = NOW()
WHERE id = $1 AND status = $5`, id, StatusLocked, actorID, at, StatusPendingApproval)
}

func (r *txRepository) RejectPeriod(ctx context.Context, id int64, reason string) (bool, error) {
	return r.transition(ctx, `UPDATE accounting_periods
SET status = $2, rejection_reason = $3,
    approved_by = NULL, approved_at = NULL,
    submitted_by = NULL, submitted_at = NULL, updated_at = NOW()
WHERE id = $1 AND status = $4`, id, StatusInProgress, reason, StatusPendingApproval)
}

func (r *txRepository) ClosePeriod(ctx context.Context, id, actorID int64, at time.Time) (bool, error) {
	return r.transition(ctx, `UPDATE accounting_periods
SET status = $2, closed_by = $3, closed_at = $4, updated_at = NOW()
WHERE id = $1 AND status = $5 AND approved_at IS NOT NULL`, id, StatusClosed, actorID, at, StatusLocked)
}

func (r *txRepository) transition(ctx context.Context, sql string, args ...any) (bool, error) {
	cmd, err := r.tx.Exec(ctx, sql, args...)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

func (r *txRepository) InsertChecklistItems(ctx context.Context, periodID int64, defs []checklist.Definition) error {
	for _, def := range defs {
		if _, err := r.tx.Exec(ctx, `INSERT INTO checklist_items
(period_id, category, name, description, is_required, sequence, status, auto_check_type, auto_check_threshold)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
			periodID, def.Category, def.Name, def.Description, def.IsRequired, def.Sequence,
			checklist.ItemStatusPending, string(def.AutoCheckType), def.AutoCheckThreshold); err != nil {
			return err
		}
	}
	return nil
}

func (r *txRepository) AppendActivity(ctx context.Context, e activity.Entry) error {
	return activity.Insert(ctx, r.tx, e)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPeriod(row rowScanner, id int64) (Period, error) {
	var p Period
	err := row.Scan(&p.ID, &p.TenantID, &p.Name, &p.Kind, &p.StartDate, &p.EndDate, &p.Status,
		&p.StartedBy, &p.StartedAt, &p.LockedBy, &p.LockedAt, &p.SubmittedBy, &p.SubmittedAt,
		&p.ApprovedBy, &p.ApprovedAt, &p.RejectionReason, &p.ClosedBy, &p.ClosedAt,
		&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Period{}, shared.NewNotFound("period", id)
		}
		return Period{}, err
	}
	return p, nil
}
