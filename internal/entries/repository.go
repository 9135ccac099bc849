package entries

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/meridian-erp/meridian/internal/activity"
	"github.com/meridian-erp/meridian/internal/platform/db"
	"github.com/meridian-erp/meridian/internal/shared"
)

// PeriodRef is the slice of period state the entry ledger needs: enough to
// enforce the not-closed posting rule and to find the next period.
type PeriodRef struct {
	ID        int64
	TenantID  int64
	Status    string
	StartDate time.Time
	EndDate   time.Time
}

const periodStatusClosed = "CLOSED"

// Closed reports whether the period has been finally closed.
func (p PeriodRef) Closed() bool { return p.Status == periodStatusClosed }

// Repository encapsulates DB operations for adjusting entries.
type Repository interface {
	GetEntry(ctx context.Context, id int64) (Entry, error)
	ListByPeriod(ctx context.Context, periodID int64) ([]Entry, error)
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository exposes the mutations available within a transaction. Period
// reads take a row lock so entry transitions serialize against period
// transitions touching the same period.
type TxRepository interface {
	GetEntry(ctx context.Context, id int64) (Entry, error)
	InsertEntry(ctx context.Context, e Entry) (Entry, error)
	UpdateEntryFields(ctx context.Context, id int64, p Parsed) (bool, error)
	UpdateEntryStatus(ctx context.Context, change StatusChange) (bool, error)
	GetPeriodForUpdate(ctx context.Context, periodID int64) (PeriodRef, error)
	NextPeriod(ctx context.Context, tenantID int64, after time.Time) (PeriodRef, error)
	AppendActivity(ctx context.Context, e activity.Entry) error
}

// StatusChange is a conditional lifecycle write: it applies only while the
// row still holds From, so a losing concurrent writer observes zero rows.
type StatusChange struct {
	EntryID             int64
	From                Status
	To                  Status
	RejectionReason     string
	SubmittedBy         *int64
	SubmittedAt         *time.Time
	ApprovedBy          *int64
	ApprovedAt          *time.Time
	RejectedBy          *int64
	RejectedAt          *time.Time
	PostedBy            *int64
	PostedAt            *time.Time
	PostedTransactionID *string
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository constructs a Repository using the provided pool.
func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const entryColumns = `id, period_id, reference, entry_type, description, linked_entity_type, linked_entity_id,
debit_account, credit_account, amount, currency, reference_number, status, is_reversing,
reverse_in_next_period, reversal_of_id, posted_transaction_id, rejection_reason, created_by,
submitted_by, submitted_at, approved_by, approved_at, rejected_by, rejected_at, posted_by, posted_at,
created_at, updated_at`

func (r *repository) GetEntry(ctx context.Context, id int64) (Entry, error) {
	row := r.db.QueryRow(ctx, `SELECT `+entryColumns+` FROM adjusting_entries WHERE id = $1`, id)
	return scanEntry(row, id)
}

func (r *repository) ListByPeriod(ctx context.Context, periodID int64) ([]Entry, error) {
	rows, err := r.db.Query(ctx, `SELECT `+entryColumns+`
FROM adjusting_entries WHERE period_id = $1 ORDER BY created_at DESC, id DESC`, periodID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Entry
	for rows.Next() {
		e, err := scanEntry(rows, 0)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

type txRepository struct {
	tx pgx.Tx
}

func (r *txRepository) GetEntry(ctx context.Context, id int64) (Entry, error) {
	row := r.tx.QueryRow(ctx, `SELECT `+entryColumns+` FROM adjusting_entries WHERE id = $1`, id)
	return scanEntry(row, id)
}

func (r *txRepository) InsertEntry(ctx context.Context, e Entry) (Entry, error) {
	row := r.tx.QueryRow(ctx, `INSERT INTO adjusting_entries
(period_id, reference, entry_type, description, linked_entity_type, linked_entity_id,
 debit_account, credit_account, amount, currency, reference_number,
 status, is_reversing, reverse_in_next_period, reversal_of_id, created_by)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
RETURNING id, created_at, updated_at`,
		e.PeriodID, e.Reference, e.EntryType, e.Description, e.LinkedEntityType, e.LinkedEntityID,
		e.DebitAccount, e.CreditAccount, e.Amount.String(), e.Currency, e.ReferenceNumber,
		e.Status, e.IsReversing, e.ReverseInNextPeriod, e.ReversalOfID, e.CreatedBy)
	if err := row.Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt); err != nil {
		return Entry{}, err
	}
	return e, nil
}

func (r *txRepository) UpdateEntryFields(ctx context.Context, id int64, p Parsed) (bool, error) {
	cmd, err := r.tx.Exec(ctx, `UPDATE adjusting_entries
SET entry_type = $2, description = $3, linked_entity_type = $4, linked_entity_id = $5,
    debit_account = $6, credit_account = $7, amount = $8, currency = $9,
    reference_number = $10, is_reversing = $11, reverse_in_next_period = $12, updated_at = NOW()
WHERE id = $1 AND status = $13`,
		id, p.EntryType, p.Description, p.LinkedEntityType, p.LinkedEntityID,
		p.DebitAccount, p.CreditAccount, p.Amount.String(), p.Currency,
		p.ReferenceNumber, p.IsReversing, p.ReverseInNextPeriod, StatusDraft)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

func (r *txRepository) UpdateEntryStatus(ctx context.Context, change StatusChange) (bool, error) {
	cmd, err := r.tx.Exec(ctx, `UPDATE adjusting_entries
SET status = $3,
    rejection_reason = CASE WHEN $4 <> '' THEN $4 ELSE rejection_reason END,
    submitted_by = COALESCE($5, submitted_by),
    submitted_at = COALESCE($6, submitted_at),
    approved_by = COALESCE($7, approved_by),
    approved_at = COALESCE($8, approved_at),
    rejected_by = COALESCE($9, rejected_by),
    rejected_at = COALESCE($10, rejected_at),
    posted_by = COALESCE($11, posted_by),
    posted_at = COALESCE($12, posted_at),
    posted_transaction_id = COALESCE($13, posted_transaction_id),
    updated_at = NOW()
WHERE id = $1 AND status = $2`,
		change.EntryID, change.From, change.To, change.RejectionReason,
		change.SubmittedBy, change.SubmittedAt, change.ApprovedBy, change.ApprovedAt,
		change.RejectedBy, change.RejectedAt, change.PostedBy, change.PostedAt, change.PostedTransactionID)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

func (r *txRepository) GetPeriodForUpdate(ctx context.Context, periodID int64) (PeriodRef, error) {
	var p PeriodRef
	err := r.tx.QueryRow(ctx, `SELECT id, tenant_id, status, start_date, end_date
FROM accounting_periods WHERE id = $1 FOR UPDATE`, periodID).
		Scan(&p.ID, &p.TenantID, &p.Status, &p.StartDate, &p.EndDate)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return PeriodRef{}, shared.NewNotFound("period", periodID)
		}
		return PeriodRef{}, err
	}
	return p, nil
}

func (r *txRepository) NextPeriod(ctx context.Context, tenantID int64, after time.Time) (PeriodRef, error) {
	var p PeriodRef
	err := r.tx.QueryRow(ctx, `SELECT id, tenant_id, status, start_date, end_date
FROM accounting_periods WHERE tenant_id = $1 AND start_date > $2 ORDER BY start_date ASC LIMIT 1`,
		tenantID, after).
		Scan(&p.ID, &p.TenantID, &p.Status, &p.StartDate, &p.EndDate)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return PeriodRef{}, shared.NewNotFound("next period", tenantID)
		}
		return PeriodRef{}, err
	}
	return p, nil
}

func (r *txRepository) AppendActivity(ctx context.Context, e activity.Entry) error {
	return activity.Insert(ctx, r.tx, e)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner, id int64) (Entry, error) {
	var e Entry
	var amount string
	err := row.Scan(&e.ID, &e.PeriodID, &e.Reference, &e.EntryType, &e.Description,
		&e.LinkedEntityType, &e.LinkedEntityID,
		&e.DebitAccount, &e.CreditAccount, &amount, &e.Currency, &e.ReferenceNumber, &e.Status,
		&e.IsReversing, &e.ReverseInNextPeriod, &e.ReversalOfID, &e.PostedTransactionID,
		&e.RejectionReason, &e.CreatedBy, &e.SubmittedBy, &e.SubmittedAt,
		&e.ApprovedBy, &e.ApprovedAt, &e.RejectedBy, &e.RejectedAt,
		&e.PostedBy, &e.PostedAt, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Entry{}, shared.NewNotFound("adjusting entry", id)
		}
		return Entry{}, err
	}
	parsed, err := decimal.NewFromString(amount)
	if err != nil {
		return Entry{}, err
	}
	e.Amount = parsed
	return e, nil
}
