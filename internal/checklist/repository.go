package checklist

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-erp/meridian/internal/activity"
	"github.com/meridian-erp/meridian/internal/platform/db"
	"github.com/meridian-erp/meridian/internal/shared"
)

// Repository encapsulates DB operations for checklist items.
type Repository interface {
	GetItem(ctx context.Context, id int64) (Item, error)
	ListByPeriod(ctx context.Context, periodID int64) ([]Item, error)
	ListAutoCheckable(ctx context.Context, periodID int64) ([]Item, error)
	PeriodTenant(ctx context.Context, periodID int64) (int64, error)
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository exposes the mutations available within a transaction, so a
// status change and its activity entry commit as one unit.
type TxRepository interface {
	GetItem(ctx context.Context, id int64) (Item, error)
	UpdateItemStatus(ctx context.Context, in StatusUpdate) (bool, error)
	StoreAutoCheckResult(ctx context.Context, itemID int64, result AutoCheckResult) error
	AppendActivity(ctx context.Context, e activity.Entry) error
}

// StatusUpdate is a conditional status write. The update only applies when
// the row still holds From; a zero-row result means another writer won.
type StatusUpdate struct {
	ItemID      int64
	From        ItemStatus
	To          ItemStatus
	CompletedBy *int64
	CompletedAt *time.Time
	Reason      string
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository constructs a Repository using the provided pool.
func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const itemColumns = `id, period_id, category, name, description, is_required, sequence, status,
auto_check_type, auto_check_threshold, auto_check_result, completed_by, completed_at, reason, created_at, updated_at`

func (r *repository) GetItem(ctx context.Context, id int64) (Item, error) {
	row := r.db.QueryRow(ctx, `SELECT `+itemColumns+` FROM checklist_items WHERE id = $1`, id)
	return scanItem(row, id)
}

func (r *repository) ListByPeriod(ctx context.Context, periodID int64) ([]Item, error) {
	rows, err := r.db.Query(ctx, `SELECT `+itemColumns+`
FROM checklist_items WHERE period_id = $1 ORDER BY sequence ASC, id ASC`, periodID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectItems(rows)
}

func (r *repository) ListAutoCheckable(ctx context.Context, periodID int64) ([]Item, error) {
	rows, err := r.db.Query(ctx, `SELECT `+itemColumns+`
FROM checklist_items WHERE period_id = $1 AND auto_check_type <> '' ORDER BY sequence ASC, id ASC`, periodID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectItems(rows)
}

func (r *repository) PeriodTenant(ctx context.Context, periodID int64) (int64, error) {
	var tenantID int64
	err := r.db.QueryRow(ctx, `SELECT tenant_id FROM accounting_periods WHERE id = $1`, periodID).Scan(&tenantID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, shared.NewNotFound("period", periodID)
		}
		return 0, err
	}
	return tenantID, nil
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

type txRepository struct {
	tx pgx.Tx
}

func (r *txRepository) GetItem(ctx context.Context, id int64) (Item, error) {
	row := r.tx.QueryRow(ctx, `SELECT `+itemColumns+` FROM checklist_items WHERE id = $1`, id)
	return scanItem(row, id)
}

func (r *txRepository) UpdateItemStatus(ctx context.Context, in StatusUpdate) (bool, error) {
	cmd, err := r.tx.Exec(ctx, `UPDATE checklist_items
SET status = $3,
    completed_by = COALESCE($4, completed_by),
    completed_at = COALESCE($5, completed_at),
    reason = CASE WHEN $6 <> '' THEN $6 ELSE reason END,
    updated_at = NOW()
WHERE id = $1 AND status = $2`,
		in.ItemID, in.From, in.To, in.CompletedBy, in.CompletedAt, in.Reason)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

func (r *txRepository) StoreAutoCheckResult(ctx context.Context, itemID int64, result AutoCheckResult) error {
	encoded, err := json.Marshal(result)
	if err != nil {
		return err
	}
	cmd, err := r.tx.Exec(ctx, `UPDATE checklist_items SET auto_check_result = $2, updated_at = NOW() WHERE id = $1`, itemID, encoded)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return shared.NewNotFound("checklist item", itemID)
	}
	return nil
}

func (r *txRepository) AppendActivity(ctx context.Context, e activity.Entry) error {
	return activity.Insert(ctx, r.tx, e)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner, id int64) (Item, error) {
	var item Item
	var checkType string
	var resultJSON []byte
	err := row.Scan(&item.ID, &item.PeriodID, &item.Category, &item.Name, &item.Description,
		&item.IsRequired, &item.Sequence, &item.Status, &checkType, &item.AutoCheckThreshold,
		&resultJSON, &item.CompletedBy, &item.CompletedAt, &item.Reason, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Item{}, shared.NewNotFound("checklist item", id)
		}
		return Item{}, err
	}
	item.AutoCheckType = CheckType(checkType)
	if len(resultJSON) > 0 {
		var result AutoCheckResult
		if err := json.Unmarshal(resultJSON, &result); err == nil {
			item.LastResult = &result
		}
	}
	return item, nil
}

func collectItems(rows pgx.Rows) ([]Item, error) {
	var items []Item
	for rows.Next() {
		item, err := scanItem(rows, 0)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}
