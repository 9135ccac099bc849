package periods

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-erp/meridian/internal/checklist"
)

// TemplateStore loads checklist templates from the database, falling back to
// the built-in set when no rows exist for a period kind.
type TemplateStore struct {
	db *pgxpool.Pool
}

// NewTemplateStore constructs a TemplateStore.
func NewTemplateStore(db *pgxpool.Pool) *TemplateStore {
	return &TemplateStore{db: db}
}

// Definitions returns the seed checklist for a period kind.
func (t *TemplateStore) Definitions(ctx context.Context, kind Kind) ([]checklist.Definition, error) {
	rows, err := t.db.Query(ctx, `SELECT category, name, description, is_required, sequence, auto_check_type, auto_check_threshold
FROM checklist_templates WHERE period_kind = $1 ORDER BY sequence ASC`, kind)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var defs []checklist.Definition
	for rows.Next() {
		var def checklist.Definition
		var checkType string
		if err := rows.Scan(&def.Category, &def.Name, &def.Description, &def.IsRequired,
			&def.Sequence, &checkType, &def.AutoCheckThreshold); err != nil {
			return nil, err
		}
		def.AutoCheckType = checklist.CheckType(checkType)
		defs = append(defs, def)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(defs) == 0 {
		return defaultChecklist, nil
	}
	return defs, nil
}

var defaultChecklist = []checklist.Definition{
	{Category: "reconciliation", Name: "Match supplier invoices", IsRequired: true, Sequence: 1, AutoCheckType: checklist.CheckInvoiceMatch},
	{Category: "reconciliation", Name: "Match payroll payslips", IsRequired: true, Sequence: 2, AutoCheckType: checklist.CheckPayslipMatch},
	{Category: "reconciliation", Name: "Match bank transactions", IsRequired: true, Sequence: 3, AutoCheckType: checklist.CheckTransactionMatch},
	{Category: "reconciliation", Name: "Review overall reconciliation health", IsRequired: false, Sequence: 4, AutoCheckType: checklist.CheckOverallHealth},
	{Category: "adjustments", Name: "Post accruals and deferrals", IsRequired: true, Sequence: 5},
	{Category: "adjustments", Name: "Review adjusting entries for approval", IsRequired: true, Sequence: 6},
	{Category: "review", Name: "Management sign-off", IsRequired: true, Sequence: 7},
}
