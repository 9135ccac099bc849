package recon

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Provider supplies aggregate match counts per category for a period. The
// matching and classification algorithms behind these figures live outside
// the close engine; this interface is the whole contract.
type Provider interface {
	Counts(ctx context.Context, tenantID, periodID int64) (map[Category]Counts, error)
}

// DBProvider reads the aggregate counters maintained by the matching
// pipeline. It never touches the underlying invoice/payslip/transaction
// records themselves.
type DBProvider struct {
	pool *pgxpool.Pool
}

// NewDBProvider constructs a DBProvider over the shared pool.
func NewDBProvider(pool *pgxpool.Pool) *DBProvider {
	return &DBProvider{pool: pool}
}

// Counts returns match counters keyed by category. Categories without a row
// report zero counts rather than being absent.
func (p *DBProvider) Counts(ctx context.Context, tenantID, periodID int64) (map[Category]Counts, error) {
	rows, err := p.pool.Query(ctx, `SELECT category, total_count, matched_count
FROM reconciliation_counts WHERE tenant_id = $1 AND period_id = $2`, tenantID, periodID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[Category]Counts, len(Categories))
	for _, category := range Categories {
		counts[category] = Counts{}
	}
	for rows.Next() {
		var category string
		var c Counts
		if err := rows.Scan(&category, &c.Total, &c.Matched); err != nil {
			return nil, err
		}
		counts[Category(category)] = c
	}
	return counts, rows.Err()
}
