package recon

// Category identifies one of the three independent reconciliation sources.
type Category string

const (
	CategoryInvoices     Category = "invoices"
	CategoryPayslips     Category = "payslips"
	CategoryTransactions Category = "transactions"
)

// Categories lists all reconciliation sources in display order.
var Categories = []Category{CategoryInvoices, CategoryPayslips, CategoryTransactions}

// Counts holds the aggregate match figures for one category, as produced by
// the external matching pipeline.
type Counts struct {
	Total   int64
	Matched int64
}

// Health labels the aggregate reconciliation state of a period.
type Health string

const (
	HealthExcellent Health = "excellent"
	HealthGood      Health = "good"
	HealthWarning   Health = "warning"
	HealthCritical  Health = "critical"
)

// CategoryStatus is the computed reconciliation state of one category.
type CategoryStatus struct {
	Category        Category `json:"category"`
	Total           int64    `json:"total"`
	Matched         int64    `json:"matched"`
	MatchPercentage float64  `json:"match_percentage"`
	Threshold       float64  `json:"threshold"`
	Passed          bool     `json:"passed"`
}

// Status is the derived reconciliation projection for a period. It is
// recomputed on demand and never stored as a source of truth.
type Status struct {
	Categories    []CategoryStatus `json:"categories"`
	OverallHealth Health           `json:"overall_health"`
	HealthScore   float64          `json:"health_score"`
}

// Category returns the status row for c.
func (s Status) Category(c Category) (CategoryStatus, bool) {
	for _, cs := range s.Categories {
		if cs.Category == c {
			return cs, true
		}
	}
	return CategoryStatus{}, false
}

// Thresholds holds the configured pass thresholds per category. They are
// configuration, not engine state.
type Thresholds struct {
	Invoices     float64
	Payslips     float64
	Transactions float64
}

// For returns the threshold for a category.
func (t Thresholds) For(c Category) float64 {
	switch c {
	case CategoryPayslips:
		return t.Payslips
	case CategoryTransactions:
		return t.Transactions
	default:
		return t.Invoices
	}
}

// Compute derives the full reconciliation status from raw counts. A category
// with zero records scores 0%, never a division fault. The overall health is
// banded on the unweighted mean of the three percentages.
func Compute(counts map[Category]Counts, thresholds Thresholds) Status {
	statuses := make([]CategoryStatus, 0, len(Categories))
	var sum float64
	for _, category := range Categories {
		c := counts[category]
		pct := matchPercentage(c.Total, c.Matched)
		threshold := thresholds.For(category)
		statuses = append(statuses, CategoryStatus{
			Category:        category,
			Total:           c.Total,
			Matched:         c.Matched,
			MatchPercentage: pct,
			Threshold:       threshold,
			Passed:          pct >= threshold,
		})
		sum += pct
	}
	score := sum / float64(len(Categories))
	return Status{
		Categories:    statuses,
		OverallHealth: healthFor(score),
		HealthScore:   score,
	}
}

func matchPercentage(total, matched int64) float64 {
	if total == 0 {
		return 0
	}
	return float64(matched) / float64(total) * 100
}

func healthFor(score float64) Health {
	switch {
	case score >= 95:
		return HealthExcellent
	case score >= 85:
		return HealthGood
	case score >= 60:
		return HealthWarning
	default:
		return HealthCritical
	}
}
