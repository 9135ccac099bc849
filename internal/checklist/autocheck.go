package checklist

import (
	"fmt"
	"time"

	"github.com/meridian-erp/meridian/internal/recon"
	"github.com/meridian-erp/meridian/internal/shared"
)

// EvaluateCheck maps one check kind to its value in the reconciliation
// projection and compares it against the threshold. When the item carries no
// threshold override the configured category threshold applies.
func EvaluateCheck(checkType CheckType, override *float64, status recon.Status, at time.Time) (AutoCheckResult, error) {
	var value, threshold float64
	var label string

	switch checkType {
	case CheckInvoiceMatch, CheckPayslipMatch, CheckTransactionMatch:
		category := categoryFor(checkType)
		cs, ok := status.Category(category)
		if !ok {
			return AutoCheckResult{}, shared.NewDependencyUnavailable("reconciliation data provider", fmt.Errorf("missing category %s", category))
		}
		value = cs.MatchPercentage
		threshold = cs.Threshold
		label = fmt.Sprintf("%s match", category)
	case CheckOverallHealth:
		value = status.HealthScore
		threshold = 85 // health score floor for a "good" close
		label = "overall reconciliation health"
	default:
		return AutoCheckResult{}, shared.NewValidation("unknown auto check type %q", checkType)
	}

	if override != nil {
		threshold = *override
	}
	passed := value >= threshold
	verdict := "below threshold"
	if passed {
		verdict = "meets threshold"
	}
	return AutoCheckResult{
		Passed:       passed,
		CurrentValue: value,
		Threshold:    threshold,
		Message:      fmt.Sprintf("%s at %.1f%% %s %.1f%%", label, value, verdict, threshold),
		CheckedAt:    at,
	}, nil
}

func categoryFor(checkType CheckType) recon.Category {
	switch checkType {
	case CheckPayslipMatch:
		return recon.CategoryPayslips
	case CheckTransactionMatch:
		return recon.CategoryTransactions
	default:
		return recon.CategoryInvoices
	}
}
