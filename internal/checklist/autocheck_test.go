package checklist

import (
	"errors"
	"testing"
	"time"

	"github.com/meridian-erp/meridian/internal/recon"
	"github.com/meridian-erp/meridian/internal/shared"
)

func TestEvaluateCheckCategoryThresholds(t *testing.T) {
	status := recon.Status{
		HealthScore:   80,
		OverallHealth: recon.HealthWarning,
		Categories: []recon.CategoryStatus{
			{Category: recon.CategoryInvoices, MatchPercentage: 96, Threshold: 95, Passed: true},
			{Category: recon.CategoryPayslips, MatchPercentage: 80, Threshold: 90, Passed: false},
			{Category: recon.CategoryTransactions, MatchPercentage: 85, Threshold: 85, Passed: true},
		},
	}
	cases := []struct {
		name      string
		checkType CheckType
		override  *float64
		wantPass  bool
		wantValue float64
	}{
		{"invoices above threshold", CheckInvoiceMatch, nil, true, 96},
		{"payslips below threshold", CheckPayslipMatch, nil, false, 80},
		{"transactions at threshold pass", CheckTransactionMatch, nil, true, 85},
		{"overall health below default floor", CheckOverallHealth, nil, false, 80},
		{"override loosens the bar", CheckPayslipMatch, floatPtr(75), true, 80},
		{"override tightens the bar", CheckInvoiceMatch, floatPtr(99), false, 96},
	}
	now := time.Now()
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			result, err := EvaluateCheck(tc.checkType, tc.override, status, now)
			if err != nil {
				t.Fatalf("evaluate: %v", err)
			}
			if result.Passed != tc.wantPass {
				t.Fatalf("expected passed=%v, got %+v", tc.wantPass, result)
			}
			if result.CurrentValue != tc.wantValue {
				t.Fatalf("expected value %.1f, got %.1f", tc.wantValue, result.CurrentValue)
			}
			if !result.CheckedAt.Equal(now) {
				t.Fatalf("expected checked_at %s, got %s", now, result.CheckedAt)
			}
			if result.Message == "" {
				t.Fatalf("expected a human-readable message")
			}
		})
	}
}

func TestEvaluateCheckUnknownTypeIsValidationError(t *testing.T) {
	_, err := EvaluateCheck(CheckType("CASH_FLOW"), nil, recon.Status{}, time.Now())
	if !errors.Is(err, shared.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestEvaluateCheckMissingCategoryIsDependencyFailure(t *testing.T) {
	_, err := EvaluateCheck(CheckInvoiceMatch, nil, recon.Status{}, time.Now())
	if !errors.Is(err, shared.ErrDependencyUnavailable) {
		t.Fatalf("expected dependency unavailable, got %v", err)
	}
}

func floatPtr(v float64) *float64 { return &v }
