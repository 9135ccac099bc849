package recon

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

var testThresholds = Thresholds{Invoices: 95, Payslips: 90, Transactions: 85}

type fakeProvider struct {
	counts map[Category]Counts
	err    error
	calls  int
	delay  time.Duration
}

func (f *fakeProvider) Counts(ctx context.Context, tenantID, periodID int64) (map[Category]Counts, error) {
	f.calls++
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.counts, nil
}

func TestComputeBandsOverallHealth(t *testing.T) {
	cases := []struct {
		name    string
		matched int64
		want    Health
	}{
		{"excellent", 98, HealthExcellent},
		{"good", 90, HealthGood},
		{"warning", 70, HealthWarning},
		{"critical", 10, HealthCritical},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			counts := map[Category]Counts{
				CategoryInvoices:     {Total: 100, Matched: tc.matched},
				CategoryPayslips:     {Total: 100, Matched: tc.matched},
				CategoryTransactions: {Total: 100, Matched: tc.matched},
			}
			status := Compute(counts, testThresholds)
			if status.OverallHealth != tc.want {
				t.Fatalf("expected health %s, got %s (score %.2f)", tc.want, status.OverallHealth, status.HealthScore)
			}
			if status.HealthScore != float64(tc.matched) {
				t.Fatalf("expected score %d, got %.2f", tc.matched, status.HealthScore)
			}
		})
	}
}

func TestComputeZeroTotalsScoreZeroWithoutFault(t *testing.T) {
	status := Compute(map[Category]Counts{}, testThresholds)
	if status.HealthScore != 0 {
		t.Fatalf("expected score 0 for empty counts, got %.2f", status.HealthScore)
	}
	if status.OverallHealth != HealthCritical {
		t.Fatalf("expected critical health, got %s", status.OverallHealth)
	}
	for _, cs := range status.Categories {
		if cs.MatchPercentage != 0 {
			t.Fatalf("category %s: expected 0%%, got %.2f", cs.Category, cs.MatchPercentage)
		}
		if cs.Passed {
			t.Fatalf("category %s: expected threshold failure at 0%%", cs.Category)
		}
	}
}

func TestComputePercentagesStayInRange(t *testing.T) {
	counts := map[Category]Counts{
		CategoryInvoices:     {Total: 3, Matched: 3},
		CategoryPayslips:     {Total: 7, Matched: 2},
		CategoryTransactions: {Total: 0, Matched: 0},
	}
	status := Compute(counts, testThresholds)
	for _, cs := range status.Categories {
		if cs.MatchPercentage < 0 || cs.MatchPercentage > 100 {
			t.Fatalf("category %s: percentage %.2f out of range", cs.Category, cs.MatchPercentage)
		}
	}
	invoices, _ := status.Category(CategoryInvoices)
	if !invoices.Passed || invoices.MatchPercentage != 100 {
		t.Fatalf("expected fully matched invoices to pass, got %+v", invoices)
	}
}

func TestStatusForPeriodMapsProviderFailure(t *testing.T) {
	provider := &fakeProvider{err: errors.New("connection refused")}
	svc := NewService(provider, testThresholds)

	_, err := svc.StatusForPeriod(context.Background(), 1, 10)
	if err == nil {
		t.Fatalf("expected error from failing provider")
	}
	var kindErr interface{ Error() string }
	if !errors.As(err, &kindErr) {
		t.Fatalf("expected wrapped error, got %v", err)
	}
}

func TestStatusForPeriodTimesOutSlowProvider(t *testing.T) {
	provider := &fakeProvider{
		delay:  200 * time.Millisecond,
		counts: map[Category]Counts{},
	}
	svc := NewService(provider, testThresholds, WithTimeout(10*time.Millisecond))

	start := time.Now()
	_, err := svc.StatusForPeriod(context.Background(), 1, 10)
	if err == nil {
		t.Fatalf("expected timeout error")
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("provider call not bounded by timeout, took %s", elapsed)
	}
}

func TestStatusForPeriodCachesUntilInvalidated(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	provider := &fakeProvider{counts: map[Category]Counts{
		CategoryInvoices:     {Total: 10, Matched: 10},
		CategoryPayslips:     {Total: 10, Matched: 10},
		CategoryTransactions: {Total: 10, Matched: 10},
	}}
	svc := NewService(provider, testThresholds, WithCache(NewCache(client, time.Minute)))

	ctx := context.Background()
	if _, err := svc.StatusForPeriod(ctx, 1, 10); err != nil {
		t.Fatalf("first fetch: %v", err)
	}
	if _, err := svc.StatusForPeriod(ctx, 1, 10); err != nil {
		t.Fatalf("second fetch: %v", err)
	}
	if provider.calls != 1 {
		t.Fatalf("expected cached second fetch, provider called %d times", provider.calls)
	}

	if err := svc.Invalidate(ctx); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if _, err := svc.StatusForPeriod(ctx, 1, 10); err != nil {
		t.Fatalf("fetch after invalidate: %v", err)
	}
	if provider.calls != 2 {
		t.Fatalf("expected recompute after invalidate, provider called %d times", provider.calls)
	}
}
