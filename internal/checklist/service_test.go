package checklist

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/meridian-erp/meridian/internal/activity"
	"github.com/meridian-erp/meridian/internal/recon"
	"github.com/meridian-erp/meridian/internal/shared"
)

type fakeRepo struct {
	mu       sync.Mutex
	items    map[int64]Item
	tenantID int64
	updateOK bool
	entries  []activity.Entry
	results  map[int64]AutoCheckResult
}

func newFakeRepo(items ...Item) *fakeRepo {
	r := &fakeRepo{
		items:    make(map[int64]Item),
		tenantID: 1,
		updateOK: true,
		results:  make(map[int64]AutoCheckResult),
	}
	for _, item := range items {
		r.items[item.ID] = item
	}
	return r
}

func (r *fakeRepo) GetItem(_ context.Context, id int64) (Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.items[id]
	if !ok {
		return Item{}, shared.NewNotFound("checklist item", id)
	}
	return item, nil
}

func (r *fakeRepo) ListByPeriod(_ context.Context, periodID int64) ([]Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var items []Item
	for _, item := range r.items {
		if item.PeriodID == periodID {
			items = append(items, item)
		}
	}
	return items, nil
}

func (r *fakeRepo) ListAutoCheckable(ctx context.Context, periodID int64) ([]Item, error) {
	all, _ := r.ListByPeriod(ctx, periodID)
	var items []Item
	for _, item := range all {
		if item.AutoCheckType != "" {
			items = append(items, item)
		}
	}
	return items, nil
}

func (r *fakeRepo) PeriodTenant(context.Context, int64) (int64, error) {
	return r.tenantID, nil
}

func (r *fakeRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, r)
}

func (r *fakeRepo) UpdateItemStatus(_ context.Context, in StatusUpdate) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.updateOK {
		return false, nil
	}
	item := r.items[in.ItemID]
	item.Status = in.To
	if in.CompletedBy != nil {
		item.CompletedBy = in.CompletedBy
	}
	if in.CompletedAt != nil {
		item.CompletedAt = in.CompletedAt
	}
	if in.Reason != "" {
		item.Reason = in.Reason
	}
	r.items[in.ItemID] = item
	return true, nil
}

func (r *fakeRepo) StoreAutoCheckResult(_ context.Context, itemID int64, result AutoCheckResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results[itemID] = result
	return nil
}

func (r *fakeRepo) AppendActivity(_ context.Context, e activity.Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, e)
	return nil
}

type fakeStatusSource struct {
	status recon.Status
	err    error
}

func (f *fakeStatusSource) StatusForPeriod(context.Context, int64, int64) (recon.Status, error) {
	return f.status, f.err
}

func healthyStatus() recon.Status {
	return recon.Status{
		HealthScore:   96,
		OverallHealth: recon.HealthExcellent,
		Categories: []recon.CategoryStatus{
			{Category: recon.CategoryInvoices, MatchPercentage: 98, Threshold: 95, Passed: true},
			{Category: recon.CategoryPayslips, MatchPercentage: 94, Threshold: 90, Passed: true},
			{Category: recon.CategoryTransactions, MatchPercentage: 96, Threshold: 85, Passed: true},
		},
	}
}

func TestCompleteStampsActorAndLogs(t *testing.T) {
	repo := newFakeRepo(Item{ID: 5, PeriodID: 2, Name: "Reconcile bank", Status: ItemStatusInProgress})
	svc := NewService(repo, &fakeStatusSource{})
	ctx := shared.ContextWithActor(context.Background(), 42)

	item, err := svc.Complete(ctx, 5)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if item.Status != ItemStatusCompleted {
		t.Fatalf("expected completed status, got %s", item.Status)
	}
	if item.CompletedBy == nil || *item.CompletedBy != 42 {
		t.Fatalf("expected completed_by 42, got %v", item.CompletedBy)
	}
	if len(repo.entries) != 1 || repo.entries[0].Action != ActionComplete {
		t.Fatalf("expected one %s activity entry, got %+v", ActionComplete, repo.entries)
	}
	if repo.entries[0].OldValue != string(ItemStatusInProgress) || repo.entries[0].NewValue != string(ItemStatusCompleted) {
		t.Fatalf("activity transition mismatch: %+v", repo.entries[0])
	}
}

func TestCompleteRejectsTerminalItem(t *testing.T) {
	repo := newFakeRepo(Item{ID: 5, PeriodID: 2, Status: ItemStatusSkipped})
	svc := NewService(repo, &fakeStatusSource{})

	_, err := svc.Complete(context.Background(), 5)
	if !errors.Is(err, shared.ErrInvalidTransition) {
		t.Fatalf("expected invalid transition, got %v", err)
	}
	if len(repo.entries) != 0 {
		t.Fatalf("failed transition must not log activity")
	}
}

func TestSkipRequiredItemIsPolicyViolation(t *testing.T) {
	repo := newFakeRepo(Item{ID: 5, PeriodID: 2, Name: "Post payroll", Status: ItemStatusPending, IsRequired: true})
	svc := NewService(repo, &fakeStatusSource{})

	_, err := svc.Skip(context.Background(), 5, "not this month")
	if !errors.Is(err, shared.ErrPolicyViolation) {
		t.Fatalf("expected policy violation, got %v", err)
	}
}

func TestSkipWithoutReasonIsValidationError(t *testing.T) {
	repo := newFakeRepo(Item{ID: 5, PeriodID: 2, Status: ItemStatusPending})
	svc := NewService(repo, &fakeStatusSource{})

	_, err := svc.Skip(context.Background(), 5, "   ")
	if !errors.Is(err, shared.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestConcurrentLoserGetsConflict(t *testing.T) {
	repo := newFakeRepo(Item{ID: 5, PeriodID: 2, Status: ItemStatusPending})
	repo.updateOK = false
	svc := NewService(repo, &fakeStatusSource{})

	_, err := svc.Begin(context.Background(), 5)
	if !errors.Is(err, shared.ErrConflict) {
		t.Fatalf("expected conflict when conditional update misses, got %v", err)
	}
}

func TestReopenReturnsBlockedItemToPending(t *testing.T) {
	repo := newFakeRepo(Item{ID: 5, PeriodID: 2, Status: ItemStatusBlocked})
	svc := NewService(repo, &fakeStatusSource{})

	item, err := svc.Reopen(context.Background(), 5)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if item.Status != ItemStatusPending {
		t.Fatalf("expected pending after reopen, got %s", item.Status)
	}
}

func TestReopenRejectsTerminalItems(t *testing.T) {
	for _, status := range []ItemStatus{ItemStatusCompleted, ItemStatusSkipped} {
		repo := newFakeRepo(Item{ID: 5, PeriodID: 2, Status: status})
		svc := NewService(repo, &fakeStatusSource{})

		_, err := svc.Reopen(context.Background(), 5)
		if !errors.Is(err, shared.ErrInvalidTransition) {
			t.Fatalf("reopen from %s: expected invalid transition, got %v", status, err)
		}
		if item, _ := repo.GetItem(context.Background(), 5); item.Status != status {
			t.Fatalf("reopen from %s must not change status, got %s", status, item.Status)
		}
	}
}

func TestRunAutoCheckStoresAdvisoryResult(t *testing.T) {
	repo := newFakeRepo(Item{
		ID: 7, PeriodID: 2, Name: "Invoice matching",
		Status: ItemStatusPending, AutoCheckType: CheckInvoiceMatch,
	})
	svc := NewService(repo, &fakeStatusSource{status: healthyStatus()})

	result, err := svc.RunAutoCheck(context.Background(), 7)
	if err != nil {
		t.Fatalf("run auto check: %v", err)
	}
	if !result.Passed {
		t.Fatalf("expected passing check at 98%% vs 95%%, got %+v", result)
	}
	if item, _ := repo.GetItem(context.Background(), 7); item.Status != ItemStatusPending {
		t.Fatalf("auto check must not change item status, got %s", item.Status)
	}
	if _, ok := repo.results[7]; !ok {
		t.Fatalf("expected stored auto check result")
	}
}

func TestRunAutoCheckRejectsManualItem(t *testing.T) {
	repo := newFakeRepo(Item{ID: 7, PeriodID: 2, Name: "Sign-off", Status: ItemStatusPending})
	svc := NewService(repo, &fakeStatusSource{status: healthyStatus()})

	_, err := svc.RunAutoCheck(context.Background(), 7)
	if !errors.Is(err, shared.ErrValidation) {
		t.Fatalf("expected validation error for manual item, got %v", err)
	}
}

func TestRunAllAutoChecksCoversEveryCheckableItem(t *testing.T) {
	repo := newFakeRepo(
		Item{ID: 1, PeriodID: 2, Name: "Invoices", Status: ItemStatusPending, AutoCheckType: CheckInvoiceMatch},
		Item{ID: 2, PeriodID: 2, Name: "Payslips", Status: ItemStatusPending, AutoCheckType: CheckPayslipMatch},
		Item{ID: 3, PeriodID: 2, Name: "Manual sign-off", Status: ItemStatusPending},
		Item{ID: 4, PeriodID: 2, Name: "Health", Status: ItemStatusPending, AutoCheckType: CheckOverallHealth},
	)
	svc := NewService(repo, &fakeStatusSource{status: healthyStatus()}, WithCheckConcurrency(2))

	outcomes, err := svc.RunAllAutoChecks(context.Background(), 2)
	if err != nil {
		t.Fatalf("run all: %v", err)
	}
	if len(outcomes) != 3 {
		t.Fatalf("expected 3 outcomes, got %d", len(outcomes))
	}
	for _, o := range outcomes {
		if o.Err != nil {
			t.Fatalf("item %d: unexpected error %v", o.ItemID, o.Err)
		}
		if !o.Result.Passed {
			t.Fatalf("item %d: expected pass against healthy projection, got %+v", o.ItemID, o.Result)
		}
	}
	if len(repo.results) != 3 {
		t.Fatalf("expected 3 stored results, got %d", len(repo.results))
	}
}

func TestRunAllAutoChecksFailsFastWhenProviderDown(t *testing.T) {
	repo := newFakeRepo(Item{ID: 1, PeriodID: 2, Status: ItemStatusPending, AutoCheckType: CheckInvoiceMatch})
	source := &fakeStatusSource{err: shared.NewDependencyUnavailable("reconciliation data provider", errors.New("down"))}
	svc := NewService(repo, source)

	_, err := svc.RunAllAutoChecks(context.Background(), 2)
	if !errors.Is(err, shared.ErrDependencyUnavailable) {
		t.Fatalf("expected dependency unavailable, got %v", err)
	}
}
