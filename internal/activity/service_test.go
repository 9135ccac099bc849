package activity

import (
	"context"
	"testing"
	"time"
)

type fakeTimelineRepo struct {
	rows     []Entry
	captured struct {
		periodID int64
		filters  Filters
		limit    int
		offset   int
	}
}

func (f *fakeTimelineRepo) ListByPeriod(ctx context.Context, periodID int64, flt Filters, limit, offset int) ([]Entry, error) {
	f.captured.periodID = periodID
	f.captured.filters = flt
	f.captured.limit = limit
	f.captured.offset = offset
	if limit > len(f.rows) {
		limit = len(f.rows)
	}
	return append([]Entry(nil), f.rows[:limit]...), nil
}

func TestTimelineClampsPageSizeAndDetectsNextPage(t *testing.T) {
	rows := make([]Entry, 0, 60)
	for i := 0; i < 60; i++ {
		rows = append(rows, Entry{ID: int64(60 - i), PeriodID: 4, Action: "period.lock", At: time.Now()})
	}
	repo := &fakeTimelineRepo{rows: rows}
	svc := NewService(repo)

	result, err := svc.Timeline(context.Background(), 4, Filters{Page: 1, PageSize: 500})
	if err != nil {
		t.Fatalf("Timeline() error = %v", err)
	}
	if repo.captured.limit != 51 {
		t.Fatalf("expected limit 51 (max page size + 1), got %d", repo.captured.limit)
	}
	if len(result.Rows) != 50 {
		t.Fatalf("expected 50 rows after clamping, got %d", len(result.Rows))
	}
	if !result.Paging.HasNext || result.Paging.NextPage != 2 {
		t.Fatalf("expected next page, got %+v", result.Paging)
	}
}

func TestTimelineDefaultsPageAndOffset(t *testing.T) {
	repo := &fakeTimelineRepo{rows: []Entry{{ID: 1, PeriodID: 9, Action: "period.start"}}}
	svc := NewService(repo)

	result, err := svc.Timeline(context.Background(), 9, Filters{Page: 3})
	if err != nil {
		t.Fatalf("Timeline() error = %v", err)
	}
	if repo.captured.offset != 40 {
		t.Fatalf("expected offset 40 for page 3 of 20, got %d", repo.captured.offset)
	}
	if result.Paging.PrevPage != 2 {
		t.Fatalf("expected prev page 2, got %d", result.Paging.PrevPage)
	}
	if result.Paging.HasNext {
		t.Fatalf("expected no next page")
	}
}
