package activity

import (
	"context"
	"fmt"
)

// TimelineRepository is the data access contract required by the service.
type TimelineRepository interface {
	ListByPeriod(ctx context.Context, periodID int64, f Filters, limit, offset int) ([]Entry, error)
}

// Service coordinates timeline reads over the activity log.
type Service struct {
	repo TimelineRepository
}

// NewService constructs a new timeline service.
func NewService(repo TimelineRepository) *Service {
	return &Service{repo: repo}
}

// Timeline fetches one page of the period timeline, newest first. It reads
// one extra row to detect whether a next page exists.
func (s *Service) Timeline(ctx context.Context, periodID int64, f Filters) (Result, error) {
	if s.repo == nil {
		return Result{}, fmt.Errorf("activity: repository not configured")
	}
	pageSize := f.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}
	if pageSize > 50 {
		pageSize = 50
	}
	page := f.Page
	if page <= 0 {
		page = 1
	}
	offset := (page - 1) * pageSize

	rows, err := s.repo.ListByPeriod(ctx, periodID, f, pageSize+1, offset)
	if err != nil {
		return Result{}, err
	}
	hasNext := len(rows) > pageSize
	if hasNext {
		rows = rows[:pageSize]
	}
	paging := PagingInfo{Page: page, PageSize: pageSize, HasNext: hasNext}
	if page > 1 {
		paging.PrevPage = page - 1
	}
	if hasNext {
		paging.NextPage = page + 1
	}
	return Result{Rows: rows, Paging: paging}, nil
}
