package checklist

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/meridian-erp/meridian/internal/activity"
	"github.com/meridian-erp/meridian/internal/recon"
	"github.com/meridian-erp/meridian/internal/shared"
)

const defaultCheckConcurrency = 4

// StatusSource supplies the reconciliation projection auto-checks read from.
type StatusSource interface {
	StatusForPeriod(ctx context.Context, tenantID, periodID int64) (recon.Status, error)
}

// Service manages closing tasks for a period. Auto-checks are advisory: they
// record a result on the item but never move its status.
type Service struct {
	repo        Repository
	recon       StatusSource
	concurrency int
}

// ServiceOption configures optional Service behaviour.
type ServiceOption func(*Service)

// WithCheckConcurrency bounds the batch auto-check fan-out.
func WithCheckConcurrency(n int) ServiceOption {
	return func(s *Service) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// NewService constructs the checklist manager.
func NewService(repo Repository, reconSource StatusSource, opts ...ServiceOption) *Service {
	s := &Service{
		repo:        repo,
		recon:       reconSource,
		concurrency: defaultCheckConcurrency,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ListByPeriod returns all checklist items for a period in sequence order.
func (s *Service) ListByPeriod(ctx context.Context, periodID int64) ([]Item, error) {
	if _, err := s.repo.PeriodTenant(ctx, periodID); err != nil {
		return nil, err
	}
	return s.repo.ListByPeriod(ctx, periodID)
}

// ProgressForPeriod summarises how much of the checklist is resolved.
// Skipped items count as resolved for display purposes.
func (s *Service) ProgressForPeriod(ctx context.Context, periodID int64) (Progress, error) {
	items, err := s.ListByPeriod(ctx, periodID)
	if err != nil {
		return Progress{}, err
	}
	p := Progress{Total: len(items)}
	for _, item := range items {
		switch item.Status {
		case ItemStatusCompleted:
			p.Completed++
		case ItemStatusSkipped:
			p.Skipped++
		}
	}
	if p.Total > 0 {
		p.Percent = float64(p.Completed+p.Skipped) / float64(p.Total) * 100
	}
	return p, nil
}

// Begin moves a pending item into progress.
func (s *Service) Begin(ctx context.Context, itemID int64) (Item, error) {
	return s.transition(ctx, itemID, ActionBegin, "", func(item Item) (StatusUpdate, error) {
		if item.Status != ItemStatusPending {
			return StatusUpdate{}, shared.NewInvalidTransition("checklist item", string(item.Status), string(ItemStatusPending))
		}
		return StatusUpdate{From: item.Status, To: ItemStatusInProgress}, nil
	})
}

// Complete marks an item done, stamping who completed it and when.
func (s *Service) Complete(ctx context.Context, itemID int64) (Item, error) {
	actorID := shared.ActorFromContext(ctx)
	now := time.Now().UTC()
	return s.transition(ctx, itemID, ActionComplete, "", func(item Item) (StatusUpdate, error) {
		if item.Status != ItemStatusPending && item.Status != ItemStatusInProgress {
			return StatusUpdate{}, shared.NewInvalidTransition("checklist item", string(item.Status), "PENDING or IN_PROGRESS")
		}
		return StatusUpdate{
			From:        item.Status,
			To:          ItemStatusCompleted,
			CompletedBy: &actorID,
			CompletedAt: &now,
		}, nil
	})
}

// Skip marks an optional item as not applicable for this close. Required
// items cannot be skipped, and a reason is mandatory.
func (s *Service) Skip(ctx context.Context, itemID int64, reason string) (Item, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return Item{}, shared.NewValidation("a reason is required to skip a checklist item")
	}
	return s.transition(ctx, itemID, ActionSkip, reason, func(item Item) (StatusUpdate, error) {
		if item.IsRequired {
			return StatusUpdate{}, shared.NewPolicyViolation("required checklist item %q cannot be skipped", item.Name)
		}
		if item.Status != ItemStatusPending && item.Status != ItemStatusInProgress {
			return StatusUpdate{}, shared.NewInvalidTransition("checklist item", string(item.Status), "PENDING or IN_PROGRESS")
		}
		return StatusUpdate{From: item.Status, To: ItemStatusSkipped, Reason: reason}, nil
	})
}

// Block flags an item as stuck on something outside the closer's control.
func (s *Service) Block(ctx context.Context, itemID int64, reason string) (Item, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return Item{}, shared.NewValidation("a reason is required to block a checklist item")
	}
	return s.transition(ctx, itemID, ActionBlock, reason, func(item Item) (StatusUpdate, error) {
		if item.Status != ItemStatusPending && item.Status != ItemStatusInProgress {
			return StatusUpdate{}, shared.NewInvalidTransition("checklist item", string(item.Status), "PENDING or IN_PROGRESS")
		}
		return StatusUpdate{From: item.Status, To: ItemStatusBlocked, Reason: reason}, nil
	})
}

// Reopen clears the blocked marker, returning the item to pending. Completed
// and skipped are terminal; reopening them would rewrite close history.
func (s *Service) Reopen(ctx context.Context, itemID int64) (Item, error) {
	return s.transition(ctx, itemID, ActionReopen, "", func(item Item) (StatusUpdate, error) {
		if item.Status != ItemStatusBlocked {
			return StatusUpdate{}, shared.NewInvalidTransition("checklist item", string(item.Status), string(ItemStatusBlocked))
		}
		return StatusUpdate{From: item.Status, To: ItemStatusPending}, nil
	})
}

func (s *Service) transition(ctx context.Context, itemID int64, action, reason string, decide func(Item) (StatusUpdate, error)) (Item, error) {
	actorID := shared.ActorFromContext(ctx)
	var updated Item
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		item, err := tx.GetItem(ctx, itemID)
		if err != nil {
			return err
		}
		update, err := decide(item)
		if err != nil {
			return err
		}
		update.ItemID = item.ID
		ok, err := tx.UpdateItemStatus(ctx, update)
		if err != nil {
			return err
		}
		if !ok {
			return shared.NewConflict("checklist item", item.ID)
		}
		entry := activity.Entry{
			PeriodID:   item.PeriodID,
			Action:     action,
			EntityType: activity.EntityChecklistItem,
			EntityID:   strconv.FormatInt(item.ID, 10),
			ActorID:    actorID,
			Details:    reason,
			OldValue:   string(update.From),
			NewValue:   string(update.To),
		}
		if err := tx.AppendActivity(ctx, entry); err != nil {
			return err
		}
		item.Status = update.To
		item.CompletedBy = coalescePtr(update.CompletedBy, item.CompletedBy)
		item.CompletedAt = coalescePtr(update.CompletedAt, item.CompletedAt)
		if update.Reason != "" {
			item.Reason = update.Reason
		}
		updated = item
		return nil
	})
	if err != nil {
		return Item{}, err
	}
	return updated, nil
}

// RunAutoCheck evaluates one item's auto-check against the current
// reconciliation projection and stores the advisory result.
func (s *Service) RunAutoCheck(ctx context.Context, itemID int64) (AutoCheckResult, error) {
	item, err := s.repo.GetItem(ctx, itemID)
	if err != nil {
		return AutoCheckResult{}, err
	}
	if item.AutoCheckType == "" {
		return AutoCheckResult{}, shared.NewValidation("checklist item %q has no auto check", item.Name)
	}
	tenantID, err := s.repo.PeriodTenant(ctx, item.PeriodID)
	if err != nil {
		return AutoCheckResult{}, err
	}
	status, err := s.recon.StatusForPeriod(ctx, tenantID, item.PeriodID)
	if err != nil {
		return AutoCheckResult{}, err
	}
	return s.storeCheck(ctx, item, status)
}

// RunAllAutoChecks evaluates every auto-checkable item for a period. Each
// item commits in its own transaction so one failing item does not discard
// the rest; per-item failures ride back in the outcome slice.
func (s *Service) RunAllAutoChecks(ctx context.Context, periodID int64) ([]CheckOutcome, error) {
	tenantID, err := s.repo.PeriodTenant(ctx, periodID)
	if err != nil {
		return nil, err
	}
	items, err := s.repo.ListAutoCheckable(ctx, periodID)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, nil
	}
	status, err := s.recon.StatusForPeriod(ctx, tenantID, periodID)
	if err != nil {
		return nil, err
	}

	outcomes := make([]CheckOutcome, len(items))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, item := range items {
		g.Go(func() error {
			result, err := s.storeCheck(gctx, item, status)
			outcomes[i] = CheckOutcome{ItemID: item.ID, Name: item.Name, Result: result, Err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return outcomes, nil
}

func (s *Service) storeCheck(ctx context.Context, item Item, status recon.Status) (AutoCheckResult, error) {
	result, err := EvaluateCheck(item.AutoCheckType, item.AutoCheckThreshold, status, time.Now().UTC())
	if err != nil {
		return AutoCheckResult{}, err
	}
	actorID := shared.ActorFromContext(ctx)
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := tx.StoreAutoCheckResult(ctx, item.ID, result); err != nil {
			return err
		}
		encoded, err := json.Marshal(result)
		if err != nil {
			return err
		}
		return tx.AppendActivity(ctx, activity.Entry{
			PeriodID:   item.PeriodID,
			Action:     ActionAutoCheck,
			EntityType: activity.EntityChecklistItem,
			EntityID:   strconv.FormatInt(item.ID, 10),
			ActorID:    actorID,
			Details:    result.Message,
			NewValue:   string(encoded),
		})
	})
	if err != nil {
		return AutoCheckResult{}, err
	}
	return result, nil
}

func coalescePtr[T any](a, b *T) *T {
	if a != nil {
		return a
	}
	return b
}
