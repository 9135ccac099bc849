package periods

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/meridian-erp/meridian/internal/activity"
	"github.com/meridian-erp/meridian/internal/checklist"
	"github.com/meridian-erp/meridian/internal/shared"
)

const defaultTemplateTimeout = 5 * time.Second

// TemplateProvider returns the seed checklist for a period kind.
type TemplateProvider interface {
	Definitions(ctx context.Context, kind Kind) ([]checklist.Definition, error)
}

// TransitionObserver records transition outcomes, usually into metrics.
type TransitionObserver interface {
	ObserveTransition(action string, err error)
}

// Service drives the period state machine. Every transition reads the
// period under a row lock, verifies the source state, applies a conditional
// write, and appends one activity entry, all in a single transaction.
type Service struct {
	repo      Repository
	templates TemplateProvider
	observer  TransitionObserver
	timeout   time.Duration
	now       func() time.Time
}

// ServiceOption configures optional Service behaviour.
type ServiceOption func(*Service)

// WithObserver wires transition metrics.
func WithObserver(o TransitionObserver) ServiceOption {
	return func(s *Service) { s.observer = o }
}

// WithTemplateTimeout bounds the template provider call.
func WithTemplateTimeout(timeout time.Duration) ServiceOption {
	return func(s *Service) {
		if timeout > 0 {
			s.timeout = timeout
		}
	}
}

// WithNow overrides the clock, for deterministic tests.
func WithNow(now func() time.Time) ServiceOption {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService constructs the period state machine.
func NewService(repo Repository, templates TemplateProvider, opts ...ServiceOption) *Service {
	s := &Service{
		repo:      repo,
		templates: templates,
		timeout:   defaultTemplateTimeout,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetPeriod returns one period.
func (s *Service) GetPeriod(ctx context.Context, id int64) (Period, error) {
	return s.repo.GetPeriod(ctx, id)
}

// ListPeriods returns a tenant's periods, newest first.
func (s *Service) ListPeriods(ctx context.Context, tenantID int64, page shared.Pagination) ([]Period, error) {
	return s.repo.ListPeriods(ctx, tenantID, page.PerPage, page.Offset())
}

// CreatePeriod inserts a new open period after checking range overlap.
func (s *Service) CreatePeriod(ctx context.Context, in CreatePeriodInput) (Period, error) {
	if err := in.Validate(); err != nil {
		return Period{}, err
	}
	conflict, err := s.repo.RangeConflict(ctx, in.TenantID, in.StartDate, in.EndDate)
	if err != nil {
		return Period{}, err
	}
	if conflict {
		return Period{}, shared.NewValidation("period overlaps an existing period")
	}
	actorID := shared.ActorFromContext(ctx)
	var created Period
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		created, err = tx.InsertPeriod(ctx, in)
		if err != nil {
			return err
		}
		return tx.AppendActivity(ctx, activity.Entry{
			PeriodID:   created.ID,
			Action:     ActionCreate,
			EntityType: activity.EntityPeriod,
			EntityID:   strconv.FormatInt(created.ID, 10),
			ActorID:    actorID,
			Details:    created.Name,
			NewValue:   string(StatusOpen),
		})
	})
	if err != nil {
		return Period{}, err
	}
	return created, nil
}

// Start moves an open period into progress and seeds its checklist from the
// template set for the period kind.
func (s *Service) Start(ctx context.Context, id int64) (Period, error) {
	actorID := shared.ActorFromContext(ctx)
	now := s.now().UTC()
	var period Period
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetPeriodForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if current.Status != StatusOpen {
			return shared.NewInvalidTransition("period", string(current.Status), string(StatusOpen))
		}
		defs, err := s.seedDefinitions(ctx, current.Kind)
		if err != nil {
			return err
		}
		ok, err := tx.StartPeriod(ctx, id, actorID, now)
		if err != nil {
			return err
		}
		if !ok {
			return shared.NewConflict("period", id)
		}
		if err := tx.InsertChecklistItems(ctx, id, defs); err != nil {
			return err
		}
		if err := tx.AppendActivity(ctx, transitionEntry(current, StatusInProgress, ActionStart, actorID, "")); err != nil {
			return err
		}
		period = current
		period.Status = StatusInProgress
		period.StartedBy = &actorID
		period.StartedAt = &now
		return nil
	})
	s.observe(ActionStart, err)
	if err != nil {
		return Period{}, err
	}
	return period, nil
}

// Lock freezes an in-progress period for review.
func (s *Service) Lock(ctx context.Context, id int64) (Period, error) {
	actorID := shared.ActorFromContext(ctx)
	now := s.now().UTC()
	return s.transition(ctx, id, ActionLock, "", StatusInProgress, StatusLocked,
		func(tx TxRepository) (bool, error) { return tx.LockPeriod(ctx, id, actorID, now) },
		func(p *Period) {
			p.LockedBy = &actorID
			p.LockedAt = &now
		})
}

// Unlock rolls a locked period back for more work. The reason is recorded
// verbatim in the activity log.
func (s *Service) Unlock(ctx context.Context, id int64, reason string) (Period, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return Period{}, shared.NewValidation("a reason is required to unlock a period")
	}
	return s.transition(ctx, id, ActionUnlock, reason, StatusLocked, StatusInProgress,
		func(tx TxRepository) (bool, error) { return tx.UnlockPeriod(ctx, id) },
		func(p *Period) {
			p.LockedBy, p.LockedAt = nil, nil
			p.SubmittedBy, p.SubmittedAt = nil, nil
			p.ApprovedBy, p.ApprovedAt = nil, nil
		})
}

// SubmitForApproval hands an in-progress period to the approver.
func (s *Service) SubmitForApproval(ctx context.Context, id int64) (Period, error) {
	actorID := shared.ActorFromContext(ctx)
	now := s.now().UTC()
	return s.transition(ctx, id, ActionSubmit, "", StatusInProgress, StatusPendingApproval,
		func(tx TxRepository) (bool, error) { return tx.SubmitPeriod(ctx, id, actorID, now) },
		func(p *Period) {
			p.SubmittedBy = &actorID
			p.SubmittedAt = &now
		})
}

// Approve accepts a submitted period, returning it to locked with the
// approval stamp set. Approval does not itself close the books.
func (s *Service) Approve(ctx context.Context, id int64) (Period, error) {
	actorID := shared.ActorFromContext(ctx)
	now := s.now().UTC()
	return s.transition(ctx, id, ActionApprove, "", StatusPendingApproval, StatusLocked,
		func(tx TxRepository) (bool, error) { return tx.ApprovePeriod(ctx, id, actorID, now) },
		func(p *Period) {
			p.ApprovedBy = &actorID
			p.ApprovedAt = &now
			if p.LockedBy == nil {
				p.LockedBy = &actorID
				p.LockedAt = &now
			}
		})
}

// Reject sends a submitted period back to in_progress, clearing any prior
// approval stamp. The reason is mandatory.
func (s *Service) Reject(ctx context.Context, id int64, reason string) (Period, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return Period{}, shared.NewValidation("a reason is required to reject a period")
	}
	return s.transition(ctx, id, ActionReject, reason, StatusPendingApproval, StatusInProgress,
		func(tx TxRepository) (bool, error) { return tx.RejectPeriod(ctx, id, reason) },
		func(p *Period) {
			p.RejectionReason = reason
			p.ApprovedBy, p.ApprovedAt = nil, nil
			p.SubmittedBy, p.SubmittedAt = nil, nil
		})
}

// Close finally closes a locked, approved period. Closed is terminal.
func (s *Service) Close(ctx context.Context, id int64) (Period, error) {
	actorID := shared.ActorFromContext(ctx)
	now := s.now().UTC()
	var period Period
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetPeriodForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if current.Status != StatusLocked {
			return shared.NewInvalidTransition("period", string(current.Status), string(StatusLocked))
		}
		if current.ApprovedAt == nil {
			return shared.NewPolicyViolation("period must be approved before it can be closed")
		}
		ok, err := tx.ClosePeriod(ctx, id, actorID, now)
		if err != nil {
			return err
		}
		if !ok {
			return shared.NewConflict("period", id)
		}
		if err := tx.AppendActivity(ctx, transitionEntry(current, StatusClosed, ActionClose, actorID, "")); err != nil {
			return err
		}
		period = current
		period.Status = StatusClosed
		period.ClosedBy = &actorID
		period.ClosedAt = &now
		return nil
	})
	s.observe(ActionClose, err)
	if err != nil {
		return Period{}, err
	}
	return period, nil
}

func (s *Service) transition(ctx context.Context, id int64, action, reason string, from, to Status,
	apply func(TxRepository) (bool, error), stamp func(*Period)) (Period, error) {
	actorID := shared.ActorFromContext(ctx)
	var period Period
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetPeriodForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if current.Status != from {
			return shared.NewInvalidTransition("period", string(current.Status), string(from))
		}
		ok, err := apply(tx)
		if err != nil {
			return err
		}
		if !ok {
			return shared.NewConflict("period", id)
		}
		if err := tx.AppendActivity(ctx, transitionEntry(current, to, action, actorID, reason)); err != nil {
			return err
		}
		period = current
		period.Status = to
		stamp(&period)
		return nil
	})
	s.observe(action, err)
	if err != nil {
		return Period{}, err
	}
	return period, nil
}

func (s *Service) seedDefinitions(ctx context.Context, kind Kind) ([]checklist.Definition, error) {
	if s.templates == nil {
		return nil, shared.NewDependencyUnavailable("checklist template provider", nil)
	}
	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	defs, err := s.templates.Definitions(callCtx, kind)
	if err != nil {
		return nil, shared.NewDependencyUnavailable("checklist template provider", err)
	}
	return defs, nil
}

func (s *Service) observe(action string, err error) {
	if s.observer != nil {
		s.observer.ObserveTransition(action, err)
	}
}

func transitionEntry(p Period, to Status, action string, actorID int64, reason string) activity.Entry {
	return activity.Entry{
		PeriodID:   p.ID,
		Action:     action,
		EntityType: activity.EntityPeriod,
		EntityID:   strconv.FormatInt(p.ID, 10),
		ActorID:    actorID,
		Details:    reason,
		OldValue:   string(p.Status),
		NewValue:   string(to),
	}
}
