package entries

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/meridian-erp/meridian/internal/activity"
	"github.com/meridian-erp/meridian/internal/shared"
)

const defaultPosterTimeout = 5 * time.Second

// Poster writes an approved entry to the external general ledger and returns
// the opaque transaction id assigned there.
type Poster interface {
	PostEntry(ctx context.Context, e Entry) (string, error)
}

// Service manages the adjusting entry lifecycle. Posted entries are never
// mutated; corrections flow through reversal entries.
type Service struct {
	repo    Repository
	poster  Poster
	timeout time.Duration
	now     func() time.Time
}

// ServiceOption configures optional Service behaviour.
type ServiceOption func(*Service)

// WithPosterTimeout bounds the ledger call.
func WithPosterTimeout(timeout time.Duration) ServiceOption {
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

// NewService constructs the adjusting entry ledger.
func NewService(repo Repository, poster Poster, opts ...ServiceOption) *Service {
	s := &Service{
		repo:    repo,
		poster:  poster,
		timeout: defaultPosterTimeout,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns one entry.
func (s *Service) Get(ctx context.Context, id int64) (Entry, error) {
	return s.repo.GetEntry(ctx, id)
}

// ListByPeriod returns the period's entries, newest first.
func (s *Service) ListByPeriod(ctx context.Context, periodID int64) ([]Entry, error) {
	return s.repo.ListByPeriod(ctx, periodID)
}

// Create records a new draft entry after full validation. Nothing is
// persisted when validation fails.
func (s *Service) Create(ctx context.Context, in EntryInput) (Entry, error) {
	parsed, err := in.Validate()
	if err != nil {
		return Entry{}, err
	}
	actorID := shared.ActorFromContext(ctx)
	var created Entry
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		period, err := tx.GetPeriodForUpdate(ctx, parsed.PeriodID)
		if err != nil {
			return err
		}
		if period.Closed() {
			return shared.NewPolicyViolation("cannot create entries in a closed period")
		}
		created, err = tx.InsertEntry(ctx, Entry{
			PeriodID:            parsed.PeriodID,
			Reference:           uuid.New(),
			EntryType:           parsed.EntryType,
			Description:         parsed.Description,
			LinkedEntityType:    parsed.LinkedEntityType,
			LinkedEntityID:      parsed.LinkedEntityID,
			DebitAccount:        parsed.DebitAccount,
			CreditAccount:       parsed.CreditAccount,
			Amount:              parsed.Amount,
			Currency:            parsed.Currency,
			ReferenceNumber:     parsed.ReferenceNumber,
			Status:              StatusDraft,
			IsReversing:         parsed.IsReversing,
			ReverseInNextPeriod: parsed.ReverseInNextPeriod,
			CreatedBy:           actorID,
		})
		if err != nil {
			return err
		}
		return tx.AppendActivity(ctx, activity.Entry{
			PeriodID:   created.PeriodID,
			Action:     ActionCreate,
			EntityType: activity.EntityEntry,
			EntityID:   strconv.FormatInt(created.ID, 10),
			ActorID:    actorID,
			Details:    created.Description,
			NewValue:   string(StatusDraft),
		})
	})
	if err != nil {
		return Entry{}, err
	}
	return created, nil
}

// Update replaces the editable fields of a draft entry.
func (s *Service) Update(ctx context.Context, id int64, in EntryInput) (Entry, error) {
	parsed, err := in.Validate()
	if err != nil {
		return Entry{}, err
	}
	actorID := shared.ActorFromContext(ctx)
	var updated Entry
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		entry, err := tx.GetEntry(ctx, id)
		if err != nil {
			return err
		}
		if entry.Status != StatusDraft {
			return shared.NewInvalidTransition("adjusting entry", string(entry.Status), string(StatusDraft))
		}
		if parsed.PeriodID != entry.PeriodID {
			return shared.NewValidation("an entry cannot move between periods")
		}
		ok, err := tx.UpdateEntryFields(ctx, id, parsed)
		if err != nil {
			return err
		}
		if !ok {
			return shared.NewConflict("adjusting entry", id)
		}
		if err := tx.AppendActivity(ctx, activity.Entry{
			PeriodID:   entry.PeriodID,
			Action:     ActionUpdate,
			EntityType: activity.EntityEntry,
			EntityID:   strconv.FormatInt(id, 10),
			ActorID:    actorID,
			Details:    parsed.Description,
		}); err != nil {
			return err
		}
		entry.EntryType = parsed.EntryType
		entry.Description = parsed.Description
		entry.LinkedEntityType = parsed.LinkedEntityType
		entry.LinkedEntityID = parsed.LinkedEntityID
		entry.DebitAccount = parsed.DebitAccount
		entry.CreditAccount = parsed.CreditAccount
		entry.Amount = parsed.Amount
		entry.Currency = parsed.Currency
		entry.ReferenceNumber = parsed.ReferenceNumber
		entry.IsReversing = parsed.IsReversing
		entry.ReverseInNextPeriod = parsed.ReverseInNextPeriod
		updated = entry
		return nil
	})
	if err != nil {
		return Entry{}, err
	}
	return updated, nil
}

// Submit moves a draft entry into the approval queue, stamping the submitter.
func (s *Service) Submit(ctx context.Context, id int64) (Entry, error) {
	actorID := shared.ActorFromContext(ctx)
	now := s.now().UTC()
	return s.transition(ctx, id, ActionSubmit, "", func(e Entry) (StatusChange, error) {
		if e.Status != StatusDraft {
			return StatusChange{}, shared.NewInvalidTransition("adjusting entry", string(e.Status), string(StatusDraft))
		}
		return StatusChange{
			From:        e.Status,
			To:          StatusPendingApproval,
			SubmittedBy: &actorID,
			SubmittedAt: &now,
		}, nil
	})
}

// Approve marks a pending entry as approved, stamping the approver.
func (s *Service) Approve(ctx context.Context, id int64) (Entry, error) {
	actorID := shared.ActorFromContext(ctx)
	now := s.now().UTC()
	return s.transition(ctx, id, ActionApprove, "", func(e Entry) (StatusChange, error) {
		if e.Status != StatusPendingApproval {
			return StatusChange{}, shared.NewInvalidTransition("adjusting entry", string(e.Status), string(StatusPendingApproval))
		}
		return StatusChange{
			From:       e.Status,
			To:         StatusApproved,
			ApprovedBy: &actorID,
			ApprovedAt: &now,
		}, nil
	})
}

// Reject sends a draft or pending entry back with a mandatory reason,
// stamping who rejected it and when.
func (s *Service) Reject(ctx context.Context, id int64, reason string) (Entry, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return Entry{}, shared.NewValidation("a reason is required to reject an entry")
	}
	actorID := shared.ActorFromContext(ctx)
	now := s.now().UTC()
	return s.transition(ctx, id, ActionReject, reason, func(e Entry) (StatusChange, error) {
		if e.Status != StatusDraft && e.Status != StatusPendingApproval {
			return StatusChange{}, shared.NewInvalidTransition("adjusting entry", string(e.Status), "DRAFT or PENDING_APPROVAL")
		}
		return StatusChange{
			From:            e.Status,
			To:              StatusRejected,
			RejectionReason: reason,
			RejectedBy:      &actorID,
			RejectedAt:      &now,
		}, nil
	})
}

// Revert returns a rejected entry to draft so it can be corrected.
func (s *Service) Revert(ctx context.Context, id int64) (Entry, error) {
	return s.transition(ctx, id, ActionRevert, "", func(e Entry) (StatusChange, error) {
		if e.Status != StatusRejected {
			return StatusChange{}, shared.NewInvalidTransition("adjusting entry", string(e.Status), string(StatusRejected))
		}
		return StatusChange{From: e.Status, To: StatusDraft}, nil
	})
}

func (s *Service) transition(ctx context.Context, id int64, action, details string, decide func(Entry) (StatusChange, error)) (Entry, error) {
	actorID := shared.ActorFromContext(ctx)
	var updated Entry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		entry, err := tx.GetEntry(ctx, id)
		if err != nil {
			return err
		}
		change, err := decide(entry)
		if err != nil {
			return err
		}
		change.EntryID = entry.ID
		ok, err := tx.UpdateEntryStatus(ctx, change)
		if err != nil {
			return err
		}
		if !ok {
			return shared.NewConflict("adjusting entry", entry.ID)
		}
		if err := tx.AppendActivity(ctx, activity.Entry{
			PeriodID:   entry.PeriodID,
			Action:     action,
			EntityType: activity.EntityEntry,
			EntityID:   strconv.FormatInt(entry.ID, 10),
			ActorID:    actorID,
			Details:    details,
			OldValue:   string(change.From),
			NewValue:   string(change.To),
		}); err != nil {
			return err
		}
		entry.Status = change.To
		if change.RejectionReason != "" {
			entry.RejectionReason = change.RejectionReason
		}
		if change.SubmittedBy != nil {
			entry.SubmittedBy = change.SubmittedBy
			entry.SubmittedAt = change.SubmittedAt
		}
		if change.ApprovedBy != nil {
			entry.ApprovedBy = change.ApprovedBy
			entry.ApprovedAt = change.ApprovedAt
		}
		if change.RejectedBy != nil {
			entry.RejectedBy = change.RejectedBy
			entry.RejectedAt = change.RejectedAt
		}
		updated = entry
		return nil
	})
	if err != nil {
		return Entry{}, err
	}
	return updated, nil
}

// Post writes an approved entry to the external ledger and marks it posted.
// When the entry asks for next-period reversal, the sibling draft entry is
// created in the same transaction; if no next period exists the whole post
// fails and nothing is committed.
func (s *Service) Post(ctx context.Context, id int64) (Entry, error) {
	actorID := shared.ActorFromContext(ctx)
	var posted Entry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		entry, err := tx.GetEntry(ctx, id)
		if err != nil {
			return err
		}
		if entry.Status != StatusApproved {
			return shared.NewInvalidTransition("adjusting entry", string(entry.Status), string(StatusApproved))
		}
		period, err := tx.GetPeriodForUpdate(ctx, entry.PeriodID)
		if err != nil {
			return err
		}
		if period.Closed() {
			return shared.NewPolicyViolation("cannot post entries to a closed period")
		}

		txnID, err := s.postToLedger(ctx, entry)
		if err != nil {
			return err
		}
		now := s.now().UTC()
		ok, err := tx.UpdateEntryStatus(ctx, StatusChange{
			EntryID:             entry.ID,
			From:                StatusApproved,
			To:                  StatusPosted,
			PostedBy:            &actorID,
			PostedAt:            &now,
			PostedTransactionID: &txnID,
		})
		if err != nil {
			return err
		}
		if !ok {
			return shared.NewConflict("adjusting entry", entry.ID)
		}
		if err := tx.AppendActivity(ctx, activity.Entry{
			PeriodID:   entry.PeriodID,
			Action:     ActionPost,
			EntityType: activity.EntityEntry,
			EntityID:   strconv.FormatInt(entry.ID, 10),
			ActorID:    actorID,
			Details:    "posted as ledger transaction " + txnID,
			OldValue:   string(StatusApproved),
			NewValue:   string(StatusPosted),
		}); err != nil {
			return err
		}

		if entry.IsReversing && entry.ReverseInNextPeriod {
			next, err := tx.NextPeriod(ctx, period.TenantID, period.StartDate)
			if err != nil {
				return err
			}
			reversal, err := tx.InsertEntry(ctx, reversalOf(entry, next.ID, actorID))
			if err != nil {
				return err
			}
			if err := tx.AppendActivity(ctx, activity.Entry{
				PeriodID:   next.ID,
				Action:     ActionCreate,
				EntityType: activity.EntityEntry,
				EntityID:   strconv.FormatInt(reversal.ID, 10),
				ActorID:    actorID,
				Details:    fmt.Sprintf("auto-generated reversal of entry %d", entry.ID),
				NewValue:   string(StatusDraft),
			}); err != nil {
				return err
			}
		}

		entry.Status = StatusPosted
		entry.PostedBy = &actorID
		entry.PostedAt = &now
		entry.PostedTransactionID = &txnID
		posted = entry
		return nil
	})
	if err != nil {
		return Entry{}, err
	}
	return posted, nil
}

// RevertEntry creates an in-period draft reversal for a posted entry. The
// posted entry itself never changes; the reversal follows the normal
// lifecycle on its own.
func (s *Service) RevertEntry(ctx context.Context, id int64) (Entry, error) {
	actorID := shared.ActorFromContext(ctx)
	var reversal Entry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		entry, err := tx.GetEntry(ctx, id)
		if err != nil {
			return err
		}
		if entry.Status != StatusPosted {
			return shared.NewInvalidTransition("adjusting entry", string(entry.Status), string(StatusPosted))
		}
		period, err := tx.GetPeriodForUpdate(ctx, entry.PeriodID)
		if err != nil {
			return err
		}
		if period.Closed() {
			return shared.NewPolicyViolation("cannot create a reversal in a closed period")
		}
		reversal, err = tx.InsertEntry(ctx, reversalOf(entry, entry.PeriodID, actorID))
		if err != nil {
			return err
		}
		return tx.AppendActivity(ctx, activity.Entry{
			PeriodID:   entry.PeriodID,
			Action:     ActionRevertEntry,
			EntityType: activity.EntityEntry,
			EntityID:   strconv.FormatInt(entry.ID, 10),
			ActorID:    actorID,
			Details:    fmt.Sprintf("reversal entry %d created", reversal.ID),
		})
	})
	if err != nil {
		return Entry{}, err
	}
	return reversal, nil
}

func (s *Service) postToLedger(ctx context.Context, entry Entry) (string, error) {
	if s.poster == nil {
		return "", shared.NewDependencyUnavailable("ledger posting service", nil)
	}
	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	txnID, err := s.poster.PostEntry(callCtx, entry)
	if err != nil {
		return "", shared.NewDependencyUnavailable("ledger posting service", err)
	}
	return txnID, nil
}

// reversalOf builds the mirror entry: accounts swapped, amount unchanged,
// back-reference to the original.
func reversalOf(original Entry, periodID, actorID int64) Entry {
	originalID := original.ID
	return Entry{
		PeriodID:         periodID,
		Reference:        uuid.New(),
		EntryType:        original.EntryType,
		Description:      "Reversal of " + original.Description,
		LinkedEntityType: original.LinkedEntityType,
		LinkedEntityID:   original.LinkedEntityID,
		DebitAccount:     original.CreditAccount,
		CreditAccount:    original.DebitAccount,
		Amount:           original.Amount,
		Currency:         original.Currency,
		Status:           StatusDraft,
		ReversalOfID:     &originalID,
		CreatedBy:        actorID,
	}
}
