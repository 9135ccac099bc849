package periods

import (
	"strings"
	"time"

	"github.com/meridian-erp/meridian/internal/shared"
)

// Status enumerates the period close lifecycle. CLOSED is terminal.
type Status string

const (
	StatusOpen            Status = "OPEN"
	StatusInProgress      Status = "IN_PROGRESS"
	StatusLocked          Status = "LOCKED"
	StatusPendingApproval Status = "PENDING_APPROVAL"
	StatusClosed          Status = "CLOSED"
)

// Kind is the period granularity.
type Kind string

const (
	KindMonthly   Kind = "MONTHLY"
	KindQuarterly Kind = "QUARTERLY"
	KindAnnual    Kind = "ANNUAL"
)

func validKind(k Kind) bool {
	switch k {
	case KindMonthly, KindQuarterly, KindAnnual:
		return true
	default:
		return false
	}
}

// Period is one bounded accounting interval undergoing a close. Stamp pairs
// record who drove each gate; unlock and reject clear the stamps of the
// gates they roll back.
type Period struct {
	ID              int64
	TenantID        int64
	Name            string
	Kind            Kind
	StartDate       time.Time
	EndDate         time.Time
	Status          Status
	StartedBy       *int64
	StartedAt       *time.Time
	LockedBy        *int64
	LockedAt        *time.Time
	SubmittedBy     *int64
	SubmittedAt     *time.Time
	ApprovedBy      *int64
	ApprovedAt      *time.Time
	RejectionReason string
	ClosedBy        *int64
	ClosedAt        *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// CreatePeriodInput captures the fields for a new period.
type CreatePeriodInput struct {
	TenantID  int64     `json:"tenant_id"`
	Name      string    `json:"name"`
	Kind      Kind      `json:"kind"`
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
}

// Validate ensures the create input is coherent.
func (in CreatePeriodInput) Validate() error {
	if in.TenantID <= 0 {
		return shared.NewValidation("tenant id is required")
	}
	if strings.TrimSpace(in.Name) == "" {
		return shared.NewValidation("period name is required")
	}
	if !validKind(in.Kind) {
		return shared.NewValidation("kind must be MONTHLY, QUARTERLY, or ANNUAL")
	}
	if in.StartDate.IsZero() || in.EndDate.IsZero() {
		return shared.NewValidation("start and end date are required")
	}
	if in.StartDate.After(in.EndDate) {
		return shared.NewValidation("start date cannot be after end date")
	}
	return nil
}

// Activity log actions emitted by the period state machine.
const (
	ActionCreate  = "period.create"
	ActionStart   = "period.start"
	ActionLock    = "period.lock"
	ActionUnlock  = "period.unlock"
	ActionSubmit  = "period.submit_for_approval"
	ActionApprove = "period.approve"
	ActionReject  = "period.reject"
	ActionClose   = "period.close"
)
