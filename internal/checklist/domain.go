package checklist

import "time"

// ItemStatus describes the lifecycle state of a closing task.
type ItemStatus string

const (
	ItemStatusPending    ItemStatus = "PENDING"
	ItemStatusInProgress ItemStatus = "IN_PROGRESS"
	ItemStatusCompleted  ItemStatus = "COMPLETED"
	ItemStatusSkipped    ItemStatus = "SKIPPED"
	ItemStatusBlocked    ItemStatus = "BLOCKED"
)

// Terminal reports whether no further transitions leave the status.
func (s ItemStatus) Terminal() bool {
	return s == ItemStatusCompleted || s == ItemStatusSkipped
}

// CheckType is the closed set of auto-check kinds. Each kind maps to a pure
// evaluation over the reconciliation projection; there is no open-ended
// plugin dispatch.
type CheckType string

const (
	CheckInvoiceMatch     CheckType = "INVOICE_MATCH"
	CheckPayslipMatch     CheckType = "PAYSLIP_MATCH"
	CheckTransactionMatch CheckType = "TRANSACTION_MATCH"
	CheckOverallHealth    CheckType = "OVERALL_HEALTH"
)

// AutoCheckResult is the advisory outcome of one auto-check execution. It is
// stored on the item but never changes the item status; completion stays an
// operator decision.
type AutoCheckResult struct {
	Passed       bool      `json:"passed"`
	CurrentValue float64   `json:"current_value"`
	Threshold    float64   `json:"threshold"`
	Message      string    `json:"message"`
	CheckedAt    time.Time `json:"checked_at"`
}

// Item is a discrete closing task scoped to one period. Items are seeded
// when the period starts and never deleted.
type Item struct {
	ID                 int64
	PeriodID           int64
	Category           string
	Name               string
	Description        string
	IsRequired         bool
	Sequence           int
	Status             ItemStatus
	AutoCheckType      CheckType
	AutoCheckThreshold *float64
	LastResult         *AutoCheckResult
	CompletedBy        *int64
	CompletedAt        *time.Time
	Reason             string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Definition describes one seed checklist entry from the template set.
type Definition struct {
	Category           string
	Name               string
	Description        string
	IsRequired         bool
	Sequence           int
	AutoCheckType      CheckType
	AutoCheckThreshold *float64
}

// Progress summarises completion for display. It never gates period
// transitions.
type Progress struct {
	Total     int     `json:"total"`
	Completed int     `json:"completed"`
	Skipped   int     `json:"skipped"`
	Percent   float64 `json:"percent"`
}

// CheckOutcome reports one item's result from a batch auto-check run.
type CheckOutcome struct {
	ItemID int64
	Name   string
	Result AutoCheckResult
	Err    error
}

// Activity log actions emitted by the checklist manager.
const (
	ActionBegin     = "checklist.begin"
	ActionComplete  = "checklist.complete"
	ActionSkip      = "checklist.skip"
	ActionBlock     = "checklist.block"
	ActionReopen    = "checklist.reopen"
	ActionAutoCheck = "checklist.auto_check"
)
