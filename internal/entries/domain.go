package entries

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Status is the lifecycle state of an adjusting entry.
type Status string

const (
	StatusDraft           Status = "DRAFT"
	StatusPendingApproval Status = "PENDING_APPROVAL"
	StatusApproved        Status = "APPROVED"
	StatusPosted          Status = "POSTED"
	StatusRejected        Status = "REJECTED"
)

// EntryType classifies the adjustment.
type EntryType string

const (
	TypeAccrual          EntryType = "ACCRUAL"
	TypeDepreciation     EntryType = "DEPRECIATION"
	TypePrepaid          EntryType = "PREPAID"
	TypeDeferral         EntryType = "DEFERRAL"
	TypeReclassification EntryType = "RECLASSIFICATION"
	TypeCorrection       EntryType = "CORRECTION"
	TypeOther            EntryType = "OTHER"
)

// Entry is a manual double-entry correction recorded during a close. Posted
// entries are immutable; corrections happen through reversal entries that
// back-reference the original.
type Entry struct {
	ID                  int64
	PeriodID            int64
	Reference           uuid.UUID
	EntryType           EntryType
	Description         string
	LinkedEntityType    string
	LinkedEntityID      *int64
	DebitAccount        string
	CreditAccount       string
	Amount              decimal.Decimal
	Currency            string
	ReferenceNumber     string
	Status              Status
	IsReversing         bool
	ReverseInNextPeriod bool
	ReversalOfID        *int64
	PostedTransactionID *string
	RejectionReason     string
	CreatedBy           int64
	SubmittedBy         *int64
	SubmittedAt         *time.Time
	ApprovedBy          *int64
	ApprovedAt          *time.Time
	RejectedBy          *int64
	RejectedAt          *time.Time
	PostedBy            *int64
	PostedAt            *time.Time
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// Activity log actions emitted by the adjusting entry ledger.
const (
	ActionCreate      = "entry.create"
	ActionUpdate      = "entry.update"
	ActionSubmit      = "entry.submit"
	ActionApprove     = "entry.approve"
	ActionReject      = "entry.reject"
	ActionRevert      = "entry.revert"
	ActionPost        = "entry.post"
	ActionRevertEntry = "entry.revert_entry"
)
