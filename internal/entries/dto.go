package entries

import (
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"

	"github.com/meridian-erp/meridian/internal/shared"
)

var validate = validator.New()

// EntryInput groups the fields required to create or update an adjusting
// entry. Amount arrives as a string to avoid float round-tripping.
type EntryInput struct {
	PeriodID            int64  `json:"period_id" validate:"required,gt=0"`
	EntryType           string `json:"entry_type" validate:"required,oneof=ACCRUAL DEPRECIATION PREPAID DEFERRAL RECLASSIFICATION CORRECTION OTHER"`
	Description         string `json:"description" validate:"required,max=500"`
	LinkedEntityType    string `json:"linked_entity_type" validate:"omitempty,max=64"`
	LinkedEntityID      *int64 `json:"linked_entity_id" validate:"omitempty,gt=0"`
	DebitAccount        string `json:"debit_account" validate:"required,max=64"`
	CreditAccount       string `json:"credit_account" validate:"required,max=64"`
	Amount              string `json:"amount" validate:"required"`
	Currency            string `json:"currency" validate:"required,len=3"`
	ReferenceNumber     string `json:"reference_number" validate:"omitempty,max=64"`
	IsReversing         bool   `json:"is_reversing"`
	ReverseInNextPeriod bool   `json:"reverse_in_next_period"`
}

// Parsed is the validated form of EntryInput.
type Parsed struct {
	PeriodID            int64
	EntryType           EntryType
	Description         string
	LinkedEntityType    string
	LinkedEntityID      *int64
	DebitAccount        string
	CreditAccount       string
	Amount              decimal.Decimal
	Currency            string
	ReferenceNumber     string
	IsReversing         bool
	ReverseInNextPeriod bool
}

// Validate checks structural rules and the accounting invariants: amount
// strictly positive, distinct debit and credit accounts, recognised ISO 4217
// currency. No record is persisted when any rule fails.
func (in EntryInput) Validate() (Parsed, error) {
	if err := validate.Struct(in); err != nil {
		if fieldErrs, ok := err.(validator.ValidationErrors); ok && len(fieldErrs) > 0 {
			return Parsed{}, shared.NewValidation("invalid field %s", strings.ToLower(fieldErrs[0].Field()))
		}
		return Parsed{}, shared.NewValidation("invalid entry payload")
	}
	amount, err := decimal.NewFromString(strings.TrimSpace(in.Amount))
	if err != nil {
		return Parsed{}, shared.NewValidation("amount %q is not a valid number", in.Amount)
	}
	if !amount.IsPositive() {
		return Parsed{}, shared.NewValidation("amount must be greater than zero")
	}
	debit := strings.TrimSpace(in.DebitAccount)
	credit := strings.TrimSpace(in.CreditAccount)
	if strings.EqualFold(debit, credit) {
		return Parsed{}, shared.NewValidation("debit and credit accounts must differ")
	}
	code := strings.ToUpper(strings.TrimSpace(in.Currency))
	unit, err := currency.ParseISO(code)
	if err != nil {
		return Parsed{}, shared.NewValidation("currency %q is not a recognised ISO 4217 code", in.Currency)
	}
	linkedType := strings.TrimSpace(in.LinkedEntityType)
	if in.LinkedEntityID != nil && linkedType == "" {
		return Parsed{}, shared.NewValidation("linked_entity_type is required when linked_entity_id is set")
	}
	return Parsed{
		PeriodID:            in.PeriodID,
		EntryType:           EntryType(in.EntryType),
		Description:         strings.TrimSpace(in.Description),
		LinkedEntityType:    linkedType,
		LinkedEntityID:      in.LinkedEntityID,
		DebitAccount:        debit,
		CreditAccount:       credit,
		Amount:              amount,
		Currency:            unit.String(),
		ReferenceNumber:     strings.TrimSpace(in.ReferenceNumber),
		IsReversing:         in.IsReversing,
		ReverseInNextPeriod: in.ReverseInNextPeriod,
	}, nil
}

// RejectInput wraps the parameters for rejecting an entry.
type RejectInput struct {
	Reason string `json:"reason"`
}
