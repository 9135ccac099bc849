package shared

import (
	"errors"
	"fmt"
	"testing"
)

func TestConstructorsMatchSentinels(t *testing.T) {
	cases := []struct {
		name     string
		err      error
		sentinel *Error
	}{
		{"invalid transition", NewInvalidTransition("period", "OPEN", "LOCKED"), ErrInvalidTransition},
		{"validation", NewValidation("amount %q is not positive", "-1"), ErrValidation},
		{"policy violation", NewPolicyViolation("required item cannot be skipped"), ErrPolicyViolation},
		{"conflict", NewConflict("checklist item", 42), ErrConflict},
		{"dependency unavailable", NewDependencyUnavailable("ledger", errors.New("timeout")), ErrDependencyUnavailable},
		{"not found", NewNotFound("entry", 7), ErrNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if !errors.Is(tc.err, tc.sentinel) {
				t.Fatalf("errors.Is(%v, sentinel) = false", tc.err)
			}
			for _, other := range []*Error{
				ErrInvalidTransition, ErrValidation, ErrPolicyViolation,
				ErrConflict, ErrDependencyUnavailable, ErrNotFound,
			} {
				if other == tc.sentinel {
					continue
				}
				if errors.Is(tc.err, other) {
					t.Fatalf("errors.Is(%v, %v) matched the wrong kind", tc.err, other)
				}
			}
		})
	}
}

func TestIsSurvivesWrapping(t *testing.T) {
	wrapped := fmt.Errorf("post entry: %w", NewConflict("entry", 3))
	if !errors.Is(wrapped, ErrConflict) {
		t.Fatal("wrapped conflict did not match ErrConflict")
	}
	if errors.Is(errors.New("plain"), ErrConflict) {
		t.Fatal("plain error must not match a taxonomy sentinel")
	}
}

func TestMessagesNameTheEntity(t *testing.T) {
	err := NewInvalidTransition("period", "OPEN", "LOCKED")
	if got, want := err.Error(), "period is OPEN, expected LOCKED"; got != want {
		t.Fatalf("message = %q, want %q", got, want)
	}
	if got := NewDependencyUnavailable("checklist template provider", nil).Error(); got != "checklist template provider unavailable" {
		t.Fatalf("message = %q", got)
	}
}
