package shared

import "fmt"

// Kind classifies engine failures so callers can pick a recovery strategy.
type Kind int

const (
	// KindUnknown marks errors that do not belong to the close taxonomy.
	KindUnknown Kind = iota
	// KindInvalidTransition signals a lifecycle call against the wrong source state.
	KindInvalidTransition
	// KindValidation signals missing or malformed caller input.
	KindValidation
	// KindPolicyViolation signals an operation blocked by a close policy.
	KindPolicyViolation
	// KindConflict signals a lost concurrency race; the caller may retry.
	KindConflict
	// KindDependencyUnavailable signals a collaborator timeout or failure.
	KindDependencyUnavailable
	// KindNotFound signals an unknown period, item, or entry identifier.
	KindNotFound
)

// Error is the failure type surfaced by every engine operation. It carries
// the taxonomy kind plus a human-readable message; presentation belongs to
// the caller.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string { return e.Message }

// Is matches any error of the same kind, so errors.Is(err, ErrConflict)
// works regardless of the message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Kind sentinels for errors.Is checks.
var (
	ErrInvalidTransition     = &Error{Kind: KindInvalidTransition, Message: "invalid transition"}
	ErrValidation            = &Error{Kind: KindValidation, Message: "validation failed"}
	ErrPolicyViolation       = &Error{Kind: KindPolicyViolation, Message: "policy violation"}
	ErrConflict              = &Error{Kind: KindConflict, Message: "concurrent update conflict"}
	ErrDependencyUnavailable = &Error{Kind: KindDependencyUnavailable, Message: "dependency unavailable"}
	ErrNotFound              = &Error{Kind: KindNotFound, Message: "not found"}
)

// NewInvalidTransition reports the current vs. expected state for an entity.
func NewInvalidTransition(entity, current, expected string) *Error {
	return &Error{
		Kind:    KindInvalidTransition,
		Message: fmt.Sprintf("%s is %s, expected %s", entity, current, expected),
	}
}

// NewValidation builds a validation error from a format string.
func NewValidation(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// NewPolicyViolation builds a policy violation error from a format string.
func NewPolicyViolation(format string, args ...any) *Error {
	return &Error{Kind: KindPolicyViolation, Message: fmt.Sprintf(format, args...)}
}

// NewConflict reports a lost optimistic-concurrency race on an aggregate.
func NewConflict(entity string, id int64) *Error {
	return &Error{
		Kind:    KindConflict,
		Message: fmt.Sprintf("%s %d was modified concurrently, retry with fresh state", entity, id),
	}
}

// NewDependencyUnavailable wraps a collaborator failure; retryable with backoff.
func NewDependencyUnavailable(dependency string, err error) *Error {
	msg := fmt.Sprintf("%s unavailable", dependency)
	if err != nil {
		msg = fmt.Sprintf("%s unavailable: %v", dependency, err)
	}
	return &Error{Kind: KindDependencyUnavailable, Message: msg}
}

// NewNotFound reports an unknown identifier.
func NewNotFound(entity string, id int64) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf("%s %d not found", entity, id)}
}
