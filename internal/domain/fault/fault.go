// Package fault classifies engine errors so callers can tell retryable
// conflicts from terminal rejections without string matching.
//
// Domain packages declare sentinel *Error values; usecases return them
// directly or wrapped with %w, so both errors.Is against the sentinel and
// KindOf on the chain keep working.
package fault

import (
	"errors"
	"fmt"
)

type Kind int

const (
	// Validation: malformed or out-of-range input. Client-correctable,
	// never retried automatically.
	Validation Kind = iota + 1
	// Policy: well-formed input refused by a business rule (multiplier
	// exceeded, coverage short, overpayment). Surfaced verbatim, not a
	// server fault.
	Policy
	// Conflict: concurrent modification or an illegal state transition.
	// Safe to retry a bounded number of times with the same idempotency key.
	Conflict
	// NotFound: unknown loan/cycle/slot/member id. Terminal.
	NotFound
)

func (k Kind) String() string {
	switch k {
	case Validation:
		return "validation"
	case Policy:
		return "policy_violation"
	case Conflict:
		return "conflict"
	case NotFound:
		return "not_found"
	default:
		return "unknown"
	}
}

type Error struct {
	Kind Kind
	Msg  string
}

func New(kind Kind, msg string) *Error { return &Error{Kind: kind, Msg: msg} }

func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

func (e *Error) Error() string { return e.Msg }

// KindOf unwraps err looking for a *Error and reports its Kind.
// Errors outside the taxonomy report 0.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return 0
}

// IsKind reports whether err carries the given Kind anywhere in its chain.
func IsKind(err error, kind Kind) bool { return KindOf(err) == kind }
