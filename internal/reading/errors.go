package reading

import (
	"errors"
	"strings"
)

// Kind classifies the conditions a user can recover from.
type Kind int

const (
	KindAlreadyRegistered Kind = iota + 1
	KindNotRegistered
	KindUnknownSpread
	KindInsufficientFunds
	KindNoActiveSpread
	KindIndexOutOfRange
	KindInvalidName
	KindInvalidBirthDate
)

var kindNames = map[Kind]string{
	KindAlreadyRegistered: "already registered",
	KindNotRegistered:     "not registered",
	KindUnknownSpread:     "unknown spread",
	KindInsufficientFunds: "insufficient funds",
	KindNoActiveSpread:    "no active spread",
	KindIndexOutOfRange:   "index out of range",
	KindInvalidName:       "invalid name",
	KindInvalidBirthDate:  "invalid birth date",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "unknown"
}

// Error is returned by transitions rejected for a user-level reason. The
// session is left untouched whenever one is returned.
type Error struct {
	Kind   Kind
	Detail string
}

func (e *Error) Error() string {
	if e.Detail == "" {
		return "reading: " + e.Kind.String()
	}
	return "reading: " + e.Kind.String() + ": " + e.Detail
}

// Code is picked up by the router when it logs failed handlers.
func (e *Error) Code() string {
	return strings.ToUpper(strings.ReplaceAll(e.Kind.String(), " ", "_"))
}

// Is matches errors of the same kind, so errors.Is(err, ErrNotRegistered) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

var (
	ErrAlreadyRegistered = &Error{Kind: KindAlreadyRegistered}
	ErrNotRegistered     = &Error{Kind: KindNotRegistered}
	ErrUnknownSpread     = &Error{Kind: KindUnknownSpread}
	ErrInsufficientFunds = &Error{Kind: KindInsufficientFunds}
	ErrNoActiveSpread    = &Error{Kind: KindNoActiveSpread}
	ErrIndexOutOfRange   = &Error{Kind: KindIndexOutOfRange}
	ErrInvalidName       = &Error{Kind: KindInvalidName}
	ErrInvalidBirthDate  = &Error{Kind: KindInvalidBirthDate}
)

func newError(kind Kind, detail string) *Error {
	return &Error{Kind: kind, Detail: detail}
}

// KindOf extracts the user-level kind of err, or 0 for internal faults.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}
