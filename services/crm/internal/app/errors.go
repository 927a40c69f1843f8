package app

import (
	"errors"
	"fmt"
)

// Error kinds. Handlers map them to HTTP statuses with errors.Is.
var (
	ErrValidation = errors.New("validation failed")
	// ErrInvalidCredentials is shown to end users and must not reveal which
	// half of the credentials was wrong.
	ErrInvalidCredentials = errors.New("Invalid email or password")
	ErrUnauthenticated    = errors.New("Authentication required")
	ErrForbidden          = errors.New("Access denied")
	ErrNotFound           = errors.New("not found")
	ErrConflict           = errors.New("conflict")
	ErrInternal           = errors.New("internal error")
)

// Error carries a client-facing message for one of the kinds above. Cause,
// when set, is for logs only.
type Error struct {
	Kind  error
	Msg   string
	Cause error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Cause)
	}
	return e.Msg
}

func (e *Error) Is(target error) bool { return target == e.Kind }

func (e *Error) Unwrap() error { return e.Cause }

// Message returns the text safe to show to clients.
func (e *Error) Message() string { return e.Msg }

func validationError(format string, args ...any) error {
	return &Error{Kind: ErrValidation, Msg: fmt.Sprintf(format, args...)}
}

func notFound(msg string) error {
	return &Error{Kind: ErrNotFound, Msg: msg}
}

func conflict(msg string, cause error) error {
	return &Error{Kind: ErrConflict, Msg: msg, Cause: cause}
}

func forbidden(msg string) error {
	return &Error{Kind: ErrForbidden, Msg: msg}
}

func internal(msg string, cause error) error {
	return &Error{Kind: ErrInternal, Msg: msg, Cause: cause}
}
