package domain

import "errors"

// Error kinds. Every public error unwraps to exactly one of these, which
// decides the status reported to the caller.
var (
	ErrInvalidInput    = errors.New("invalid input")
	ErrConflict        = errors.New("conflict")
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrForbidden       = errors.New("forbidden")
	ErrNotFound        = errors.New("not found")
)

// Error is an error whose message is safe to show to the caller.
type Error struct {
	Kind error
	Msg  string
}

// NewError creates a public error of the given kind.
func NewError(kind error, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

func (e *Error) Error() string {
	return e.Msg
}

// Unwrap returns the error kind.
func (e *Error) Unwrap() error {
	return e.Kind
}

// ErrMalformedBody is returned when a request body cannot be decoded.
var ErrMalformedBody = NewError(ErrInvalidInput, "invalid request body")

// MessageResponse is the body of every response without a payload.
type MessageResponse struct {
	Message string `json:"message"`
}
