package challenge

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrFailed        = errors.New("challenge: user failed challenge")
	ErrMissingField  = errors.New("challenge: missing field")
	ErrInvalidFormat = errors.New("challenge: field has invalid format")
	ErrExpired       = errors.New("challenge: challenge expired or was already used")
	ErrTampered      = errors.New("challenge: stored answer does not match submitted answer token")
)

// reasonLabel names a rejection in metrics.
func reasonLabel(err error) string {
	switch {
	case errors.Is(err, ErrMissingField):
		return "missing_field"
	case errors.Is(err, ErrInvalidFormat):
		return "invalid_format"
	case errors.Is(err, ErrExpired):
		return "expired"
	case errors.Is(err, ErrTampered):
		return "tampered"
	case errors.Is(err, ErrFailed):
		return "wrong_answer"
	default:
		return "unknown"
	}
}

func NewError(verb, publicReason string, privateReason error) *Error {
	return &Error{
		Verb:          verb,
		PublicReason:  publicReason,
		PrivateReason: privateReason,
		StatusCode:    http.StatusForbidden,
	}
}

// Error is a rejected validation. PublicReason is localized and safe to
// show; PrivateReason is only logged.
type Error struct {
	PrivateReason error
	Verb          string
	PublicReason  string
	StatusCode    int
}

func (e *Error) Error() string {
	return fmt.Sprintf("challenge: error when processing challenge: %s: %v", e.Verb, e.PrivateReason)
}

func (e *Error) Unwrap() error {
	return e.PrivateReason
}
