package facade

import (
	"errors"

	"github.com/fairyhunter13/commerce-core/internal/model"
)

// ErrorCode tags the failure classes callers can branch on. The set is the
// stable contract; messages are explanatory only.
type ErrorCode string

const (
	CodeNotFound          ErrorCode = "not_found"
	CodeInvalidInput      ErrorCode = "invalid_input"
	CodeInsufficientStock ErrorCode = "insufficient_stock"
	CodeInvalidTransition ErrorCode = "invalid_transition"
	CodeConflict          ErrorCode = "conflict"
	CodeInternal          ErrorCode = "internal"
)

// Error is the envelope every facade operation returns on failure.
type Error struct {
	Code    ErrorCode `json:"error"`
	Message string    `json:"details,omitempty"`
}

func (e *Error) Error() string { return string(e.Code) + ": " + e.Message }

// AsError extracts the facade envelope from err, if present.
func AsError(err error) (*Error, bool) {
	var fe *Error
	ok := errors.As(err, &fe)
	return fe, ok
}

func invalid(msg string) error {
	return &Error{Code: CodeInvalidInput, Message: msg}
}

// wrap maps core sentinel failures onto the envelope. A nil error stays nil.
func wrap(err error) error {
	if err == nil {
		return nil
	}
	code := CodeInternal
	switch {
	case errors.Is(err, model.ErrNotFound):
		code = CodeNotFound
	case errors.Is(err, model.ErrInvalidInput):
		code = CodeInvalidInput
	case errors.Is(err, model.ErrInsufficientStock):
		code = CodeInsufficientStock
	case errors.Is(err, model.ErrInvalidTransition):
		code = CodeInvalidTransition
	case errors.Is(err, model.ErrConflict):
		code = CodeConflict
	}
	return &Error{Code: code, Message: err.Error()}
}
