package apperrors

import (
	"errors"
	"fmt"
)

// Kind classifies a user-facing failure.
type Kind string

const (
	KindConfiguration Kind = "configuration" // Malformed or contradictory input
	KindValidation    Kind = "validation"    // Target project is not eligible for restore
	KindBackend       Kind = "backend"       // Object storage or Storage API failure during restore
)

// UserError is an error the operator can act on. Its message is printed as-is
// and the process exits with a non-zero code.
type UserError struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *UserError) Error() string {
	return e.Message
}

func (e *UserError) Unwrap() error {
	return e.Err
}

// Configuration returns a configuration UserError.
func Configuration(format string, args ...any) *UserError {
	return &UserError{Kind: KindConfiguration, Message: fmt.Sprintf(format, args...)}
}

// Validation returns a validation UserError.
func Validation(format string, args ...any) *UserError {
	return &UserError{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// Backend rewraps err as a backend UserError carrying the original message.
func Backend(err error) *UserError {
	return &UserError{Kind: KindBackend, Message: err.Error(), Err: err}
}

// IsUserError reports whether err or any error it wraps is a UserError.
func IsUserError(err error) bool {
	var ue *UserError
	return errors.As(err, &ue)
}

// KindOf returns the kind of the first UserError in err's chain, or "" if there is none.
func KindOf(err error) Kind {
	var ue *UserError
	if errors.As(err, &ue) {
		return ue.Kind
	}
	return ""
}
