package model

import (
	"errors"
	"fmt"
)

// ErrDuplicateDetected signals that a deposit submission collided with an
// existing record for the same (user, item, qty). It is control flow, not a
// failure: callers route the submission to the duplicate workflow.
var ErrDuplicateDetected = errors.New("duplicate deposit detected")

// ErrInvalidConfig signals a broken item configuration (target < 1).
// Valuation for such an item is unavailable rather than a division fault.
var ErrInvalidConfig = errors.New("invalid item configuration")

// ValidationError reports bad input rejected before any write.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation: " + e.Reason
}

// Validationf builds a ValidationError from a format string.
func Validationf(format string, args ...any) error {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
