package models

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrNoProgress         = errors.New("no onboarding in progress")
	ErrInvalidStep        = errors.New("unknown onboarding step")
	ErrStepIncomplete     = errors.New("current step is not complete")
	ErrOnboardingComplete = errors.New("onboarding already complete")
	ErrInvalidPIN         = errors.New("invalid pin")
	ErrUnsupported        = errors.New("capability not supported")
	ErrTextMode           = errors.New("voice disabled in text mode")
)

// ValidationError represents a malformed or missing input field
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// IsValidationError reports whether err wraps a ValidationError
func IsValidationError(err error) bool {
	var ve ValidationError
	return errors.As(err, &ve)
}
