package models

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput            = errors.New("invalid input")
	ErrInvalidOrExpiredOTP     = errors.New("invalid or expired OTP")
	ErrUnauthenticated         = errors.New("unauthenticated")
	ErrInvalidCredentials      = errors.New("invalid credentials")
	ErrNotFound                = errors.New("not found")
	ErrInvalidStatusTransition = errors.New("invalid status transition")
	ErrPaymentPending          = errors.New("payment not completed")
	ErrPaymentUnavailable      = errors.New("payment gateway unavailable")
	ErrPhoneTaken              = errors.New("phone number already registered")
)

var (
	ErrUserNotFound  = fmt.Errorf("user %w", ErrNotFound)
	ErrOrderNotFound = fmt.Errorf("order %w", ErrNotFound)
)

// ValidationError reports a rejected request field. It matches ErrInvalidInput
// with errors.Is, and Message is safe to show to the client.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}

// Invalid builds a ValidationError for field.
func Invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}
