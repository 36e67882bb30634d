// Package domain contains the core business entities and interfaces for the payment service.
package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent business rule violations.
// These are used to communicate specific error conditions from the domain layer.
var (
	// ErrValidation is returned when a required field is missing or invalid.
	ErrValidation = errors.New("validation failed")

	// ErrRateLimited is returned when a client exceeds its rate limit window.
	ErrRateLimited = errors.New("rate limit exceeded")

	// ErrUpstreamAuth is returned when the gateway token endpoint call fails.
	ErrUpstreamAuth = errors.New("upstream authorization failed")

	// ErrUpstreamGateway is returned when a gateway create/status call
	// responds with a non-2xx status.
	ErrUpstreamGateway = errors.New("payment gateway error")

	// ErrIntegrityViolation is returned when a checksum or tamper-hash
	// verification fails. Always logged as a security event.
	ErrIntegrityViolation = errors.New("integrity verification failed")
)

// PaymentError wraps a domain error with additional context.
type PaymentError struct {
	Err     error
	Message string
	Code    string
}

// Error implements the error interface.
func (e *PaymentError) Error() string {
	if e.Message != "" {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Err.Error()
}

// Unwrap allows errors.Is and errors.As to work with PaymentError.
func (e *PaymentError) Unwrap() error {
	return e.Err
}

// NewPaymentError creates a new PaymentError with the given error and message.
func NewPaymentError(err error, message, code string) *PaymentError {
	return &PaymentError{
		Err:     err,
		Message: message,
		Code:    code,
	}
}

// GatewayHTTPError preserves the upstream status code and response body
// when the gateway rejects a call. Operators need the raw diagnostic,
// so the body is carried along rather than swallowed.
type GatewayHTTPError struct {
	StatusCode int
	Body       []byte
}

// Error implements the error interface.
func (e *GatewayHTTPError) Error() string {
	return fmt.Sprintf("gateway returned status %d: %s", e.StatusCode, string(e.Body))
}

// Unwrap makes every GatewayHTTPError match ErrUpstreamGateway.
func (e *GatewayHTTPError) Unwrap() error {
	return ErrUpstreamGateway
}
