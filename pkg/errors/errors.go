package errors

import (
	"errors"
	"fmt"
)

// Domain error types for business logic

var (
	// ErrNotFound indicates a resource was not found
	ErrNotFound = errors.New("resource not found")

	// ErrAlreadyExists indicates a resource already exists
	ErrAlreadyExists = errors.New("resource already exists")

	// ErrInvalidInput indicates invalid input parameters
	ErrInvalidInput = errors.New("invalid input")

	// ErrInternal indicates an internal error
	ErrInternal = errors.New("internal error")

	// ErrTimeout indicates an operation timeout
	ErrTimeout = errors.New("operation timeout")
)

// Market-data provider errors

var (
	// ErrProviderUnavailable indicates the market-data provider failed or
	// returned a non-success status
	ErrProviderUnavailable = errors.New("market data provider unavailable")

	// ErrMalformedQuote indicates a provider response is missing an expected
	// field or carries the wrong type
	ErrMalformedQuote = errors.New("malformed provider response")

	// ErrRateLimited indicates the provider throttled the request
	ErrRateLimited = errors.New("provider rate limited the request")
)

// Analytics errors

var (
	// ErrNoCandidate indicates no contract cleared the score and liquidity
	// thresholds for a symbol
	ErrNoCandidate = errors.New("no qualifying candidate for symbol")

	// ErrStaleStrike indicates a trade's matching strike is absent from the
	// current snapshot
	ErrStaleStrike = errors.New("matching strike missing from snapshot")

	// ErrZeroPremium indicates a premium-capture calculation against a zero
	// initial premium
	ErrZeroPremium = errors.New("initial premium is zero")

	// ErrInvalidTick indicates a non-positive tick passed to the quantizer
	ErrInvalidTick = errors.New("tick size must be positive")
)

// DomainError wraps an error with additional context
type DomainError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the wrapped error
func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Helper functions

// Is checks if err is or wraps target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target type
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Wrap wraps an error with context
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with formatted context
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

func New(message string) error {
	return errors.New(message)
}

func Newf(format string, args ...interface{}) error {
	return fmt.Errorf(format, args...)
}
