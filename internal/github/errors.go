package github

import "fmt"

// AuthenticationError represents an authentication failure (401)
type AuthenticationError struct {
	Message string
	Err     error
}

func (e *AuthenticationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("authentication failed: %s: %v", e.Message, e.Err)
	}
	return fmt.Sprintf("authentication failed: %s", e.Message)
}

func (e *AuthenticationError) Unwrap() error {
	return e.Err
}

// NewAuthenticationError creates a new AuthenticationError
func NewAuthenticationError(message string, err error) *AuthenticationError {
	return &AuthenticationError{
		Message: message,
		Err:     err,
	}
}

// IsAuthenticationError checks if an error is an AuthenticationError
func IsAuthenticationError(err error) bool {
	_, ok := err.(*AuthenticationError)
	return ok
}

// NotFoundError represents a missing resource (404)
type NotFoundError struct {
	Resource string
	Err      error
}

func (e *NotFoundError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("not found: %s: %v", e.Resource, e.Err)
	}
	return fmt.Sprintf("not found: %s", e.Resource)
}

func (e *NotFoundError) Unwrap() error {
	return e.Err
}

// IsNotFoundError checks if an error is a NotFoundError
func IsNotFoundError(err error) bool {
	_, ok := err.(*NotFoundError)
	return ok
}

// RateLimitError represents a rate limit error (429)
type RateLimitError struct {
	Message   string
	Limit     int
	Remaining int
	ResetAt   int64 // Unix timestamp
	Err       error
}

func (e *RateLimitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("rate limit exceeded: %s (limit: %d, remaining: %d, resets at: %d): %v",
			e.Message, e.Limit, e.Remaining, e.ResetAt, e.Err)
	}
	return fmt.Sprintf("rate limit exceeded: %s (limit: %d, remaining: %d, resets at: %d)",
		e.Message, e.Limit, e.Remaining, e.ResetAt)
}

func (e *RateLimitError) Unwrap() error {
	return e.Err
}

// IsRetryable returns true since rate limit errors are transient
func (e *RateLimitError) IsRetryable() bool {
	return true
}

// IsRateLimitError checks if an error is a RateLimitError
func IsRateLimitError(err error) bool {
	_, ok := err.(*RateLimitError)
	return ok
}

// RetryableError represents an error that can be retried
type RetryableError struct {
	Message string
	Err     error
}

func (e *RetryableError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("retryable error: %s: %v", e.Message, e.Err)
	}
	return fmt.Sprintf("retryable error: %s", e.Message)
}

func (e *RetryableError) Unwrap() error {
	return e.Err
}

// IsRetryable returns true
func (e *RetryableError) IsRetryable() bool {
	return true
}

// NewRetryableError creates a new RetryableError
func NewRetryableError(message string, err error) *RetryableError {
	return &RetryableError{
		Message: message,
		Err:     err,
	}
}

// IsRetryableError checks if an error is retryable
// This checks for both explicit RetryableError and RateLimitError types
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}

	if _, ok := err.(*RetryableError); ok {
		return true
	}

	if _, ok := err.(*RateLimitError); ok {
		return true
	}

	type retryable interface {
		IsRetryable() bool
	}

	if r, ok := err.(retryable); ok {
		return r.IsRetryable()
	}

	return false
}
