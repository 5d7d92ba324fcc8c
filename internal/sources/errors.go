package sources

import (
	"errors"
	"fmt"
	"net/http"
)

// Common errors returned by source adapters.
var (
	// ErrNotFound indicates the resource was not found.
	ErrNotFound = errors.New("not found")

	// ErrAuth indicates a missing or rejected API key.
	ErrAuth = errors.New("authentication error")

	// ErrRateLimited indicates the rate limit was still exceeded after retries.
	ErrRateLimited = errors.New("rate limit exceeded")

	// ErrSourceUnavailable means the source cannot be used for this run.
	// It ends the source's sequence; other sources carry on.
	ErrSourceUnavailable = errors.New("source unavailable")

	// ErrInvalidResponse indicates an unexpected response body.
	ErrInvalidResponse = errors.New("invalid response")
)

// APIError represents a non-success HTTP status from a remote API.
type APIError struct {
	Source     string
	StatusCode int
	URL        string
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s API error (status %d): %s", e.Source, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s API error (status %d) for %s", e.Source, e.StatusCode, e.URL)
}

// CandidateError is a failure to build one candidate. The sequence that
// yielded it continues.
type CandidateError struct {
	Source string
	ID     string // put-code, DOI, patent number, file name
	Err    error
}

func (e *CandidateError) Error() string {
	return fmt.Sprintf("%s: candidate %s: %v", e.Source, e.ID, e.Err)
}

func (e *CandidateError) Unwrap() error {
	return e.Err
}

// IsNotFound returns true if the error indicates a resource was not found.
func IsNotFound(err error) bool {
	if errors.Is(err, ErrNotFound) {
		return true
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusNotFound
	}
	return false
}

// IsAuthError returns true if the error indicates an authentication problem.
func IsAuthError(err error) bool {
	if errors.Is(err, ErrAuth) {
		return true
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusForbidden
	}
	return false
}

// IsRateLimited returns true if the error indicates rate limiting.
func IsRateLimited(err error) bool {
	if errors.Is(err, ErrRateLimited) {
		return true
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusTooManyRequests
	}
	return false
}

// IsFatal reports whether err should end a source's sequence.
func IsFatal(err error) bool {
	return errors.Is(err, ErrSourceUnavailable)
}

// Unavailable wraps err so that IsFatal reports true.
func Unavailable(source string, err error) error {
	return fmt.Errorf("%s: %w: %w", source, ErrSourceUnavailable, err)
}
