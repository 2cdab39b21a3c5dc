package domain

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Sentinel errors. Typed errors below unwrap to one of them, so callers match
// with errors.Is and only reach for errors.As when they need the details.
var (
	// ErrNotFound: no paper or reaction matches the id.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists: a unique row exists, e.g. the user's reaction.
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput: a request or argument failed validation.
	ErrInvalidInput = errors.New("invalid input")

	// ErrRateLimited: the image provider or the local limiter refused the call.
	ErrRateLimited = errors.New("rate limited")

	// ErrServiceUnavailable: the row store or the image provider cannot be reached.
	ErrServiceUnavailable = errors.New("service unavailable")

	// ErrCancelled: the caller went away before the operation completed.
	ErrCancelled = errors.New("cancelled")

	// ErrNoIdentifier indicates that a row has neither an id nor a doi.
	ErrNoIdentifier = errors.New("no identifier")

	// ErrDemoPaper indicates a mutation was attempted on a built-in demo paper.
	ErrDemoPaper = errors.New("demo paper is read-only")
)

// Aborted marks err as ErrCancelled when it stems from a cancelled context.
// Other errors are returned unchanged.
func Aborted(err error) error {
	if err == nil || !errors.Is(err, context.Canceled) || errors.Is(err, ErrCancelled) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrCancelled, err)
}

// ValidationError names the request field that failed validation.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrInvalidInput }

// NewValidationError creates a ValidationError.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// EntityError reports a lookup or uniqueness failure on one paper or reaction.
// Kind is ErrNotFound or ErrAlreadyExists.
type EntityError struct {
	Kind   error
	Entity string
	ID     string
}

func (e *EntityError) Error() string {
	return fmt.Sprintf("%s %s: %s", e.Entity, e.Kind, e.ID)
}

func (e *EntityError) Unwrap() error { return e.Kind }

// NewNotFoundError reports that no entity with id exists.
func NewNotFoundError(entity, id string) *EntityError {
	return &EntityError{Kind: ErrNotFound, Entity: entity, ID: id}
}

// NewAlreadyExistsError reports a unique violation on entity id.
func NewAlreadyExistsError(entity, id string) *EntityError {
	return &EntityError{Kind: ErrAlreadyExists, Entity: entity, ID: id}
}

// ExternalAPIError is a failed call to the image provider or the image API.
// Cause carries the classification (ErrRateLimited, ErrServiceUnavailable,
// ErrInvalidInput, ...) or the transport error.
type ExternalAPIError struct {
	Source     string
	StatusCode int
	Message    string
	// RetryAfter is set when the call was rate limited.
	RetryAfter time.Duration
	Cause      error
}

func (e *ExternalAPIError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("%s API error (status %d): %s, retry after %s", e.Source, e.StatusCode, e.Message, e.RetryAfter)
	}
	return fmt.Sprintf("%s API error (status %d): %s", e.Source, e.StatusCode, e.Message)
}

func (e *ExternalAPIError) Unwrap() error { return e.Cause }

// NewExternalAPIError creates an ExternalAPIError.
func NewExternalAPIError(source string, statusCode int, message string, cause error) *ExternalAPIError {
	return &ExternalAPIError{Source: source, StatusCode: statusCode, Message: message, Cause: cause}
}

// NewRateLimitError reports a call refused by source's rate limit.
func NewRateLimitError(source string, retryAfter time.Duration) *ExternalAPIError {
	return &ExternalAPIError{
		Source:     source,
		StatusCode: 429,
		Message:    "rate limited",
		RetryAfter: retryAfter,
		Cause:      ErrRateLimited,
	}
}
