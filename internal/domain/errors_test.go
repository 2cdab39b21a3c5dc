package domain

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAborted(t *testing.T) {
	err := Aborted(fmt.Errorf("load feed: %w", context.Canceled))
	assert.ErrorIs(t, err, ErrCancelled)
	assert.ErrorIs(t, err, context.Canceled)

	assert.Same(t, err, Aborted(err))

	other := errors.New("connection reset")
	assert.Same(t, other, Aborted(other))
	assert.Equal(t, context.DeadlineExceeded, Aborted(context.DeadlineExceeded))
	assert.NoError(t, Aborted(nil))
}

func TestEntityError(t *testing.T) {
	err := NewNotFoundError("paper", "10.1/x")
	assert.EqualError(t, err, "paper not found: 10.1/x")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NotErrorIs(t, err, ErrAlreadyExists)

	err = NewAlreadyExistsError("reaction", "user-1")
	assert.ErrorIs(t, err, ErrAlreadyExists)
}

func TestNewRateLimitError(t *testing.T) {
	err := NewRateLimitError("imagegen", 2*time.Second)
	assert.ErrorIs(t, err, ErrRateLimited)
	assert.Equal(t, 429, err.StatusCode)
	assert.Contains(t, err.Error(), "retry after 2s")
}
