package backend

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"
)

func TestRetryingRecoversFromTransientErrors(t *testing.T) {
	calls := 0
	inner := &Mock{Fn: func(req Request) (string, error) {
		calls++
		if calls < 3 {
			return "", &googleapi.Error{Code: 429, Message: "rate limited"}
		}
		return "rewritten", nil
	}}

	r := NewRetrying(inner, 3, time.Millisecond, 0)
	got, err := r.Complete(context.Background(), Request{Prompt: "p"})

	require.NoError(t, err)
	assert.Equal(t, "rewritten", got)
	assert.Equal(t, 3, calls)
}

func TestRetryingFailsFastOnPermanentError(t *testing.T) {
	calls := 0
	permanent := errors.New("invalid request")
	inner := &Mock{Fn: func(req Request) (string, error) {
		calls++
		return "", permanent
	}}

	r := NewRetrying(inner, 3, time.Millisecond, 0)
	_, err := r.Complete(context.Background(), Request{Prompt: "p"})

	assert.ErrorIs(t, err, permanent)
	assert.Equal(t, 1, calls)
}

func TestRetryingExhaustsBudget(t *testing.T) {
	calls := 0
	inner := &Mock{Fn: func(req Request) (string, error) {
		calls++
		return "", &googleapi.Error{Code: 503, Message: "backend overloaded"}
	}}

	r := NewRetrying(inner, 3, time.Millisecond, 0)
	_, err := r.Complete(context.Background(), Request{Prompt: "p"})

	var unavailable *UnavailableError
	require.ErrorAs(t, err, &unavailable)
	assert.Equal(t, 3, unavailable.Attempts)
	assert.Equal(t, 3, calls)
}

func TestRetryingHonorsCancellation(t *testing.T) {
	inner := &Mock{Fn: func(req Request) (string, error) {
		return "", &googleapi.Error{Code: 500}
	}}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := NewRetrying(inner, 5, time.Second, 0)
	_, err := r.Complete(ctx, Request{Prompt: "p"})

	assert.Error(t, err)
}

func TestIsTransient(t *testing.T) {
	assert.True(t, IsTransient(&googleapi.Error{Code: 429}))
	assert.True(t, IsTransient(&googleapi.Error{Code: 503}))
	assert.True(t, IsTransient(context.DeadlineExceeded))
	assert.False(t, IsTransient(&googleapi.Error{Code: 400}))
	assert.False(t, IsTransient(errors.New("bad prompt")))
	assert.False(t, IsTransient(nil))
}
