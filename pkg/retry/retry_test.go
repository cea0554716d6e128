package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBoom = errors.New("boom")

func TestDo_SucceedsAfterRetries(t *testing.T) {
	calls := 0
	v, err := Do(context.Background(), Policy{Retries: 3, BaseDelay: time.Millisecond}, func(context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", errBoom
		}
		return "ok", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", v)
	assert.Equal(t, 3, calls)
}

func TestDo_Exhausted(t *testing.T) {
	calls := 0
	_, err := Do(context.Background(), Policy{Retries: 2, BaseDelay: time.Millisecond}, func(context.Context) (int, error) {
		calls++
		return 0, errBoom
	})

	require.ErrorIs(t, err, errBoom)
	assert.Equal(t, 3, calls)
}

func TestDo_NonRetryableStopsImmediately(t *testing.T) {
	calls := 0
	p := Policy{
		Retries:   5,
		BaseDelay: time.Millisecond,
		Retryable: func(err error) bool { return !errors.Is(err, errBoom) },
	}
	_, err := Do(context.Background(), p, func(context.Context) (int, error) {
		calls++
		return 0, errBoom
	})

	assert.Same(t, errBoom, err)
	assert.Equal(t, 1, calls)
}

func TestDo_ContextCancelledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	_, err := Do(ctx, Policy{Retries: 3, BaseDelay: time.Hour}, func(context.Context) (int, error) {
		cancel()
		return 0, errBoom
	})

	assert.ErrorIs(t, err, context.Canceled)
}

func TestPolicy_DelayDoublesAndCaps(t *testing.T) {
	p := Policy{BaseDelay: 100 * time.Millisecond, MaxDelay: 300 * time.Millisecond}
	assert.Equal(t, 100*time.Millisecond, p.delay(1))
	assert.Equal(t, 200*time.Millisecond, p.delay(2))
	assert.Equal(t, 300*time.Millisecond, p.delay(3))
}
