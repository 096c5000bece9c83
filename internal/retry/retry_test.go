package retry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDo_SucceedsAfterTransientFailures(t *testing.T) {
	t.Parallel()

	attempts := 0
	got, err := Do(context.Background(), func(ctx context.Context) (string, error) {
		attempts++
		if attempts < 3 {
			return "", errors.New("connection reset")
		}
		return "ok", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.Equal(t, 3, attempts)
}

func TestDo_GivesUpAfterMaxTries(t *testing.T) {
	t.Parallel()

	attempts := 0
	_, err := Do(context.Background(), func(ctx context.Context) (string, error) {
		attempts++
		return "", errors.New("still failing")
	})

	require.Error(t, err)
	assert.Equal(t, 3, attempts)
}

func TestDo_PermanentStopsImmediately(t *testing.T) {
	t.Parallel()

	attempts := 0
	_, err := Do(context.Background(), func(ctx context.Context) (string, error) {
		attempts++
		return "", Permanent(errors.New("not found"))
	})

	require.Error(t, err)
	assert.Equal(t, 1, attempts)
}

func TestDo_ContextCanceledStopsRetries(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	attempts := 0
	_, err := Do(ctx, func(ctx context.Context) (string, error) {
		attempts++
		return "", errors.New("connection reset")
	})

	require.Error(t, err)
}
