package syncer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAwaitVisible_ReturnsOnceVisible(t *testing.T) {
	attempts := 0
	value, err := AwaitVisible(context.Background(), time.Millisecond, time.Second,
		func(ctx context.Context) (int, bool, error) {
			attempts++
			if attempts < 3 {
				return 0, false, nil
			}
			return 42, true, nil
		})
	require.NoError(t, err)
	assert.Equal(t, 42, value)
	assert.Equal(t, 3, attempts)
}

func TestAwaitVisible_TimesOut(t *testing.T) {
	_, err := AwaitVisible(context.Background(), time.Millisecond, 10*time.Millisecond,
		func(ctx context.Context) (int, bool, error) {
			return 0, false, nil
		})
	assert.ErrorIs(t, err, ErrNotVisible)
}

func TestAwaitVisible_PropagatesErrors(t *testing.T) {
	boom := errors.New("boom")
	_, err := AwaitVisible(context.Background(), time.Millisecond, time.Second,
		func(ctx context.Context) (int, bool, error) {
			return 0, false, boom
		})
	assert.ErrorIs(t, err, boom)
}

func TestAwaitVisible_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := AwaitVisible(ctx, time.Millisecond, time.Second,
		func(ctx context.Context) (int, bool, error) {
			return 0, false, nil
		})
	assert.ErrorIs(t, err, context.Canceled)
}
