package async_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fivetwenty-io/vra/internal/async"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFuture_Go(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})

	future := async.Go(context.Background(), func(ctx context.Context) (string, error) {
		<-release

		return "template", nil
	})

	assert.False(t, future.Ready())

	close(release)

	value, err := future.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "template", value)

	assert.True(t, future.Ready())

	value, err = future.Peek()
	require.NoError(t, err)
	assert.Equal(t, "template", value)
}

func TestFuture_Error(t *testing.T) {
	t.Parallel()

	fetchErr := errors.New("fetch failed")

	future := async.Go(context.Background(), func(ctx context.Context) (int, error) {
		return 0, fetchErr
	})

	_, err := future.Wait(context.Background())
	require.ErrorIs(t, err, fetchErr)
}

func TestFuture_WaitHonorsContext(t *testing.T) {
	t.Parallel()

	future := async.New[int]()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := future.Wait(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestFuture_ResolveOnce(t *testing.T) {
	t.Parallel()

	future := async.Resolved(1, nil)
	future.Resolve(2, errors.New("ignored"))

	value, err := future.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, value)

	select {
	case <-future.Done():
	default:
		t.Fatal("resolved future must report done")
	}
}
