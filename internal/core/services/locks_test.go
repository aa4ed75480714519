package services_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sulimanbank/bankcore/internal/apperrors"
	"github.com/sulimanbank/bankcore/internal/core/services"
)

func TestAccountLocker_AcquireAndRelease(t *testing.T) {
	locker := services.NewAccountLocker()

	release, err := locker.Acquire(context.Background(), []string{"a", "b"}, time.Second)
	require.NoError(t, err)
	release()

	// Released keys are immediately reacquirable.
	release, err = locker.Acquire(context.Background(), []string{"a", "b"}, time.Second)
	require.NoError(t, err)
	release()
}

func TestAccountLocker_DuplicateKeysCollapse(t *testing.T) {
	locker := services.NewAccountLocker()

	release, err := locker.Acquire(context.Background(), []string{"a", "a", "a"}, time.Second)
	require.NoError(t, err)
	defer release()

	// A second acquirer of "a" must wait, proving a single token backs it.
	_, err = locker.Acquire(context.Background(), []string{"a"}, 20*time.Millisecond)
	assert.ErrorIs(t, err, apperrors.ErrOperationTimeout)
}

func TestAccountLocker_TimeoutLeavesNothingHeld(t *testing.T) {
	locker := services.NewAccountLocker()

	holdB, err := locker.Acquire(context.Background(), []string{"b"}, time.Second)
	require.NoError(t, err)

	// Acquiring {a, b} takes a first, then times out on b; a must be freed.
	_, err = locker.Acquire(context.Background(), []string{"a", "b"}, 20*time.Millisecond)
	require.ErrorIs(t, err, apperrors.ErrOperationTimeout)

	release, err := locker.Acquire(context.Background(), []string{"a"}, 20*time.Millisecond)
	require.NoError(t, err)
	release()
	holdB()
}

func TestAccountLocker_ContextCancellation(t *testing.T) {
	locker := services.NewAccountLocker()

	hold, err := locker.Acquire(context.Background(), []string{"a"}, time.Second)
	require.NoError(t, err)
	defer hold()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := locker.Acquire(ctx, []string{"a"}, 10*time.Second)
		done <- err
	}()

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("acquisition did not observe context cancellation")
	}
}

func TestAccountLocker_OpposingOrdersNoDeadlock(t *testing.T) {
	locker := services.NewAccountLocker()

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		keys := []string{"x", "y"}
		if i == 1 {
			keys = []string{"y", "x"}
		}
		wg.Add(1)
		go func(keys []string) {
			defer wg.Done()
			for n := 0; n < 200; n++ {
				release, err := locker.Acquire(context.Background(), keys, 5*time.Second)
				assert.NoError(t, err)
				release()
			}
		}(keys)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("opposing lock orders deadlocked")
	}
}

func TestAccountLocker_ReleaseIsIdempotent(t *testing.T) {
	locker := services.NewAccountLocker()

	release, err := locker.Acquire(context.Background(), []string{"a"}, time.Second)
	require.NoError(t, err)
	release()
	release() // Double release must not free someone else's token.

	again, err := locker.Acquire(context.Background(), []string{"a"}, time.Second)
	require.NoError(t, err)
	defer again()

	_, err = locker.Acquire(context.Background(), []string{"a"}, 20*time.Millisecond)
	assert.ErrorIs(t, err, apperrors.ErrOperationTimeout)
}
