package services

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/sulimanbank/bankcore/internal/apperrors"
)

// AccountLocker grants exclusive access to sets of lock keys (account ids,
// loan ids). Keys are always acquired in ascending order, which eliminates
// circular waits between two operations touching the same accounts in opposite
// directions. A bounded wait turns contention into ErrOperationTimeout with no
// partial effect.
type AccountLocker struct {
	mu    sync.Mutex
	locks map[string]*lockHandle
}

type lockHandle struct {
	ch   chan struct{} // Capacity 1: holding the token means holding the lock
	refs int
}

// NewAccountLocker creates an empty locker.
func NewAccountLocker() *AccountLocker {
	return &AccountLocker{locks: make(map[string]*lockHandle)}
}

func (l *AccountLocker) handle(key string) *lockHandle {
	l.mu.Lock()
	defer l.mu.Unlock()
	h, ok := l.locks[key]
	if !ok {
		h = &lockHandle{ch: make(chan struct{}, 1)}
		l.locks[key] = h
	}
	h.refs++
	return h
}

func (l *AccountLocker) put(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	h, ok := l.locks[key]
	if !ok {
		return
	}
	h.refs--
	if h.refs == 0 {
		delete(l.locks, key)
	}
}

// Acquire locks every key in the set, deduplicated and in ascending order,
// within the bounded wait. On success it returns a release function that must
// be called exactly once. On timeout or context cancellation nothing stays
// locked.
func (l *AccountLocker) Acquire(ctx context.Context, keys []string, wait time.Duration) (func(), error) {
	unique := make([]string, 0, len(keys))
	seen := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		unique = append(unique, k)
	}
	sort.Strings(unique)

	deadline := time.Now().Add(wait)
	acquired := make([]string, 0, len(unique))
	handles := make(map[string]*lockHandle, len(unique))

	releaseAcquired := func() {
		for i := len(acquired) - 1; i >= 0; i-- {
			key := acquired[i]
			<-handles[key].ch
			l.put(key)
		}
	}

	for _, key := range unique {
		h := l.handle(key)
		handles[key] = h

		remaining := time.Until(deadline)
		if remaining <= 0 {
			l.put(key)
			releaseAcquired()
			return nil, fmt.Errorf("%w: key %s", apperrors.ErrOperationTimeout, key)
		}

		timer := time.NewTimer(remaining)
		select {
		case h.ch <- struct{}{}:
			timer.Stop()
			acquired = append(acquired, key)
		case <-timer.C:
			l.put(key)
			releaseAcquired()
			return nil, fmt.Errorf("%w: key %s", apperrors.ErrOperationTimeout, key)
		case <-ctx.Done():
			timer.Stop()
			l.put(key)
			releaseAcquired()
			return nil, ctx.Err()
		}
	}

	var once sync.Once
	return func() { once.Do(releaseAcquired) }, nil
}
