// Package lock provides mutual exclusion scoped to a string key.
package lock

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"
)

// Keyed serializes work per key. Different keys never block each other.
// The zero value is not usable; call NewKeyed.
type Keyed struct {
	mu    sync.Mutex
	slots map[string]*slot
}

type slot struct {
	sem  *semaphore.Weighted
	refs int
}

// NewKeyed creates an empty keyed lock.
func NewKeyed() *Keyed {
	return &Keyed{slots: make(map[string]*slot)}
}

// Lock blocks until key is held or ctx is done.
// On success the returned release func must be called exactly once;
// extra calls are no-ops.
func (k *Keyed) Lock(ctx context.Context, key string) (func(), error) {
	k.mu.Lock()
	s, ok := k.slots[key]
	if !ok {
		s = &slot{sem: semaphore.NewWeighted(1)}
		k.slots[key] = s
	}
	s.refs++
	k.mu.Unlock()

	if err := s.sem.Acquire(ctx, 1); err != nil {
		k.unref(key, s)
		return nil, err
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			s.sem.Release(1)
			k.unref(key, s)
		})
	}, nil
}

// Do runs fn while holding key. The key is released on every exit path,
// panics included.
func (k *Keyed) Do(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	release, err := k.Lock(ctx, key)
	if err != nil {
		return err
	}
	defer release()
	return fn(ctx)
}

// Len reports how many keys are currently held or awaited.
func (k *Keyed) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.slots)
}

func (k *Keyed) unref(key string, s *slot) {
	k.mu.Lock()
	defer k.mu.Unlock()
	s.refs--
	if s.refs == 0 {
		delete(k.slots, key)
	}
}
