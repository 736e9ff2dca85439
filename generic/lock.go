package generic

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// ErrLockTimeout is wrapped in a CONFLICT error when a keyed lock could not
// be taken in time.
var ErrLockTimeout = errors.New("timed out waiting for lock")

// KeyedMutex serialises work per key (e.g. one employee-year balance row)
// while unrelated keys proceed in parallel. The zero value is ready to use.
type KeyedMutex struct {
	mu    sync.Mutex
	slots map[string]*keyedSlot
}

// keyedSlot is dropped once no caller holds or waits on it.
type keyedSlot struct {
	ch   chan struct{} // capacity 1
	refs int
}

func (km *KeyedMutex) acquire(key string) *keyedSlot {
	km.mu.Lock()
	defer km.mu.Unlock()
	if km.slots == nil {
		km.slots = make(map[string]*keyedSlot)
	}
	s, ok := km.slots[key]
	if !ok {
		s = &keyedSlot{ch: make(chan struct{}, 1)}
		km.slots[key] = s
	}
	s.refs++
	return s
}

func (km *KeyedMutex) release(key string, s *keyedSlot) {
	km.mu.Lock()
	defer km.mu.Unlock()
	s.refs--
	if s.refs == 0 {
		delete(km.slots, key)
	}
}

// Len reports how many keys are currently held or awaited.
func (km *KeyedMutex) Len() int {
	km.mu.Lock()
	defer km.mu.Unlock()
	return len(km.slots)
}

// WithLock runs safeCode while holding the lock for key. It gives up after
// wait, or when ctx is done.
func (km *KeyedMutex) WithLock(ctx context.Context, key string, wait time.Duration, safeCode func() error) error {
	slot := km.acquire(key)
	defer km.release(key, slot)
	timeout := time.NewTimer(wait)
	defer timeout.Stop()

	select {
	case slot.ch <- struct{}{}:
	case <-timeout.C:
		busy := newAppError(CodeConflict, http.StatusConflict, "%s is busy, retry", key)
		busy.Err = ErrLockTimeout
		return busy
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-slot.ch }()

	return safeCode()
}
