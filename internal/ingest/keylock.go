package ingest

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrJobKeyBusy means another operation holds the per-key lock.
var ErrJobKeyBusy = errors.New("job_key_busy")

// KeyLock serializes work per job_key across ingest, scoring, and recovery.
type KeyLock struct {
	mu      sync.Mutex
	locks   map[string]chan struct{}
	timeout time.Duration
}

// NewKeyLock creates a key lock with the given acquire timeout.
func NewKeyLock(timeout time.Duration) *KeyLock {
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &KeyLock{
		locks:   make(map[string]chan struct{}),
		timeout: timeout,
	}
}

// Acquire blocks until the key is free, the timeout elapses (ErrJobKeyBusy),
// or ctx is done. The caller must Release with the same key.
func (k *KeyLock) Acquire(ctx context.Context, key string) error {
	ch := k.channel(key)

	select {
	case ch <- struct{}{}:
		return nil
	default:
	}

	timer := time.NewTimer(k.timeout)
	defer timer.Stop()
	select {
	case ch <- struct{}{}:
		return nil
	case <-timer.C:
		return ErrJobKeyBusy
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release frees the key.
func (k *KeyLock) Release(key string) {
	k.mu.Lock()
	ch, ok := k.locks[key]
	k.mu.Unlock()
	if ok {
		select {
		case <-ch:
		default:
		}
	}
}

func (k *KeyLock) channel(key string) chan struct{} {
	k.mu.Lock()
	defer k.mu.Unlock()
	ch, ok := k.locks[key]
	if !ok {
		ch = make(chan struct{}, 1)
		k.locks[key] = ch
	}
	return ch
}
