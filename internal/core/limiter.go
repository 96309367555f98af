package core

// limiter.go bounds how many operations run at once.
//
// Each operation holds its decoded inputs and encoded outputs in memory, so
// the number of concurrent operations is capped with a semaphore. Requests
// that cannot get a slot within maxWait fail with ErrBusy. WaitForDrain lets
// shutdown wait for running operations.

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrBusy is returned when every operation slot stays occupied for the whole
// wait period. Clients should retry after a short delay.
var ErrBusy = errors.New("too many operations in progress, please try again later")

// DefaultMaxConcurrent is the default number of parallel operations.
const DefaultMaxConcurrent = 4

// DefaultMaxWait is how long to wait for a slot before rejecting.
const DefaultMaxWait = 30 * time.Second

// OperationLimiter is a counting semaphore over operation slots.
type OperationLimiter struct {
	slots   chan struct{}
	maxWait time.Duration

	mu     sync.RWMutex
	active int
	total  int64
}

// NewOperationLimiter allows at most maxConcurrent simultaneous operations.
// Non-positive arguments select the defaults.
func NewOperationLimiter(maxConcurrent int, maxWait time.Duration) *OperationLimiter {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrent
	}
	if maxWait <= 0 {
		maxWait = DefaultMaxWait
	}

	return &OperationLimiter{
		slots:   make(chan struct{}, maxConcurrent),
		maxWait: maxWait,
	}
}

// Acquire waits for a free slot. It returns ErrBusy when maxWait elapses
// first, or ctx's error when ctx ends first. On success the caller must
// call Release exactly once.
func (l *OperationLimiter) Acquire(ctx context.Context) error {
	timer := time.NewTimer(l.maxWait)
	defer timer.Stop()

	select {
	case l.slots <- struct{}{}:
		l.acquired()
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return ErrBusy
	}
}

// TryAcquire takes a slot only if one is free right now.
func (l *OperationLimiter) TryAcquire() bool {
	select {
	case l.slots <- struct{}{}:
		l.acquired()
		return true
	default:
		return false
	}
}

func (l *OperationLimiter) acquired() {
	l.mu.Lock()
	l.active++
	l.total++
	l.mu.Unlock()
}

// Release frees a slot taken by Acquire or TryAcquire.
func (l *OperationLimiter) Release() {
	l.mu.Lock()
	l.active--
	l.mu.Unlock()

	<-l.slots
}

// ActiveCount returns the number of running operations.
func (l *OperationLimiter) ActiveCount() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.active
}

// WaitForDrain blocks until no operation is running or ctx ends.
func (l *OperationLimiter) WaitForDrain(ctx context.Context) error {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		if l.ActiveCount() == 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// LimiterStatus is a point-in-time view of the limiter.
type LimiterStatus struct {
	Active        int   `json:"active"`
	Available     int   `json:"available"`
	MaxConcurrent int   `json:"max_concurrent"`
	Total         int64 `json:"total"`
}

// Status returns the limiter's current state for health checks.
func (l *OperationLimiter) Status() LimiterStatus {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return LimiterStatus{
		Active:        l.active,
		Available:     cap(l.slots) - len(l.slots),
		MaxConcurrent: cap(l.slots),
		Total:         l.total,
	}
}
