package core

// import_limiter.go bounds how many ingestion runs execute at once.
//
// Every run clears and rewrites whole tables, so two overlapping runs would
// interleave their replacements. The limiter hands out a fixed number of
// slots (one by default); callers that cannot get a slot within maxWait
// fail with ErrImportBusy.

import (
	"context"
	"errors"
	"sync/atomic"
	"time"
)

// ErrImportBusy is returned when no import slot frees up in time.
var ErrImportBusy = errors.New("too many uploads: another import is running")

// DefaultMaxWaitTime is how long to wait for a slot before rejecting.
const DefaultMaxWaitTime = 10 * time.Second

// ImportLimiter is a counting semaphore over ingestion runs.
type ImportLimiter struct {
	slots   chan struct{}
	maxWait time.Duration
	active  atomic.Int32
}

// NewImportLimiter allows at most maxConcurrent runs. Non-positive
// arguments fall back to one slot and DefaultMaxWaitTime.
func NewImportLimiter(maxConcurrent int, maxWait time.Duration) *ImportLimiter {
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	if maxWait <= 0 {
		maxWait = DefaultMaxWaitTime
	}
	return &ImportLimiter{slots: make(chan struct{}, maxConcurrent), maxWait: maxWait}
}

// Acquire takes a slot. The caller must Release it when the run ends.
func (l *ImportLimiter) Acquire(ctx context.Context) error {
	timer := time.NewTimer(l.maxWait)
	defer timer.Stop()

	select {
	case l.slots <- struct{}{}:
		l.active.Add(1)
		return nil
	case <-timer.C:
		return ErrImportBusy
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release returns a slot taken by Acquire.
func (l *ImportLimiter) Release() {
	l.active.Add(-1)
	<-l.slots
}

// ActiveCount returns the number of runs holding a slot.
func (l *ImportLimiter) ActiveCount() int {
	return int(l.active.Load())
}

// WaitForDrain blocks until no run holds a slot or ctx is done.
// Used on shutdown so a half-written import is not cut off.
func (l *ImportLimiter) WaitForDrain(ctx context.Context) error {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for l.ActiveCount() > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}

// ImportLimiterStatus is a snapshot for monitoring.
type ImportLimiterStatus struct {
	Active        int `json:"active"`
	Available     int `json:"available"`
	MaxConcurrent int `json:"maxConcurrent"`
}

// Status returns the current limiter state.
func (l *ImportLimiter) Status() ImportLimiterStatus {
	return ImportLimiterStatus{
		Active:        l.ActiveCount(),
		Available:     cap(l.slots) - len(l.slots),
		MaxConcurrent: cap(l.slots),
	}
}
