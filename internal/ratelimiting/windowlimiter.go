package ratelimiting

import (
	"context"
	"slices"
	"sync"
	"time"
)

// WindowLimiter lets at most limit operations finish within any window of time.
// Upstream APIs like the Mojang session server enforce limits of this shape.
type WindowLimiter struct {
	window time.Duration

	slots    chan struct{}
	mutex    sync.Mutex
	finished []time.Time
}

func NewWindowLimiter(limit int, window time.Duration) *WindowLimiter {
	slots := make(chan struct{}, limit)
	finished := make([]time.Time, 0, limit+1)
	longAgo := time.Now().Add(-window)
	for range limit {
		slots <- struct{}{}
		finished = append(finished, longAgo)
	}

	return &WindowLimiter{
		window:   window,
		slots:    slots,
		finished: finished,
	}
}

// Limit waits until operation may run and then runs it.
// Returns false without running operation if ctx is cancelled, or if waiting
// plus maxOperationTime would exceed the deadline of ctx.
func (l *WindowLimiter) Limit(ctx context.Context, maxOperationTime time.Duration, operation func()) bool {
	select {
	case <-l.slots:
		defer func() {
			l.slots <- struct{}{}
		}()
	case <-ctx.Done():
		return false
	}

	oldest, wait, ok := l.take(ctx, maxOperationTime)
	if !ok {
		return false
	}

	finishedAt := oldest
	defer l.put(&finishedAt)

	if wait > 0 {
		timer := time.NewTimer(wait)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return false
		case <-timer.C:
		}
	}

	operation()
	finishedAt = time.Now()
	return true
}

func (l *WindowLimiter) take(ctx context.Context, maxOperationTime time.Duration) (time.Time, time.Duration, bool) {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	oldest := l.finished[0]
	wait := l.window - time.Since(oldest)

	if deadline, ok := ctx.Deadline(); ok && max(wait, 0)+maxOperationTime > time.Until(deadline) {
		return time.Time{}, 0, false
	}

	l.finished = l.finished[1:]
	return oldest, wait, true
}

func (l *WindowLimiter) put(finishedAt *time.Time) {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	i, _ := slices.BinarySearchFunc(l.finished, *finishedAt, func(a, b time.Time) int {
		return a.Compare(b)
	})
	l.finished = slices.Insert(l.finished, i, *finishedAt)
}
