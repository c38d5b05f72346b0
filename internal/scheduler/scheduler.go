package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Amund211/advancements/internal/logging"
	"github.com/Amund211/advancements/internal/reporting"
)

const TicksPerSecond = 20
const TickDuration = time.Second / TicksPerSecond

var ErrStopped = errors.New("scheduler stopped")

// Loop runs submitted functions one at a time on a single goroutine.
// State owned by the loop needs no locking as long as it is only touched from
// submitted functions.
type Loop struct {
	ctx context.Context

	mutex   sync.Mutex
	queue   []func()
	stopped bool

	wake chan struct{}
	stop chan struct{}
	done chan struct{}
}

// Start launches the loop. It runs until Stop is called or ctx is cancelled.
func Start(ctx context.Context) *Loop {
	l := &Loop{
		ctx:  ctx,
		wake: make(chan struct{}, 1),
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	go l.run()
	return l
}

func (l *Loop) run() {
	defer close(l.done)
	defer l.markStopped()

	for {
		select {
		case <-l.ctx.Done():
			return
		case <-l.stop:
			return
		case <-l.wake:
		}

		for {
			select {
			case <-l.stop:
				return
			default:
			}

			fn, ok := l.pop()
			if !ok {
				break
			}
			l.runSafely(fn)
		}
	}
}

func (l *Loop) pop() (func(), bool) {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	if len(l.queue) == 0 {
		return nil, false
	}
	fn := l.queue[0]
	l.queue[0] = nil
	l.queue = l.queue[1:]
	return fn, true
}

func (l *Loop) runSafely(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("panic in scheduled task: %v", r)
			logging.FromContext(l.ctx).ErrorContext(l.ctx, "Recovered from panic in scheduled task", "error", err.Error())
			reporting.Report(l.ctx, err)
		}
	}()
	fn()
}

func (l *Loop) markStopped() {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	l.stopped = true
	l.queue = nil
}

// Submit queues fn to run on the loop. Returns false if the loop has stopped.
func (l *Loop) Submit(fn func()) bool {
	l.mutex.Lock()
	if l.stopped {
		l.mutex.Unlock()
		return false
	}
	l.queue = append(l.queue, fn)
	l.mutex.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
	return true
}

// Call runs fn on the loop and waits for it to finish.
// Must not be called from the loop itself.
func (l *Loop) Call(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	ok := l.Submit(func() {
		defer close(finished)
		fn()
	})
	if !ok {
		return ErrStopped
	}

	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-l.done:
		select {
		case <-finished:
			return nil
		default:
			return ErrStopped
		}
	}
}

// Stop ends the loop. Queued functions that have not started are dropped.
func (l *Loop) Stop() {
	l.mutex.Lock()
	alreadyStopped := l.stopped
	l.stopped = true
	l.mutex.Unlock()

	if !alreadyStopped {
		close(l.stop)
	}
}

// Done is closed once the loop goroutine has exited
func (l *Loop) Done() <-chan struct{} {
	return l.done
}

func ticksToDuration(ticks int) time.Duration {
	return time.Duration(max(ticks, 0)) * TickDuration
}

// Task is a handle to work scheduled with RunTaskLater or RunTaskTimer
type Task struct {
	cancelled atomic.Bool

	mutex sync.Mutex
	timer *time.Timer
}

// Cancel prevents any further runs of the task. A run that was already due
// but has not started yet is skipped as well.
func (t *Task) Cancel() {
	if t.cancelled.Swap(true) {
		return
	}

	t.mutex.Lock()
	defer t.mutex.Unlock()
	if t.timer != nil {
		t.timer.Stop()
	}
}

func (t *Task) Cancelled() bool {
	return t.cancelled.Load()
}

// RunTaskLater runs fn on the loop after the given number of ticks
func (l *Loop) RunTaskLater(ticks int, fn func()) *Task {
	task := &Task{}

	task.mutex.Lock()
	defer task.mutex.Unlock()
	task.timer = time.AfterFunc(ticksToDuration(ticks), func() {
		l.Submit(func() {
			// Mark as finished so later Cancel calls are no-ops
			if task.cancelled.Swap(true) {
				return
			}
			fn()
		})
	})

	return task
}

// RunTaskTimer runs fn on the loop after delayTicks, and then every periodTicks
// until cancelled or the loop stops.
func (l *Loop) RunTaskTimer(delayTicks, periodTicks int, fn func()) *Task {
	task := &Task{}
	period := ticksToDuration(max(periodTicks, 1))

	var fire func()
	fire = func() {
		if task.Cancelled() {
			return
		}

		ok := l.Submit(func() {
			if task.Cancelled() {
				return
			}
			fn()
		})
		if !ok {
			return
		}

		task.mutex.Lock()
		defer task.mutex.Unlock()
		if !task.Cancelled() {
			task.timer.Reset(period)
		}
	}

	task.mutex.Lock()
	defer task.mutex.Unlock()
	task.timer = time.AfterFunc(ticksToDuration(delayTicks), fire)

	return task
}
