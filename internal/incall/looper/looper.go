// Package looper provides the single-threaded task loop the in-call core runs
// on. Every mutation of core state happens inside a task; background work posts
// its result back with Post.
package looper

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Scheduler runs tasks on the core thread.
type Scheduler interface {
	// Post queues fn to run on the core thread. Safe from any goroutine.
	Post(fn func())
	// PostDelayed queues fn to run after d. The returned task can be cancelled.
	PostDelayed(d time.Duration, fn func()) *Task
}

// Clock abstracts the time source.
type Clock interface {
	Now() time.Time
}

// Task is a handle for a delayed task.
type Task struct {
	cancelled atomic.Bool
	fired     atomic.Bool
	stop      func() bool
}

// Cancel prevents the task from running. It returns false if the task already
// ran or was already cancelled.
func (t *Task) Cancel() bool {
	if t == nil {
		return false
	}
	if t.fired.Load() || !t.cancelled.CompareAndSwap(false, true) {
		return false
	}
	if t.stop != nil {
		t.stop()
	}
	return true
}

// Pending reports whether the task is still waiting to run.
func (t *Task) Pending() bool {
	return t != nil && !t.cancelled.Load() && !t.fired.Load()
}

// run executes fn unless the task was cancelled first.
func (t *Task) run(fn func()) {
	if t.cancelled.Load() || !t.fired.CompareAndSwap(false, true) {
		return
	}
	fn()
}

// ErrStopped is returned by Call once Run has returned.
var ErrStopped = errors.New("loop stopped")

// LoopConfig configures a Loop.
type LoopConfig struct {
	// QueueSize is the initial queue capacity. The queue grows as needed.
	QueueSize int
	Logger    *slog.Logger
}

// Loop is the production Scheduler: a goroutine draining a task queue.
// Post never blocks, so the core thread may post to itself. Tasks posted
// after Run has returned are dropped.
type Loop struct {
	logger *slog.Logger
	wake   chan struct{}

	mu      sync.Mutex
	queue   []func()
	running bool
	stopped bool
	dropped int
}

var _ Scheduler = (*Loop)(nil)

// NewLoop creates a loop. Call Run to start processing.
func NewLoop(cfg LoopConfig) *Loop {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Loop{
		queue:  make([]func(), 0, cfg.QueueSize),
		wake:   make(chan struct{}, 1),
		logger: cfg.Logger,
	}
}

// Run processes tasks until ctx is cancelled. A loop runs once.
func (l *Loop) Run(ctx context.Context) error {
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return ErrStopped
	}
	l.running = true
	l.mu.Unlock()
	defer func() {
		l.mu.Lock()
		l.running = false
		l.stopped = true
		pending := len(l.queue)
		l.queue = nil
		l.mu.Unlock()
		if pending > 0 {
			l.logger.Warn("[Looper] Stopped with pending tasks", "dropped", pending)
		}
	}()

	for {
		for {
			if err := ctx.Err(); err != nil {
				return err
			}
			fn, ok := l.next()
			if !ok {
				break
			}
			runSafely(l.logger, fn)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.wake:
		}
	}
}

func (l *Loop) next() (func(), bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.queue) == 0 {
		return nil, false
	}
	fn := l.queue[0]
	l.queue[0] = nil
	l.queue = l.queue[1:]
	return fn, true
}

// enqueue appends fn unless the loop has stopped.
func (l *Loop) enqueue(fn func()) bool {
	l.mu.Lock()
	if l.stopped {
		l.dropped++
		l.mu.Unlock()
		return false
	}
	l.queue = append(l.queue, fn)
	l.mu.Unlock()
	select {
	case l.wake <- struct{}{}:
	default:
	}
	return true
}

// Post queues fn. After Run has returned the task is dropped with a warning.
func (l *Loop) Post(fn func()) {
	if !l.enqueue(fn) {
		l.logger.Warn("[Looper] Task posted after loop stopped, dropping")
	}
}

// PostDelayed queues fn after d.
func (l *Loop) PostDelayed(d time.Duration, fn func()) *Task {
	task := &Task{}
	timer := time.AfterFunc(d, func() {
		l.Post(func() { task.run(fn) })
	})
	task.stop = timer.Stop
	return task
}

// Call runs fn on the loop and waits for it to finish. It must not be called
// from the loop itself.
func (l *Loop) Call(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	if !l.enqueue(func() {
		defer close(done)
		fn()
	}) {
		return ErrStopped
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Running reports whether Run is active.
func (l *Loop) Running() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.running
}

// Dropped returns how many tasks were posted after the loop stopped.
func (l *Loop) Dropped() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.dropped
}

func runSafely(logger *slog.Logger, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("[Looper] Task panicked", "panic", r)
		}
	}()
	fn()
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock returns the wall clock.
func SystemClock() Clock { return systemClock{} }
