package runloop

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// DefaultQueueSize is the capacity of the task queue.
const DefaultQueueSize = 1024

var (
	// ErrClosed is returned when the loop no longer accepts tasks.
	ErrClosed = errors.New("runloop: closed")

	// ErrTaskPanicked is returned by Do when the task panicked.
	ErrTaskPanicked = errors.New("runloop: task panicked")
)

type task struct {
	fn   func()
	done chan error
}

// Loop serializes tasks onto a single goroutine.
type Loop struct {
	clock  Clock
	logger *slog.Logger

	tasks chan task

	// mu guards closed; it is never held while a task runs.
	mu     sync.RWMutex
	closed bool

	stopCh chan struct{}
	doneCh chan struct{}
}

// Option configures a Loop.
type Option func(*Loop)

// WithClock sets the clock. Defaults to a SystemClock.
func WithClock(c Clock) Option {
	return func(l *Loop) {
		l.clock = c
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Loop) {
		l.logger = logger
	}
}

// WithQueueSize sets the task queue capacity.
func WithQueueSize(n int) Option {
	return func(l *Loop) {
		if n > 0 {
			l.tasks = make(chan task, n)
		}
	}
}

// New creates and starts a loop.
func New(opts ...Option) *Loop {
	l := &Loop{
		clock:  NewSystemClock(),
		logger: slog.Default(),
		tasks:  make(chan task, DefaultQueueSize),
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}

	for _, opt := range opts {
		opt(l)
	}

	go l.run()
	return l
}

// Now returns the current logical time.
func (l *Loop) Now() uint64 {
	return l.clock.Now()
}

// After schedules fn to run on the loop once delay has elapsed.
//
// If the loop is closed by then the callback is dropped; pending reminders are
// re-armed from the snapshot on the next start.
func (l *Loop) After(delay time.Duration, fn func()) {
	time.AfterFunc(delay, func() {
		if err := l.enqueue(context.Background(), task{fn: fn}); err != nil {
			l.logger.Debug("timer callback dropped", "error", err)
		}
	})
}

// Do runs fn on the loop and waits for it to complete.
func (l *Loop) Do(ctx context.Context, fn func()) error {
	t := task{fn: fn, done: make(chan error, 1)}
	if err := l.enqueue(ctx, t); err != nil {
		return err
	}

	select {
	case err := <-t.done:
		return err
	case <-ctx.Done():
		// The task still runs to completion; only the wait is abandoned.
		return ctx.Err()
	}
}

// Quiesce runs fn as the final task of the loop.
//
// fn observes a fully quiesced state: tasks queued before it have completed
// and no task is admitted while it runs. If fn succeeds the loop stops
// accepting work for good. If it fails the loop resumes normal operation and
// the error is returned.
func (l *Loop) Quiesce(ctx context.Context, fn func() error) error {
	var fnErr error
	t := task{
		fn: func() {
			fnErr = fn()
		},
		done: make(chan error, 1),
	}

	// Hold the write lock across the whole task so that no new task can
	// be admitted behind it while it runs.
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return ErrClosed
	}
	select {
	case l.tasks <- t:
	case <-ctx.Done():
		l.mu.Unlock()
		return ctx.Err()
	}

	var err error
	select {
	case err = <-t.done:
	case <-ctx.Done():
		// Keep the lock until the task finishes; admitting work now
		// would race with the save.
		err = <-t.done
		if err == nil && fnErr == nil {
			err = ctx.Err()
		}
	}
	if err == nil {
		err = fnErr
	}
	if err == nil {
		l.closed = true
	}
	l.mu.Unlock()

	return err
}

// Close stops the loop after draining queued tasks.
func (l *Loop) Close() {
	l.mu.Lock()
	l.closed = true
	l.mu.Unlock()

	select {
	case <-l.stopCh:
	default:
		close(l.stopCh)
	}
	<-l.doneCh
}

// Closed reports whether the loop stopped accepting work.
func (l *Loop) Closed() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.closed
}

func (l *Loop) enqueue(ctx context.Context, t task) error {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if l.closed {
		return ErrClosed
	}

	select {
	case l.tasks <- t:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l *Loop) run() {
	defer close(l.doneCh)

	for {
		select {
		case t := <-l.tasks:
			l.exec(t)
		case <-l.stopCh:
			// Drain what was admitted before Close.
			for {
				select {
				case t := <-l.tasks:
					l.exec(t)
				default:
					return
				}
			}
		}
	}
}

func (l *Loop) exec(t task) {
	var err error
	func() {
		defer func() {
			if r := recover(); r != nil {
				l.logger.Error("panic recovered in loop task", "panic", fmt.Sprint(r))
				err = ErrTaskPanicked
			}
		}()
		t.fn()
	}()

	if t.done != nil {
		t.done <- err
	}
}
