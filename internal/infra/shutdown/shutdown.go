package shutdown

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"
)

// Hook is a phase callback. ctx carries the handler timeout.
type Hook func(ctx context.Context) error

type namedHook struct {
	name string
	fn   Hook
}

// Handler handles graceful shutdown.
type Handler struct {
	timeout time.Duration
	logger  *slog.Logger
	signals []os.Signal

	mu       sync.Mutex
	prepare  []namedHook
	shutdown []namedHook
	aborted  int

	trigger chan struct{}
	done    chan struct{}
}

// Option configures a Handler.
type Option func(*Handler)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Handler) {
		h.logger = logger
	}
}

// WithSignals replaces the default SIGINT and SIGTERM.
func WithSignals(sigs ...os.Signal) Option {
	return func(h *Handler) {
		h.signals = sigs
	}
}

// NewHandler creates a new shutdown handler. timeout bounds each phase.
func NewHandler(timeout time.Duration, opts ...Option) *Handler {
	h := &Handler{
		timeout: timeout,
		logger:  slog.Default(),
		signals: []os.Signal{syscall.SIGINT, syscall.SIGTERM},
		trigger: make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// OnPrepare registers a hook that must succeed before anything is stopped.
func (h *Handler) OnPrepare(name string, hook Hook) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.prepare = append(h.prepare, namedHook{name: name, fn: hook})
}

// OnShutdown registers a shutdown hook.
// Hooks are called in reverse order of registration.
func (h *Handler) OnShutdown(name string, hook Hook) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.shutdown = append(h.shutdown, namedHook{name: name, fn: hook})
}

// Trigger starts a transition as if a signal had been received.
func (h *Handler) Trigger() {
	select {
	case h.trigger <- struct{}{}:
	default:
	}
}

// Wait blocks until a transition completes or ctx is cancelled.
//
// Each signal (or Trigger) attempts one transition. Aborted transitions are
// logged and counted; Wait keeps waiting. Once the prepare phase succeeds the
// shutdown hooks run and Wait returns the last shutdown hook error.
func (h *Handler) Wait(ctx context.Context) error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, h.signals...)
	defer signal.Stop(sigCh)

	for {
		select {
		case sig := <-sigCh:
			h.logger.Info("received signal", "signal", sig.String())
		case <-h.trigger:
			h.logger.Info("shutdown triggered")
		case <-ctx.Done():
			return ctx.Err()
		}

		if err := h.runPrepare(); err != nil {
			h.mu.Lock()
			h.aborted++
			h.mu.Unlock()
			h.logger.Error("transition aborted, still serving", "error", err)
			continue
		}

		err := h.runShutdown()
		close(h.done)
		return err
	}
}

func (h *Handler) hooks() (prepare, shutdown []namedHook) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]namedHook(nil), h.prepare...), append([]namedHook(nil), h.shutdown...)
}

func (h *Handler) runPrepare() error {
	prepare, _ := h.hooks()

	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()

	for _, hook := range prepare {
		if err := hook.fn(ctx); err != nil {
			h.logger.Error("prepare hook failed", "hook", hook.name, "error", err)
			return err
		}
		h.logger.Debug("prepare hook done", "hook", hook.name)
	}
	return nil
}

func (h *Handler) runShutdown() error {
	_, shutdown := h.hooks()

	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()

	var lastErr error
	for i := len(shutdown) - 1; i >= 0; i-- {
		hook := shutdown[i]
		if err := hook.fn(ctx); err != nil {
			h.logger.Error("shutdown hook failed", "hook", hook.name, "error", err)
			lastErr = err
		}
	}
	return lastErr
}

// Aborted returns the number of transitions aborted by a prepare hook.
func (h *Handler) Aborted() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.aborted
}

// Done returns a channel that closes when shutdown is complete.
func (h *Handler) Done() <-chan struct{} {
	return h.done
}
