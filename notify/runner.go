// Package notify delivers outward-facing notifications to workspace webhook
// endpoints. Delivery is fire and forget from the caller's point of view:
// notifications are handed to a background runner and drained through a
// durable outbox, and no delivery failure ever propagates back into the
// inbound webhook response.
package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/goliatone/go-attribution/core"
)

const defaultTaskTimeout = 30 * time.Second

// Runner executes named background tasks with panic recovery. Shutdown
// blocks until in-flight tasks drain or the context expires.
type Runner struct {
	observer    *core.Observer
	taskTimeout time.Duration

	mu     sync.Mutex
	wg     sync.WaitGroup
	closed bool
}

type RunnerOption func(*Runner)

func WithTaskTimeout(timeout time.Duration) RunnerOption {
	return func(r *Runner) {
		if timeout > 0 {
			r.taskTimeout = timeout
		}
	}
}

func NewRunner(observer *core.Observer, opts ...RunnerOption) *Runner {
	runner := &Runner{
		observer:    observer,
		taskTimeout: defaultTaskTimeout,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(runner)
		}
	}
	return runner
}

// Go schedules fn on its own goroutine. Tasks scheduled after Shutdown are
// dropped with a log line instead of racing the drain.
func (r *Runner) Go(name string, fn func(ctx context.Context) error) {
	if r == nil || fn == nil {
		return
	}
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		r.logTaskFailure(context.Background(), name, fmt.Errorf("notify: runner is shut down"))
		return
	}
	r.wg.Add(1)
	r.mu.Unlock()

	go func() {
		defer r.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), r.taskTimeout)
		defer cancel()
		defer func() {
			if recovered := recover(); recovered != nil {
				r.logTaskFailure(ctx, name, fmt.Errorf("notify: task panicked: %v", recovered))
			}
		}()
		if err := fn(ctx); err != nil {
			r.logTaskFailure(ctx, name, err)
		}
	}()
}

// Shutdown stops accepting tasks and waits for in-flight ones.
func (r *Runner) Shutdown(ctx context.Context) error {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("notify: shutdown interrupted: %w", ctx.Err())
	}
}

func (r *Runner) logTaskFailure(ctx context.Context, name string, err error) {
	if r == nil || r.observer == nil {
		return
	}
	r.observer.Error(ctx, "background task failed", map[string]any{
		"task":  name,
		"error": err.Error(),
	})
	r.observer.Counter(ctx, "attribution.background_task_failures.total", 1, map[string]string{
		"task": name,
	})
}

var _ core.BackgroundRunner = (*Runner)(nil)
