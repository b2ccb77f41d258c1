// Package limiter serializes outbound calls to a rate-sensitive routing
// engine. Tasks run one at a time in arrival order with a minimum spacing
// between consecutive starts; each task carries a timeout covering both its
// queue wait and its execution.
package limiter

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	// DefaultSpacing is the minimum gap between consecutive task starts.
	// The public Valhalla instance is a shared, low-capacity resource.
	DefaultSpacing = 3 * time.Second

	// DefaultTimeout bounds a task's queue wait plus execution.
	DefaultTimeout = 30 * time.Second

	queueCapacity = 64
)

var (
	// ErrTimeout is returned when a task exceeds its allotted wait plus
	// execution time. The task is abandoned, not retried.
	ErrTimeout = errors.New("limiter: task timed out")

	// ErrQueueFull is returned when the bounded queue cannot accept more
	// tasks.
	ErrQueueFull = errors.New("limiter: queue full")

	// ErrDropped is returned for tasks discarded by Reset or Stop before
	// they started.
	ErrDropped = errors.New("limiter: task dropped")
)

// Task is a unit of work run under the limiter. The supplied context is
// cancelled when the task's timeout elapses.
type Task func(ctx context.Context) error

type pending struct {
	ctx    context.Context
	cancel context.CancelFunc
	fn     Task
	done   chan error
}

// Limiter owns a FIFO queue drained by a single worker. Construct with New,
// pass by reference to whichever client needs it, and Stop when done.
type Limiter struct {
	timeout time.Duration
	logger  *slog.Logger
	pacer   *rate.Limiter
	tasks   chan *pending

	stopOnce sync.Once
	stop     chan struct{}
}

// New creates a started Limiter. Zero spacing or timeout select the
// defaults.
func New(spacing, timeout time.Duration, logger *slog.Logger) *Limiter {
	if spacing <= 0 {
		spacing = DefaultSpacing
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}

	l := &Limiter{
		timeout: timeout,
		logger:  logger,
		pacer:   rate.NewLimiter(rate.Every(spacing), 1),
		tasks:   make(chan *pending, queueCapacity),
		stop:    make(chan struct{}),
	}
	go l.run()
	return l
}

// Schedule queues fn and blocks until it finishes, times out, or the
// caller's context is cancelled. A task failure is returned to its caller
// only; it does not affect queued tasks.
func (l *Limiter) Schedule(ctx context.Context, fn Task) error {
	taskCtx, cancel := context.WithTimeout(ctx, l.timeout)

	p := &pending{
		ctx:    taskCtx,
		cancel: cancel,
		fn:     fn,
		done:   make(chan error, 1),
	}

	// Checked before the send: with queue capacity free, a combined select
	// would pick between a ready send and a closed stop at random, letting
	// a task slip in after the worker has exited.
	select {
	case <-l.stop:
		cancel()
		return ErrDropped
	default:
	}

	select {
	case l.tasks <- p:
	case <-l.stop:
		cancel()
		return ErrDropped
	default:
		cancel()
		return ErrQueueFull
	}

	select {
	case err := <-p.done:
		cancel()
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return ErrTimeout
		}
		return err
	case <-taskCtx.Done():
		// The worker observes the same context and abandons the task.
		cancel()
		if errors.Is(taskCtx.Err(), context.DeadlineExceeded) {
			return ErrTimeout
		}
		return taskCtx.Err()
	}
}

func (l *Limiter) run() {
	for {
		select {
		case <-l.stop:
			return
		case p := <-l.tasks:
			l.runTask(p)
		}
	}
}

func (l *Limiter) runTask(p *pending) {
	defer p.cancel()

	// Caller may have given up while the task was queued.
	if p.ctx.Err() != nil {
		p.done <- p.ctx.Err()
		return
	}

	if err := l.pacer.Wait(p.ctx); err != nil {
		p.done <- err
		return
	}

	err := p.fn(p.ctx)
	if err != nil {
		l.logger.Warn("limiter: task failed", "error", err)
	}
	p.done <- err
}

// Reset discards all queued tasks that have not started. In-flight work is
// unaffected.
func (l *Limiter) Reset() {
	for {
		select {
		case p := <-l.tasks:
			p.done <- ErrDropped
			p.cancel()
		default:
			return
		}
	}
}

// Stop shuts the limiter down, dropping any queued tasks.
func (l *Limiter) Stop() {
	l.stopOnce.Do(func() {
		close(l.stop)
		l.Reset()
	})
}
