package dispatch

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/muhammadchandra19/settlement/pkg/logger"
	"github.com/muhammadchandra19/settlement/pkg/util"
	eventv1 "github.com/muhammadchandra19/settlement/services/settlement/internal/domain/event/v1"
)

// Handler is a post-commit hook.
type Handler interface {
	Handle(ctx context.Context, events []eventv1.Event) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, events []eventv1.Event) error

// Handle calls f.
func (f HandlerFunc) Handle(ctx context.Context, events []eventv1.Event) error {
	return f(ctx, events)
}

// Options represents configuration options for the Dispatcher.
type Options struct {
	QueueSize      int
	HandlerTimeout time.Duration
}

// DefaultOptions returns the default dispatcher options.
func DefaultOptions() *Options {
	return &Options{
		QueueSize:      1024,
		HandlerTimeout: 5 * time.Second,
	}
}

type batch struct {
	ctx    context.Context
	events []eventv1.Event
}

type namedHandler struct {
	name    string
	handler Handler
}

// Dispatcher runs post-commit hooks on a background worker. Dispatch never
// blocks; when the queue is full the batch is dropped and logged.
type Dispatcher struct {
	handlers []namedHandler
	queue    chan batch
	logger   logger.Interface
	options  *Options

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup

	dispatched atomic.Int64
	dropped    atomic.Int64
	failed     atomic.Int64
}

// NewDispatcher creates a dispatcher. Handlers are added with Register
// before Start.
func NewDispatcher(logger logger.Interface, options *Options) *Dispatcher {
	if options == nil {
		options = DefaultOptions()
	}
	return &Dispatcher{
		queue:   make(chan batch, options.QueueSize),
		logger:  logger,
		options: options,
	}
}

// Register adds a named hook.
func (d *Dispatcher) Register(name string, handler Handler) {
	d.handlers = append(d.handlers, namedHandler{name: name, handler: handler})
}

// Dispatch queues events for the hooks.
func (d *Dispatcher) Dispatch(ctx context.Context, events ...eventv1.Event) {
	if len(events) == 0 {
		return
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.dropped.Add(int64(len(events)))
		d.logger.WarnContext(ctx, "Dispatcher stopped, dropping events",
			logger.Field{Key: "eventCount", Value: len(events)},
		)
		return
	}

	select {
	case d.queue <- batch{ctx: util.Detach(ctx), events: events}:
		d.dispatched.Add(int64(len(events)))
	default:
		d.dropped.Add(int64(len(events)))
		d.logger.WarnContext(ctx, "Dispatch queue full, dropping events",
			logger.Field{Key: "eventCount", Value: len(events)},
			logger.Field{Key: "queueSize", Value: d.options.QueueSize},
		)
	}
}

// Start runs the worker until Stop.
func (d *Dispatcher) Start(ctx context.Context) error {
	d.wg.Add(1)
	go d.run()

	d.logger.Info("Dispatcher started", logger.Field{
		Key:   "handlers",
		Value: len(d.handlers),
	})
	return nil
}

// Stop stops accepting events and waits until the queue is drained or ctx ends.
func (d *Dispatcher) Stop(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.logger.Info("Dispatcher stopped gracefully",
			logger.Field{Key: "dispatched", Value: d.dispatched.Load()},
			logger.Field{Key: "dropped", Value: d.dropped.Load()},
			logger.Field{Key: "failed", Value: d.failed.Load()},
		)
		return nil
	case <-ctx.Done():
		d.logger.Warn("Dispatcher stop timeout exceeded")
		return ctx.Err()
	}
}

func (d *Dispatcher) run() {
	defer d.wg.Done()

	for b := range d.queue {
		d.handle(b)
	}
}

func (d *Dispatcher) handle(b batch) {
	for _, h := range d.handlers {
		ctx, cancel := context.WithTimeout(b.ctx, d.options.HandlerTimeout)
		err := h.handler.Handle(ctx, b.events)
		cancel()

		if err != nil {
			d.failed.Add(1)
			d.logger.ErrorContext(b.ctx, err,
				logger.Field{Key: "action", Value: "dispatch"},
				logger.Field{Key: "handler", Value: h.name},
				logger.Field{Key: "eventCount", Value: len(b.events)},
			)
		}
	}
}

// Dropped returns how many events were dropped.
func (d *Dispatcher) Dropped() int64 {
	return d.dropped.Load()
}
