package router

import (
	"context"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"pagebot/internal/domain"
	"pagebot/internal/metrics"
)

// Dispatcher drains the event bus with a fixed worker pool. A panic in one
// handler is contained to that one event.
type Dispatcher struct {
	bus     domain.EventBus
	router  *Router
	workers int
	timeout time.Duration
	logger  *slog.Logger
}

type DispatcherConfig struct {
	Bus     domain.EventBus
	Router  *Router
	Workers int
	// Timeout bounds the handling of one event, outbound calls included.
	Timeout time.Duration
	Logger  *slog.Logger
}

func NewDispatcher(cfg DispatcherConfig) *Dispatcher {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Dispatcher{
		bus:     cfg.Bus,
		router:  cfg.Router,
		workers: cfg.Workers,
		timeout: cfg.Timeout,
		logger:  cfg.Logger,
	}
}

// Run consumes events until the bus channel closes, then returns. Cancel ctx
// to stop in-flight handlers early.
func (d *Dispatcher) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for i := 0; i < d.workers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			d.worker(ctx, id)
		}(i)
	}
	wg.Wait()
}

func (d *Dispatcher) worker(ctx context.Context, id int) {
	for evt := range d.bus.Subscribe() {
		if depth, ok := d.bus.(interface{ Depth() int }); ok {
			metrics.QueueDepth.Set(int64(depth.Depth()))
		}
		d.handle(ctx, id, evt)
	}
}

func (d *Dispatcher) handle(ctx context.Context, id int, evt domain.PageEvent) {
	defer func() {
		if rec := recover(); rec != nil {
			d.logger.Error("handler panic recovered",
				"worker", id, "page", evt.PageID, "panic", rec,
				"stack", string(debug.Stack()))
		}
	}()

	hctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()
	d.router.Handle(hctx, evt)
}
