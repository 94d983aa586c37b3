package goAuthClient

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
)

// eventDispatcher delivers events to every sink on one goroutine so that
// session transitions never block on a slow consumer unless DropIfFull is
// off.
type eventDispatcher struct {
	cfg       EventsConfig
	sinks     []EventSink
	logger    *slog.Logger
	queue     chan Event
	done      chan struct{}
	wg        sync.WaitGroup
	delivered atomic.Uint64
	dropped   atomic.Uint64
	closed    atomic.Bool
	closeOnce sync.Once
}

func newEventDispatcher(cfg EventsConfig, logger *slog.Logger, sinks ...EventSink) *eventDispatcher {
	if !cfg.Enabled {
		return nil
	}
	live := make([]EventSink, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			live = append(live, s)
		}
	}
	if len(live) == 0 {
		live = append(live, NoOpSink{})
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1
	}

	d := &eventDispatcher{
		cfg:    cfg,
		sinks:  live,
		logger: logger,
		queue:  make(chan Event, cfg.BufferSize),
		done:   make(chan struct{}),
	}
	d.wg.Add(1)
	go d.loop()
	return d
}

func (d *eventDispatcher) loop() {
	defer d.wg.Done()

	for {
		select {
		case event := <-d.queue:
			d.deliver(event)
		case <-d.done:
			// Flush what was accepted before Close.
			for {
				select {
				case event := <-d.queue:
					d.deliver(event)
				default:
					return
				}
			}
		}
	}
}

func (d *eventDispatcher) deliver(event Event) {
	ctx := context.Background()
	for _, sink := range d.sinks {
		d.emitOne(ctx, sink, event)
	}
	d.delivered.Add(1)
}

func (d *eventDispatcher) emitOne(ctx context.Context, sink EventSink, event Event) {
	defer func() {
		if r := recover(); r != nil && d.logger != nil {
			d.logger.Error("event sink panicked",
				slog.String("event", string(event.Type)),
				slog.Any("panic", r),
			)
		}
	}()
	sink.Emit(ctx, event)
}

// Emit queues event. With DropIfFull a full queue drops the event and counts
// it; otherwise Emit waits for room, ctx, or Close.
func (d *eventDispatcher) Emit(ctx context.Context, event Event) {
	if d == nil || d.closed.Load() {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}

	if d.cfg.DropIfFull {
		select {
		case d.queue <- event:
		case <-d.done:
		default:
			d.dropped.Add(1)
		}
		return
	}

	select {
	case d.queue <- event:
	case <-ctx.Done():
		d.dropped.Add(1)
	case <-d.done:
	}
}

// Close stops accepting events, flushes the queue, and waits for the
// dispatcher goroutine. It is safe to call more than once.
func (d *eventDispatcher) Close() {
	if d == nil {
		return
	}
	d.closeOnce.Do(func() {
		d.closed.Store(true)
		close(d.done)
		d.wg.Wait()
	})
}

func (d *eventDispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}

func (d *eventDispatcher) Delivered() uint64 {
	if d == nil {
		return 0
	}
	return d.delivered.Load()
}
