// Package eventbus decouples event producers from slow sinks (websocket
// fan-out, kafka). Publish never blocks: when the buffer is full the event is
// dropped and logged.
package eventbus

import (
	"context"
	"sync/atomic"

	"github.com/maverick16108/atlas/internal/shared/logger"
	"go.uber.org/zap"
)

var log = logger.GetLogger()

// Sink receives every event the bus delivers.
type Sink[E any] interface {
	Name() string
	Send(ctx context.Context, event E) error
}

// Bus is a bounded, non-blocking fan-out queue.
type Bus[E any] struct {
	queue   chan E
	sinks   []Sink[E]
	dropped atomic.Int64
}

func New[E any](size int, sinks ...Sink[E]) *Bus[E] {
	if size < 1 {
		size = 1
	}
	return &Bus[E]{
		queue: make(chan E, size),
		sinks: sinks,
	}
}

// Publish enqueues event or drops it when the queue is full.
func (b *Bus[E]) Publish(_ context.Context, event E) {
	select {
	case b.queue <- event:
	default:
		n := b.dropped.Add(1)
		log.Warn("Event bus full, event dropped", zap.Int64("dropped_total", n))
	}
}

// Dropped is the number of events lost to a full queue so far.
func (b *Bus[E]) Dropped() int64 {
	return b.dropped.Load()
}

// Run delivers queued events to every sink until ctx is done, then drains
// what is left. A failing sink is logged and does not affect the others.
func (b *Bus[E]) Run(ctx context.Context) {
	log.Info("Event bus started", zap.Int("sinks", len(b.sinks)), zap.Int("buffer", cap(b.queue)))
	for {
		select {
		case <-ctx.Done():
			b.drain()
			log.Info("Event bus stopped")
			return
		case event := <-b.queue:
			b.deliver(ctx, event)
		}
	}
}

func (b *Bus[E]) drain() {
	// sinks get a fresh context: the run context is already cancelled
	ctx := context.Background()
	for {
		select {
		case event := <-b.queue:
			b.deliver(ctx, event)
		default:
			return
		}
	}
}

func (b *Bus[E]) deliver(ctx context.Context, event E) {
	for _, sink := range b.sinks {
		if err := sink.Send(ctx, event); err != nil {
			log.Error("Event sink failed", zap.String("sink", sink.Name()), zap.Error(err))
		}
	}
}
