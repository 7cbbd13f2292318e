// Package eventbus is a small in-process pub/sub fan-out, used to push
// endpoint health transitions from the pool to the processor's logging
// subscriber without ever blocking a publisher.
package eventbus

import (
	"context"
	"strconv"
	"sync/atomic"

	"github.com/puzpuzpuz/xsync/v4"
)

const defaultBufferSize = 64

// EventBus delivers published events to every subscriber through a
// single dispatcher goroutine. Publishing is non-blocking on both the
// publisher side (bounded queue) and the subscriber side (bounded
// per-subscriber channel); overflow in either place drops the event
// and counts the drop rather than stalling the caller.
type EventBus[T any] struct {
	subscribers *xsync.Map[string, *subscriber[T]]
	queue       chan T
	done        chan struct{}
	drained     chan struct{}
	seq         atomic.Uint64
	dropped     atomic.Uint64
	bufferSize  int
	isShutdown  atomic.Bool
}

type subscriber[T any] struct {
	ch        chan T
	cancelled atomic.Bool
	dropped   atomic.Uint64
}

// New creates an event bus with the default buffer size and starts its
// dispatcher.
func New[T any]() *EventBus[T] {
	return NewWithBuffer[T](defaultBufferSize)
}

// NewWithBuffer creates an event bus whose publish queue and
// per-subscriber channels hold up to size events each.
func NewWithBuffer[T any](size int) *EventBus[T] {
	if size < 1 {
		size = 1
	}
	eb := &EventBus[T]{
		subscribers: xsync.NewMap[string, *subscriber[T]](),
		queue:       make(chan T, size),
		done:        make(chan struct{}),
		drained:     make(chan struct{}),
		bufferSize:  size,
	}
	go eb.dispatch()
	return eb
}

// Subscribe returns a receive channel and a cancel function. The
// channel is closed by the dispatcher at bus shutdown, or, once the
// subscription is cancelled (directly or via ctx), when the next event
// is fanned out, so receivers can simply range over it.
func (eb *EventBus[T]) Subscribe(ctx context.Context) (<-chan T, func()) {
	sub := &subscriber[T]{ch: make(chan T, eb.bufferSize)}
	if eb.isShutdown.Load() {
		close(sub.ch)
		return sub.ch, func() {}
	}

	id := "sub_" + strconv.FormatUint(eb.seq.Add(1), 10)
	eb.subscribers.Store(id, sub)

	cancel := func() { sub.cancelled.Store(true) }
	if ctx != nil && ctx.Done() != nil {
		go func() {
			select {
			case <-ctx.Done():
				sub.cancelled.Store(true)
			case <-eb.drained:
			}
		}()
	}
	return sub.ch, cancel
}

// PublishAsync enqueues an event for delivery, dropping it if the
// queue is full or the bus is shut down.
func (eb *EventBus[T]) PublishAsync(event T) {
	if eb.isShutdown.Load() {
		return
	}
	select {
	case eb.queue <- event:
	default:
		eb.dropped.Add(1)
	}
}

// Shutdown stops accepting events, delivers whatever is already
// queued, then closes every subscriber channel. Safe to call more
// than once.
func (eb *EventBus[T]) Shutdown() {
	if eb.isShutdown.CompareAndSwap(false, true) {
		close(eb.done)
	}
	<-eb.drained
}

// Dropped reports how many events were discarded because a queue or a
// subscriber buffer was full.
func (eb *EventBus[T]) Dropped() uint64 {
	total := eb.dropped.Load()
	eb.subscribers.Range(func(_ string, sub *subscriber[T]) bool {
		total += sub.dropped.Load()
		return true
	})
	return total
}

// dispatch is the only goroutine that sends on or closes subscriber
// channels, which is what makes close-on-shutdown safe.
func (eb *EventBus[T]) dispatch() {
	defer close(eb.drained)
	for {
		select {
		case event := <-eb.queue:
			eb.fanOut(event)
		case <-eb.done:
			for {
				select {
				case event := <-eb.queue:
					eb.fanOut(event)
				default:
					eb.subscribers.Range(func(id string, sub *subscriber[T]) bool {
						eb.subscribers.Delete(id)
						close(sub.ch)
						return true
					})
					return
				}
			}
		}
	}
}

func (eb *EventBus[T]) fanOut(event T) {
	eb.subscribers.Range(func(id string, sub *subscriber[T]) bool {
		if sub.cancelled.Load() {
			eb.subscribers.Delete(id)
			close(sub.ch)
			return true
		}
		select {
		case sub.ch <- event:
		default:
			sub.dropped.Add(1)
		}
		return true
	})
}
