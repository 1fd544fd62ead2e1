// Package eventbus delivers keyed events to a single handler, preserving
// publication order per key. Events of different keys are processed in
// parallel across a fixed set of lanes.
package eventbus

import (
	"context"
	"errors"
	"hash/fnv"
	"sync"
)

// ErrClosed is returned when publishing on a closed bus.
var ErrClosed = errors.New("event bus closed")

// Handler processes one event. Calls for the same key never overlap.
type Handler[T any] func(key string, event T)

type item[T any] struct {
	key     string
	event   T
	barrier chan struct{}
}

// Bus is an ordered, per-key event queue.
type Bus[T any] struct {
	handler Handler[T]
	lanes   []chan item[T]

	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// New starts a bus with the given number of lanes. Each lane buffers up to
// depth events before Publish blocks.
func New[T any](lanes, depth int, handler Handler[T]) *Bus[T] {
	if lanes <= 0 {
		lanes = 1
	}
	if depth <= 0 {
		depth = 256
	}

	b := &Bus[T]{
		handler: handler,
		lanes:   make([]chan item[T], lanes),
		done:    make(chan struct{}),
	}
	for i := range b.lanes {
		b.lanes[i] = make(chan item[T], depth)
		b.wg.Add(1)
		go b.run(b.lanes[i])
	}
	return b
}

// Publish queues event for key. It blocks while the lane is full; lifecycle
// events are never dropped.
func (b *Bus[T]) Publish(key string, event T) error {
	return b.enqueue(item[T]{key: key, event: event})
}

// Flush waits until every event published for key before the call has been handled.
func (b *Bus[T]) Flush(ctx context.Context, key string) error {
	barrier := make(chan struct{})
	if err := b.enqueue(item[T]{key: key, barrier: barrier}); err != nil {
		return err
	}
	select {
	case <-barrier:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-b.done:
		return ErrClosed
	}
}

// Close stops the lanes after the events already queued are handled.
func (b *Bus[T]) Close() {
	b.closeOnce.Do(func() {
		close(b.done)
	})
	b.wg.Wait()
}

func (b *Bus[T]) enqueue(it item[T]) error {
	select {
	case <-b.done:
		return ErrClosed
	default:
	}

	select {
	case b.lane(it.key) <- it:
		return nil
	case <-b.done:
		return ErrClosed
	}
}

func (b *Bus[T]) lane(key string) chan item[T] {
	h := fnv.New32a()
	h.Write([]byte(key))
	return b.lanes[h.Sum32()%uint32(len(b.lanes))]
}

func (b *Bus[T]) run(lane chan item[T]) {
	defer b.wg.Done()
	for {
		select {
		case it := <-lane:
			b.dispatch(it)
		case <-b.done:
			// Drain what was accepted before close.
			for {
				select {
				case it := <-lane:
					b.dispatch(it)
				default:
					return
				}
			}
		}
	}
}

func (b *Bus[T]) dispatch(it item[T]) {
	if it.barrier != nil {
		close(it.barrier)
		return
	}
	b.handler(it.key, it.event)
}
