// Package queue provides a multi-producer single-consumer FIFO used to hand
// work from transport goroutines to the router's worker goroutines.
package queue

import "sync"

// Queue is an unbounded (or optionally bounded) MPSC FIFO.
//
// Producers call Push from any goroutine. The consumer waits on Ready and
// takes everything queued so far with Drain. Ready is edge triggered: a
// consumer woken by it must Drain until it sees an empty batch or loop back
// to Ready, which is signalled again on the next Push after a Drain.
type Queue[T any] struct {
	mu       sync.Mutex
	items    []T
	capacity int
	dropped  uint64
	ready    chan struct{}
}

// New creates a queue. A capacity of 0 means unbounded; otherwise Push drops
// the newest item once capacity items are waiting.
func New[T any](capacity int) *Queue[T] {
	if capacity < 0 {
		capacity = 0
	}
	return &Queue[T]{
		capacity: capacity,
		ready:    make(chan struct{}, 1),
	}
}

// Push appends item and wakes the consumer. It never blocks.
// Returns false if the queue is full and the item was dropped.
func (q *Queue[T]) Push(item T) bool {
	q.mu.Lock()
	if q.capacity > 0 && len(q.items) >= q.capacity {
		q.dropped++
		q.mu.Unlock()
		return false
	}
	q.items = append(q.items, item)
	q.mu.Unlock()

	select {
	case q.ready <- struct{}{}:
	default:
	}
	return true
}

// Drain removes and returns every queued item in FIFO order.
// Returns nil when the queue is empty.
func (q *Queue[T]) Drain() []T {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return nil
	}
	batch := q.items
	q.items = nil
	return batch
}

// Ready returns a channel that receives a value after items were pushed.
func (q *Queue[T]) Ready() <-chan struct{} {
	return q.ready
}

// Len returns the number of waiting items.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Dropped returns how many items Push rejected because the queue was full.
func (q *Queue[T]) Dropped() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dropped
}
