package queue

import "time"

// DropOldest is a fixed-capacity FIFO where Put on a full queue evicts the
// oldest element before inserting. Under sustained producer/consumer rate
// mismatch older items are silently lost; that is the accepted degradation
// policy, not an error.
type DropOldest[T any] struct {
	ch chan T
}

// NewDropOldest creates a queue with the given capacity (minimum 1).
func NewDropOldest[T any](capacity int) *DropOldest[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &DropOldest[T]{ch: make(chan T, capacity)}
}

// Put inserts item at the tail, evicting the head first if the queue is full.
func (q *DropOldest[T]) Put(item T) {
	for {
		select {
		case q.ch <- item:
			return
		default:
		}
		select {
		case <-q.ch:
		default:
		}
	}
}

// TryGet pops the head without waiting, or returns false if empty.
func (q *DropOldest[T]) TryGet() (T, bool) {
	select {
	case item := <-q.ch:
		return item, true
	default:
		var zero T
		return zero, false
	}
}

// Get waits up to timeout for the head item.
func (q *DropOldest[T]) Get(timeout time.Duration) (T, bool) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case item := <-q.ch:
		return item, true
	case <-timer.C:
		var zero T
		return zero, false
	}
}

// Len reports the number of buffered items.
func (q *DropOldest[T]) Len() int {
	return len(q.ch)
}
