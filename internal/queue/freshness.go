// Package queue provides the two bounded, never-blocking buffers used between
// producers and workers: a capacity-1 latest-wins buffer and a drop-oldest FIFO.
// Eviction policy lives here, not at call sites.
package queue

import "time"

// Freshness is a capacity-1 buffer where the most recently put item wins.
// Put never blocks and never fails: an unconsumed occupant is discarded.
// Intended for live telemetry where an old item is worse than no item.
type Freshness[T any] struct {
	ch chan T
}

// NewFreshness creates an empty latest-wins buffer.
func NewFreshness[T any]() *Freshness[T] {
	return &Freshness[T]{ch: make(chan T, 1)}
}

// Put stores item, replacing any unconsumed occupant.
func (q *Freshness[T]) Put(item T) {
	for {
		select {
		case q.ch <- item:
			return
		default:
		}
		// Slot occupied: evict and retry. With a single producer this
		// loop runs at most twice.
		select {
		case <-q.ch:
		default:
		}
	}
}

// TryGet returns the buffered item and clears the slot, or false if empty.
func (q *Freshness[T]) TryGet() (T, bool) {
	select {
	case item := <-q.ch:
		return item, true
	default:
		var zero T
		return zero, false
	}
}

// Get waits up to timeout for an item so worker loops stay bounded and can
// re-check the shutdown signal.
func (q *Freshness[T]) Get(timeout time.Duration) (T, bool) {
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
