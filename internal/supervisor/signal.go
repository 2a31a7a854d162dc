package supervisor

import (
	"sync"
	"sync/atomic"
)

// Signal is a set-once, read-many shutdown flag. Setting it is the only
// authorized way to stop the system; it is never cleared.
type Signal struct {
	once sync.Once
	ch   chan struct{}
}

// NewSignal creates an unset signal.
func NewSignal() *Signal {
	return &Signal{ch: make(chan struct{})}
}

// Set marks the signal. Safe to call more than once.
func (s *Signal) Set() {
	s.once.Do(func() { close(s.ch) })
}

// IsSet reports whether the signal has been set.
func (s *Signal) IsSet() bool {
	select {
	case <-s.ch:
		return true
	default:
		return false
	}
}

// Done returns a channel closed when the signal is set.
func (s *Signal) Done() <-chan struct{} {
	return s.ch
}

// Flag is a boolean indicator readable from any goroutine. Consumers read it
// for display only and must not drive behavior from it.
type Flag struct {
	v atomic.Bool
}

// Set marks the flag true.
func (f *Flag) Set() { f.v.Store(true) }

// Clear marks the flag false.
func (f *Flag) Clear() { f.v.Store(false) }

// IsSet reports the current value.
func (f *Flag) IsSet() bool { return f.v.Load() }
