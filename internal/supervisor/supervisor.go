// Package supervisor owns the lifecycle of every sub-service: it starts each
// one while absent or dead, restarts it immediately on observed death, and
// coordinates a bounded shutdown through a single shared signal.
package supervisor

import (
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// DefaultTickInterval bounds the liveness polling loop so it neither busy-spins
// nor delays restarts noticeably.
const DefaultTickInterval = 100 * time.Millisecond

// Context carries the shared coordination state handed to every sub-service at
// construction. There is no per-operation cancellation: Shutdown stops everything.
type Context struct {
	Shutdown  *Signal
	Connected *Flag
	Logger    *zap.Logger
}

// NewContext creates a supervision context with fresh signals.
func NewContext(logger *zap.Logger) *Context {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Context{
		Shutdown:  NewSignal(),
		Connected: &Flag{},
		Logger:    logger,
	}
}

// SubService is one supervised run loop. Run must block until the shared
// shutdown signal is observed, polling it with a bounded timeout; returning or
// panicking counts as death and triggers a restart on the next pass.
type SubService interface {
	Name() string
	Run(ctx *Context)
}

// handle is the supervisor-owned record of one running sub-service instance.
// Handles are never reused: a dead handle is discarded and replaced.
type handle struct {
	name  string
	done  chan struct{}
	alive atomic.Bool
}

// Supervisor runs the supervision loop over its registered sub-services.
type Supervisor struct {
	ctx       *Context
	logger    *zap.Logger
	tick      time.Duration
	services  []SubService
	handles   []*handle
	announced bool
}

// New creates a supervisor. tick <= 0 selects DefaultTickInterval.
func New(ctx *Context, tick time.Duration) *Supervisor {
	if tick <= 0 {
		tick = DefaultTickInterval
	}
	return &Supervisor{
		ctx:    ctx,
		logger: ctx.Logger,
		tick:   tick,
	}
}

// Register adds a sub-service. Registration order is also the join order on
// shutdown. Must be called before Run.
func (s *Supervisor) Register(svc SubService) {
	s.services = append(s.services, svc)
	s.handles = append(s.handles, nil)
}

// Run executes the supervision loop until the shutdown signal is set, then
// joins every still-alive sub-service in registration order. It returns even
// if no connection was ever established.
func (s *Supervisor) Run() {
	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	for {
		s.superviseOnce()

		select {
		case <-s.ctx.Shutdown.Done():
			s.join()
			return
		case <-ticker.C:
		}
	}
}

// superviseOnce performs one liveness pass: any absent or dead sub-service is
// started fresh, with no backoff. The sub-service's own loop handles
// connection-level retry.
func (s *Supervisor) superviseOnce() {
	for i, svc := range s.services {
		h := s.handles[i]
		if h != nil && h.alive.Load() {
			continue
		}
		if h != nil {
			s.logger.Warn("sub-service died, restarting", zap.String("service", h.name))
		} else {
			s.logger.Info("starting sub-service", zap.String("service", svc.Name()))
		}
		s.handles[i] = s.start(svc)
	}

	if !s.announced {
		s.announced = true
		s.ctx.Connected.Set()
		s.logger.Info("all sub-services started")
	}
}

func (s *Supervisor) start(svc SubService) *handle {
	h := &handle{name: svc.Name(), done: make(chan struct{})}
	h.alive.Store(true)

	go func() {
		defer close(h.done)
		defer h.alive.Store(false)
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error("sub-service panicked",
					zap.String("service", h.name),
					zap.Any("panic", r),
				)
			}
		}()
		svc.Run(s.ctx)
	}()

	return h
}

// join waits for every started sub-service to observe the shutdown signal and
// exit, in registration order. Every sub-service loop polls the signal with a
// bounded timeout, so this terminates.
func (s *Supervisor) join() {
	s.ctx.Connected.Clear()
	for _, h := range s.handles {
		if h == nil {
			continue
		}
		<-h.done
		s.logger.Info("sub-service stopped", zap.String("service", h.name))
	}
	s.logger.Info("supervisor stopped")
}
