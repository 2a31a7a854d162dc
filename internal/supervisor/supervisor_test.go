package supervisor

import (
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
)

type countingService struct {
	name   string
	starts atomic.Int32
	// dieFirst makes the first run return immediately, simulating a crash.
	dieFirst bool
}

func (c *countingService) Name() string { return c.name }

func (c *countingService) Run(ctx *Context) {
	n := c.starts.Add(1)
	if c.dieFirst && n == 1 {
		return
	}
	for !ctx.Shutdown.IsSet() {
		time.Sleep(5 * time.Millisecond)
	}
}

func TestSupervisorRestartsDeadService(t *testing.T) {
	ctx := NewContext(zap.NewNop())
	sup := New(ctx, 10*time.Millisecond)

	svc := &countingService{name: "flaky", dieFirst: true}
	sup.Register(svc)

	done := make(chan struct{})
	go func() {
		sup.Run()
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for svc.starts.Load() < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if got := svc.starts.Load(); got < 2 {
		t.Fatalf("starts=%d, want >=2 (replacement after death)", got)
	}

	ctx.Shutdown.Set()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("supervisor did not return after shutdown signal")
	}
}

func TestSupervisorSetsConnectedAfterAllStarted(t *testing.T) {
	ctx := NewContext(zap.NewNop())
	sup := New(ctx, 10*time.Millisecond)
	sup.Register(&countingService{name: "a"})
	sup.Register(&countingService{name: "b"})

	done := make(chan struct{})
	go func() {
		sup.Run()
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for !ctx.Connected.IsSet() && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if !ctx.Connected.IsSet() {
		t.Fatal("Connected=false after all sub-services started, want true")
	}

	ctx.Shutdown.Set()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("supervisor did not return after shutdown signal")
	}
	if ctx.Connected.IsSet() {
		t.Fatal("Connected=true after shutdown, want false")
	}
}

func TestSupervisorShutdownWithoutServices(t *testing.T) {
	ctx := NewContext(zap.NewNop())
	sup := New(ctx, 10*time.Millisecond)

	done := make(chan struct{})
	go func() {
		sup.Run()
		close(done)
	}()

	ctx.Shutdown.Set()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("supervisor did not return with zero registered services")
	}
}

func TestSupervisorRecoversPanickingService(t *testing.T) {
	ctx := NewContext(zap.NewNop())
	sup := New(ctx, 10*time.Millisecond)

	var starts atomic.Int32
	svc := &panicService{starts: &starts}
	sup.Register(svc)

	done := make(chan struct{})
	go func() {
		sup.Run()
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for starts.Load() < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if got := starts.Load(); got < 2 {
		t.Fatalf("starts=%d, want >=2 (restart after panic)", got)
	}

	ctx.Shutdown.Set()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("supervisor did not return after shutdown signal")
	}
}

type panicService struct {
	starts *atomic.Int32
}

func (p *panicService) Name() string { return "panicky" }

func (p *panicService) Run(ctx *Context) {
	if p.starts.Add(1) == 1 {
		panic("boom")
	}
	for !ctx.Shutdown.IsSet() {
		time.Sleep(5 * time.Millisecond)
	}
}

func TestSignalSetOnce(t *testing.T) {
	s := NewSignal()
	if s.IsSet() {
		t.Fatal("IsSet=true on fresh signal, want false")
	}
	s.Set()
	s.Set()
	if !s.IsSet() {
		t.Fatal("IsSet=false after Set, want true")
	}
	select {
	case <-s.Done():
	default:
		t.Fatal("Done channel not closed after Set")
	}
}
