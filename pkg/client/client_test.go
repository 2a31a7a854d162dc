package client

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestNextBackoffSchedule(t *testing.T) {
	max := 5 * time.Second
	got := []time.Duration{500 * time.Millisecond}
	for i := 0; i < 4; i++ {
		got = append(got, nextBackoff(got[len(got)-1], max))
	}

	want := []time.Duration{
		500 * time.Millisecond,
		time.Second,
		2 * time.Second,
		4 * time.Second,
		5 * time.Second,
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("backoff[%d]=%v, want %v", i, got[i], want[i])
		}
	}
	if next := nextBackoff(max, max); next != max {
		t.Fatalf("backoff beyond ceiling=%v, want %v", next, max)
	}
}

type countingOpener struct {
	mu    sync.Mutex
	opens int
}

func (o *countingOpener) Open() (CaptureSource, error) {
	o.mu.Lock()
	o.opens++
	o.mu.Unlock()
	return &deadSource{}, nil
}

func (o *countingOpener) count() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.opens
}

// deadSource never produces a packet; the publisher only fails at dial time.
type deadSource struct{}

func (deadSource) ReadPacket() (Packet, error) { return Packet{}, errors.New("capture wedged") }
func (deadSource) Close() error                { return nil }

func TestAudioPublisherReacquiresSourceAfterFailureRun(t *testing.T) {
	opener := &countingOpener{}
	pub := NewAudioPublisher(AudioConfig{
		// Nothing listens on this port; every stream attempt fails fast.
		URL:                "ws://127.0.0.1:1/stream/audio",
		InitialBackoff:     time.Millisecond,
		MaxBackoff:         4 * time.Millisecond,
		ResetAfterFailures: 2,
	}, opener, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- pub.Run(ctx)
	}()

	deadline := time.Now().Add(5 * time.Second)
	for opener.count() < 3 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if got := opener.count(); got < 3 {
		t.Fatalf("opens=%d, want >=3 (re-acquisition after failure runs)", got)
	}

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("Run returned %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

type failingFrameSource struct{}

func (failingFrameSource) NextFrame() ([]byte, error) { return nil, errors.New("camera gone") }

func TestVideoPublisherStopsOnCancel(t *testing.T) {
	pub := NewVideoPublisher("ws://127.0.0.1:1/stream/video", failingFrameSource{}, time.Millisecond, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- pub.Run(ctx)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("Run returned %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
