package command

import (
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/tiality/teleop-server/internal/queue"
	"github.com/tiality/teleop-server/internal/supervisor"
)

var testTopics = Topics{Vehicle: "robot/tx", Gimbal: "robot/gimbal/tx"}

func TestDetermineTopic(t *testing.T) {
	cases := []struct {
		name    string
		command string
		want    string
	}{
		{"gimbal command", `{"type":"gimbal","action":"x_left","degrees":10}`, testTopics.Gimbal},
		{"vector command", `{"type":"vector","action":"set","vx":10}`, testTopics.Vehicle},
		{"all command", `{"type":"all","action":"stop"}`, testTopics.Vehicle},
		{"config command", `{"type":"config"}`, testTopics.Vehicle},
		{"missing type", `{"action":"stop"}`, testTopics.Vehicle},
		{"not json", `not-json`, testTopics.Vehicle},
		{"empty string", ``, testTopics.Vehicle},
		{"json array", `[1,2,3]`, testTopics.Vehicle},
		{"bare string gimbal", `"gimbal"`, testTopics.Vehicle},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := DetermineTopic(tc.command, testTopics); got != tc.want {
				t.Fatalf("DetermineTopic(%q)=%q, want %q", tc.command, got, tc.want)
			}
		})
	}
}

type fakePublisher struct {
	mu        sync.Mutex
	published map[string][]string
	failNext  bool
	closed    bool
}

func newFakePublisher() *fakePublisher {
	return &fakePublisher{published: make(map[string][]string)}
}

func (p *fakePublisher) Publish(topic, payload string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failNext {
		p.failNext = false
		return errors.New("broker unavailable")
	}
	p.published[topic] = append(p.published[topic], payload)
	return nil
}

func (p *fakePublisher) Close() {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
}

func (p *fakePublisher) count(topic string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.published[topic])
}

func TestRouterRoutesCommands(t *testing.T) {
	outbound := queue.NewDropOldest[string](5)
	pub := newFakePublisher()
	router := NewRouter(outbound, testTopics, func() (Publisher, error) {
		return pub, nil
	}, zap.NewNop())

	ctx := supervisor.NewContext(zap.NewNop())
	done := make(chan struct{})
	go func() {
		router.Run(ctx)
		close(done)
	}()

	outbound.Put(`{"type":"gimbal","action":"x_left","degrees":10}`)
	outbound.Put(`{"type":"vector","action":"set","vx":10}`)
	outbound.Put(`not-json`)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if pub.count(testTopics.Gimbal) == 1 && pub.count(testTopics.Vehicle) == 2 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	if got := pub.count(testTopics.Gimbal); got != 1 {
		t.Fatalf("gimbal publishes=%d, want 1", got)
	}
	if got := pub.count(testTopics.Vehicle); got != 2 {
		t.Fatalf("vehicle publishes=%d, want 2", got)
	}

	ctx.Shutdown.Set()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("router did not stop after shutdown")
	}

	pub.mu.Lock()
	defer pub.mu.Unlock()
	if !pub.closed {
		t.Fatal("publisher not closed on router exit")
	}
}

func TestRouterContinuesAfterPublishError(t *testing.T) {
	outbound := queue.NewDropOldest[string](5)
	pub := newFakePublisher()
	pub.failNext = true
	router := NewRouter(outbound, testTopics, func() (Publisher, error) {
		return pub, nil
	}, zap.NewNop())

	ctx := supervisor.NewContext(zap.NewNop())
	done := make(chan struct{})
	go func() {
		router.Run(ctx)
		close(done)
	}()

	outbound.Put(`{"type":"vector"}`) // lost to the publish error
	outbound.Put(`{"type":"vector"}`)

	deadline := time.Now().Add(2 * time.Second)
	for pub.count(testTopics.Vehicle) < 1 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if got := pub.count(testTopics.Vehicle); got != 1 {
		t.Fatalf("vehicle publishes=%d, want 1 (first command dropped)", got)
	}

	ctx.Shutdown.Set()
	<-done
}

func TestRouterReturnsWhenConnectFails(t *testing.T) {
	outbound := queue.NewDropOldest[string](5)
	router := NewRouter(outbound, testTopics, func() (Publisher, error) {
		return nil, errors.New("broker down")
	}, zap.NewNop())

	ctx := supervisor.NewContext(zap.NewNop())
	done := make(chan struct{})
	go func() {
		router.Run(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("router did not return after connect failure")
	}
}
