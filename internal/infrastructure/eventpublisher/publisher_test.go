package eventpublisher

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/iho/folio/internal/domain"
	"github.com/iho/folio/internal/infrastructure/eventbus"
)

func TestRelayForwardsToEveryPublisher(t *testing.T) {
	bus := eventbus.New(eventbus.Config{BufferSize: 4})
	defer bus.Close()

	first := &stubPublisher{name: "first"}
	second := &stubPublisher{name: "second"}
	relay := newTestRelay(bus, first, second)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = relay.Start(ctx) }()
	waitForSubscribers(t, bus, 1)

	bus.Publish(context.Background(), domain.NewRecalculationRequest([]string{"acc-1"}, []string{"AAPL"}, true))

	waitFor(t, func() bool { return first.count() == 1 && second.count() == 1 })
}

func TestRelayContinuesOnPublishError(t *testing.T) {
	bus := eventbus.New(eventbus.Config{BufferSize: 4})
	defer bus.Close()

	failing := &stubPublisher{name: "failing", err: errors.New("connection reset")}
	healthy := &stubPublisher{name: "healthy"}
	relay := newTestRelay(bus, failing, healthy)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = relay.Start(ctx) }()
	waitForSubscribers(t, bus, 1)

	bus.Publish(context.Background(), domain.NewRecalculationRequest(nil, nil, true))
	bus.Publish(context.Background(), domain.NewRecalculationRequest(nil, nil, true))

	waitFor(t, func() bool { return healthy.count() == 2 })
	if failing.count() != 0 {
		t.Fatalf("expected failing publisher to record nothing, got %d", failing.count())
	}
}

func TestStartStopsOnContextCancellation(t *testing.T) {
	bus := eventbus.New(eventbus.Config{})
	defer bus.Close()
	relay := newTestRelay(bus)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- relay.Start(ctx)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context canceled, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("relay did not stop after cancel")
	}
}

func TestStartReturnsWhenSourceCloses(t *testing.T) {
	bus := eventbus.New(eventbus.Config{})
	relay := newTestRelay(bus)

	done := make(chan error, 1)
	go func() {
		done <- relay.Start(context.Background())
	}()
	waitForSubscribers(t, bus, 1)
	bus.Close()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("expected nil error, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("relay did not stop after source closed")
	}
}

func TestLogPublisherWritesPayload(t *testing.T) {
	var buf bytes.Buffer
	pub := NewLogPublisher(slog.New(slog.NewJSONHandler(&buf, nil)))

	err := pub.Publish(context.Background(), domain.NewRecalculationRequest([]string{"acc-1"}, []string{}, true))
	if err != nil {
		t.Fatalf("publish failed: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, domain.EventTypePortfolioRecalculate) {
		t.Fatalf("expected event type in output, got %q", out)
	}
	if !strings.Contains(out, `refetchAllMarketData`) {
		t.Fatalf("expected payload in output, got %q", out)
	}
}

func newTestRelay(source Source, pubs ...Publisher) *Relay {
	logger := slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
	return NewRelay(Config{
		Source:     source,
		Publishers: pubs,
		Logger:     logger,
	})
}

func waitForSubscribers(t *testing.T, bus *eventbus.Broadcaster, n int) {
	t.Helper()
	waitFor(t, func() bool { return bus.SubscriberCount() == n })
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

type stubPublisher struct {
	name string
	err  error

	mu        sync.Mutex
	published []domain.RecalculationRequest
}

func (s *stubPublisher) Name() string { return s.name }

func (s *stubPublisher) Publish(ctx context.Context, req domain.RecalculationRequest) error {
	if s.err != nil {
		return s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.published = append(s.published, req)
	return nil
}

func (s *stubPublisher) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.published)
}
