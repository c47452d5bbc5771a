// Package eventbus carries recalculation requests from the write path to
// whoever listens in-process. Delivery is at-most-once: a request published
// while nobody is subscribed, or into a full subscriber buffer, is dropped.
package eventbus

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc/pool"

	"github.com/iho/folio/internal/domain"
	"github.com/iho/folio/internal/infrastructure/metrics"
)

const (
	defaultBufferSize = 64
	defaultWorkers    = 8
)

// SubscriptionID identifies one subscriber.
type SubscriptionID string

// Config configures a Broadcaster.
type Config struct {
	BufferSize int // per-subscriber channel capacity
	Workers    int // max goroutines used for one fan-out
	Metrics    *metrics.Metrics
}

// Broadcaster fans recalculation requests out to every current subscriber.
// It implements the usecase RecalculationDispatcher port.
type Broadcaster struct {
	bufferSize int
	workers    int
	metrics    *metrics.Metrics

	mu          sync.RWMutex
	subscribers map[SubscriptionID]*subscriber
	closed      bool
	nextID      uint64
}

type subscriber struct {
	ch     chan domain.RecalculationRequest
	cancel context.CancelFunc

	mu     sync.RWMutex
	closed bool
}

// New constructs a Broadcaster.
func New(cfg Config) *Broadcaster {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = defaultBufferSize
	}
	if cfg.Workers <= 0 {
		cfg.Workers = defaultWorkers
	}

	return &Broadcaster{
		bufferSize:  cfg.BufferSize,
		workers:     cfg.Workers,
		metrics:     cfg.Metrics,
		subscribers: make(map[SubscriptionID]*subscriber),
	}
}

// Dispatch publishes req and returns immediately. It never fails the caller.
func (b *Broadcaster) Dispatch(ctx context.Context, req domain.RecalculationRequest) {
	delivered := b.Publish(ctx, req)

	log.Debug().
		Str("event", domain.EventTypePortfolioRecalculate).
		Int("subscribers", delivered).
		Msg("recalculation request published")
}

// Publish delivers a copy of req to every subscriber whose buffer has room
// and reports how many received it. Sends never block.
func (b *Broadcaster) Publish(_ context.Context, req domain.RecalculationRequest) int {
	b.metrics.RecalculationDispatched(len(req.Symbols))

	// Snapshot subscribers to avoid holding the lock during delivery.
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		b.metrics.RecalculationDropped(metrics.DropNoSubscribers)
		return 0
	}
	subs := make([]*subscriber, 0, len(b.subscribers))
	for _, sub := range b.subscribers {
		subs = append(subs, sub)
	}
	b.mu.RUnlock()

	if len(subs) == 0 {
		b.metrics.RecalculationDropped(metrics.DropNoSubscribers)
		log.Debug().Msg("no recalculation subscribers; request dropped")
		return 0
	}

	var delivered atomic.Int64
	p := pool.New().WithMaxGoroutines(min(b.workers, len(subs)))
	for _, sub := range subs {
		p.Go(func() {
			if b.deliver(sub, req.Clone()) {
				delivered.Add(1)
			}
		})
	}
	p.Wait()

	return int(delivered.Load())
}

// Subscribe registers a subscriber. The channel is closed when ctx is done,
// on Unsubscribe, or on Close.
func (b *Broadcaster) Subscribe(ctx context.Context) (SubscriptionID, <-chan domain.RecalculationRequest) {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithCancel(ctx)

	sub := &subscriber{
		ch:     make(chan domain.RecalculationRequest, b.bufferSize),
		cancel: cancel,
	}
	id := SubscriptionID(fmt.Sprintf("sub-%d", atomic.AddUint64(&b.nextID, 1)))

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		sub.close()
		return id, sub.ch
	}
	b.subscribers[id] = sub
	count := len(b.subscribers)
	b.mu.Unlock()

	b.metrics.SetSubscribers(count)

	go func() {
		<-ctx.Done()
		b.Unsubscribe(id)
	}()

	return id, sub.ch
}

// Unsubscribe removes the subscription and closes its channel.
func (b *Broadcaster) Unsubscribe(id SubscriptionID) {
	b.mu.Lock()
	sub, ok := b.subscribers[id]
	if ok {
		delete(b.subscribers, id)
	}
	count := len(b.subscribers)
	b.mu.Unlock()

	if !ok {
		return
	}
	b.metrics.SetSubscribers(count)
	sub.close()
}

// SubscriberCount returns the number of live subscribers.
func (b *Broadcaster) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

// Close drops every subscriber. Later publishes are dropped.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	subs := b.subscribers
	b.subscribers = make(map[SubscriptionID]*subscriber)
	b.mu.Unlock()

	for _, sub := range subs {
		sub.close()
	}
	b.metrics.SetSubscribers(0)
}

func (b *Broadcaster) deliver(sub *subscriber, req domain.RecalculationRequest) bool {
	// A concurrent Unsubscribe may close the channel after the snapshot.
	sub.mu.RLock()
	defer sub.mu.RUnlock()
	if sub.closed {
		return false
	}

	select {
	case sub.ch <- req:
		b.metrics.RecalculationDelivered()
		return true
	default:
		b.metrics.RecalculationDropped(metrics.DropBufferFull)
		log.Debug().Msg("recalculation subscriber buffer full; request dropped")
		return false
	}
}

func (s *subscriber) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.cancel()
	close(s.ch)
}
