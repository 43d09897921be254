// Package events fans topology change events out to stream subscribers.
package events

import (
	"context"
	"errors"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dd0wney/cluso-topology/pkg/metrics"
	"github.com/dd0wney/cluso-topology/pkg/topology"
)

// DefaultBuffer is the per-subscriber channel capacity.
const DefaultBuffer = 100

// ErrShutdown is returned by Subscribe after Shutdown.
var ErrShutdown = errors.New("event bus is shut down")

// Message is a topology change as delivered to subscribers.
type Message struct {
	Type       topology.EventType `json:"type"`
	TopologyID string             `json:"topologyId"`
	Revision   uint64             `json:"revision"`
	ElementIDs []string           `json:"elementIds,omitempty"`
	Time       time.Time          `json:"time"`
}

// Option configures a Bus.
type Option func(*Bus)

// WithBuffer sets the per-subscriber buffer size.
func WithBuffer(n int) Option {
	return func(b *Bus) {
		if n > 0 {
			b.buffer = n
		}
	}
}

// WithMetrics records published and dropped events.
func WithMetrics(m *metrics.Registry) Option {
	return func(b *Bus) { b.metrics = m }
}

// Bus delivers messages without ever blocking the publisher. A subscriber
// whose buffer is full misses the message.
type Bus struct {
	subscribers map[*Subscription]struct{}
	mu          sync.RWMutex
	shutdown    chan struct{}
	shutdownMu  sync.Mutex
	isShutdown  bool
	buffer      int
	metrics     *metrics.Registry
}

// Subscription receives messages of the requested types, or all types when
// none were given.
type Subscription struct {
	types     []topology.EventType
	channel   chan Message
	bus       *Bus
	cancel    context.CancelFunc
	dropped   atomic.Uint64
	closeOnce sync.Once
}

// NewBus creates a Bus.
func NewBus(opts ...Option) *Bus {
	b := &Bus{
		subscribers: make(map[*Subscription]struct{}),
		shutdown:    make(chan struct{}),
		buffer:      DefaultBuffer,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Observer adapts the bus to a topology store observer.
func (b *Bus) Observer() topology.Observer {
	return func(ev topology.Event) {
		b.Publish(Message{
			Type:       ev.Type,
			TopologyID: ev.TopologyID,
			Revision:   ev.Revision,
			ElementIDs: ev.ElementIDs,
			Time:       time.Now().UTC(),
		})
	}
}

// Subscribe registers a subscription that ends when ctx is done.
func (b *Bus) Subscribe(ctx context.Context, types ...topology.EventType) (*Subscription, error) {
	b.shutdownMu.Lock()
	if b.isShutdown {
		b.shutdownMu.Unlock()
		return nil, ErrShutdown
	}
	b.shutdownMu.Unlock()

	subCtx, cancel := context.WithCancel(ctx)
	sub := &Subscription{
		types:   types,
		channel: make(chan Message, b.buffer),
		bus:     b,
		cancel:  cancel,
	}

	b.mu.Lock()
	b.subscribers[sub] = struct{}{}
	count := len(b.subscribers)
	b.mu.Unlock()
	b.observeSubscribers(count)

	go func() {
		select {
		case <-subCtx.Done():
			sub.Unsubscribe()
		case <-b.shutdown:
		}
	}()

	return sub, nil
}

// Publish sends msg to every matching subscriber.
func (b *Bus) Publish(msg Message) {
	b.shutdownMu.Lock()
	if b.isShutdown {
		b.shutdownMu.Unlock()
		return
	}
	b.shutdownMu.Unlock()

	if b.metrics != nil {
		b.metrics.RecordEventPublished()
	}

	// Sends never block, so they run under the read lock. Channels are
	// only closed under the write lock.
	b.mu.RLock()
	defer b.mu.RUnlock()

	for sub := range b.subscribers {
		if !sub.wants(msg.Type) {
			continue
		}
		select {
		case sub.channel <- msg:
		default:
			sub.dropped.Add(1)
			if b.metrics != nil {
				b.metrics.RecordEventDropped()
			}
		}
	}
}

// SubscriberCount returns the number of live subscriptions.
func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

// Shutdown closes all subscriptions. Later publishes are discarded.
func (b *Bus) Shutdown() {
	b.shutdownMu.Lock()
	if b.isShutdown {
		b.shutdownMu.Unlock()
		return
	}
	b.isShutdown = true
	b.shutdownMu.Unlock()

	close(b.shutdown)

	b.mu.Lock()
	for sub := range b.subscribers {
		sub.close()
		delete(b.subscribers, sub)
	}
	b.mu.Unlock()
	b.observeSubscribers(0)
}

func (b *Bus) observeSubscribers(n int) {
	if b.metrics != nil {
		b.metrics.SetEventSubscribers(n)
	}
}

// Channel returns the message channel. It is closed on Unsubscribe or
// bus shutdown.
func (s *Subscription) Channel() <-chan Message {
	return s.channel
}

// Dropped returns how many messages this subscriber missed.
func (s *Subscription) Dropped() uint64 {
	return s.dropped.Load()
}

// Unsubscribe removes the subscription. It is idempotent.
func (s *Subscription) Unsubscribe() {
	s.cancel()

	s.bus.mu.Lock()
	delete(s.bus.subscribers, s)
	count := len(s.bus.subscribers)
	s.close()
	s.bus.mu.Unlock()
	s.bus.observeSubscribers(count)
}

func (s *Subscription) wants(t topology.EventType) bool {
	return len(s.types) == 0 || slices.Contains(s.types, t)
}

func (s *Subscription) close() {
	s.closeOnce.Do(func() {
		close(s.channel)
	})
}
