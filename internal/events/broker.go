package events

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

const defaultBufferSize = 64

// Broker implements a generic publish-subscribe broker with type safety.
// Slow subscribers lose events rather than block publishers.
type Broker[T any] struct {
	subs       map[chan Event[T]]SubscriberInfo[T]
	mu         sync.RWMutex
	done       chan struct{}
	bufferSize int
}

// SubscriberInfo contains metadata about a subscriber
type SubscriberInfo[T any] struct {
	ID      string
	Filters []EventFilter[T]
	Created time.Time
}

// NewBroker creates a new broker with default settings
func NewBroker[T any]() *Broker[T] {
	return NewBrokerWithBuffer[T](defaultBufferSize)
}

// NewBrokerWithBuffer creates a broker whose subscriber channels hold
// bufferSize events.
func NewBrokerWithBuffer[T any](bufferSize int) *Broker[T] {
	return &Broker[T]{
		subs:       make(map[chan Event[T]]SubscriberInfo[T]),
		done:       make(chan struct{}),
		bufferSize: bufferSize,
	}
}

// Publish publishes an event to all subscribers
func (b *Broker[T]) Publish(eventType EventType, payload T, opts ...PublishOption) {
	select {
	case <-b.done:
		return
	default:
	}

	options := &PublishOptions{}
	for _, opt := range opts {
		opt(options)
	}

	event := Event[T]{
		ID:        uuid.New().String(),
		Type:      eventType,
		Payload:   payload,
		Timestamp: time.Now(),
		SessionID: options.SessionID,
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	for ch, info := range b.subs {
		if !accepts(event, info.Filters) {
			continue
		}
		select {
		case ch <- event:
		default:
			log.Warn("Event channel full, dropping event", "subscriber", info.ID, "event", event.ID, "type", event.Type)
		}
	}
}

// Subscribe creates a new subscription that ends when ctx is cancelled.
func (b *Broker[T]) Subscribe(ctx context.Context, filters ...EventFilter[T]) <-chan Event[T] {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan Event[T], b.bufferSize)
	select {
	case <-b.done:
		close(ch)
		return ch
	default:
	}

	b.subs[ch] = SubscriberInfo[T]{
		ID:      uuid.New().String(),
		Filters: filters,
		Created: time.Now(),
	}

	go func() {
		select {
		case <-ctx.Done():
		case <-b.done:
		}
		b.unsubscribe(ch)
	}()

	return ch
}

func (b *Broker[T]) unsubscribe(ch chan Event[T]) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.subs[ch]; exists {
		delete(b.subs, ch)
		close(ch)
	}
}

func accepts[T any](event Event[T], filters []EventFilter[T]) bool {
	for _, filter := range filters {
		if !filter(event) {
			return false
		}
	}
	return true
}

// SubscriberCount returns the number of live subscriptions.
func (b *Broker[T]) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Shutdown closes every subscriber channel; later publishes are ignored.
func (b *Broker[T]) Shutdown() {
	b.mu.Lock()
	defer b.mu.Unlock()

	select {
	case <-b.done:
		return
	default:
		close(b.done)
	}

	for ch := range b.subs {
		delete(b.subs, ch)
		close(ch)
	}
}

// String returns a string representation of the broker
func (b *Broker[T]) String() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return fmt.Sprintf("Broker[subscribers=%d]", len(b.subs))
}
