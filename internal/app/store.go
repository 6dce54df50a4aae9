package app

import (
	"context"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/entrepeneur4lyf/repairforge/internal/events"
)

// Store holds the current state and applies actions one at a time.
// Every new snapshot is published as a StateChanged event.
type Store struct {
	mu     sync.Mutex
	state  State
	broker *events.Broker[State]
	log    *log.Logger
}

// NewStore creates a store starting at initial.
func NewStore(initial State) *Store {
	return &Store{
		state:  initial,
		broker: events.NewBroker[State](),
		log:    log.WithPrefix("state"),
	}
}

// State returns the current snapshot.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Dispatch applies a and returns the new state.
func (s *Store) Dispatch(a Action) State {
	_, next := s.Transition(a)
	return next
}

// Transition applies a and returns the states before and after it.
func (s *Store) Transition(a Action) (prev, next State) {
	s.mu.Lock()
	prev = s.state
	next = Reduce(prev, a)
	s.state = next
	s.broker.Publish(events.StateChanged, next)
	s.mu.Unlock()

	s.log.Debug("Dispatched", "action", a.Name(), "status", next.Status, "generation", next.Generation)
	return prev, next
}

// Subscribe streams state snapshots until ctx is done.
func (s *Store) Subscribe(ctx context.Context, filters ...events.EventFilter[State]) <-chan events.Event[State] {
	return s.broker.Subscribe(ctx, filters...)
}

// Close stops publishing and closes every subscription.
func (s *Store) Close() {
	s.broker.Shutdown()
}
