package state

import (
	"slices"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Listener is notified with the snapshot produced by each dispatch.
type Listener func(next State, a Action)

// Store holds the current snapshot and applies actions in dispatch order.
type Store struct {
	mu        sync.Mutex
	state     State
	listeners map[int]Listener
	nextID    int
	actions   *prometheus.CounterVec
}

// NewStore creates a store. actions may be nil; when set it is incremented
// per dispatched action type.
func NewStore(initial State, actions *prometheus.CounterVec) *Store {
	return &Store{
		state:     initial,
		listeners: make(map[int]Listener),
		actions:   actions,
	}
}

// State returns the current snapshot.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Dispatch reduces a and notifies listeners before returning. Listeners run
// with the store locked and must neither dispatch nor call State.
func (s *Store) Dispatch(a Action) State {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = Reduce(s.state, a)
	if s.actions != nil {
		s.actions.WithLabelValues(string(a.Type())).Inc()
	}
	for _, id := range s.listenerIDs() {
		s.listeners[id](s.state, a)
	}
	return s.state
}

// Subscribe registers l and returns a function that removes it.
func (s *Store) Subscribe(l Listener) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	s.listeners[id] = l
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, id)
	}
}

// listenerIDs returns ids in subscription order.
func (s *Store) listenerIDs() []int {
	ids := make([]int, 0, len(s.listeners))
	for id := range s.listeners {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
