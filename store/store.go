package store

import (
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/VacantAardvark/joseki/types"
)

// EventStore caches the events fetched for the current user and tells
// listeners when they change.
type EventStore struct {
	mu        sync.RWMutex
	state     State
	listeners *Registry
	token     DispatchToken
}

// New returns an empty store. Register it with a Dispatcher to receive
// actions.
func New() *EventStore {
	return &EventStore{
		state:     InitialState(),
		listeners: NewRegistry(),
	}
}

// Register subscribes the store to dispatcher and returns its token.
func (s *EventStore) Register(dispatcher *Dispatcher) DispatchToken {
	s.token = dispatcher.Register(s.Handle)
	return s.token
}

// GetAllEventsByShepherd returns the events the user shepherds. Callers must
// not modify the returned slice.
func (s *EventStore) GetAllEventsByShepherd() []types.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.ShepherdEvents
}

// GetAllEventsNotByShepherd returns the events the user does not shepherd.
// Callers must not modify the returned slice.
func (s *EventStore) GetAllEventsNotByShepherd() []types.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.NotShepherdEvents
}

// GetCurrentEvent returns the current-event placeholder. No action sets it.
func (s *EventStore) GetCurrentEvent() types.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.CurrentEvent
}

func (s *EventStore) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// EmitEvent synchronously calls the listeners registered for name.
func (s *EventStore) EmitEvent(name Notification) {
	notificationsEmitted.WithLabelValues(string(name)).Inc()
	s.listeners.Emit(name)
}

func (s *EventStore) AddEventListener(name Notification, listener Listener) ListenerID {
	return s.listeners.Add(name, listener)
}

// RemoveEventListener is a no-op if id is not registered under name.
func (s *EventStore) RemoveEventListener(name Notification, id ListenerID) {
	s.listeners.Remove(name, id)
}

// Handle applies action and emits the resulting notification. The state lock
// is released before listeners run, so they may call the getters.
func (s *EventStore) Handle(action Action) {
	s.mu.Lock()
	next, notification := Reduce(s.state, action)
	s.state = next
	s.mu.Unlock()

	if notification == "" {
		log.WithField("action_type", action.Type()).Debug("Ignoring action")
		return
	}
	s.EmitEvent(notification)
}

// Reset restores the initial state and drops every listener.
func (s *EventStore) Reset() {
	s.mu.Lock()
	s.state = InitialState()
	s.mu.Unlock()
	s.listeners.Clear()
}
