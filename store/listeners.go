package store

import "sync"

// Listener is invoked synchronously when its notification is emitted.
type Listener func()

// ListenerID identifies one registration. Registering the same function twice
// yields two IDs.
type ListenerID uint64

type registration struct {
	id       ListenerID
	listener Listener
}

// Registry maps notifications to ordered listener registrations.
//
// Emit calls the listeners registered when the emission starts, in
// registration order. A listener added during an emission is first called by
// the next one; a listener removed during an emission is still called by the
// current one if it had not run yet. Panics propagate to the caller of Emit.
type Registry struct {
	mu        sync.Mutex
	nextID    ListenerID
	listeners map[Notification][]registration
}

func NewRegistry() *Registry {
	return &Registry{
		listeners: make(map[Notification][]registration),
	}
}

func (r *Registry) Add(name Notification, listener Listener) ListenerID {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	r.listeners[name] = append(r.listeners[name], registration{id: r.nextID, listener: listener})
	return r.nextID
}

// Remove deregisters id from name and reports whether it was registered.
func (r *Registry) Remove(name Notification, id ListenerID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	regs := r.listeners[name]
	for i, reg := range regs {
		if reg.id != id {
			continue
		}
		// Copy so snapshots held by in-flight emissions stay intact.
		next := make([]registration, 0, len(regs)-1)
		next = append(next, regs[:i]...)
		next = append(next, regs[i+1:]...)
		if len(next) == 0 {
			delete(r.listeners, name)
		} else {
			r.listeners[name] = next
		}
		return true
	}
	return false
}

// Count returns the number of listeners registered for name.
func (r *Registry) Count(name Notification) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.listeners[name])
}

func (r *Registry) Emit(name Notification) {
	r.mu.Lock()
	snapshot := r.listeners[name]
	r.mu.Unlock()

	for _, reg := range snapshot {
		reg.listener()
	}
}

func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listeners = make(map[Notification][]registration)
}
