package store

import (
	"context"
	"errors"
	"sync"
)

// ErrDispatchInProgress is returned when Dispatch is called while another
// dispatch is still delivering.
var ErrDispatchInProgress = errors.New("cannot dispatch in the middle of a dispatch")

// Callback receives every dispatched action.
type Callback func(action Action)

// DispatchToken identifies a registered callback.
type DispatchToken uint64

type callbackEntry struct {
	token    DispatchToken
	callback Callback
}

// Dispatcher delivers actions to every registered callback, one action at a
// time, in registration order.
type Dispatcher struct {
	mu          sync.Mutex
	nextToken   DispatchToken
	callbacks   []callbackEntry
	dispatching bool
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{}
}

func (d *Dispatcher) Register(callback Callback) DispatchToken {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.nextToken++
	d.callbacks = append(d.callbacks, callbackEntry{token: d.nextToken, callback: callback})
	return d.nextToken
}

func (d *Dispatcher) Unregister(token DispatchToken) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for i, entry := range d.callbacks {
		if entry.token == token {
			next := make([]callbackEntry, 0, len(d.callbacks)-1)
			next = append(next, d.callbacks[:i]...)
			d.callbacks = append(next, d.callbacks[i+1:]...)
			return
		}
	}
}

// IsDispatching reports whether a dispatch is being delivered.
func (d *Dispatcher) IsDispatching() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dispatching
}

// Dispatch synchronously delivers action to every callback. It fails with
// ErrDispatchInProgress instead of interleaving with another delivery, whether
// that delivery is on another goroutine or is the caller itself.
func (d *Dispatcher) Dispatch(action Action) error {
	d.mu.Lock()
	if d.dispatching {
		d.mu.Unlock()
		return ErrDispatchInProgress
	}
	d.dispatching = true
	callbacks := d.callbacks
	d.mu.Unlock()

	defer func() {
		d.mu.Lock()
		d.dispatching = false
		d.mu.Unlock()
	}()

	label := string(action.Type())
	if _, ok := action.(Unrecognized); ok {
		label = "unrecognized"
	}
	actionsDispatched.WithLabelValues(label).Inc()
	for _, entry := range callbacks {
		entry.callback(action)
	}
	return nil
}

// Pump dispatches actions from in one at a time until in is closed or ctx is
// done. It is the single inbound channel for producers on other goroutines.
func (d *Dispatcher) Pump(ctx context.Context, in <-chan Action) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case action, ok := <-in:
			if !ok {
				return nil
			}
			if err := d.Dispatch(action); err != nil {
				return err
			}
		}
	}
}
