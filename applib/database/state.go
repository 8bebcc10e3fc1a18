package database

import (
	"context"
	"sync"

	log "github.com/sirupsen/logrus"
)

type ActionState struct {
	// The latest committed action ID
	currentActionId int

	// Subscribers who want to know when the action ID has changed
	mutex       sync.RWMutex
	subscribers map[chan int]struct{}
}

func NewActionState(initialActionId int) *ActionState {
	log.WithField("action_id", initialActionId).Info("Initialized action state")
	return &ActionState{
		currentActionId: initialActionId,
		subscribers:     make(map[chan int]struct{}),
	}
}

func (state *ActionState) CurrentActionId() int {
	state.mutex.RLock()
	defer state.mutex.RUnlock()
	return state.currentActionId
}

// Subscribe returns a channel that receives the newest action ID whenever it
// advances. Slow readers only ever see the latest value.
func (state *ActionState) Subscribe() chan int {
	state.mutex.Lock()
	defer state.mutex.Unlock()

	ch := make(chan int, 1)
	state.subscribers[ch] = struct{}{}
	return ch
}

func (state *ActionState) Unsubscribe(ch chan int) {
	state.mutex.Lock()
	defer state.mutex.Unlock()

	if _, ok := state.subscribers[ch]; ok {
		delete(state.subscribers, ch)
		close(ch)
	}
}

func (state *ActionState) SetCurrentActionId(actionId int) {
	state.mutex.Lock()
	defer state.mutex.Unlock()

	if actionId <= state.currentActionId {
		return
	}
	state.currentActionId = actionId
	for subscriber := range state.subscribers {
		select {
		case <-subscriber:
		default:
		}
		subscriber <- actionId
	}
}

// PollForActionId blocks until the current action ID is at least actionId or
// the context is done. It reports whether the ID was reached.
func (state *ActionState) PollForActionId(ctx context.Context, actionId int) bool {
	ch := state.Subscribe()
	defer state.Unsubscribe(ch)

	if state.CurrentActionId() >= actionId {
		return true
	}

	for {
		select {
		case newId := <-ch:
			if newId >= actionId {
				return true
			}
		case <-ctx.Done():
			return false
		}
	}
}
