package apiclient

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/VacantAardvark/joseki/store"
	"github.com/VacantAardvark/joseki/types"
)

// DispatchFunc delivers an action to the store, for example
// (*store.Dispatcher).Dispatch or a send on the dispatcher's Pump channel.
type DispatchFunc func(action store.Action) error

// Actions are action creators: each one calls the API and dispatches the
// store action describing the result.
type Actions struct {
	client       *Client
	dispatch     DispatchFunc
	retryBackoff time.Duration
}

func NewActions(client *Client, dispatch DispatchFunc) *Actions {
	return &Actions{
		client:       client,
		dispatch:     dispatch,
		retryBackoff: 5 * time.Second,
	}
}

func (a *Actions) FetchShepherdEvents(ctx context.Context) error {
	events, err := a.client.GetShepherdEvents(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch shepherd events: %w", err)
	}
	return a.dispatch(store.ShepherdEventsFetched{Events: events})
}

func (a *Actions) FetchNotShepherdEvents(ctx context.Context) error {
	events, err := a.client.GetNotShepherdEvents(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch not-shepherd events: %w", err)
	}
	return a.dispatch(store.NotShepherdEventsFetched{Events: events})
}

// Refresh refetches both event lists.
func (a *Actions) Refresh(ctx context.Context) error {
	if err := a.FetchShepherdEvents(ctx); err != nil {
		return err
	}
	return a.FetchNotShepherdEvents(ctx)
}

func (a *Actions) CreateEvent(ctx context.Context, event types.Event, clientID string) (*types.Event, error) {
	created, err := a.client.CreateEvent(ctx, event, clientID)
	if err != nil {
		return nil, err
	}
	return created, a.dispatch(store.EventCreated{Event: *created})
}

func (a *Actions) DeleteEvent(ctx context.Context, eventID int) error {
	deleted, err := a.client.DeleteEvent(ctx, eventID)
	if err != nil {
		return err
	}
	return a.dispatch(store.EventDeleted{Event: *deleted})
}

// Sync keeps the store current: it refreshes once, then long-polls the
// server and refreshes whenever a newer action is committed. It returns when
// ctx is done. Request failures are logged and retried after a backoff.
func (a *Actions) Sync(ctx context.Context) error {
	lastSeen, err := a.client.Status(ctx)
	if err != nil {
		return fmt.Errorf("failed to read server status: %w", err)
	}
	if err := a.Refresh(ctx); err != nil {
		return err
	}

	for {
		current, changed, err := a.client.Poll(ctx, lastSeen)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			log.WithError(err).Warning("Poll failed, retrying")
			if !a.wait(ctx) {
				return ctx.Err()
			}
			continue
		}
		if !changed {
			continue
		}

		log.WithField("action_id", current).Debug("Server state changed")
		if err := a.Refresh(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.WithError(err).Warning("Refresh failed, retrying")
			if !a.wait(ctx) {
				return ctx.Err()
			}
			continue
		}
		lastSeen = current
	}
}

func (a *Actions) wait(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(a.retryBackoff):
		return true
	}
}
