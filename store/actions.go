package store

import (
	"encoding/json"
	"fmt"

	"github.com/VacantAardvark/joseki/types"
)

// ActionType tags a dispatch payload.
type ActionType string

const (
	ShepherdEventGet    ActionType = "SHEPHERD_EVENT_GET"
	NotShepherdEventGet ActionType = "NOT_SHEPHERD_EVENT_GET"
	EventCreate         ActionType = "EVENT_CREATE"
	EventDelete         ActionType = "EVENT_DELETE"
)

// Action is one of ShepherdEventsFetched, NotShepherdEventsFetched,
// EventCreated, EventDeleted or Unrecognized.
type Action interface {
	Type() ActionType
	isAction()
}

// ShepherdEventsFetched carries the full list of events the user shepherds.
type ShepherdEventsFetched struct {
	Events []types.Event
}

// NotShepherdEventsFetched carries the full list of events the user does not
// shepherd.
type NotShepherdEventsFetched struct {
	Events []types.Event
}

// EventCreated carries an event the user just created.
type EventCreated struct {
	Event types.Event
}

// EventDeleted reports a deletion. The store does not act on Event.
type EventDeleted struct {
	Event types.Event
}

// Unrecognized wraps any action type the store does not handle.
type Unrecognized struct {
	ActionType ActionType
}

func (ShepherdEventsFetched) Type() ActionType    { return ShepherdEventGet }
func (NotShepherdEventsFetched) Type() ActionType { return NotShepherdEventGet }
func (EventCreated) Type() ActionType             { return EventCreate }
func (EventDeleted) Type() ActionType             { return EventDelete }
func (a Unrecognized) Type() ActionType           { return a.ActionType }

func (ShepherdEventsFetched) isAction()    {}
func (NotShepherdEventsFetched) isAction() {}
func (EventCreated) isAction()             {}
func (EventDeleted) isAction()             {}
func (Unrecognized) isAction()             {}

// Payload is the wire form of an action.
type Payload struct {
	ActionType ActionType    `json:"actionType"`
	Events     []types.Event `json:"events,omitempty"`
	Event      *types.Event  `json:"event,omitempty"`
}

// Action converts the payload into its action variant. Payload shapes are not
// validated: a missing event list becomes an empty list and a missing event
// becomes the zero Event.
func (p Payload) Action() Action {
	var event types.Event
	if p.Event != nil {
		event = *p.Event
	}
	switch p.ActionType {
	case ShepherdEventGet:
		return ShepherdEventsFetched{Events: p.Events}
	case NotShepherdEventGet:
		return NotShepherdEventsFetched{Events: p.Events}
	case EventCreate:
		return EventCreated{Event: event}
	case EventDelete:
		return EventDeleted{Event: event}
	}
	return Unrecognized{ActionType: p.ActionType}
}

// PayloadFor is the inverse of Payload.Action.
func PayloadFor(action Action) Payload {
	switch a := action.(type) {
	case ShepherdEventsFetched:
		return Payload{ActionType: ShepherdEventGet, Events: a.Events}
	case NotShepherdEventsFetched:
		return Payload{ActionType: NotShepherdEventGet, Events: a.Events}
	case EventCreated:
		event := a.Event
		return Payload{ActionType: EventCreate, Event: &event}
	case EventDeleted:
		event := a.Event
		return Payload{ActionType: EventDelete, Event: &event}
	}
	return Payload{ActionType: action.Type()}
}

// DecodePayload parses a JSON payload and returns its action.
func DecodePayload(data []byte) (Action, error) {
	var payload Payload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("failed to decode dispatch payload: %w", err)
	}
	return payload.Action(), nil
}
