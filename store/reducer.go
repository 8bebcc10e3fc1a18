package store

import "github.com/VacantAardvark/joseki/types"

// Notification names the change a listener is told about.
type Notification string

const (
	ShepherdEventsGot    Notification = "shepherd_events_get"
	NotShepherdEventsGot Notification = "not_shepherd_events_get"
	Created              Notification = "create"
	Deleted              Notification = "delete"
)

// State is an immutable snapshot of the store. Reduce never modifies the
// slices of the state it is given.
type State struct {
	ShepherdEvents    []types.Event
	NotShepherdEvents []types.Event
	CurrentEvent      types.Event
}

// InitialState has empty collections and an empty current-event placeholder.
func InitialState() State {
	return State{
		ShepherdEvents:    []types.Event{},
		NotShepherdEvents: []types.Event{},
		CurrentEvent:      types.Event{EventName: "", Location: ""},
	}
}

// Reduce returns the state after applying action and the notification to
// emit, or "" when the action is ignored.
func Reduce(state State, action Action) (State, Notification) {
	switch a := action.(type) {
	case ShepherdEventsFetched:
		state.ShepherdEvents = orEmpty(a.Events)
		return state, ShepherdEventsGot

	case NotShepherdEventsFetched:
		state.NotShepherdEvents = orEmpty(a.Events)
		return state, NotShepherdEventsGot

	case EventCreated:
		next := make([]types.Event, len(state.ShepherdEvents), len(state.ShepherdEvents)+1)
		copy(next, state.ShepherdEvents)
		state.ShepherdEvents = append(next, a.Event)
		return state, Created

	case EventDeleted:
		// Deletion is only announced; the collections are refreshed by the
		// next fetch.
		return state, Deleted
	}
	return state, ""
}

func orEmpty(events []types.Event) []types.Event {
	if events == nil {
		return []types.Event{}
	}
	return events
}
