package store

import (
	"reflect"
	"testing"

	"github.com/VacantAardvark/joseki/types"
)

func events(names ...string) []types.Event {
	ret := make([]types.Event, len(names))
	for i, name := range names {
		ret[i] = types.Event{ID: i + 1, EventName: name}
	}
	return ret
}

func eventNames(events []types.Event) []string {
	names := make([]string, len(events))
	for i, e := range events {
		names[i] = e.EventName
	}
	return names
}

// setupStore returns a store registered with a fresh dispatcher.
func setupStore(t *testing.T) (*EventStore, *Dispatcher) {
	s := New()
	d := NewDispatcher()
	s.Register(d)
	t.Cleanup(s.Reset)
	return s, d
}

func mustDispatch(t *testing.T, d *Dispatcher, action Action) {
	t.Helper()
	if err := d.Dispatch(action); err != nil {
		t.Fatalf("Dispatch(%s) failed: %v", action.Type(), err)
	}
}

// countNotifications registers a counting listener for every notification.
func countNotifications(s *EventStore) map[Notification]int {
	counts := make(map[Notification]int)
	for _, name := range []Notification{ShepherdEventsGot, NotShepherdEventsGot, Created, Deleted} {
		name := name
		s.AddEventListener(name, func() { counts[name]++ })
	}
	return counts
}

func TestInitialState(t *testing.T) {
	s := New()

	if got := s.GetAllEventsByShepherd(); len(got) != 0 {
		t.Errorf("Expected no shepherd events, got %v", got)
	}
	if got := s.GetAllEventsNotByShepherd(); len(got) != 0 {
		t.Errorf("Expected no non-shepherd events, got %v", got)
	}
	current := s.GetCurrentEvent()
	if current.EventName != "" || current.Location != "" {
		t.Errorf("Expected empty current event placeholder, got %+v", current)
	}
}

func TestFetchReplacesCollections(t *testing.T) {
	s, d := setupStore(t)

	tests := []struct {
		name     string
		action   Action
		shepherd []string
		others   []string
	}{
		{"first shepherd fetch", ShepherdEventsFetched{Events: events("a", "b")}, []string{"a", "b"}, []string{}},
		{"second shepherd fetch replaces", ShepherdEventsFetched{Events: events("c")}, []string{"c"}, []string{}},
		{"non-shepherd fetch", NotShepherdEventsFetched{Events: events("x", "y", "z")}, []string{"c"}, []string{"x", "y", "z"}},
		{"empty non-shepherd fetch", NotShepherdEventsFetched{Events: nil}, []string{"c"}, []string{}},
		{"empty shepherd fetch", ShepherdEventsFetched{Events: []types.Event{}}, []string{}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mustDispatch(t, d, tt.action)
			if got := eventNames(s.GetAllEventsByShepherd()); !reflect.DeepEqual(got, tt.shepherd) {
				t.Errorf("Expected shepherd events %v, got %v", tt.shepherd, got)
			}
			if got := eventNames(s.GetAllEventsNotByShepherd()); !reflect.DeepEqual(got, tt.others) {
				t.Errorf("Expected non-shepherd events %v, got %v", tt.others, got)
			}
		})
	}
}

func TestFetchNotifications(t *testing.T) {
	s, d := setupStore(t)
	counts := countNotifications(s)

	mustDispatch(t, d, ShepherdEventsFetched{Events: events("a")})
	mustDispatch(t, d, NotShepherdEventsFetched{Events: events("b")})
	mustDispatch(t, d, NotShepherdEventsFetched{Events: events("c")})

	expected := map[Notification]int{ShepherdEventsGot: 1, NotShepherdEventsGot: 2}
	if !reflect.DeepEqual(counts, expected) {
		t.Errorf("Expected notifications %v, got %v", expected, counts)
	}
}

func TestCreateAppendsToShepherdEvents(t *testing.T) {
	s, d := setupStore(t)
	mustDispatch(t, d, ShepherdEventsFetched{Events: events("a")})
	mustDispatch(t, d, NotShepherdEventsFetched{Events: events("x")})
	counts := countNotifications(s)

	mustDispatch(t, d, EventCreated{Event: types.Event{ID: 42, EventName: "new"}})

	if got := eventNames(s.GetAllEventsByShepherd()); !reflect.DeepEqual(got, []string{"a", "new"}) {
		t.Errorf("Expected created event to be appended, got %v", got)
	}
	if got := eventNames(s.GetAllEventsNotByShepherd()); !reflect.DeepEqual(got, []string{"x"}) {
		t.Errorf("Expected non-shepherd events unchanged, got %v", got)
	}
	if counts[Created] != 1 || len(counts) != 1 {
		t.Errorf("Expected exactly one create notification, got %v", counts)
	}
}

func TestDeleteOnlyNotifies(t *testing.T) {
	s, d := setupStore(t)
	mustDispatch(t, d, ShepherdEventsFetched{Events: events("a", "b")})
	mustDispatch(t, d, NotShepherdEventsFetched{Events: events("x")})
	before := s.Snapshot()
	counts := countNotifications(s)

	mustDispatch(t, d, EventDeleted{Event: types.Event{ID: 1, EventName: "a"}})

	if !reflect.DeepEqual(s.Snapshot(), before) {
		t.Errorf("Expected state unchanged by delete, got %+v", s.Snapshot())
	}
	if counts[Deleted] != 1 || len(counts) != 1 {
		t.Errorf("Expected exactly one delete notification, got %v", counts)
	}
}

func TestUnrecognizedActionIsIgnored(t *testing.T) {
	s, d := setupStore(t)
	mustDispatch(t, d, ShepherdEventsFetched{Events: events("a")})
	before := s.Snapshot()
	counts := countNotifications(s)

	mustDispatch(t, d, Unrecognized{ActionType: "EVENT_UPDATE"})

	if !reflect.DeepEqual(s.Snapshot(), before) {
		t.Error("Expected unrecognized action to leave state unchanged")
	}
	if len(counts) != 0 {
		t.Errorf("Expected no notifications, got %v", counts)
	}
}

func TestReduceDoesNotMutateInput(t *testing.T) {
	base := InitialState()
	base.ShepherdEvents = make([]types.Event, 1, 4)
	base.ShepherdEvents[0] = types.Event{EventName: "a"}

	first, _ := Reduce(base, EventCreated{Event: types.Event{EventName: "b"}})
	second, _ := Reduce(base, EventCreated{Event: types.Event{EventName: "c"}})

	if got := eventNames(first.ShepherdEvents); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Errorf("Expected [a b], got %v", got)
	}
	if got := eventNames(second.ShepherdEvents); !reflect.DeepEqual(got, []string{"a", "c"}) {
		t.Errorf("Expected [a c], got %v", got)
	}
	if len(base.ShepherdEvents) != 1 {
		t.Errorf("Expected input state untouched, got %v", eventNames(base.ShepherdEvents))
	}
}

func TestDuplicateListenerRegistration(t *testing.T) {
	s, _ := setupStore(t)
	calls := 0
	listener := func() { calls++ }

	first := s.AddEventListener(Created, listener)
	s.AddEventListener(Created, listener)
	s.EmitEvent(Created)
	if calls != 2 {
		t.Fatalf("Expected both registrations to fire, got %d calls", calls)
	}

	s.RemoveEventListener(Created, first)
	calls = 0
	s.EmitEvent(Created)
	if calls != 1 {
		t.Errorf("Expected one registration to remain active, got %d calls", calls)
	}
}

func TestRemoveUnknownListenerIsNoop(t *testing.T) {
	s, _ := setupStore(t)
	calls := 0
	id := s.AddEventListener(Created, func() { calls++ })

	s.RemoveEventListener(Deleted, id)
	s.RemoveEventListener(Created, id+100)
	s.EmitEvent(Created)

	if calls != 1 {
		t.Errorf("Expected listener to stay registered, got %d calls", calls)
	}
}

func TestListenersRunInRegistrationOrder(t *testing.T) {
	s, _ := setupStore(t)
	var order []int
	for i := 0; i < 5; i++ {
		i := i
		s.AddEventListener(ShepherdEventsGot, func() { order = append(order, i) })
	}

	s.EmitEvent(ShepherdEventsGot)

	if !reflect.DeepEqual(order, []int{0, 1, 2, 3, 4}) {
		t.Errorf("Expected registration order, got %v", order)
	}
}

func TestListenerReadsStateDuringNotification(t *testing.T) {
	s, d := setupStore(t)
	var seen []string
	s.AddEventListener(ShepherdEventsGot, func() {
		seen = eventNames(s.GetAllEventsByShepherd())
	})

	mustDispatch(t, d, ShepherdEventsFetched{Events: events("fresh")})

	if !reflect.DeepEqual(seen, []string{"fresh"}) {
		t.Errorf("Expected listener to observe new state, got %v", seen)
	}
}

func TestReset(t *testing.T) {
	s, d := setupStore(t)
	calls := 0
	s.AddEventListener(ShepherdEventsGot, func() { calls++ })
	mustDispatch(t, d, ShepherdEventsFetched{Events: events("a")})

	s.Reset()
	mustDispatch(t, d, ShepherdEventsFetched{Events: events("b")})
	s.Reset()

	if calls != 1 {
		t.Errorf("Expected listeners to be dropped by Reset, got %d calls", calls)
	}
	if len(s.GetAllEventsByShepherd()) != 0 {
		t.Error("Expected Reset to clear shepherd events")
	}
}

func TestDecodePayload(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		expected Action
	}{
		{
			name:     "shepherd get",
			body:     `{"actionType":"SHEPHERD_EVENT_GET","events":[{"id":1,"eventName":"a"}]}`,
			expected: ShepherdEventsFetched{Events: []types.Event{{ID: 1, EventName: "a"}}},
		},
		{
			name:     "not shepherd get without events",
			body:     `{"actionType":"NOT_SHEPHERD_EVENT_GET"}`,
			expected: NotShepherdEventsFetched{},
		},
		{
			name:     "create",
			body:     `{"actionType":"EVENT_CREATE","event":{"id":7,"eventName":"b","location":"SF"}}`,
			expected: EventCreated{Event: types.Event{ID: 7, EventName: "b", Location: "SF"}},
		},
		{
			name:     "delete",
			body:     `{"actionType":"EVENT_DELETE"}`,
			expected: EventDeleted{},
		},
		{
			name:     "unknown",
			body:     `{"actionType":"EVENT_UPDATE"}`,
			expected: Unrecognized{ActionType: "EVENT_UPDATE"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			action, err := DecodePayload([]byte(tt.body))
			if err != nil {
				t.Fatalf("DecodePayload failed: %v", err)
			}
			if !reflect.DeepEqual(action, tt.expected) {
				t.Errorf("Expected %#v, got %#v", tt.expected, action)
			}
		})
	}

	if _, err := DecodePayload([]byte(`{"actionType":`)); err == nil {
		t.Error("Expected error for malformed JSON")
	}
}

func TestPayloadForRoundTrip(t *testing.T) {
	for _, action := range []Action{
		ShepherdEventsFetched{Events: events("a")},
		NotShepherdEventsFetched{Events: events("b", "c")},
		EventCreated{Event: types.Event{ID: 3, EventName: "d"}},
		EventDeleted{Event: types.Event{ID: 3}},
		Unrecognized{ActionType: "OTHER"},
	} {
		if got := PayloadFor(action).Action(); !reflect.DeepEqual(got, action) {
			t.Errorf("Expected %#v, got %#v", action, got)
		}
	}
}
