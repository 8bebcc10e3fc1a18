package state

import (
	"errors"
	"path"
	"testing"
	"time"

	"github.com/VacantAardvark/joseki/applib/database"
	"github.com/VacantAardvark/joseki/types"
)

// setupTestDB creates a temporary SQLite database with the full schema.
func setupTestDB(t *testing.T) *database.Database {
	dbPath := path.Join(t.TempDir(), "test_state.db")
	db, err := database.Connect("sqlite3://"+dbPath, "test")
	if err != nil {
		t.Fatalf("Connect returned error: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	Register(db)
	if err := db.Initialize(); err != nil {
		t.Fatalf("Initialize returned error: %v", err)
	}
	return db
}

func addUser(t *testing.T, db *database.Database, username, facebookID string) int {
	t.Helper()
	action := NewAddUserAction(username, facebookID)
	if _, err := db.Dispatch(action, ""); err != nil {
		t.Fatalf("Failed to add user %s: %v", username, err)
	}
	return action.UserID
}

func createEvent(t *testing.T, db *database.Database, event types.Event, shepherdID int) int {
	t.Helper()
	action := NewCreateEventAction(event, shepherdID)
	if _, err := db.Dispatch(action, ""); err != nil {
		t.Fatalf("Failed to create event %s: %v", event.EventName, err)
	}
	return action.EventID
}

func addRole(t *testing.T, db *database.Database, role Role, eventID, userID int) {
	t.Helper()
	if _, err := db.Dispatch(NewAddRoleAction(role, eventID, userID), ""); err != nil {
		t.Fatalf("Failed to add %s %d to event %d: %v", role, userID, eventID, err)
	}
}

func memberIDs(t *testing.T, db *database.Database, role Role, eventID int) []int {
	t.Helper()
	users, err := GetEventMembers(db.GetDB(), role, eventID)
	if err != nil {
		t.Fatalf("GetEventMembers failed: %v", err)
	}
	ids := make([]int, len(users))
	for i, u := range users {
		ids[i] = u.ID
	}
	return ids
}

func TestSchemaTables(t *testing.T) {
	db := setupTestDB(t)

	for _, table := range []string{"users_v1", "events_v1", "observations_v1", "shepherd_events_v1", "sheep_events_v1"} {
		var name string
		err := db.GetDB().Get(&name, "SELECT name FROM sqlite_master WHERE type='table' AND name=$1", table)
		if err != nil {
			t.Errorf("Table '%s' does not exist: %v", table, err)
		}
	}

	// Join tables hold exactly the two foreign keys
	for _, table := range []string{"shepherd_events_v1", "sheep_events_v1"} {
		var count int
		err := db.GetDB().Get(&count, "SELECT COUNT(*) FROM pragma_table_info($1)", table)
		if err != nil {
			t.Fatalf("Failed to inspect %s: %v", table, err)
		}
		if count != 2 {
			t.Errorf("Expected 2 columns in %s, got %d", table, count)
		}
	}

	// Sync again against existing tables
	if err := db.Initialize(); err != nil {
		t.Fatalf("Repeated Initialize returned error: %v", err)
	}
}

func TestAddUser(t *testing.T) {
	db := setupTestDB(t)

	userID := addUser(t, db, "Kev", "fb-1")
	user, err := GetUser(db.GetDB(), userID)
	if err != nil {
		t.Fatalf("GetUser failed: %v", err)
	}
	if user.Username != "Kev" || user.FacebookID != "fb-1" {
		t.Errorf("Unexpected user %+v", user)
	}
	if user.CreatedAt.IsZero() {
		t.Error("Expected created_at to be set")
	}

	byFacebook, err := GetUserByFacebookID(db.GetDB(), "fb-1")
	if err != nil {
		t.Fatalf("GetUserByFacebookID failed: %v", err)
	}
	if byFacebook.ID != userID {
		t.Errorf("Expected user %d, got %d", userID, byFacebook.ID)
	}

	if _, err := GetUser(db.GetDB(), 9999); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestAddUserValidation(t *testing.T) {
	db := setupTestDB(t)

	_, err := db.Dispatch(NewAddUserAction("   ", ""), "")
	if !errors.Is(err, ErrInvalidAction) {
		t.Errorf("Expected ErrInvalidAction, got %v", err)
	}
}

func TestFacebookIDUniqueness(t *testing.T) {
	db := setupTestDB(t)

	addUser(t, db, "first", "fb-dup")
	if _, err := db.Dispatch(NewAddUserAction("second", "fb-dup"), ""); err == nil {
		t.Error("Expected duplicate facebook ID to be rejected")
	}

	// Users without a facebook ID do not collide
	addUser(t, db, "local-a", "")
	addUser(t, db, "local-b", "")
}

func TestCreateEventMakesCreatorShepherd(t *testing.T) {
	db := setupTestDB(t)
	userID := addUser(t, db, "Kev", "")

	start := time.Date(2026, 5, 1, 20, 0, 0, 0, time.UTC)
	end := start.Add(3 * time.Hour)
	eventID := createEvent(t, db, types.Event{
		EventName:       "Dance party",
		Location:        "San Francisco",
		Start:           &start,
		End:             &end,
		MinParticipants: 2,
		MaxParticipants: 10,
		Action:          "dance",
	}, userID)

	event, err := GetEvent(db.GetDB(), eventID)
	if err != nil {
		t.Fatalf("GetEvent failed: %v", err)
	}
	if event.EventName != "Dance party" || event.Location != "San Francisco" || event.Action != "dance" {
		t.Errorf("Unexpected event %+v", event)
	}
	if event.Start == nil || !event.Start.Equal(start) {
		t.Errorf("Expected start %v, got %v", start, event.Start)
	}
	if event.End == nil || !event.End.Equal(end) {
		t.Errorf("Expected end %v, got %v", end, event.End)
	}

	shepherds := memberIDs(t, db, RoleShepherd, eventID)
	if len(shepherds) != 1 || shepherds[0] != userID {
		t.Errorf("Expected creator to be the only shepherd, got %v", shepherds)
	}
	if sheep := memberIDs(t, db, RoleSheep, eventID); len(sheep) != 0 {
		t.Errorf("Expected no sheep, got %v", sheep)
	}
}

func TestCreateEventValidation(t *testing.T) {
	db := setupTestDB(t)
	userID := addUser(t, db, "Kev", "")
	start := time.Now().UTC()
	before := start.Add(-time.Hour)

	tests := []struct {
		name  string
		event types.Event
	}{
		{"missing name", types.Event{}},
		{"negative participants", types.Event{EventName: "x", MinParticipants: -1}},
		{"min above max", types.Event{EventName: "x", MinParticipants: 5, MaxParticipants: 2}},
		{"ends before start", types.Event{EventName: "x", Start: &start, End: &before}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := db.Dispatch(NewCreateEventAction(tt.event, userID), "")
			if !errors.Is(err, ErrInvalidAction) {
				t.Errorf("Expected ErrInvalidAction, got %v", err)
			}
		})
	}

	_, err := db.Dispatch(NewCreateEventAction(types.Event{EventName: "x"}, 9999), "")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound for unknown shepherd, got %v", err)
	}
}

func TestShepherdAndSheepRelationsAreIndependent(t *testing.T) {
	db := setupTestDB(t)
	owner := addUser(t, db, "owner", "")
	shepherd := addUser(t, db, "shepherd", "")
	sheep := addUser(t, db, "sheep", "")
	eventID := createEvent(t, db, types.Event{EventName: "Hike"}, owner)

	addRole(t, db, RoleShepherd, eventID, shepherd)
	if isSheep, _ := HasRole(db.GetDB(), RoleSheep, eventID, shepherd); isSheep {
		t.Error("Adding a shepherd must not add a sheep")
	}

	addRole(t, db, RoleSheep, eventID, sheep)
	if isShepherd, _ := HasRole(db.GetDB(), RoleShepherd, eventID, sheep); isShepherd {
		t.Error("Adding a sheep must not add a shepherd")
	}

	shepherds := memberIDs(t, db, RoleShepherd, eventID)
	if len(shepherds) != 2 || shepherds[0] != owner || shepherds[1] != shepherd {
		t.Errorf("Unexpected shepherds %v", shepherds)
	}
	sheepIDs := memberIDs(t, db, RoleSheep, eventID)
	if len(sheepIDs) != 1 || sheepIDs[0] != sheep {
		t.Errorf("Unexpected sheep %v", sheepIDs)
	}
}

func TestUserCanBeShepherdAndSheep(t *testing.T) {
	db := setupTestDB(t)
	userID := addUser(t, db, "both", "")
	eventID := createEvent(t, db, types.Event{EventName: "Picnic"}, userID)

	addRole(t, db, RoleSheep, eventID, userID)

	for _, role := range []Role{RoleShepherd, RoleSheep} {
		ok, err := HasRole(db.GetDB(), role, eventID, userID)
		if err != nil {
			t.Fatalf("HasRole failed: %v", err)
		}
		if !ok {
			t.Errorf("Expected user to hold role %s", role)
		}
	}

	// Removing one role keeps the other
	if _, err := db.Dispatch(NewRemoveRoleAction(RoleSheep, eventID, userID), ""); err != nil {
		t.Fatalf("Remove role failed: %v", err)
	}
	if ok, _ := HasRole(db.GetDB(), RoleShepherd, eventID, userID); !ok {
		t.Error("Removing the sheep role must keep the shepherd role")
	}
	if ok, _ := HasRole(db.GetDB(), RoleSheep, eventID, userID); ok {
		t.Error("Expected sheep role to be removed")
	}
}

func TestAddRoleTwiceIsNoop(t *testing.T) {
	db := setupTestDB(t)
	owner := addUser(t, db, "owner", "")
	sheep := addUser(t, db, "sheep", "")
	eventID := createEvent(t, db, types.Event{EventName: "Run"}, owner)

	addRole(t, db, RoleSheep, eventID, sheep)
	addRole(t, db, RoleSheep, eventID, sheep)

	count, err := CountMembers(db.GetDB(), RoleSheep, eventID)
	if err != nil {
		t.Fatalf("CountMembers failed: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected 1 sheep, got %d", count)
	}
}

func TestEventFull(t *testing.T) {
	db := setupTestDB(t)
	owner := addUser(t, db, "owner", "")
	first := addUser(t, db, "first", "")
	second := addUser(t, db, "second", "")
	eventID := createEvent(t, db, types.Event{EventName: "Dinner", MaxParticipants: 1}, owner)

	addRole(t, db, RoleSheep, eventID, first)
	_, err := db.Dispatch(NewAddRoleAction(RoleSheep, eventID, second), "")
	if !errors.Is(err, ErrEventFull) {
		t.Fatalf("Expected ErrEventFull, got %v", err)
	}

	// Shepherds do not count against maxParticipants
	addRole(t, db, RoleShepherd, eventID, second)
}

func TestLastShepherdCannotBeRemoved(t *testing.T) {
	db := setupTestDB(t)
	owner := addUser(t, db, "owner", "")
	helper := addUser(t, db, "helper", "")
	eventID := createEvent(t, db, types.Event{EventName: "Retreat"}, owner)

	_, err := db.Dispatch(NewRemoveRoleAction(RoleShepherd, eventID, owner), "")
	if !errors.Is(err, ErrLastShepherd) {
		t.Fatalf("Expected ErrLastShepherd, got %v", err)
	}
	if got := memberIDs(t, db, RoleShepherd, eventID); len(got) != 1 || got[0] != owner {
		t.Fatalf("Expected shepherds [%d], got %v", owner, got)
	}

	// Removing someone who is not a shepherd is still a no-op
	if _, err := db.Dispatch(NewRemoveRoleAction(RoleShepherd, eventID, helper), ""); err != nil {
		t.Fatalf("Expected removing a non-shepherd to succeed, got %v", err)
	}

	// With a second shepherd the owner may step down
	addRole(t, db, RoleShepherd, eventID, helper)
	if _, err := db.Dispatch(NewRemoveRoleAction(RoleShepherd, eventID, owner), ""); err != nil {
		t.Fatalf("Remove shepherd failed: %v", err)
	}
	if got := memberIDs(t, db, RoleShepherd, eventID); len(got) != 1 || got[0] != helper {
		t.Errorf("Expected shepherds [%d], got %v", helper, got)
	}

	_, err = db.Dispatch(NewRemoveRoleAction(RoleShepherd, eventID, helper), "")
	if !errors.Is(err, ErrLastShepherd) {
		t.Errorf("Expected ErrLastShepherd for the remaining shepherd, got %v", err)
	}
}

func TestAddRoleErrors(t *testing.T) {
	db := setupTestDB(t)
	owner := addUser(t, db, "owner", "")
	eventID := createEvent(t, db, types.Event{EventName: "Dinner"}, owner)

	tests := []struct {
		name   string
		action *RoleAction
		want   error
	}{
		{"unknown role", NewAddRoleAction(Role("wolf"), eventID, owner), ErrInvalidAction},
		{"unknown event", NewAddRoleAction(RoleSheep, 9999, owner), ErrNotFound},
		{"unknown user", NewAddRoleAction(RoleSheep, eventID, 9999), ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := db.Dispatch(tt.action, "")
			if !errors.Is(err, tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestEventsByShepherdAndNot(t *testing.T) {
	db := setupTestDB(t)
	alice := addUser(t, db, "alice", "")
	bob := addUser(t, db, "bob", "")

	aliceEvent := createEvent(t, db, types.Event{EventName: "Alice's"}, alice)
	bobEvent := createEvent(t, db, types.Event{EventName: "Bob's"}, bob)
	addRole(t, db, RoleSheep, bobEvent, alice)

	byShepherd, err := GetEventsByShepherd(db.GetDB(), alice)
	if err != nil {
		t.Fatalf("GetEventsByShepherd failed: %v", err)
	}
	if len(byShepherd) != 1 || byShepherd[0].ID != aliceEvent {
		t.Errorf("Unexpected shepherd events %+v", byShepherd)
	}

	notByShepherd, err := GetEventsNotByShepherd(db.GetDB(), alice)
	if err != nil {
		t.Fatalf("GetEventsNotByShepherd failed: %v", err)
	}
	if len(notByShepherd) != 1 || notByShepherd[0].ID != bobEvent {
		t.Errorf("Unexpected non-shepherd events %+v", notByShepherd)
	}

	bySheep, err := GetEventsBySheep(db.GetDB(), alice)
	if err != nil {
		t.Fatalf("GetEventsBySheep failed: %v", err)
	}
	if len(bySheep) != 1 || bySheep[0].ID != bobEvent {
		t.Errorf("Unexpected sheep events %+v", bySheep)
	}
}

func TestDeleteEventCascades(t *testing.T) {
	db := setupTestDB(t)
	owner := addUser(t, db, "owner", "")
	sheep := addUser(t, db, "sheep", "")
	eventID := createEvent(t, db, types.Event{EventName: "Party"}, owner)
	addRole(t, db, RoleSheep, eventID, sheep)
	if _, err := db.Dispatch(NewAddObservationAction(eventID, sheep, "It is poppin"), ""); err != nil {
		t.Fatalf("Failed to add observation: %v", err)
	}

	if _, err := db.Dispatch(NewDeleteEventAction(eventID), ""); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	if _, err := GetEvent(db.GetDB(), eventID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected event to be gone, got %v", err)
	}
	for _, role := range []Role{RoleShepherd, RoleSheep} {
		if count, _ := CountMembers(db.GetDB(), role, eventID); count != 0 {
			t.Errorf("Expected no %s rows, got %d", role, count)
		}
	}
	observations, err := GetObservationsByUser(db.GetDB(), sheep)
	if err != nil {
		t.Fatalf("GetObservationsByUser failed: %v", err)
	}
	if len(observations) != 0 {
		t.Errorf("Expected observations to be deleted, got %d", len(observations))
	}

	_, err = db.Dispatch(NewDeleteEventAction(eventID), "")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound deleting twice, got %v", err)
	}
}

func TestObservations(t *testing.T) {
	db := setupTestDB(t)
	userID := addUser(t, db, "Kev", "")
	eventID := createEvent(t, db, types.Event{EventName: "Dance party", Location: "San Francisco"}, userID)

	add := NewAddObservationAction(eventID, userID, "It is poppin in herrr")
	if _, err := db.Dispatch(add, ""); err != nil {
		t.Fatalf("Failed to add observation: %v", err)
	}

	observation, err := GetObservation(db.GetDB(), add.ObservationID)
	if err != nil {
		t.Fatalf("GetObservation failed: %v", err)
	}
	if observation.Completed {
		t.Error("New observations start incomplete")
	}
	if observation.UserID != userID || observation.EventID != eventID {
		t.Errorf("Observation not tied to user and event: %+v", observation)
	}

	if _, err := db.Dispatch(NewSetObservationCompletedAction(add.ObservationID, true), ""); err != nil {
		t.Fatalf("Failed to complete observation: %v", err)
	}
	forEvent, err := GetObservationsForEvent(db.GetDB(), eventID)
	if err != nil {
		t.Fatalf("GetObservationsForEvent failed: %v", err)
	}
	if len(forEvent) != 1 || !forEvent[0].Completed {
		t.Errorf("Expected one completed observation, got %+v", forEvent)
	}

	_, err = db.Dispatch(NewSetObservationCompletedAction(9999, true), "")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
	_, err = db.Dispatch(NewAddObservationAction(9999, userID, "nope"), "")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound for unknown event, got %v", err)
	}
	_, err = db.Dispatch(NewAddObservationAction(eventID, userID, " "), "")
	if !errors.Is(err, ErrInvalidAction) {
		t.Errorf("Expected ErrInvalidAction for empty content, got %v", err)
	}
}
