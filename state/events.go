package state

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	log "github.com/sirupsen/logrus"

	"github.com/VacantAardvark/joseki/applib/database/actions"
	"github.com/VacantAardvark/joseki/types"
)

const CreateEventActionType string = "events:CREATE_EVENT"
const DeleteEventActionType string = "events:DELETE_EVENT"

type CreateEventAction struct {
	actions.GenericAction
	Event      types.Event `json:"event"`
	ShepherdID int         `json:"shepherdId"`

	// Set by the handler
	EventID int `json:"-"`
}

type DeleteEventAction struct {
	actions.GenericAction
	EventID int `json:"eventId"`
}

func NewCreateEventAction(event types.Event, shepherdID int) *CreateEventAction {
	return &CreateEventAction{
		GenericAction: actions.NewGenericAction(CreateEventActionType),
		Event:         event,
		ShepherdID:    shepherdID,
	}
}

func NewDeleteEventAction(eventID int) *DeleteEventAction {
	return &DeleteEventAction{
		GenericAction: actions.NewGenericAction(DeleteEventActionType),
		EventID:       eventID,
	}
}

const eventColumns = `e.id, e.event_name, e.starts_at, e.ends_at, e.location,
	e.min_participants, e.max_participants, e.action, e.created_at, e.updated_at`

func validateEvent(event *types.Event) error {
	if strings.TrimSpace(event.EventName) == "" {
		return fmt.Errorf("%w: eventName is required", ErrInvalidAction)
	}
	if event.MinParticipants < 0 || event.MaxParticipants < 0 {
		return fmt.Errorf("%w: participant counts must not be negative", ErrInvalidAction)
	}
	if event.MaxParticipants > 0 && event.MinParticipants > event.MaxParticipants {
		return fmt.Errorf("%w: minParticipants exceeds maxParticipants", ErrInvalidAction)
	}
	if event.Start != nil && event.End != nil && event.End.Before(*event.Start) {
		return fmt.Errorf("%w: event ends before it starts", ErrInvalidAction)
	}
	return nil
}

// -- Action handlers --

// EventsHandleCreateAction inserts the event and makes the creating user its
// first shepherd.
func EventsHandleCreateAction(tx *sqlx.Tx, action *CreateEventAction) (bool, error) {
	event := action.Event
	if err := validateEvent(&event); err != nil {
		return false, err
	}
	if _, err := GetUser(tx, action.ShepherdID); err != nil {
		return false, err
	}

	err := tx.QueryRow(`
		INSERT INTO events_v1 (event_name, starts_at, ends_at, location,
			min_participants, max_participants, action, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
		RETURNING id`,
		strings.TrimSpace(event.EventName), event.Start, event.End, event.Location,
		event.MinParticipants, event.MaxParticipants, event.Action, action.Timestamp).Scan(&action.EventID)
	if err != nil {
		return false, fmt.Errorf("failed to insert event %s: %w", event.EventName, err)
	}

	_, err = tx.Exec(`INSERT INTO shepherd_events_v1 (user_id, event_id) VALUES ($1, $2)`,
		action.ShepherdID, action.EventID)
	if err != nil {
		return false, fmt.Errorf("failed to add shepherd to event %d: %w", action.EventID, err)
	}

	log.WithFields(log.Fields{
		"event_id":    action.EventID,
		"shepherd_id": action.ShepherdID,
	}).Info("Created event")
	return true, nil
}

// EventsHandleDeleteAction removes the event together with its observations
// and both role associations.
func EventsHandleDeleteAction(tx *sqlx.Tx, action *DeleteEventAction) (bool, error) {
	for _, stmt := range []string{
		`DELETE FROM observations_v1 WHERE event_id = $1`,
		`DELETE FROM shepherd_events_v1 WHERE event_id = $1`,
		`DELETE FROM sheep_events_v1 WHERE event_id = $1`,
	} {
		if _, err := tx.Exec(stmt, action.EventID); err != nil {
			return false, fmt.Errorf("failed to delete dependents of event %d: %w", action.EventID, err)
		}
	}

	result, err := tx.Exec(`DELETE FROM events_v1 WHERE id = $1`, action.EventID)
	if err != nil {
		return false, fmt.Errorf("failed to delete event %d: %w", action.EventID, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rowsAffected == 0 {
		return false, fmt.Errorf("event %d: %w", action.EventID, ErrNotFound)
	}

	log.WithField("event_id", action.EventID).Info("Deleted event")
	return true, nil
}

// -- Getters --

func GetEvent(q sqlx.Queryer, eventID int) (*types.Event, error) {
	var event types.Event
	err := sqlx.Get(q, &event, `SELECT `+eventColumns+` FROM events_v1 e WHERE e.id = $1`, eventID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("event %d: %w", eventID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get event %d: %w", eventID, err)
	}
	return &event, nil
}

// GetEventsByShepherd returns the events the user is a shepherd of.
func GetEventsByShepherd(q sqlx.Queryer, userID int) ([]types.Event, error) {
	return selectEvents(q, `
		SELECT `+eventColumns+` FROM events_v1 e
		JOIN shepherd_events_v1 s ON s.event_id = e.id
		WHERE s.user_id = $1
		ORDER BY e.id`, userID)
}

// GetEventsNotByShepherd returns every event the user is not a shepherd of.
func GetEventsNotByShepherd(q sqlx.Queryer, userID int) ([]types.Event, error) {
	return selectEvents(q, `
		SELECT `+eventColumns+` FROM events_v1 e
		WHERE NOT EXISTS (
			SELECT 1 FROM shepherd_events_v1 s
			WHERE s.event_id = e.id AND s.user_id = $1
		)
		ORDER BY e.id`, userID)
}

// GetEventsBySheep returns the events the user takes part in as a sheep.
func GetEventsBySheep(q sqlx.Queryer, userID int) ([]types.Event, error) {
	return selectEvents(q, `
		SELECT `+eventColumns+` FROM events_v1 e
		JOIN sheep_events_v1 s ON s.event_id = e.id
		WHERE s.user_id = $1
		ORDER BY e.id`, userID)
}

func selectEvents(q sqlx.Queryer, query string, args ...any) ([]types.Event, error) {
	ret := []types.Event{}
	if err := sqlx.Select(q, &ret, query, args...); err != nil {
		return ret, fmt.Errorf("failed to select events: %w", err)
	}
	return ret, nil
}
