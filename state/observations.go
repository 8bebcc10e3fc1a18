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

const AddObservationActionType string = "observations:ADD_OBSERVATION"
const SetObservationCompletedActionType string = "observations:SET_COMPLETED"

type AddObservationAction struct {
	actions.GenericAction
	EventID int    `json:"eventId"`
	UserID  int    `json:"userId"`
	Content string `json:"content"`

	// Set by the handler
	ObservationID int `json:"-"`
}

type SetObservationCompletedAction struct {
	actions.GenericAction
	ObservationID int  `json:"observationId"`
	Completed     bool `json:"completed"`
}

func NewAddObservationAction(eventID, userID int, content string) *AddObservationAction {
	return &AddObservationAction{
		GenericAction: actions.NewGenericAction(AddObservationActionType),
		EventID:       eventID,
		UserID:        userID,
		Content:       content,
	}
}

func NewSetObservationCompletedAction(observationID int, completed bool) *SetObservationCompletedAction {
	return &SetObservationCompletedAction{
		GenericAction: actions.NewGenericAction(SetObservationCompletedActionType),
		ObservationID: observationID,
		Completed:     completed,
	}
}

const observationColumns = `o.id, o.content, o.completed, o.user_id, o.event_id, o.created_at, o.updated_at`

// -- Action handlers --

func ObservationsHandleAddAction(tx *sqlx.Tx, action *AddObservationAction) (bool, error) {
	if strings.TrimSpace(action.Content) == "" {
		return false, fmt.Errorf("%w: content is required", ErrInvalidAction)
	}
	if _, err := GetEvent(tx, action.EventID); err != nil {
		return false, err
	}
	if _, err := GetUser(tx, action.UserID); err != nil {
		return false, err
	}

	err := tx.QueryRow(`
		INSERT INTO observations_v1 (content, completed, user_id, event_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)
		RETURNING id`,
		action.Content, false, action.UserID, action.EventID, action.Timestamp).Scan(&action.ObservationID)
	if err != nil {
		return false, fmt.Errorf("failed to insert observation for event %d: %w", action.EventID, err)
	}

	log.WithFields(log.Fields{
		"observation_id": action.ObservationID,
		"event_id":       action.EventID,
		"user_id":        action.UserID,
	}).Info("Added observation")
	return true, nil
}

func ObservationsHandleSetCompletedAction(tx *sqlx.Tx, action *SetObservationCompletedAction) (bool, error) {
	result, err := tx.Exec(`UPDATE observations_v1 SET completed = $1, updated_at = $2 WHERE id = $3`,
		action.Completed, action.Timestamp, action.ObservationID)
	if err != nil {
		return false, fmt.Errorf("failed to update observation %d: %w", action.ObservationID, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rowsAffected == 0 {
		return false, fmt.Errorf("observation %d: %w", action.ObservationID, ErrNotFound)
	}
	return true, nil
}

// -- Getters --

func GetObservation(q sqlx.Queryer, observationID int) (*types.Observation, error) {
	var observation types.Observation
	err := sqlx.Get(q, &observation, `SELECT `+observationColumns+` FROM observations_v1 o WHERE o.id = $1`, observationID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("observation %d: %w", observationID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get observation %d: %w", observationID, err)
	}
	return &observation, nil
}

func GetObservationsForEvent(q sqlx.Queryer, eventID int) ([]types.Observation, error) {
	ret := []types.Observation{}
	err := sqlx.Select(q, &ret, `SELECT `+observationColumns+` FROM observations_v1 o WHERE o.event_id = $1 ORDER BY o.id`, eventID)
	if err != nil {
		return ret, fmt.Errorf("failed to select observations for event %d: %w", eventID, err)
	}
	return ret, nil
}

func GetObservationsByUser(q sqlx.Queryer, userID int) ([]types.Observation, error) {
	ret := []types.Observation{}
	err := sqlx.Select(q, &ret, `SELECT `+observationColumns+` FROM observations_v1 o WHERE o.user_id = $1 ORDER BY o.id`, userID)
	if err != nil {
		return ret, fmt.Errorf("failed to select observations by user %d: %w", userID, err)
	}
	return ret, nil
}
