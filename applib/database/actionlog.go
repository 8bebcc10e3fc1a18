package database

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	log "github.com/sirupsen/logrus"
)

type DuplicateActionError struct {
	Id       int
	ClientId string
}

func (e *DuplicateActionError) Error() string {
	return fmt.Sprintf("duplicate action with client ID %s", e.ClientId)
}

const actionSchema = `
CREATE TABLE IF NOT EXISTS action_v1 (
	id %s,
	client_id TEXT NOT NULL UNIQUE,
	action_type TEXT NOT NULL,
	action_data JSONB NOT NULL
);
`

const getActionByClientIdV1Sql = `
SELECT id FROM action_v1 WHERE client_id = $1;
`

const insertActionV1Sql = `
INSERT INTO action_v1 (action_data, action_type, client_id)
VALUES ($1, $2, $3)
RETURNING id;
`

const getLatestActionIdV1Sql = `
SELECT COALESCE(MAX(id), 0) FROM action_v1;
`

// ActionDBInit creates the action log. All actions are stored as JSON blobs
// in the action_v1 table.
func ActionDBInit(tx *sqlx.Tx, dialect Dialect) error {
	_, err := tx.Exec(fmt.Sprintf(actionSchema, dialect.SerialPrimaryKey))
	return err
}

// ActionDBCreateAction appends an action to the log and returns its ID.
func ActionDBCreateAction(tx *sqlx.Tx, actionType string, actionData []byte, clientId string) (int, error) {
	actionId := 0

	// A client ID that is already in the log means the client retried a
	// request we have already applied.
	err := tx.Get(&actionId, getActionByClientIdV1Sql, clientId)
	if err == nil {
		return 0, &DuplicateActionError{
			Id:       actionId,
			ClientId: clientId,
		}
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, err
	}

	// Passed as a string so lib/pq sends text rather than bytea.
	err = tx.QueryRow(insertActionV1Sql, string(actionData), actionType, clientId).Scan(&actionId)
	if err != nil {
		return 0, err
	}
	log.WithFields(log.Fields{
		"action_id":   actionId,
		"action_type": actionType,
	}).Debug("Appended action")
	return actionId, nil
}

func (db *Database) CurrentActionV1() (int, error) {
	var id int
	err := db.db.Get(&id, getLatestActionIdV1Sql)
	if err != nil {
		return 0, err
	}
	return id, nil
}
