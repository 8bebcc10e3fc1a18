package state

import (
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	log "github.com/sirupsen/logrus"

	"github.com/VacantAardvark/joseki/applib/database"
	"github.com/VacantAardvark/joseki/applib/database/actions"
)

// Each statement is formatted with the dialect's serial primary key. The two
// role tables are deliberately separate so a user can be shepherd and sheep of
// the same event.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS users_v1 (
		id %s,
		username TEXT NOT NULL,
		facebook_id TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_users_facebook_id
		ON users_v1(facebook_id) WHERE facebook_id <> ''`,
	`CREATE TABLE IF NOT EXISTS events_v1 (
		id %s,
		event_name TEXT NOT NULL,
		starts_at TIMESTAMP NULL,
		ends_at TIMESTAMP NULL,
		location TEXT NOT NULL DEFAULT '',
		min_participants INTEGER NOT NULL DEFAULT 0,
		max_participants INTEGER NOT NULL DEFAULT 0,
		action TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS observations_v1 (
		id %s,
		content TEXT NOT NULL DEFAULT '',
		completed BOOLEAN NOT NULL DEFAULT FALSE,
		user_id INTEGER NOT NULL REFERENCES users_v1(id),
		event_id INTEGER NOT NULL REFERENCES events_v1(id),
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_observations_event_id ON observations_v1(event_id)`,
	`CREATE TABLE IF NOT EXISTS shepherd_events_v1 (
		user_id INTEGER NOT NULL REFERENCES users_v1(id),
		event_id INTEGER NOT NULL REFERENCES events_v1(id),
		PRIMARY KEY (user_id, event_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_shepherd_events_event_id ON shepherd_events_v1(event_id)`,
	`CREATE TABLE IF NOT EXISTS sheep_events_v1 (
		user_id INTEGER NOT NULL REFERENCES users_v1(id),
		event_id INTEGER NOT NULL REFERENCES events_v1(id),
		PRIMARY KEY (user_id, event_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_sheep_events_event_id ON sheep_events_v1(event_id)`,
}

// SyncSchema creates any missing tables and indexes.
func SyncSchema(tx *sqlx.Tx, dialect database.Dialect) error {
	for _, stmt := range schemaStatements {
		if strings.Contains(stmt, "%s") {
			stmt = fmt.Sprintf(stmt, dialect.SerialPrimaryKey)
		}
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("failed to sync schema: %w", err)
		}
	}
	log.Debug("State tables synchronized")
	return nil
}

// Register wires the schema sync and every action handler into db.
func Register(db *database.Database) {
	dialect := db.GetDialect()
	database.AddActionHandler(db, actions.SyncActionType, func(tx *sqlx.Tx, action *actions.SyncAction) (bool, error) {
		if err := SyncSchema(tx, dialect); err != nil {
			return false, err
		}
		return true, nil
	})

	database.AddActionHandler(db, AddUserActionType, UsersHandleAddAction)
	database.AddActionHandler(db, CreateEventActionType, EventsHandleCreateAction)
	database.AddActionHandler(db, DeleteEventActionType, EventsHandleDeleteAction)
	database.AddActionHandler(db, AddRoleActionType, RolesHandleAddAction)
	database.AddActionHandler(db, RemoveRoleActionType, RolesHandleRemoveAction)
	database.AddActionHandler(db, AddObservationActionType, ObservationsHandleAddAction)
	database.AddActionHandler(db, SetObservationCompletedActionType, ObservationsHandleSetCompletedAction)
}
