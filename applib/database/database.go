package database

// Database is a service that manages the SQL connection and dispatches actions
// to the appropriate handlers.

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	log "github.com/sirupsen/logrus"

	"github.com/VacantAardvark/joseki/applib/database/actions"
)

type GenericActionHandler func(tx *sqlx.Tx, action actions.Action) (bool, error)

type Database struct {
	db          *sqlx.DB
	dialect     Dialect
	handlers    map[string][]GenericActionHandler
	version     string
	actionState *ActionState

	// Serializes dispatches so action IDs commit in order and pollers never
	// skip an ID that commits late.
	dispatchMu sync.Mutex
}

// Connect opens a connection for the given database URL. The schema is not
// touched until Initialize is called.
func Connect(databaseURL string, version string) (*Database, error) {
	dialect, dsn, err := ParseDatabaseURL(databaseURL)
	if err != nil {
		return nil, err
	}
	db, err := sqlx.Connect(dialect.DriverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s database: %w", dialect.DriverName, err)
	}
	if dialect.DriverName == SqliteDialect.DriverName {
		// SQLite allows a single writer; concurrent transactions would fail
		// with SQLITE_BUSY instead of queueing.
		db.SetMaxOpenConns(1)
	}
	return &Database{
		db:       db,
		dialect:  dialect,
		handlers: make(map[string][]GenericActionHandler),
		version:  version,
	}, nil
}

// AddActionHandler registers a handler for one action type. Handlers run in
// registration order inside the dispatching transaction.
func AddActionHandler[T actions.Action](db *Database, actionType string, handler func(tx *sqlx.Tx, action T) (bool, error)) {
	db.handlers[actionType] = append(db.handlers[actionType], func(tx *sqlx.Tx, action actions.Action) (bool, error) {
		typed, ok := action.(T)
		if !ok {
			return false, fmt.Errorf("handler for %s cannot accept action of type %T", actionType, action)
		}
		return handler(tx, typed)
	})
}

// Initialize synchronizes the schema: it creates the action log and runs every
// sync handler. All DDL is idempotent, so this is safe on every boot.
func (db *Database) Initialize() error {
	tx, err := db.db.Beginx()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	err = ActionDBInit(tx, db.dialect)
	if err != nil {
		return fmt.Errorf("failed to initialize action log: %w", err)
	}

	syncAction := &actions.SyncAction{
		GenericAction: actions.NewGenericAction(actions.SyncActionType),
	}
	for _, handlerFunc := range db.handlers[actions.SyncActionType] {
		if _, err := handlerFunc(tx, syncAction); err != nil {
			return fmt.Errorf("failed to sync schema: %w", err)
		}
	}

	// Record the first sync only
	syncData, _ := json.Marshal(syncAction)
	_, err = ActionDBCreateAction(tx, actions.SyncActionType, syncData, actions.SyncActionType)
	if _, ok := err.(*DuplicateActionError); !ok && err != nil {
		return fmt.Errorf("failed to record sync action: %w", err)
	}

	err = tx.Commit()
	if err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	currentActionId, err := db.CurrentActionV1()
	if err != nil {
		return fmt.Errorf("failed to read current action: %w", err)
	}
	db.actionState = NewActionState(currentActionId)

	log.WithFields(log.Fields{
		"version": db.version,
		"driver":  db.dialect.DriverName,
	}).Info("Schema synchronized")

	return nil
}

// Dispatch appends an action to the log and applies it with every handler
// registered for its type, all in one transaction. An empty clientId is
// replaced with a random one. Returns the new action ID.
func (db *Database) Dispatch(action actions.Action, clientId string) (int, error) {
	handlers := db.handlers[action.GetType()]
	if len(handlers) == 0 {
		return 0, fmt.Errorf("no handlers registered for action type %s", action.GetType())
	}
	if clientId == "" {
		clientId = uuid.New().String()
	}

	actionData, err := json.Marshal(action)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal action %s: %w", action.GetType(), err)
	}

	db.dispatchMu.Lock()
	defer db.dispatchMu.Unlock()

	// Start a transaction before writing anything to the DB
	tx, err := db.db.Beginx()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	actionId, err := ActionDBCreateAction(tx, action.GetType(), actionData, clientId)
	if err != nil {
		return 0, err
	}
	action.SetId(actionId)

	for _, handlerFunc := range handlers {
		if _, err := handlerFunc(tx, action); err != nil {
			return 0, err
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit action %d: %w", actionId, err)
	}
	if db.actionState != nil {
		db.actionState.SetCurrentActionId(actionId)
	}
	return actionId, nil
}

func (db *Database) GetDB() *sqlx.DB {
	return db.db
}

func (db *Database) GetDialect() Dialect {
	return db.dialect
}

// GetActionState is nil until Initialize has run.
func (db *Database) GetActionState() *ActionState {
	return db.actionState
}

func (db *Database) Close() error {
	return db.db.Close()
}
