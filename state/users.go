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

const AddUserActionType string = "users:ADD_USER"

type AddUserAction struct {
	actions.GenericAction
	Username   string `json:"username"`
	FacebookID string `json:"facebookId"`

	// Set by the handler
	UserID int `json:"-"`
}

func NewAddUserAction(username, facebookID string) *AddUserAction {
	return &AddUserAction{
		GenericAction: actions.NewGenericAction(AddUserActionType),
		Username:      username,
		FacebookID:    facebookID,
	}
}

const userColumns = `u.id, u.username, u.facebook_id, u.created_at, u.updated_at`

// -- Action handlers --

func UsersHandleAddAction(tx *sqlx.Tx, action *AddUserAction) (bool, error) {
	username := strings.TrimSpace(action.Username)
	if username == "" {
		return false, fmt.Errorf("%w: username is required", ErrInvalidAction)
	}

	err := tx.QueryRow(`
		INSERT INTO users_v1 (username, facebook_id, created_at, updated_at)
		VALUES ($1, $2, $3, $3)
		RETURNING id`,
		username, action.FacebookID, action.Timestamp).Scan(&action.UserID)
	if err != nil {
		return false, fmt.Errorf("failed to insert user %s: %w", username, err)
	}

	log.WithFields(log.Fields{
		"user_id":  action.UserID,
		"username": username,
	}).Info("Added user")
	return true, nil
}

// -- Getters --

func GetUser(q sqlx.Queryer, userID int) (*types.User, error) {
	var user types.User
	err := sqlx.Get(q, &user, `SELECT `+userColumns+` FROM users_v1 u WHERE u.id = $1`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user %d: %w", userID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user %d: %w", userID, err)
	}
	return &user, nil
}

func GetUserByFacebookID(q sqlx.Queryer, facebookID string) (*types.User, error) {
	if facebookID == "" {
		return nil, fmt.Errorf("empty facebook ID: %w", ErrNotFound)
	}
	var user types.User
	err := sqlx.Get(q, &user, `SELECT `+userColumns+` FROM users_v1 u WHERE u.facebook_id = $1`, facebookID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user with facebook ID %s: %w", facebookID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by facebook ID: %w", err)
	}
	return &user, nil
}

func GetUsers(q sqlx.Queryer) ([]types.User, error) {
	ret := []types.User{}
	err := sqlx.Select(q, &ret, `SELECT `+userColumns+` FROM users_v1 u ORDER BY u.id`)
	if err != nil {
		return ret, fmt.Errorf("failed to select all users: %w", err)
	}
	return ret, nil
}
