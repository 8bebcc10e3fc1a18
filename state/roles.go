package state

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	log "github.com/sirupsen/logrus"

	"github.com/VacantAardvark/joseki/applib/database/actions"
	"github.com/VacantAardvark/joseki/types"
)

// Role is the relation a user holds with an event. Every role has its own
// join table.
type Role string

const (
	RoleShepherd Role = "shepherd"
	RoleSheep    Role = "sheep"
)

func (r Role) table() (string, error) {
	switch r {
	case RoleShepherd:
		return "shepherd_events_v1", nil
	case RoleSheep:
		return "sheep_events_v1", nil
	}
	return "", fmt.Errorf("%w: unknown role %q", ErrInvalidAction, string(r))
}

const AddRoleActionType string = "roles:ADD"
const RemoveRoleActionType string = "roles:REMOVE"

type RoleAction struct {
	actions.GenericAction
	Role    Role `json:"role"`
	EventID int  `json:"eventId"`
	UserID  int  `json:"userId"`
}

func NewAddRoleAction(role Role, eventID, userID int) *RoleAction {
	return &RoleAction{
		GenericAction: actions.NewGenericAction(AddRoleActionType),
		Role:          role,
		EventID:       eventID,
		UserID:        userID,
	}
}

func NewRemoveRoleAction(role Role, eventID, userID int) *RoleAction {
	return &RoleAction{
		GenericAction: actions.NewGenericAction(RemoveRoleActionType),
		Role:          role,
		EventID:       eventID,
		UserID:        userID,
	}
}

// -- Action handlers --

// RolesHandleAddAction associates the user with the event in the role's join
// table. Adding an existing association is a no-op. Sheep are limited by the
// event's maxParticipants when it is set.
func RolesHandleAddAction(tx *sqlx.Tx, action *RoleAction) (bool, error) {
	table, err := action.Role.table()
	if err != nil {
		return false, err
	}
	event, err := GetEvent(tx, action.EventID)
	if err != nil {
		return false, err
	}
	if _, err := GetUser(tx, action.UserID); err != nil {
		return false, err
	}

	member, err := HasRole(tx, action.Role, action.EventID, action.UserID)
	if err != nil {
		return false, err
	}
	if member {
		return false, nil
	}

	if action.Role == RoleSheep && event.MaxParticipants > 0 {
		count, err := CountMembers(tx, RoleSheep, action.EventID)
		if err != nil {
			return false, err
		}
		if count >= event.MaxParticipants {
			return false, fmt.Errorf("event %d has %d of %d participants: %w",
				action.EventID, count, event.MaxParticipants, ErrEventFull)
		}
	}

	_, err = tx.Exec(fmt.Sprintf(`INSERT INTO %s (user_id, event_id) VALUES ($1, $2)`, table),
		action.UserID, action.EventID)
	if err != nil {
		return false, fmt.Errorf("failed to add %s %d to event %d: %w", action.Role, action.UserID, action.EventID, err)
	}

	log.WithFields(log.Fields{
		"role":     action.Role,
		"event_id": action.EventID,
		"user_id":  action.UserID,
	}).Info("Added role")
	return true, nil
}

// RolesHandleRemoveAction drops the user's association. An event always
// keeps at least one shepherd.
func RolesHandleRemoveAction(tx *sqlx.Tx, action *RoleAction) (bool, error) {
	table, err := action.Role.table()
	if err != nil {
		return false, err
	}

	if action.Role == RoleShepherd {
		member, err := HasRole(tx, RoleShepherd, action.EventID, action.UserID)
		if err != nil {
			return false, err
		}
		if !member {
			return false, nil
		}
		count, err := CountMembers(tx, RoleShepherd, action.EventID)
		if err != nil {
			return false, err
		}
		if count <= 1 {
			return false, fmt.Errorf("cannot remove user %d from event %d: %w",
				action.UserID, action.EventID, ErrLastShepherd)
		}
	}

	result, err := tx.Exec(fmt.Sprintf(`DELETE FROM %s WHERE user_id = $1 AND event_id = $2`, table),
		action.UserID, action.EventID)
	if err != nil {
		return false, fmt.Errorf("failed to remove %s %d from event %d: %w", action.Role, action.UserID, action.EventID, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return rowsAffected > 0, nil
}

// -- Getters --

// GetEventMembers returns the users holding role on the event.
func GetEventMembers(q sqlx.Queryer, role Role, eventID int) ([]types.User, error) {
	table, err := role.table()
	if err != nil {
		return nil, err
	}
	ret := []types.User{}
	err = sqlx.Select(q, &ret, fmt.Sprintf(`
		SELECT `+userColumns+` FROM users_v1 u
		JOIN %s r ON r.user_id = u.id
		WHERE r.event_id = $1
		ORDER BY u.id`, table), eventID)
	if err != nil {
		return ret, fmt.Errorf("failed to select %s members of event %d: %w", role, eventID, err)
	}
	return ret, nil
}

func HasRole(q sqlx.Queryer, role Role, eventID, userID int) (bool, error) {
	table, err := role.table()
	if err != nil {
		return false, err
	}
	var count int
	err = sqlx.Get(q, &count, fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE user_id = $1 AND event_id = $2`, table),
		userID, eventID)
	if err != nil {
		return false, fmt.Errorf("failed to check %s role: %w", role, err)
	}
	return count > 0, nil
}

func CountMembers(q sqlx.Queryer, role Role, eventID int) (int, error) {
	table, err := role.table()
	if err != nil {
		return 0, err
	}
	var count int
	err = sqlx.Get(q, &count, fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE event_id = $1`, table), eventID)
	if err != nil {
		return 0, fmt.Errorf("failed to count %s members: %w", role, err)
	}
	return count, nil
}
