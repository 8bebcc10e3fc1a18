package server

import (
	"fmt"
	"net/http"

	"github.com/VacantAardvark/joseki/applib/auth"
	"github.com/VacantAardvark/joseki/applib/httputils"
	"github.com/VacantAardvark/joseki/state"
	"github.com/VacantAardvark/joseki/types"
)

func (s *Server) handleListMembers(role state.Role) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		eventID, err := intParam(r, "id")
		if err != nil {
			httputils.HandleAPIResponse(w, r, nil, err, statusForError(err))
			return
		}
		if _, err := state.GetEvent(s.db.GetDB(), eventID); err != nil {
			httputils.HandleAPIResponse(w, r, nil, err, statusForError(err))
			return
		}
		users, err := state.GetEventMembers(s.db.GetDB(), role, eventID)
		httputils.HandleAPIResponse(w, r, types.UsersResponse{Users: users}, err, statusForError(err))
	}
}

// authorizeRoleChange allows shepherds to manage both roles. Anyone may add
// or remove themselves as a sheep.
func (s *Server) authorizeRoleChange(role state.Role, eventID, callerID, targetID int) error {
	if role == state.RoleSheep && callerID == targetID {
		_, err := state.GetEvent(s.db.GetDB(), eventID)
		return err
	}
	return s.requireShepherd(eventID, callerID)
}

func (s *Server) handleRoleChange(role state.Role, add bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		callerID, err := auth.UserIDFromContext(r.Context())
		if err != nil {
			httputils.HandleAPIResponse(w, r, nil, err, http.StatusUnauthorized)
			return
		}
		eventID, err := intParam(r, "id")
		if err != nil {
			httputils.HandleAPIResponse(w, r, nil, err, statusForError(err))
			return
		}
		targetID, err := intParam(r, "userId")
		if err != nil {
			httputils.HandleAPIResponse(w, r, nil, err, statusForError(err))
			return
		}
		if err := s.authorizeRoleChange(role, eventID, callerID, targetID); err != nil {
			httputils.HandleAPIResponse(w, r, nil, err, statusForError(err))
			return
		}

		action := state.NewRemoveRoleAction(role, eventID, targetID)
		if add {
			action = state.NewAddRoleAction(role, eventID, targetID)
		}
		if err := s.dispatch(r, action); err != nil {
			httputils.HandleAPIResponse(w, r, nil, fmt.Errorf("failed to update %s: %w", role, err), statusForError(err))
			return
		}
		users, err := state.GetEventMembers(s.db.GetDB(), role, eventID)
		httputils.HandleAPIResponse(w, r, types.UsersResponse{Users: users}, err, statusForError(err))
	}
}

func (s *Server) handleAddMember(role state.Role) http.HandlerFunc {
	return s.handleRoleChange(role, true)
}

func (s *Server) handleRemoveMember(role state.Role) http.HandlerFunc {
	return s.handleRoleChange(role, false)
}
