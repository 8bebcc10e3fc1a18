package server

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/VacantAardvark/joseki/applib/auth"
	"github.com/VacantAardvark/joseki/applib/httputils"
	"github.com/VacantAardvark/joseki/state"
	"github.com/VacantAardvark/joseki/types"
)

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	httputils.HandleAPIResponse(w, r, types.StatusResponse{
		CurrentActionID: s.db.GetActionState().CurrentActionId(),
	}, nil, http.StatusOK)
}

// handlePoll waits until an action newer than ?id= has been committed. It
// answers 304 Not Modified when the poll times out first.
func (s *Server) handlePoll(w http.ResponseWriter, r *http.Request) {
	lastSeen, err := strconv.Atoi(r.URL.Query().Get("id"))
	if err != nil {
		httputils.HandleAPIResponse(w, r, nil, fmt.Errorf("invalid id parameter: %w", err), http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.opts.PollTimeout)
	defer cancel()

	actionState := s.db.GetActionState()
	if !actionState.PollForActionId(ctx, lastSeen+1) {
		if r.Context().Err() != nil {
			return
		}
		w.WriteHeader(http.StatusNotModified)
		return
	}
	httputils.HandleAPIResponse(w, r, types.StatusResponse{
		CurrentActionID: actionState.CurrentActionId(),
	}, nil, http.StatusOK)
}

// handleLogin finds the user with the given facebookId, creating it on first
// login, and issues an access token. The facebookId is trusted as given.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var request types.LoginRequest
	if err := httputils.DecodeJSONBody(r, &request); err != nil {
		httputils.HandleAPIResponse(w, r, nil, fmt.Errorf("error parsing request: %v", err), http.StatusBadRequest)
		return
	}
	request.FacebookID = strings.TrimSpace(request.FacebookID)
	if request.FacebookID == "" {
		httputils.HandleAPIResponse(w, r, nil, fmt.Errorf("facebookId is required"), http.StatusBadRequest)
		return
	}

	user, err := s.findOrCreateUser(r, request)
	if err != nil {
		httputils.HandleAPIResponse(w, r, nil, err, statusForError(err))
		return
	}

	token, err := s.issuer.Sign(user.ID, user.Username)
	if err != nil {
		httputils.HandleAPIResponse(w, r, nil, err, http.StatusInternalServerError)
		return
	}
	log.WithField("user_id", user.ID).Info("User logged in")
	httputils.HandleAPIResponse(w, r, types.LoginResponse{Token: token, User: *user}, nil, http.StatusOK)
}

func (s *Server) findOrCreateUser(r *http.Request, request types.LoginRequest) (*types.User, error) {
	user, err := state.GetUserByFacebookID(s.db.GetDB(), request.FacebookID)
	if err == nil {
		return user, nil
	}
	if statusForError(err) != http.StatusNotFound {
		return nil, err
	}

	action := state.NewAddUserAction(request.Username, request.FacebookID)
	if err := s.dispatch(r, action); err != nil {
		// a concurrent login may have created the same user
		if existing, lookupErr := state.GetUserByFacebookID(s.db.GetDB(), request.FacebookID); lookupErr == nil {
			return existing, nil
		}
		return nil, err
	}
	return state.GetUser(s.db.GetDB(), action.UserID)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.UserIDFromContext(r.Context())
	if err != nil {
		httputils.HandleAPIResponse(w, r, nil, err, http.StatusUnauthorized)
		return
	}
	user, err := state.GetUser(s.db.GetDB(), userID)
	httputils.HandleAPIResponse(w, r, user, err, statusForError(err))
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := state.GetUsers(s.db.GetDB())
	httputils.HandleAPIResponse(w, r, types.UsersResponse{Users: users}, err, statusForError(err))
}
