package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/jmoiron/sqlx"
	log "github.com/sirupsen/logrus"

	"github.com/VacantAardvark/joseki/applib/auth"
	"github.com/VacantAardvark/joseki/applib/database/actions"
	"github.com/VacantAardvark/joseki/applib/httputils"
	"github.com/VacantAardvark/joseki/state"
	"github.com/VacantAardvark/joseki/store"
	"github.com/VacantAardvark/joseki/types"
)

// dispatch applies action, using the X-Client-Id header as its idempotency
// key when present.
func (s *Server) dispatch(r *http.Request, action actions.Action) error {
	_, err := s.db.Dispatch(action, r.Header.Get(ClientIDHeader))
	return err
}

// publish broadcasts a committed change. Failures are logged and do not fail
// the request, since the change is already durable.
func (s *Server) publish(ctx context.Context, action store.Action) {
	if s.broadcaster == nil {
		return
	}
	if err := s.broadcaster.Publish(ctx, store.PayloadFor(action)); err != nil {
		broadcastFailures.Inc()
		log.WithError(err).WithField("actionType", action.Type()).Warning("Failed to broadcast store payload")
	}
}

func (s *Server) requireShepherd(eventID, userID int) error {
	if _, err := state.GetEvent(s.db.GetDB(), eventID); err != nil {
		return err
	}
	isShepherd, err := state.HasRole(s.db.GetDB(), state.RoleShepherd, eventID, userID)
	if err != nil {
		return err
	}
	if !isShepherd {
		return fmt.Errorf("%w: user %d is not a shepherd of event %d", errForbidden, userID, eventID)
	}
	return nil
}

type eventQuery func(q sqlx.Queryer, userID int) ([]types.Event, error)

// handleEventList serves one of the per-user event lists.
func (s *Server) handleEventList(query eventQuery) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := auth.UserIDFromContext(r.Context())
		if err != nil {
			httputils.HandleAPIResponse(w, r, nil, err, http.StatusUnauthorized)
			return
		}
		events, err := query(s.db.GetDB(), userID)
		httputils.HandleAPIResponse(w, r, types.EventsResponse{Events: events}, err, statusForError(err))
	}
}

// handleCreateEvent creates an event with the caller as its first shepherd.
func (s *Server) handleCreateEvent(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.UserIDFromContext(r.Context())
	if err != nil {
		httputils.HandleAPIResponse(w, r, nil, err, http.StatusUnauthorized)
		return
	}
	var event types.Event
	if err := httputils.DecodeJSONBody(r, &event); err != nil {
		httputils.HandleAPIResponse(w, r, nil, fmt.Errorf("error parsing request: %v", err), http.StatusBadRequest)
		return
	}

	action := state.NewCreateEventAction(event, userID)
	if err := s.dispatch(r, action); err != nil {
		httputils.HandleAPIResponse(w, r, nil, err, statusForError(err))
		return
	}
	created, err := state.GetEvent(s.db.GetDB(), action.EventID)
	if err != nil {
		httputils.HandleAPIResponse(w, r, nil, err, statusForError(err))
		return
	}
	s.publish(r.Context(), store.EventCreated{Event: *created})
	httputils.HandleAPIResponse(w, r, created, nil, http.StatusCreated)
}

func (s *Server) handleGetEvent(w http.ResponseWriter, r *http.Request) {
	eventID, err := intParam(r, "id")
	if err != nil {
		httputils.HandleAPIResponse(w, r, nil, err, statusForError(err))
		return
	}
	event, err := state.GetEvent(s.db.GetDB(), eventID)
	httputils.HandleAPIResponse(w, r, event, err, statusForError(err))
}

// handleDeleteEvent removes an event and everything attached to it. Only a
// shepherd of the event may delete it.
func (s *Server) handleDeleteEvent(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.UserIDFromContext(r.Context())
	if err != nil {
		httputils.HandleAPIResponse(w, r, nil, err, http.StatusUnauthorized)
		return
	}
	eventID, err := intParam(r, "id")
	if err != nil {
		httputils.HandleAPIResponse(w, r, nil, err, statusForError(err))
		return
	}
	if err := s.requireShepherd(eventID, userID); err != nil {
		httputils.HandleAPIResponse(w, r, nil, err, statusForError(err))
		return
	}
	event, err := state.GetEvent(s.db.GetDB(), eventID)
	if err != nil {
		httputils.HandleAPIResponse(w, r, nil, err, statusForError(err))
		return
	}

	if err := s.dispatch(r, state.NewDeleteEventAction(eventID)); err != nil {
		httputils.HandleAPIResponse(w, r, nil, err, statusForError(err))
		return
	}
	s.publish(r.Context(), store.EventDeleted{Event: *event})
	httputils.HandleAPIResponse(w, r, event, nil, http.StatusOK)
}
