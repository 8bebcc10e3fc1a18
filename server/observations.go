package server

import (
	"fmt"
	"net/http"

	"github.com/VacantAardvark/joseki/applib/auth"
	"github.com/VacantAardvark/joseki/applib/httputils"
	"github.com/VacantAardvark/joseki/state"
	"github.com/VacantAardvark/joseki/types"
)

func (s *Server) handleListObservations(w http.ResponseWriter, r *http.Request) {
	eventID, err := intParam(r, "id")
	if err != nil {
		httputils.HandleAPIResponse(w, r, nil, err, statusForError(err))
		return
	}
	if _, err := state.GetEvent(s.db.GetDB(), eventID); err != nil {
		httputils.HandleAPIResponse(w, r, nil, err, statusForError(err))
		return
	}
	observations, err := state.GetObservationsForEvent(s.db.GetDB(), eventID)
	httputils.HandleAPIResponse(w, r, types.ObservationsResponse{Observations: observations}, err, statusForError(err))
}

// handleAddObservation records a note on the event authored by the caller.
func (s *Server) handleAddObservation(w http.ResponseWriter, r *http.Request) {
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
	var request types.CreateObservationRequest
	if err := httputils.DecodeJSONBody(r, &request); err != nil {
		httputils.HandleAPIResponse(w, r, nil, fmt.Errorf("error parsing request: %v", err), http.StatusBadRequest)
		return
	}

	action := state.NewAddObservationAction(eventID, userID, request.Content)
	if err := s.dispatch(r, action); err != nil {
		httputils.HandleAPIResponse(w, r, nil, err, statusForError(err))
		return
	}
	observation, err := state.GetObservation(s.db.GetDB(), action.ObservationID)
	if err != nil {
		httputils.HandleAPIResponse(w, r, nil, err, statusForError(err))
		return
	}
	httputils.HandleAPIResponse(w, r, observation, nil, http.StatusCreated)
}

// handleSetObservationCompleted may be called by the observation's author or
// a shepherd of its event.
func (s *Server) handleSetObservationCompleted(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.UserIDFromContext(r.Context())
	if err != nil {
		httputils.HandleAPIResponse(w, r, nil, err, http.StatusUnauthorized)
		return
	}
	observationID, err := intParam(r, "id")
	if err != nil {
		httputils.HandleAPIResponse(w, r, nil, err, statusForError(err))
		return
	}
	var request types.SetCompletedRequest
	if err := httputils.DecodeJSONBody(r, &request); err != nil {
		httputils.HandleAPIResponse(w, r, nil, fmt.Errorf("error parsing request: %v", err), http.StatusBadRequest)
		return
	}

	observation, err := state.GetObservation(s.db.GetDB(), observationID)
	if err != nil {
		httputils.HandleAPIResponse(w, r, nil, err, statusForError(err))
		return
	}
	if observation.UserID != userID {
		if err := s.requireShepherd(observation.EventID, userID); err != nil {
			httputils.HandleAPIResponse(w, r, nil, err, statusForError(err))
			return
		}
	}

	if err := s.dispatch(r, state.NewSetObservationCompletedAction(observationID, request.Completed)); err != nil {
		httputils.HandleAPIResponse(w, r, nil, err, statusForError(err))
		return
	}
	observation, err = state.GetObservation(s.db.GetDB(), observationID)
	httputils.HandleAPIResponse(w, r, observation, err, statusForError(err))
}
