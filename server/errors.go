package server

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/VacantAardvark/joseki/applib/database"
	"github.com/VacantAardvark/joseki/state"
)

var (
	errForbidden  = errors.New("forbidden")
	errBadRequest = errors.New("bad request")
)

// statusForError maps state and action log errors onto HTTP status codes. A
// nil error is 200.
func statusForError(err error) int {
	var duplicate *database.DuplicateActionError
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, errBadRequest), errors.Is(err, state.ErrInvalidAction):
		return http.StatusBadRequest
	case errors.Is(err, errForbidden):
		return http.StatusForbidden
	case errors.Is(err, state.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, state.ErrEventFull), errors.Is(err, state.ErrLastShepherd), errors.As(err, &duplicate):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func intParam(r *http.Request, name string) (int, error) {
	value, err := strconv.Atoi(chi.URLParam(r, name))
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer", errBadRequest, name)
	}
	return value, nil
}
