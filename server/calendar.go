package server

import (
	"fmt"
	"net/http"
	"time"

	ical "github.com/arran4/golang-ical"

	"github.com/VacantAardvark/joseki/applib/auth"
	"github.com/VacantAardvark/joseki/applib/httputils"
	"github.com/VacantAardvark/joseki/state"
	"github.com/VacantAardvark/joseki/types"
)

const calendarProductID = "-//joseki//events//EN"

// handleCalendar serves the events the caller shepherds or attends as an
// iCalendar feed. Calendar apps pass the access token as ?token=.
func (s *Server) handleCalendar(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.UserIDFromContext(r.Context())
	if err != nil {
		httputils.HandleAPIResponse(w, r, nil, err, http.StatusUnauthorized)
		return
	}
	shepherded, err := state.GetEventsByShepherd(s.db.GetDB(), userID)
	if err != nil {
		httputils.HandleAPIResponse(w, r, nil, err, statusForError(err))
		return
	}
	attending, err := state.GetEventsBySheep(s.db.GetDB(), userID)
	if err != nil {
		httputils.HandleAPIResponse(w, r, nil, err, statusForError(err))
		return
	}

	cal := buildCalendar(append(shepherded, attending...), time.Now())
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `inline; filename="joseki.ics"`)
	w.Write([]byte(cal.Serialize()))
}

// buildCalendar renders one VEVENT per distinct event. Events without a
// start time cannot be placed on a calendar and are left out.
func buildCalendar(events []types.Event, now time.Time) *ical.Calendar {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(calendarProductID)

	seen := make(map[int]bool, len(events))
	for _, event := range events {
		if seen[event.ID] || event.Start == nil {
			continue
		}
		seen[event.ID] = true

		vevent := cal.AddEvent(fmt.Sprintf("event-%d@joseki", event.ID))
		vevent.SetDtStampTime(now.UTC())
		vevent.SetSummary(event.EventName)
		vevent.SetStartAt(event.Start.UTC())
		if event.End != nil {
			vevent.SetEndAt(event.End.UTC())
		}
		if event.Location != "" {
			vevent.SetLocation(event.Location)
		}
		if event.Action != "" {
			vevent.SetDescription(event.Action)
		}
	}
	return cal
}
