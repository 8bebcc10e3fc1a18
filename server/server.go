// Package server exposes the joseki state over an HTTP JSON API.
package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/VacantAardvark/joseki/applib/auth"
	"github.com/VacantAardvark/joseki/applib/database"
	"github.com/VacantAardvark/joseki/broadcast"
	"github.com/VacantAardvark/joseki/state"
)

const ClientIDHeader = "X-Client-Id"

type Options struct {
	// PollTimeout bounds how long /api/poll waits for a new action.
	PollTimeout time.Duration
	CORSOrigins []string
}

type Server struct {
	db          *database.Database
	issuer      *auth.Issuer
	broadcaster broadcast.Broadcaster
	opts        Options
}

// New returns a server for an initialized database.
func New(db *database.Database, issuer *auth.Issuer, broadcaster broadcast.Broadcaster, opts Options) *Server {
	if opts.PollTimeout <= 0 {
		opts.PollTimeout = 50 * time.Second
	}
	if len(opts.CORSOrigins) == 0 {
		opts.CORSOrigins = []string{"*"}
	}
	return &Server{
		db:          db,
		issuer:      issuer,
		broadcaster: broadcaster,
		opts:        opts,
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(MetricsMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.opts.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", ClientIDHeader},
		MaxAge:         300,
	}))

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Get("/poll", s.handlePoll)
		r.Post("/login", s.handleLogin)

		r.Group(func(r chi.Router) {
			r.Use(s.issuer.RequireUser)

			r.Get("/me", s.handleMe)
			r.Get("/users", s.handleListUsers)
			r.Get("/calendar.ics", s.handleCalendar)

			r.Get("/events/shepherd", s.handleEventList(state.GetEventsByShepherd))
			r.Get("/events/not-shepherd", s.handleEventList(state.GetEventsNotByShepherd))
			r.Get("/events/sheep", s.handleEventList(state.GetEventsBySheep))
			r.Post("/events", s.handleCreateEvent)

			r.Route("/events/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetEvent)
				r.Delete("/", s.handleDeleteEvent)

				r.Get("/shepherds", s.handleListMembers(state.RoleShepherd))
				r.Put("/shepherds/{userId}", s.handleAddMember(state.RoleShepherd))
				r.Delete("/shepherds/{userId}", s.handleRemoveMember(state.RoleShepherd))

				r.Get("/sheep", s.handleListMembers(state.RoleSheep))
				r.Put("/sheep/{userId}", s.handleAddMember(state.RoleSheep))
				r.Delete("/sheep/{userId}", s.handleRemoveMember(state.RoleSheep))

				r.Get("/observations", s.handleListObservations)
				r.Post("/observations", s.handleAddObservation)
			})

			r.Put("/observations/{id}/completed", s.handleSetObservationCompleted)
		})
	})
	return r
}
