// Package api exposes the booking directory over HTTP. It is one of the
// front-end collaborators the directory was designed for: every handler
// authenticates the caller, translates the wire format, and delegates to
// directory operations.
package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"roombook/internal/directory"
	"roombook/internal/model"
)

// Server routes HTTP requests to directory operations.
type Server struct {
	dir          *directory.Directory
	horizonWeeks int
	limiter      *rate.Limiter
	logger       zerolog.Logger
}

// Options configures the API server.
type Options struct {
	// RecurrenceHorizonWeeks bounds open-ended recurring requests.
	RecurrenceHorizonWeeks int
	// RateLimit is requests per second across the API; zero disables it.
	RateLimit float64
	RateBurst int
}

// NewServer creates an API server over the directory.
func NewServer(dir *directory.Directory, opts Options, logger zerolog.Logger) *Server {
	return &Server{
		dir:          dir,
		horizonWeeks: opts.RecurrenceHorizonWeeks,
		limiter:      newLimiter(opts.RateLimit, opts.RateBurst),
		logger:       logger.With().Str("component", "api").Logger(),
	}
}

// Router builds the request router.
func (s *Server) Router() http.Handler {
	r := mux.NewRouter()
	r.Use(s.recoverPanics, s.logRequests, s.rateLimit)

	api := r.PathPrefix("/api").Subrouter()

	api.HandleFunc("/login", s.handleLogin).Methods("POST")

	api.HandleFunc("/accounts", s.withActor(s.handleListAccounts)).Methods("GET")
	api.HandleFunc("/accounts", s.withActor(s.handleCreateAccount)).Methods("POST")
	api.HandleFunc("/accounts/{username}", s.withActor(s.handleDeleteAccount)).Methods("DELETE")

	api.HandleFunc("/rooms", s.handleListRooms).Methods("GET")
	api.HandleFunc("/rooms", s.withActor(s.handleCreateRoom)).Methods("POST")
	api.HandleFunc("/rooms/{name}", s.withActor(s.handleUpdateRoom)).Methods("PUT")
	api.HandleFunc("/rooms/{name}", s.withActor(s.handleDeleteRoom)).Methods("DELETE")

	api.HandleFunc("/bookings", s.withActor(s.handleListBookings)).Methods("GET")
	api.HandleFunc("/bookings", s.withActor(s.handleCreateBooking)).Methods("POST")
	api.HandleFunc("/bookings/recurring", s.withActor(s.handleCreateRecurringBookings)).Methods("POST")
	api.HandleFunc("/bookings/{id}", s.withActor(s.handleUpdateBooking)).Methods("PUT")
	api.HandleFunc("/bookings/{id}", s.withActor(s.handleCancelBooking)).Methods("DELETE")

	api.HandleFunc("/conflicts", s.withActor(s.handleFindConflicts)).Methods("POST")
	api.HandleFunc("/export/schedule.xlsx", s.withActor(s.handleExportSchedule)).Methods("GET")

	return r
}

// actorHandler is a handler that requires an authenticated account.
type actorHandler func(w http.ResponseWriter, r *http.Request, actor model.Account)

// withActor resolves HTTP Basic credentials through the directory. The
// username matches case-insensitively, the password exactly.
func (s *Server) withActor(next actorHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		username, password, ok := r.BasicAuth()
		if !ok {
			w.Header().Set("WWW-Authenticate", `Basic realm="roombook"`)
			writeError(w, http.StatusUnauthorized, errUnauthorized, "credentials required")
			return
		}
		actor, ok := s.dir.Authenticate(username, password)
		if !ok {
			w.Header().Set("WWW-Authenticate", `Basic realm="roombook"`)
			writeError(w, http.StatusUnauthorized, errUnauthorized, "invalid username or password")
			return
		}
		next(w, r, actor)
	}
}
