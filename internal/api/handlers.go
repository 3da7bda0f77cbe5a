package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"roombook/internal/export"
	"roombook/internal/model"
	"roombook/internal/schedule"
)

// accountResponse is an account without its credential.
type accountResponse struct {
	Username string `json:"username"`
	Role     string `json:"role"`
}

// bookingResponse uses the front-end wire format for date-times.
type bookingResponse struct {
	ID       string `json:"id"`
	RoomName string `json:"room_name"`
	Start    string `json:"start"`
	End      string `json:"end"`
	Owner    string `json:"owner"`
}

func toAccountResponse(a model.Account) accountResponse {
	return accountResponse{Username: a.Username, Role: string(a.Role)}
}

func toBookingResponse(b model.Booking) bookingResponse {
	return bookingResponse{
		ID:       b.ID,
		RoomName: b.RoomName,
		Start:    b.Start.Format(model.DateTimeFormat),
		End:      b.End.Format(model.DateTimeFormat),
		Owner:    b.Owner,
	}
}

func toBookingResponses(bookings []model.Booking) []bookingResponse {
	out := make([]bookingResponse, len(bookings))
	for i, b := range bookings {
		out[i] = toBookingResponse(b)
	}
	return out
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, errBadRequest, "invalid request body")
		return
	}
	account, ok := s.dir.Authenticate(req.Username, req.Password)
	if !ok {
		writeError(w, http.StatusUnauthorized, errUnauthorized, "invalid username or password")
		return
	}
	writeJSON(w, http.StatusOK, toAccountResponse(account))
}

func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request, actor model.Account) {
	accounts, err := s.dir.ListAccounts(actor)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	out := make([]accountResponse, len(accounts))
	for i, a := range accounts {
		out[i] = toAccountResponse(a)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateAccount(w http.ResponseWriter, r *http.Request, actor model.Account) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
		Role     string `json:"role"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, errBadRequest, "invalid request body")
		return
	}
	role, err := model.ParseRole(req.Role)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	account, err := s.dir.CreateAccount(actor, req.Username, req.Password, role)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toAccountResponse(account))
}

func (s *Server) handleDeleteAccount(w http.ResponseWriter, r *http.Request, actor model.Account) {
	username := mux.Vars(r)["username"]
	if err := s.dir.DeleteAccount(actor, username); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListRooms(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.dir.ListRooms())
}

func (s *Server) handleCreateRoom(w http.ResponseWriter, r *http.Request, actor model.Account) {
	var req struct {
		Name        string `json:"name"`
		Capacity    int    `json:"capacity"`
		Description string `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, errBadRequest, "invalid request body")
		return
	}
	room, err := s.dir.CreateRoom(actor, req.Name, req.Capacity, req.Description)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, room)
}

func (s *Server) handleUpdateRoom(w http.ResponseWriter, r *http.Request, actor model.Account) {
	name := mux.Vars(r)["name"]
	var req struct {
		Capacity    int    `json:"capacity"`
		Description string `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, errBadRequest, "invalid request body")
		return
	}
	room, err := s.dir.UpdateRoom(actor, name, req.Capacity, req.Description)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, room)
}

func (s *Server) handleDeleteRoom(w http.ResponseWriter, r *http.Request, actor model.Account) {
	name := mux.Vars(r)["name"]
	if err := s.dir.DeleteRoom(actor, name); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListBookings(w http.ResponseWriter, r *http.Request, actor model.Account) {
	bookings, err := s.dir.ListBookings(actor)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toBookingResponses(bookings))
}

func (s *Server) handleCreateBooking(w http.ResponseWriter, r *http.Request, actor model.Account) {
	var req struct {
		RoomName string `json:"room_name"`
		Start    string `json:"start"`
		End      string `json:"end"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, errBadRequest, "invalid request body")
		return
	}
	interval, err := parseInterval(req.Start, req.End)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	booking, err := s.dir.CreateBooking(actor, req.RoomName, interval)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toBookingResponse(booking))
}

func (s *Server) handleCreateRecurringBookings(w http.ResponseWriter, r *http.Request, actor model.Account) {
	var req struct {
		RoomName  string `json:"room_name"`
		StartDate string `json:"start_date"`
		EndDate   string `json:"end_date"` // empty means open-ended
		StartTime string `json:"start_time"`
		EndTime   string `json:"end_time"`
		Days      string `json:"days"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, errBadRequest, "invalid request body")
		return
	}

	spec, err := parseRecurrence(req.StartDate, req.EndDate, req.StartTime, req.EndTime, req.Days)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	intervals, err := schedule.Expand(spec, s.horizonWeeks)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	bookings, err := s.dir.CreateBookings(actor, req.RoomName, intervals)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toBookingResponses(bookings))
}

func (s *Server) handleUpdateBooking(w http.ResponseWriter, r *http.Request, actor model.Account) {
	id := mux.Vars(r)["id"]
	var req struct {
		Start string `json:"start"`
		End   string `json:"end"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, errBadRequest, "invalid request body")
		return
	}
	interval, err := parseInterval(req.Start, req.End)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	booking, err := s.dir.UpdateBooking(actor, id, interval)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toBookingResponse(booking))
}

func (s *Server) handleCancelBooking(w http.ResponseWriter, r *http.Request, actor model.Account) {
	id := mux.Vars(r)["id"]
	if err := s.dir.CancelBooking(actor, id); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleFindConflicts(w http.ResponseWriter, r *http.Request, actor model.Account) {
	var req struct {
		RoomName  string `json:"room_name"`
		ExcludeID string `json:"exclude_id"`
		Intervals []struct {
			Start string `json:"start"`
			End   string `json:"end"`
		} `json:"intervals"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, errBadRequest, "invalid request body")
		return
	}
	intervals := make([]model.TimeInterval, 0, len(req.Intervals))
	for _, in := range req.Intervals {
		interval, err := parseInterval(in.Start, in.End)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		intervals = append(intervals, interval)
	}
	conflicts, err := s.dir.FindConflicts(req.RoomName, intervals, req.ExcludeID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toBookingResponses(conflicts))
}

func (s *Server) handleExportSchedule(w http.ResponseWriter, r *http.Request, actor model.Account) {
	bookings, err := s.dir.ListBookings(actor)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	rooms := s.dir.ListRooms()

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="`+export.Filename(time.Now())+`"`)
	if err := export.WriteSchedule(w, rooms, bookings, nil); err != nil {
		s.logger.Error().Err(err).Msg("schedule export failed")
	}
}

func parseInterval(start, end string) (model.TimeInterval, error) {
	startAt, err := model.ParseDateTime(start)
	if err != nil {
		return model.TimeInterval{}, err
	}
	endAt, err := model.ParseDateTime(end)
	if err != nil {
		return model.TimeInterval{}, err
	}
	return model.NewTimeInterval(startAt, endAt)
}

func parseRecurrence(startDate, endDate, startTime, endTime, days string) (schedule.RecurrenceSpec, error) {
	var spec schedule.RecurrenceSpec
	var err error

	if spec.StartDate, err = model.ParseDate(startDate); err != nil {
		return spec, err
	}
	if endDate != "" {
		end, err := model.ParseDate(endDate)
		if err != nil {
			return spec, err
		}
		spec.EndDate = &end
	}
	if spec.StartTime, err = model.ParseClock(startTime); err != nil {
		return spec, err
	}
	if spec.EndTime, err = model.ParseClock(endTime); err != nil {
		return spec, err
	}
	if spec.Days, err = model.ParseWeekdays(days); err != nil {
		return spec, err
	}
	return spec, nil
}
