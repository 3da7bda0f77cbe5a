package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"roombook/internal/model"
)

// Common error codes returned in API responses.
const (
	errBadRequest   = "bad_request"
	errValidation   = "validation_error"
	errUnauthorized = "unauthorized"
	errForbidden    = "forbidden"
	errNotFound     = "not_found"
	errConflict     = "conflict"
	errInvariant    = "invariant_violation"
	errInternal     = "internal_error"
)

// errorResponse is the standardized API error body.
type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Error: code, Message: message})
}

func writeErrorWithDetails(w http.ResponseWriter, status int, code, message string, details any) {
	writeJSON(w, status, errorResponse{Error: code, Message: message, Details: details})
}

// writeDomainError maps the directory's error taxonomy onto HTTP statuses.
// Conflict responses carry the colliding booking IDs so clients can offer
// delete-and-retry remediation.
func writeDomainError(w http.ResponseWriter, err error) {
	var conflict *model.ConflictError
	switch {
	case model.IsValidation(err):
		writeError(w, http.StatusBadRequest, errValidation, err.Error())
	case model.IsPermission(err):
		writeError(w, http.StatusForbidden, errForbidden, err.Error())
	case model.IsNotFound(err):
		writeError(w, http.StatusNotFound, errNotFound, err.Error())
	case asConflict(err, &conflict):
		writeErrorWithDetails(w, http.StatusConflict, errConflict, err.Error(), map[string]any{
			"room":        conflict.RoomName,
			"booking_ids": conflict.BookingIDs(),
		})
	case model.IsInvariant(err):
		writeError(w, http.StatusConflict, errInvariant, err.Error())
	case model.IsStorage(err):
		writeError(w, http.StatusInternalServerError, errInternal, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, errInternal, err.Error())
	}
}

func asConflict(err error, target **model.ConflictError) bool {
	return errors.As(err, target)
}
