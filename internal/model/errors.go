package model

import (
	"errors"
	"fmt"
	"strings"
)

// ValidationError reports malformed input. Recoverable by re-prompting.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// PermissionError reports that the acting account lacks a capability.
type PermissionError struct {
	Username string
	Action   string
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("insufficient permissions to %s", e.Action)
}

// ConflictError carries the bookings that collide with a requested interval
// so a caller can offer remediation instead of silently picking one.
type ConflictError struct {
	RoomName string
	Bookings []Booking
}

func (e *ConflictError) Error() string {
	ids := make([]string, len(e.Bookings))
	for i, b := range e.Bookings {
		ids[i] = b.ID
	}
	return fmt.Sprintf("requested slot conflicts with booking %s", strings.Join(ids, ", "))
}

// BookingIDs returns the colliding booking identifiers, in detection order.
func (e *ConflictError) BookingIDs() []string {
	ids := make([]string, len(e.Bookings))
	for i, b := range e.Bookings {
		ids[i] = b.ID
	}
	return ids
}

// NotFoundError reports a missing entity by kind and identifier.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.ID)
}

// InvariantError reports a mutation that would break a structural invariant,
// such as deleting the last admin account. Never forced.
type InvariantError struct {
	Message string
}

func (e *InvariantError) Error() string {
	return e.Message
}

// StorageError wraps a persistence failure. The caller must not assume the
// mutation took effect.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// IsValidation checks if err is a ValidationError.
func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

// IsPermission checks if err is a PermissionError.
func IsPermission(err error) bool {
	var target *PermissionError
	return errors.As(err, &target)
}

// IsConflict checks if err is a ConflictError.
func IsConflict(err error) bool {
	var target *ConflictError
	return errors.As(err, &target)
}

// IsNotFound checks if err is a NotFoundError.
func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

// IsInvariant checks if err is an InvariantError.
func IsInvariant(err error) bool {
	var target *InvariantError
	return errors.As(err, &target)
}

// IsStorage checks if err is a StorageError.
func IsStorage(err error) bool {
	var target *StorageError
	return errors.As(err, &target)
}
