package model

import "strings"

// Room is a bookable room. Names are unique case-insensitively. Capacity is
// informational and never enforced against bookings.
type Room struct {
	Name        string `json:"name"`
	Capacity    int    `json:"capacity"`
	Description string `json:"description"`
}

// HasName matches the room name case-insensitively.
func (r Room) HasName(name string) bool {
	return strings.EqualFold(r.Name, name)
}

// ValidateRoom checks user-supplied room attributes.
func ValidateRoom(name string, capacity int) error {
	if strings.TrimSpace(name) == "" {
		return &ValidationError{Field: "name", Message: "room name must not be empty"}
	}
	if capacity < 0 {
		return &ValidationError{Field: "capacity", Message: "capacity must not be negative"}
	}
	return nil
}
