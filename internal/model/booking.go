package model

import (
	"strings"
	"time"
)

// TimeInterval is a half-open interval [Start, End). End is exclusive so
// back-to-back bookings never collide.
type TimeInterval struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// NewTimeInterval validates start < end strictly.
func NewTimeInterval(start, end time.Time) (TimeInterval, error) {
	if !start.Before(end) {
		return TimeInterval{}, &ValidationError{Field: "interval", Message: "start must be before end"}
	}
	return TimeInterval{Start: start, End: end}, nil
}

// Overlaps reports whether two intervals share any time. Intervals that
// merely touch at an endpoint do not overlap.
func (i TimeInterval) Overlaps(other TimeInterval) bool {
	return i.Start.Before(other.End) && other.Start.Before(i.End)
}

// Equal compares interval bounds by instant.
func (i TimeInterval) Equal(other TimeInterval) bool {
	return i.Start.Equal(other.Start) && i.End.Equal(other.End)
}

// Booking reserves one room for one interval. The ID is generated at
// creation and immutable; ownership never transfers.
type Booking struct {
	ID       string    `json:"id"`
	RoomName string    `json:"room_name"`
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
	Owner    string    `json:"owner"`
}

// Interval returns the booked time span.
func (b Booking) Interval() TimeInterval {
	return TimeInterval{Start: b.Start, End: b.End}
}

// IsOwnedBy matches the owner username case-insensitively.
func (b Booking) IsOwnedBy(username string) bool {
	return strings.EqualFold(b.Owner, username)
}

// InRoom matches the room reference case-insensitively.
func (b Booking) InRoom(roomName string) bool {
	return strings.EqualFold(b.RoomName, roomName)
}
