// Package schedule holds the pure booking calculations: strict-overlap
// conflict detection and recurrence expansion. Nothing here touches state.
package schedule

import "roombook/internal/model"

// FindConflicts returns every existing booking on the room whose interval
// overlaps the candidate. Room names match case-insensitively; the booking
// with excludeID is skipped so a reschedule is not checked against itself.
// Results keep the insertion order of the source collection.
func FindConflicts(existing []model.Booking, roomName string, candidate model.TimeInterval, excludeID string) []model.Booking {
	var conflicts []model.Booking
	for _, booking := range existing {
		if !booking.InRoom(roomName) {
			continue
		}
		if excludeID != "" && booking.ID == excludeID {
			continue
		}
		if booking.Interval().Overlaps(candidate) {
			conflicts = append(conflicts, booking)
		}
	}
	return conflicts
}

// FindAllConflicts unions conflicts across a batch of candidate intervals.
// A booking that collides with several candidates appears once, in the
// insertion order of the source collection.
func FindAllConflicts(existing []model.Booking, roomName string, candidates []model.TimeInterval, excludeID string) []model.Booking {
	seen := make(map[string]bool)
	var conflicts []model.Booking
	for _, candidate := range candidates {
		for _, booking := range FindConflicts(existing, roomName, candidate, excludeID) {
			if seen[booking.ID] {
				continue
			}
			seen[booking.ID] = true
			conflicts = append(conflicts, booking)
		}
	}
	return conflicts
}
