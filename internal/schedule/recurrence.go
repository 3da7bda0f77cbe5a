package schedule

import (
	"time"

	"roombook/internal/model"
)

// DefaultHorizonWeeks bounds open-ended recurrences: when no end date is
// given, occurrences are generated for this many weeks from the start date.
const DefaultHorizonWeeks = 26

// RecurrenceSpec describes a weekly-repeating booking request. EndDate nil
// means open-ended; expansion then substitutes the configured horizon.
type RecurrenceSpec struct {
	StartDate time.Time
	EndDate   *time.Time
	StartTime time.Time // clock template, date part ignored
	EndTime   time.Time
	Days      []time.Weekday
}

// Expand walks every calendar date from the start date to the effective end
// date inclusive and emits one interval per date whose weekday is selected,
// in ascending date order. horizonWeeks <= 0 falls back to
// DefaultHorizonWeeks.
func Expand(spec RecurrenceSpec, horizonWeeks int) ([]model.TimeInterval, error) {
	startClock := clockOf(spec.StartTime)
	endClock := clockOf(spec.EndTime)
	if startClock >= endClock {
		return nil, &model.ValidationError{Field: "time", Message: "start time must be before end time"}
	}
	if len(spec.Days) == 0 {
		return nil, &model.ValidationError{Field: "days", Message: "at least one day of week must be selected"}
	}

	if horizonWeeks <= 0 {
		horizonWeeks = DefaultHorizonWeeks
	}
	startDate := truncateToDate(spec.StartDate)
	endDate := startDate.AddDate(0, 0, 7*horizonWeeks)
	if spec.EndDate != nil {
		endDate = truncateToDate(*spec.EndDate)
		if endDate.Before(startDate) {
			return nil, &model.ValidationError{Field: "end_date", Message: "end date cannot be before start date"}
		}
	}

	selected := make(map[time.Weekday]bool, len(spec.Days))
	for _, day := range spec.Days {
		selected[day] = true
	}

	var intervals []model.TimeInterval
	for cursor := startDate; !cursor.After(endDate); cursor = cursor.AddDate(0, 0, 1) {
		if !selected[cursor.Weekday()] {
			continue
		}
		intervals = append(intervals, model.TimeInterval{
			Start: atClock(cursor, spec.StartTime),
			End:   atClock(cursor, spec.EndTime),
		})
	}

	if len(intervals) == 0 {
		return nil, &model.ValidationError{Field: "recurrence", Message: "no occurrences generated; check selected days and date range"}
	}
	return intervals, nil
}

func truncateToDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// clockOf flattens a time of day to minutes since midnight for comparison.
func clockOf(t time.Time) int {
	return t.Hour()*60 + t.Minute()
}

func atClock(date, clock time.Time) time.Time {
	return time.Date(date.Year(), date.Month(), date.Day(), clock.Hour(), clock.Minute(), 0, 0, date.Location())
}
