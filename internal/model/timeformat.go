package model

import (
	"strings"
	"time"
)

// Wire formats for values exchanged with front ends. All date-times are
// naive local times; the service has no timezone handling.
const (
	DateTimeFormat = "2006-01-02 15:04"
	DateFormat     = "2006-01-02"
	ClockFormat    = "15:04"
)

// ParseDateTime parses "YYYY-MM-DD HH:MM" in local time.
func ParseDateTime(s string) (time.Time, error) {
	t, err := time.ParseInLocation(DateTimeFormat, strings.TrimSpace(s), time.Local)
	if err != nil {
		return time.Time{}, &ValidationError{Field: "datetime", Message: "expected format " + DateTimeFormat}
	}
	return t, nil
}

// ParseDate parses a bare "YYYY-MM-DD" date in local time.
func ParseDate(s string) (time.Time, error) {
	t, err := time.ParseInLocation(DateFormat, strings.TrimSpace(s), time.Local)
	if err != nil {
		return time.Time{}, &ValidationError{Field: "date", Message: "expected format " + DateFormat}
	}
	return t, nil
}

// ParseClock parses a 24-hour "HH:MM" time of day.
func ParseClock(s string) (time.Time, error) {
	t, err := time.Parse(ClockFormat, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, &ValidationError{Field: "time", Message: "expected format " + ClockFormat}
	}
	return t, nil
}

var weekdayTokens = map[string]time.Weekday{
	"MON": time.Monday,
	"TUE": time.Tuesday,
	"WED": time.Wednesday,
	"THU": time.Thursday,
	"FRI": time.Friday,
	"SAT": time.Saturday,
	"SUN": time.Sunday,
}

// ParseWeekdays converts a comma-separated day list into a weekday set.
// Besides the three-letter day names it accepts two shorthands: WEEKDAYS
// (Monday through Friday) and DAILY (every day).
func ParseWeekdays(s string) ([]time.Weekday, error) {
	seen := make(map[time.Weekday]bool)
	var days []time.Weekday
	add := func(d time.Weekday) {
		if !seen[d] {
			seen[d] = true
			days = append(days, d)
		}
	}

	for _, raw := range strings.Split(s, ",") {
		token := strings.ToUpper(strings.TrimSpace(raw))
		if token == "" {
			continue
		}
		switch token {
		case "WEEKDAYS":
			for d := time.Monday; d <= time.Friday; d++ {
				add(d)
			}
		case "DAILY":
			for d := time.Sunday; d <= time.Saturday; d++ {
				add(d)
			}
		default:
			day, ok := weekdayTokens[token]
			if !ok {
				return nil, &ValidationError{Field: "days", Message: "unknown day token: " + token}
			}
			add(day)
		}
	}

	if len(days) == 0 {
		return nil, &ValidationError{Field: "days", Message: "at least one day must be specified"}
	}
	return days, nil
}
