// Package export renders the booking schedule as an Excel workbook, one
// worksheet per room.
package export

import (
	"fmt"
	"io"
	"sort"
	"time"

	"roombook/internal/model"
)

var scheduleColumns = []string{"Booking ID", "Date", "Start", "End", "Owner"}

// WriteSchedule writes one sheet per room with that room's bookings sorted
// by start time. Rooms without bookings still get a sheet with only the
// header so the workbook mirrors the whole catalogue.
func WriteSchedule(w io.Writer, rooms []model.Room, bookings []model.Booking, writerFactory func() ExcelWriter) error {
	if writerFactory == nil {
		writerFactory = NewExcelizeWriter
	}
	writer := writerFactory()
	defer writer.Close()

	if len(rooms) == 0 {
		if err := writer.AddSheet("Schedule"); err != nil {
			return err
		}
		if err := writer.WriteHeader(scheduleColumns); err != nil {
			return err
		}
		return writer.Save(w)
	}

	for _, room := range rooms {
		if err := writer.AddSheet(room.Name); err != nil {
			return fmt.Errorf("sheet for room %s: %w", room.Name, err)
		}
		if err := writer.WriteHeader(scheduleColumns); err != nil {
			return err
		}

		var roomBookings []model.Booking
		for _, booking := range bookings {
			if booking.InRoom(room.Name) {
				roomBookings = append(roomBookings, booking)
			}
		}
		sort.Slice(roomBookings, func(i, j int) bool {
			return roomBookings[i].Start.Before(roomBookings[j].Start)
		})

		for _, booking := range roomBookings {
			row := []interface{}{
				booking.ID,
				booking.Start.Format(model.DateFormat),
				booking.Start.Format(model.ClockFormat),
				booking.End.Format(model.ClockFormat),
				booking.Owner,
			}
			if err := writer.WriteRow(row); err != nil {
				return err
			}
		}
	}

	return writer.Save(w)
}

// Filename builds a dated workbook name like "schedule_2026-08-30.xlsx".
func Filename(t time.Time) string {
	return fmt.Sprintf("schedule_%s.xlsx", t.Format(model.DateFormat))
}
