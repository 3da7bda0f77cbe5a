// Package store persists the three entity collections in SQLite. The
// directory treats it as an opaque collaborator: loads at startup, one
// atomic PersistAll per successful mutation.
package store

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"roombook/internal/model"
)

// SQLite stores accounts, rooms, and bookings in a single database file.
type SQLite struct {
	db   *sql.DB
	path string
}

// Open opens the database at path and creates tables when missing.
func Open(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	if err := createTables(db); err != nil {
		return nil, err
	}
	return &SQLite{db: db, path: path}, nil
}

// Close closes the underlying database.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// Ping verifies the database connection.
func (s *SQLite) Ping() error {
	return s.db.Ping()
}

// Path returns the database file location.
func (s *SQLite) Path() string {
	return s.path
}

func createTables(db *sql.DB) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS accounts (
			username TEXT PRIMARY KEY COLLATE NOCASE,
			password TEXT NOT NULL,
			role TEXT NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS rooms (
			name TEXT PRIMARY KEY COLLATE NOCASE,
			capacity INTEGER NOT NULL DEFAULT 0,
			description TEXT
		)`,

		// position keeps the directory's insertion order stable across
		// reloads; conflict reporting depends on it.
		`CREATE TABLE IF NOT EXISTS bookings (
			id TEXT PRIMARY KEY,
			room_name TEXT NOT NULL,
			start_time TEXT NOT NULL,
			end_time TEXT NOT NULL,
			owner TEXT NOT NULL,
			position INTEGER NOT NULL
		)`,

		`CREATE INDEX IF NOT EXISTS idx_bookings_room ON bookings(room_name, start_time, end_time)`,
	}

	for _, q := range queries {
		if _, err := db.Exec(q); err != nil {
			return fmt.Errorf("exec migration %s: %w", trimSQL(q), err)
		}
	}
	return nil
}

func trimSQL(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > 60 {
		return s[:60] + "..."
	}
	return s
}

// LoadAccounts returns all accounts, empty when none exist.
func (s *SQLite) LoadAccounts() ([]model.Account, error) {
	rows, err := s.db.Query("SELECT username, password, role FROM accounts ORDER BY rowid")
	if err != nil {
		return nil, fmt.Errorf("query accounts: %w", err)
	}
	defer rows.Close()

	accounts := []model.Account{}
	for rows.Next() {
		var a model.Account
		var role string
		if err := rows.Scan(&a.Username, &a.Password, &role); err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		a.Role = model.Role(role)
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

// LoadRooms returns all rooms, empty when none exist.
func (s *SQLite) LoadRooms() ([]model.Room, error) {
	rows, err := s.db.Query("SELECT name, capacity, description FROM rooms ORDER BY rowid")
	if err != nil {
		return nil, fmt.Errorf("query rooms: %w", err)
	}
	defer rows.Close()

	rooms := []model.Room{}
	for rows.Next() {
		var r model.Room
		if err := rows.Scan(&r.Name, &r.Capacity, &r.Description); err != nil {
			return nil, fmt.Errorf("scan room: %w", err)
		}
		rooms = append(rooms, r)
	}
	return rooms, rows.Err()
}

// LoadBookings returns all bookings in their original insertion order.
func (s *SQLite) LoadBookings() ([]model.Booking, error) {
	rows, err := s.db.Query("SELECT id, room_name, start_time, end_time, owner FROM bookings ORDER BY position")
	if err != nil {
		return nil, fmt.Errorf("query bookings: %w", err)
	}
	defer rows.Close()

	bookings := []model.Booking{}
	for rows.Next() {
		var b model.Booking
		var start, end string
		if err := rows.Scan(&b.ID, &b.RoomName, &start, &end, &b.Owner); err != nil {
			return nil, fmt.Errorf("scan booking: %w", err)
		}
		if b.Start, err = time.Parse(time.RFC3339, start); err != nil {
			return nil, fmt.Errorf("parse booking start: %w", err)
		}
		if b.End, err = time.Parse(time.RFC3339, end); err != nil {
			return nil, fmt.Errorf("parse booking end: %w", err)
		}
		b.Start = b.Start.Local()
		b.End = b.End.Local()
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}

// PersistAll replaces the three collections in one transaction: either all
// of them are durably updated or none are.
func (s *SQLite) PersistAll(accounts []model.Account, rooms []model.Room, bookings []model.Booking) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"accounts", "rooms", "bookings"} {
		if _, err := tx.Exec("DELETE FROM " + table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	for _, a := range accounts {
		if _, err := tx.Exec(
			"INSERT INTO accounts (username, password, role) VALUES (?, ?, ?)",
			a.Username, a.Password, string(a.Role),
		); err != nil {
			return fmt.Errorf("insert account %s: %w", a.Username, err)
		}
	}
	for _, r := range rooms {
		if _, err := tx.Exec(
			"INSERT INTO rooms (name, capacity, description) VALUES (?, ?, ?)",
			r.Name, r.Capacity, r.Description,
		); err != nil {
			return fmt.Errorf("insert room %s: %w", r.Name, err)
		}
	}
	for i, b := range bookings {
		if _, err := tx.Exec(
			"INSERT INTO bookings (id, room_name, start_time, end_time, owner, position) VALUES (?, ?, ?, ?, ?, ?)",
			b.ID, b.RoomName, b.Start.Format(time.RFC3339), b.End.Format(time.RFC3339), b.Owner, i,
		); err != nil {
			return fmt.Errorf("insert booking %s: %w", b.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
