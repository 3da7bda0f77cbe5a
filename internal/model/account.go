package model

import "strings"

// Role identifies the permission level of an account.
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleScheduler Role = "scheduler"
	RoleUser      Role = "user"
	RoleGuest     Role = "guest"
)

// Capabilities holds the permission flags granted to a role.
type Capabilities struct {
	ManageAccounts    bool
	ManageRooms       bool
	ManageAllBookings bool
	ViewSchedules     bool
	CreateBookings    bool
}

// roleCapabilities is the fixed permission table. Guests are view-only and
// cannot create bookings; schedulers manage rooms and every booking but not
// accounts.
var roleCapabilities = map[Role]Capabilities{
	RoleAdmin:     {ManageAccounts: true, ManageRooms: true, ManageAllBookings: true, ViewSchedules: true, CreateBookings: true},
	RoleScheduler: {ManageRooms: true, ManageAllBookings: true, ViewSchedules: true, CreateBookings: true},
	RoleUser:      {ViewSchedules: true, CreateBookings: true},
	RoleGuest:     {ViewSchedules: true},
}

// Valid reports whether the role is one of the recognized values.
func (r Role) Valid() bool {
	_, ok := roleCapabilities[r]
	return ok
}

// Capabilities returns the permission flags for the role. Unknown roles get
// an empty capability set.
func (r Role) Capabilities() Capabilities {
	return roleCapabilities[r]
}

// ParseRole converts a user-supplied role name, case-insensitively.
func ParseRole(s string) (Role, error) {
	role := Role(strings.ToLower(strings.TrimSpace(s)))
	if !role.Valid() {
		return "", &ValidationError{Field: "role", Message: "unknown role: " + s}
	}
	return role, nil
}

// Account is a login identity. Usernames are unique case-insensitively.
// The password is an opaque credential compared by equality; hardening it is
// out of scope for this service.
type Account struct {
	Username string `json:"username"`
	Password string `json:"-"`
	Role     Role   `json:"role"`
}

// HasUsername matches the account name case-insensitively.
func (a Account) HasUsername(username string) bool {
	return strings.EqualFold(a.Username, username)
}

// VerifyPassword checks the opaque credential by exact comparison.
func (a Account) VerifyPassword(password string) bool {
	return a.Password == password
}
