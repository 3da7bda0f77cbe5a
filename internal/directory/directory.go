// Package directory implements the stateful booking core: in-memory
// collections of accounts, rooms, and bookings, mutated only after
// permission and conflict checks pass and persisted on every change.
package directory

import (
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"roombook/internal/events"
	"roombook/internal/metrics"
	"roombook/internal/model"
	"roombook/internal/schedule"
)

// Default credential seeded when no admin account exists. Deployments must
// change this password; the constructor logs a warning when it is created.
const (
	DefaultAdminUsername = "admin"
	DefaultAdminPassword = "admin"
)

// Persistence stores the three entity collections. Load methods return an
// empty slice when no data exists yet and fail only on genuine I/O errors.
// PersistAll is atomic across the three collections.
type Persistence interface {
	LoadAccounts() ([]model.Account, error)
	LoadRooms() ([]model.Room, error)
	LoadBookings() ([]model.Booking, error)
	PersistAll(accounts []model.Account, rooms []model.Room, bookings []model.Booking) error
}

// Directory owns the in-memory state. A single lock guards each operation
// end to end (check, mutate, persist) so a conflict check can never observe
// state that a concurrent mutation then invalidates.
type Directory struct {
	mu       sync.RWMutex
	store    Persistence
	bus      *events.Bus
	logger   zerolog.Logger
	accounts []model.Account
	rooms    []model.Room
	bookings []model.Booking
}

// New loads all three collections from the store and seeds the default
// admin account when no admin exists. The bus may be nil.
func New(store Persistence, bus *events.Bus, logger zerolog.Logger) (*Directory, error) {
	d := &Directory{
		store:  store,
		bus:    bus,
		logger: logger.With().Str("component", "directory").Logger(),
	}

	var err error
	if d.accounts, err = store.LoadAccounts(); err != nil {
		return nil, &model.StorageError{Op: "load accounts", Err: err}
	}
	if d.rooms, err = store.LoadRooms(); err != nil {
		return nil, &model.StorageError{Op: "load rooms", Err: err}
	}
	if d.bookings, err = store.LoadBookings(); err != nil {
		return nil, &model.StorageError{Op: "load bookings", Err: err}
	}

	if err := d.ensureDefaultAdmin(); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *Directory) ensureDefaultAdmin() error {
	for _, account := range d.accounts {
		if account.Role == model.RoleAdmin {
			return nil
		}
	}
	accounts := append(copyAccounts(d.accounts), model.Account{
		Username: DefaultAdminUsername,
		Password: DefaultAdminPassword,
		Role:     model.RoleAdmin,
	})
	if err := d.persist(accounts, d.rooms, d.bookings); err != nil {
		return err
	}
	d.accounts = accounts
	d.logger.Warn().
		Str("username", DefaultAdminUsername).
		Msg("seeded default admin account with well-known password; change it immediately")
	return nil
}

// Authenticate matches the username case-insensitively and the password
// exactly. The boolean is false when no account matches.
func (d *Directory) Authenticate(username, password string) (model.Account, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, account := range d.accounts {
		if account.HasUsername(username) && account.VerifyPassword(password) {
			return account, true
		}
	}
	return model.Account{}, false
}

// CreateAccount adds a new account. Requires the manage-accounts capability;
// the username must be unique case-insensitively.
func (d *Directory) CreateAccount(actor model.Account, username, password string, role model.Role) (model.Account, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.requireCapability(actor, "create accounts", func(c model.Capabilities) bool { return c.ManageAccounts }); err != nil {
		return model.Account{}, err
	}
	if strings.TrimSpace(username) == "" {
		return model.Account{}, &model.ValidationError{Field: "username", Message: "username must not be empty"}
	}
	if !role.Valid() {
		return model.Account{}, &model.ValidationError{Field: "role", Message: "unknown role: " + string(role)}
	}
	if _, ok := d.findAccount(username); ok {
		return model.Account{}, &model.ValidationError{Field: "username", Message: "username already exists: " + username}
	}

	account := model.Account{Username: username, Password: password, Role: role}
	accounts := append(copyAccounts(d.accounts), account)
	if err := d.persist(accounts, d.rooms, d.bookings); err != nil {
		return model.Account{}, err
	}
	d.accounts = accounts

	d.logger.Info().Str("username", username).Str("role", string(role)).Msg("account created")
	d.publish(events.TypeAccountCreated, account)
	return account, nil
}

// DeleteAccount removes an account. The last admin account can never be
// deleted.
func (d *Directory) DeleteAccount(actor model.Account, username string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.requireCapability(actor, "delete accounts", func(c model.Capabilities) bool { return c.ManageAccounts }); err != nil {
		return err
	}
	target, ok := d.findAccount(username)
	if !ok {
		return &model.NotFoundError{Kind: "account", ID: username}
	}
	if target.Role == model.RoleAdmin && d.countAdmins() == 1 {
		return &model.InvariantError{Message: "cannot remove the last admin account"}
	}

	accounts := make([]model.Account, 0, len(d.accounts)-1)
	for _, account := range d.accounts {
		if !account.HasUsername(username) {
			accounts = append(accounts, account)
		}
	}
	if err := d.persist(accounts, d.rooms, d.bookings); err != nil {
		return err
	}
	d.accounts = accounts

	d.logger.Info().Str("username", target.Username).Msg("account deleted")
	d.publish(events.TypeAccountDeleted, target)
	return nil
}

// ListAccounts requires manage-accounts or the scheduler role.
func (d *Directory) ListAccounts(actor model.Account) ([]model.Account, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	caps := actor.Role.Capabilities()
	if !caps.ManageAccounts && actor.Role != model.RoleScheduler {
		metrics.IncPermissionDenied("list accounts")
		return nil, &model.PermissionError{Username: actor.Username, Action: "view accounts"}
	}
	return copyAccounts(d.accounts), nil
}

// CreateRoom adds a room with a case-insensitively unique name.
func (d *Directory) CreateRoom(actor model.Account, name string, capacity int, description string) (model.Room, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.requireCapability(actor, "create rooms", func(c model.Capabilities) bool { return c.ManageRooms }); err != nil {
		return model.Room{}, err
	}
	if err := model.ValidateRoom(name, capacity); err != nil {
		return model.Room{}, err
	}
	if _, ok := d.findRoom(name); ok {
		return model.Room{}, &model.ValidationError{Field: "name", Message: "room already exists: " + name}
	}

	room := model.Room{Name: name, Capacity: capacity, Description: description}
	rooms := append(copyRooms(d.rooms), room)
	if err := d.persist(d.accounts, rooms, d.bookings); err != nil {
		return model.Room{}, err
	}
	d.rooms = rooms

	d.logger.Info().Str("room", name).Int("capacity", capacity).Msg("room created")
	d.publish(events.TypeRoomCreated, room)
	return room, nil
}

// UpdateRoom mutates capacity and description of an existing room.
func (d *Directory) UpdateRoom(actor model.Account, name string, capacity int, description string) (model.Room, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.requireCapability(actor, "update rooms", func(c model.Capabilities) bool { return c.ManageRooms }); err != nil {
		return model.Room{}, err
	}
	if err := model.ValidateRoom(name, capacity); err != nil {
		return model.Room{}, err
	}
	idx := -1
	for i, room := range d.rooms {
		if room.HasName(name) {
			idx = i
			break
		}
	}
	if idx < 0 {
		return model.Room{}, &model.NotFoundError{Kind: "room", ID: name}
	}

	rooms := copyRooms(d.rooms)
	rooms[idx].Capacity = capacity
	rooms[idx].Description = description
	if err := d.persist(d.accounts, rooms, d.bookings); err != nil {
		return model.Room{}, err
	}
	d.rooms = rooms

	d.logger.Info().Str("room", rooms[idx].Name).Msg("room updated")
	d.publish(events.TypeRoomUpdated, rooms[idx])
	return rooms[idx], nil
}

// DeleteRoom removes a room. Refused while any booking references it.
func (d *Directory) DeleteRoom(actor model.Account, name string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.requireCapability(actor, "delete rooms", func(c model.Capabilities) bool { return c.ManageRooms }); err != nil {
		return err
	}
	room, ok := d.findRoom(name)
	if !ok {
		return &model.NotFoundError{Kind: "room", ID: name}
	}
	for _, booking := range d.bookings {
		if booking.InRoom(name) {
			return &model.InvariantError{Message: "cannot delete room with bookings: " + room.Name}
		}
	}

	rooms := make([]model.Room, 0, len(d.rooms)-1)
	for _, r := range d.rooms {
		if !r.HasName(name) {
			rooms = append(rooms, r)
		}
	}
	if err := d.persist(d.accounts, rooms, d.bookings); err != nil {
		return err
	}
	d.rooms = rooms

	d.logger.Info().Str("room", room.Name).Msg("room deleted")
	d.publish(events.TypeRoomDeleted, room)
	return nil
}

// ListRooms returns the room catalogue. Readable by everyone.
func (d *Directory) ListRooms() []model.Room {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return copyRooms(d.rooms)
}

// CreateBooking books one interval in a room for the acting account.
func (d *Directory) CreateBooking(actor model.Account, roomName string, interval model.TimeInterval) (model.Booking, error) {
	bookings, err := d.CreateBookings(actor, roomName, []model.TimeInterval{interval})
	if err != nil {
		return model.Booking{}, err
	}
	return bookings[0], nil
}

// CreateBookings books a batch of intervals in one room, all owned by the
// acting account. The batch is all-or-nothing: a conflict on any interval
// rejects the whole request and leaves the collection unchanged.
func (d *Directory) CreateBookings(actor model.Account, roomName string, intervals []model.TimeInterval) ([]model.Booking, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.requireBookingCreation(actor); err != nil {
		return nil, err
	}
	if len(intervals) == 0 {
		return nil, &model.ValidationError{Field: "intervals", Message: "at least one time slot is required"}
	}
	room, ok := d.findRoom(roomName)
	if !ok {
		return nil, &model.NotFoundError{Kind: "room", ID: roomName}
	}
	for _, interval := range intervals {
		if !interval.Start.Before(interval.End) {
			return nil, &model.ValidationError{Field: "interval", Message: "start must be before end"}
		}
	}

	if conflicts := schedule.FindAllConflicts(d.bookings, room.Name, intervals, ""); len(conflicts) > 0 {
		metrics.IncConflictRejected()
		return nil, &model.ConflictError{RoomName: room.Name, Bookings: conflicts}
	}

	created := make([]model.Booking, 0, len(intervals))
	for _, interval := range intervals {
		created = append(created, model.Booking{
			ID:       uuid.NewString(),
			RoomName: room.Name,
			Start:    interval.Start,
			End:      interval.End,
			Owner:    actor.Username,
		})
	}
	bookings := append(copyBookings(d.bookings), created...)
	if err := d.persist(d.accounts, d.rooms, bookings); err != nil {
		return nil, err
	}
	d.bookings = bookings

	kind := "single"
	if len(created) > 1 {
		kind = "recurring"
	}
	metrics.IncBookingCreated(kind)
	d.logger.Info().
		Str("room", room.Name).
		Str("owner", actor.Username).
		Int("count", len(created)).
		Msg("bookings created")
	for _, booking := range created {
		d.publish(events.TypeBookingCreated, booking)
	}
	return created, nil
}

// UpdateBooking reschedules a booking in place. The booking itself is
// excluded from the conflict check, so rescheduling to the current interval
// succeeds as a no-op.
func (d *Directory) UpdateBooking(actor model.Account, bookingID string, interval model.TimeInterval) (model.Booking, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	idx := d.findBookingIndex(bookingID)
	if idx < 0 {
		return model.Booking{}, &model.NotFoundError{Kind: "booking", ID: bookingID}
	}
	if err := d.requireBookingAccess(actor, d.bookings[idx], "reschedule"); err != nil {
		return model.Booking{}, err
	}
	if !interval.Start.Before(interval.End) {
		return model.Booking{}, &model.ValidationError{Field: "interval", Message: "start must be before end"}
	}

	if conflicts := schedule.FindConflicts(d.bookings, d.bookings[idx].RoomName, interval, bookingID); len(conflicts) > 0 {
		metrics.IncConflictRejected()
		return model.Booking{}, &model.ConflictError{RoomName: d.bookings[idx].RoomName, Bookings: conflicts}
	}

	bookings := copyBookings(d.bookings)
	bookings[idx].Start = interval.Start
	bookings[idx].End = interval.End
	if err := d.persist(d.accounts, d.rooms, bookings); err != nil {
		return model.Booking{}, err
	}
	d.bookings = bookings

	metrics.IncBookingRescheduled()
	d.logger.Info().Str("booking_id", bookingID).Msg("booking rescheduled")
	d.publish(events.TypeBookingRescheduled, bookings[idx])
	return bookings[idx], nil
}

// CancelBooking removes a booking. Owners may cancel their own; only
// manage-all-bookings holders may cancel others'.
func (d *Directory) CancelBooking(actor model.Account, bookingID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	idx := d.findBookingIndex(bookingID)
	if idx < 0 {
		return &model.NotFoundError{Kind: "booking", ID: bookingID}
	}
	target := d.bookings[idx]
	if err := d.requireBookingAccess(actor, target, "cancel"); err != nil {
		return err
	}

	bookings := append(copyBookings(d.bookings[:idx]), d.bookings[idx+1:]...)
	if err := d.persist(d.accounts, d.rooms, bookings); err != nil {
		return err
	}
	d.bookings = bookings

	metrics.IncBookingCancelled()
	d.logger.Info().Str("booking_id", bookingID).Str("owner", target.Owner).Msg("booking cancelled")
	d.publish(events.TypeBookingCancelled, target)
	return nil
}

// ListBookings returns bookings visible to the actor: everything for
// manage-all-bookings holders and guests, own bookings for everyone else.
func (d *Directory) ListBookings(actor model.Account) ([]model.Booking, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if !actor.Role.Valid() {
		return nil, &model.PermissionError{Username: actor.Username, Action: "view bookings"}
	}
	caps := actor.Role.Capabilities()
	if caps.ManageAllBookings || actor.Role == model.RoleGuest {
		return copyBookings(d.bookings), nil
	}
	var own []model.Booking
	for _, booking := range d.bookings {
		if booking.IsOwnedBy(actor.Username) {
			own = append(own, booking)
		}
	}
	return own, nil
}

// FindConflicts previews which existing bookings collide with the candidate
// intervals, so a front end can offer delete-and-retry remediation. Pure
// read; excludeID skips one booking for reschedule previews.
func (d *Directory) FindConflicts(roomName string, intervals []model.TimeInterval, excludeID string) ([]model.Booking, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	room, ok := d.findRoom(roomName)
	if !ok {
		return nil, &model.NotFoundError{Kind: "room", ID: roomName}
	}
	return schedule.FindAllConflicts(d.bookings, room.Name, intervals, excludeID), nil
}

func (d *Directory) persist(accounts []model.Account, rooms []model.Room, bookings []model.Booking) error {
	if err := d.store.PersistAll(accounts, rooms, bookings); err != nil {
		d.logger.Error().Err(err).Msg("persist failed; in-memory state unchanged")
		return &model.StorageError{Op: "persist", Err: err}
	}
	return nil
}

func (d *Directory) publish(eventType string, payload interface{}) {
	if d.bus == nil {
		return
	}
	if err := d.bus.PublishJSON(eventType, payload); err != nil {
		d.logger.Error().Err(err).Str("event", eventType).Msg("publish event failed")
	}
}

func (d *Directory) requireCapability(actor model.Account, action string, allowed func(model.Capabilities) bool) error {
	if !actor.Role.Valid() || !allowed(actor.Role.Capabilities()) {
		metrics.IncPermissionDenied(action)
		return &model.PermissionError{Username: actor.Username, Action: action}
	}
	return nil
}

func (d *Directory) requireBookingCreation(actor model.Account) error {
	if !actor.Role.Valid() {
		return &model.PermissionError{Username: actor.Username, Action: "create bookings"}
	}
	if !actor.Role.Capabilities().CreateBookings {
		metrics.IncPermissionDenied("create bookings")
		return &model.PermissionError{Username: actor.Username, Action: "create bookings"}
	}
	return nil
}

func (d *Directory) requireBookingAccess(actor model.Account, booking model.Booking, action string) error {
	if actor.Role.Valid() && actor.Role.Capabilities().ManageAllBookings {
		return nil
	}
	if actor.Role.Valid() && booking.IsOwnedBy(actor.Username) {
		return nil
	}
	metrics.IncPermissionDenied(action + " booking")
	return &model.PermissionError{Username: actor.Username, Action: action + " bookings for other users"}
}

func (d *Directory) findAccount(username string) (model.Account, bool) {
	for _, account := range d.accounts {
		if account.HasUsername(username) {
			return account, true
		}
	}
	return model.Account{}, false
}

func (d *Directory) findRoom(name string) (model.Room, bool) {
	for _, room := range d.rooms {
		if room.HasName(name) {
			return room, true
		}
	}
	return model.Room{}, false
}

func (d *Directory) findBookingIndex(id string) int {
	for i, booking := range d.bookings {
		if booking.ID == id {
			return i
		}
	}
	return -1
}

func (d *Directory) countAdmins() int {
	count := 0
	for _, account := range d.accounts {
		if account.Role == model.RoleAdmin {
			count++
		}
	}
	return count
}

func copyAccounts(src []model.Account) []model.Account {
	return append([]model.Account(nil), src...)
}

func copyRooms(src []model.Room) []model.Room {
	return append([]model.Room(nil), src...)
}

func copyBookings(src []model.Booking) []model.Booking {
	return append([]model.Booking(nil), src...)
}
