package directory

import (
	"errors"
	"io"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"roombook/internal/events"
	"roombook/internal/model"
)

// fakeStore keeps the persisted collections in memory and can be told to
// fail, so persistence-failure paths are testable.
type fakeStore struct {
	accounts []model.Account
	rooms    []model.Room
	bookings []model.Booking

	persistErr   error
	persistCalls int
}

func (f *fakeStore) LoadAccounts() ([]model.Account, error) { return f.accounts, nil }
func (f *fakeStore) LoadRooms() ([]model.Room, error)       { return f.rooms, nil }
func (f *fakeStore) LoadBookings() ([]model.Booking, error) { return f.bookings, nil }

func (f *fakeStore) PersistAll(accounts []model.Account, rooms []model.Room, bookings []model.Booking) error {
	f.persistCalls++
	if f.persistErr != nil {
		return f.persistErr
	}
	f.accounts = accounts
	f.rooms = rooms
	f.bookings = bookings
	return nil
}

var (
	admin     = model.Account{Username: "root", Password: "pw", Role: model.RoleAdmin}
	scheduler = model.Account{Username: "sched", Password: "pw", Role: model.RoleScheduler}
	alice     = model.Account{Username: "alice", Password: "pw", Role: model.RoleUser}
	bob       = model.Account{Username: "bob", Password: "pw", Role: model.RoleUser}
	guest     = model.Account{Username: "visitor", Password: "pw", Role: model.RoleGuest}
)

func seededStore() *fakeStore {
	return &fakeStore{
		accounts: []model.Account{admin, scheduler, alice, bob, guest},
		rooms:    []model.Room{{Name: "Boardroom", Capacity: 12}},
	}
}

func newTestDirectory(t *testing.T, store *fakeStore) *Directory {
	t.Helper()
	dir, err := New(store, nil, zerolog.New(io.Discard))
	require.NoError(t, err)
	return dir
}

func interval(t *testing.T, start, end string) model.TimeInterval {
	t.Helper()
	s, err := time.Parse(model.DateTimeFormat, start)
	require.NoError(t, err)
	e, err := time.Parse(model.DateTimeFormat, end)
	require.NoError(t, err)
	return model.TimeInterval{Start: s, End: e}
}

func TestNewSeedsDefaultAdmin(t *testing.T) {
	t.Run("empty store gets a default admin", func(t *testing.T) {
		store := &fakeStore{}
		dir := newTestDirectory(t, store)

		account, ok := dir.Authenticate(DefaultAdminUsername, DefaultAdminPassword)
		assert.True(t, ok)
		assert.Equal(t, model.RoleAdmin, account.Role)
		assert.Equal(t, 1, store.persistCalls, "seeding must be persisted")
	})

	t.Run("existing admin suppresses seeding", func(t *testing.T) {
		store := seededStore()
		dir := newTestDirectory(t, store)

		_, ok := dir.Authenticate(DefaultAdminUsername, DefaultAdminPassword)
		assert.False(t, ok)
		assert.Equal(t, 0, store.persistCalls)
	})
}

func TestAuthenticate(t *testing.T) {
	dir := newTestDirectory(t, seededStore())

	t.Run("username matches case-insensitively", func(t *testing.T) {
		account, ok := dir.Authenticate("ALICE", "pw")
		assert.True(t, ok)
		assert.Equal(t, "alice", account.Username)
	})

	t.Run("password matches exactly", func(t *testing.T) {
		_, ok := dir.Authenticate("alice", "PW")
		assert.False(t, ok)
	})

	t.Run("unknown username", func(t *testing.T) {
		_, ok := dir.Authenticate("nobody", "pw")
		assert.False(t, ok)
	})
}

func TestCreateAccount(t *testing.T) {
	t.Run("admin creates an account", func(t *testing.T) {
		dir := newTestDirectory(t, seededStore())
		account, err := dir.CreateAccount(admin, "carol", "pw", model.RoleUser)
		require.NoError(t, err)
		assert.Equal(t, "carol", account.Username)

		_, ok := dir.Authenticate("carol", "pw")
		assert.True(t, ok)
	})

	t.Run("non-admin is denied", func(t *testing.T) {
		dir := newTestDirectory(t, seededStore())
		for _, actor := range []model.Account{scheduler, alice, guest} {
			_, err := dir.CreateAccount(actor, "carol", "pw", model.RoleUser)
			assert.True(t, model.IsPermission(err), "role %s must be denied", actor.Role)
		}
	})

	t.Run("duplicate username rejected case-insensitively", func(t *testing.T) {
		dir := newTestDirectory(t, seededStore())
		_, err := dir.CreateAccount(admin, "ALICE", "pw", model.RoleUser)
		assert.True(t, model.IsValidation(err))
	})

	t.Run("unknown role rejected", func(t *testing.T) {
		dir := newTestDirectory(t, seededStore())
		_, err := dir.CreateAccount(admin, "carol", "pw", model.Role("janitor"))
		assert.True(t, model.IsValidation(err))
	})

	t.Run("empty username rejected", func(t *testing.T) {
		dir := newTestDirectory(t, seededStore())
		_, err := dir.CreateAccount(admin, "  ", "pw", model.RoleUser)
		assert.True(t, model.IsValidation(err))
	})
}

func TestDeleteAccount(t *testing.T) {
	t.Run("deleting the sole admin is rejected", func(t *testing.T) {
		dir := newTestDirectory(t, seededStore())
		err := dir.DeleteAccount(admin, "root")
		assert.True(t, model.IsInvariant(err))

		_, ok := dir.Authenticate("root", "pw")
		assert.True(t, ok, "sole admin must survive")
	})

	t.Run("deleting a non-sole admin succeeds", func(t *testing.T) {
		store := seededStore()
		store.accounts = append(store.accounts, model.Account{Username: "root2", Password: "pw", Role: model.RoleAdmin})
		dir := newTestDirectory(t, store)

		require.NoError(t, dir.DeleteAccount(admin, "root2"))
		_, ok := dir.Authenticate("root2", "pw")
		assert.False(t, ok)
	})

	t.Run("deleting a regular account succeeds", func(t *testing.T) {
		dir := newTestDirectory(t, seededStore())
		require.NoError(t, dir.DeleteAccount(admin, "bob"))
		_, ok := dir.Authenticate("bob", "pw")
		assert.False(t, ok)
	})

	t.Run("unknown target", func(t *testing.T) {
		dir := newTestDirectory(t, seededStore())
		err := dir.DeleteAccount(admin, "nobody")
		assert.True(t, model.IsNotFound(err))
	})

	t.Run("non-admin is denied", func(t *testing.T) {
		dir := newTestDirectory(t, seededStore())
		err := dir.DeleteAccount(alice, "bob")
		assert.True(t, model.IsPermission(err))
	})
}

func TestListAccounts(t *testing.T) {
	dir := newTestDirectory(t, seededStore())

	t.Run("admin sees all accounts", func(t *testing.T) {
		accounts, err := dir.ListAccounts(admin)
		require.NoError(t, err)
		assert.Len(t, accounts, 5)
	})

	t.Run("scheduler may list accounts", func(t *testing.T) {
		accounts, err := dir.ListAccounts(scheduler)
		require.NoError(t, err)
		assert.Len(t, accounts, 5)
	})

	t.Run("regular user is denied", func(t *testing.T) {
		_, err := dir.ListAccounts(alice)
		assert.True(t, model.IsPermission(err))
	})
}

func TestRoomManagement(t *testing.T) {
	t.Run("scheduler creates and updates a room", func(t *testing.T) {
		dir := newTestDirectory(t, seededStore())
		room, err := dir.CreateRoom(scheduler, "Lab", 6, "microscopes")
		require.NoError(t, err)
		assert.Equal(t, 6, room.Capacity)

		room, err = dir.UpdateRoom(scheduler, "lab", 8, "more microscopes")
		require.NoError(t, err)
		assert.Equal(t, 8, room.Capacity)
		assert.Equal(t, "Lab", room.Name, "update must not rename the room")
	})

	t.Run("duplicate name rejected case-insensitively", func(t *testing.T) {
		dir := newTestDirectory(t, seededStore())
		_, err := dir.CreateRoom(admin, "BOARDROOM", 4, "")
		assert.True(t, model.IsValidation(err))
	})

	t.Run("negative capacity rejected", func(t *testing.T) {
		dir := newTestDirectory(t, seededStore())
		_, err := dir.CreateRoom(admin, "Lab", -1, "")
		assert.True(t, model.IsValidation(err))
	})

	t.Run("regular user cannot manage rooms", func(t *testing.T) {
		dir := newTestDirectory(t, seededStore())
		_, err := dir.CreateRoom(alice, "Lab", 6, "")
		assert.True(t, model.IsPermission(err))
		err = dir.DeleteRoom(alice, "Boardroom")
		assert.True(t, model.IsPermission(err))
	})

	t.Run("deleting a room with bookings is rejected", func(t *testing.T) {
		dir := newTestDirectory(t, seededStore())
		_, err := dir.CreateBooking(alice, "Boardroom", interval(t, "2026-03-02 09:00", "2026-03-02 10:00"))
		require.NoError(t, err)

		err = dir.DeleteRoom(admin, "Boardroom")
		assert.True(t, model.IsInvariant(err))
		assert.Len(t, dir.ListRooms(), 1)
	})

	t.Run("deleting an unused room succeeds", func(t *testing.T) {
		dir := newTestDirectory(t, seededStore())
		require.NoError(t, dir.DeleteRoom(admin, "boardroom"))
		assert.Empty(t, dir.ListRooms())
	})
}

func TestCreateBooking(t *testing.T) {
	t.Run("happy path", func(t *testing.T) {
		dir := newTestDirectory(t, seededStore())
		booking, err := dir.CreateBooking(alice, "boardroom", interval(t, "2026-03-02 09:00", "2026-03-02 10:00"))
		require.NoError(t, err)
		assert.NotEmpty(t, booking.ID)
		assert.Equal(t, "Boardroom", booking.RoomName, "room reference uses the canonical name")
		assert.Equal(t, "alice", booking.Owner)
	})

	t.Run("guest cannot create bookings", func(t *testing.T) {
		dir := newTestDirectory(t, seededStore())
		_, err := dir.CreateBooking(guest, "Boardroom", interval(t, "2026-03-02 09:00", "2026-03-02 10:00"))
		assert.True(t, model.IsPermission(err))
	})

	t.Run("unknown room", func(t *testing.T) {
		dir := newTestDirectory(t, seededStore())
		_, err := dir.CreateBooking(alice, "Dungeon", interval(t, "2026-03-02 09:00", "2026-03-02 10:00"))
		assert.True(t, model.IsNotFound(err))
	})

	t.Run("conflict reports the colliding booking and inserts nothing", func(t *testing.T) {
		dir := newTestDirectory(t, seededStore())
		existing, err := dir.CreateBooking(alice, "Boardroom", interval(t, "2026-03-02 09:00", "2026-03-02 10:00"))
		require.NoError(t, err)

		_, err = dir.CreateBooking(bob, "Boardroom", interval(t, "2026-03-02 09:30", "2026-03-02 10:30"))
		var conflict *model.ConflictError
		require.ErrorAs(t, err, &conflict)
		assert.Equal(t, []string{existing.ID}, conflict.BookingIDs())

		all, err := dir.ListBookings(admin)
		require.NoError(t, err)
		assert.Len(t, all, 1, "failed create must leave the collection unchanged")
	})

	t.Run("back-to-back bookings do not conflict", func(t *testing.T) {
		dir := newTestDirectory(t, seededStore())
		_, err := dir.CreateBooking(alice, "Boardroom", interval(t, "2026-03-02 09:00", "2026-03-02 10:00"))
		require.NoError(t, err)
		_, err = dir.CreateBooking(bob, "Boardroom", interval(t, "2026-03-02 10:00", "2026-03-02 11:00"))
		assert.NoError(t, err)
	})

	t.Run("same interval in another room does not conflict", func(t *testing.T) {
		dir := newTestDirectory(t, seededStore())
		_, err := dir.CreateRoom(admin, "Lab", 6, "")
		require.NoError(t, err)
		_, err = dir.CreateBooking(alice, "Boardroom", interval(t, "2026-03-02 09:00", "2026-03-02 10:00"))
		require.NoError(t, err)
		_, err = dir.CreateBooking(bob, "Lab", interval(t, "2026-03-02 09:00", "2026-03-02 10:00"))
		assert.NoError(t, err)
	})
}

func TestCreateBookingsBatch(t *testing.T) {
	t.Run("batch creates one booking per interval", func(t *testing.T) {
		dir := newTestDirectory(t, seededStore())
		intervals := []model.TimeInterval{
			interval(t, "2026-03-02 09:00", "2026-03-02 10:00"),
			interval(t, "2026-03-09 09:00", "2026-03-09 10:00"),
			interval(t, "2026-03-16 09:00", "2026-03-16 10:00"),
		}
		bookings, err := dir.CreateBookings(alice, "Boardroom", intervals)
		require.NoError(t, err)
		require.Len(t, bookings, 3)
		for _, b := range bookings {
			assert.Equal(t, "alice", b.Owner)
		}
	})

	t.Run("one conflicting interval rejects the whole batch", func(t *testing.T) {
		dir := newTestDirectory(t, seededStore())
		existing, err := dir.CreateBooking(bob, "Boardroom", interval(t, "2026-03-09 09:30", "2026-03-09 10:30"))
		require.NoError(t, err)

		intervals := []model.TimeInterval{
			interval(t, "2026-03-02 09:00", "2026-03-02 10:00"),
			interval(t, "2026-03-09 09:00", "2026-03-09 10:00"), // collides
		}
		_, err = dir.CreateBookings(alice, "Boardroom", intervals)
		var conflict *model.ConflictError
		require.ErrorAs(t, err, &conflict)
		assert.Equal(t, []string{existing.ID}, conflict.BookingIDs())

		all, listErr := dir.ListBookings(admin)
		require.NoError(t, listErr)
		assert.Len(t, all, 1, "no partial insert on batch conflict")
	})

	t.Run("empty batch rejected", func(t *testing.T) {
		dir := newTestDirectory(t, seededStore())
		_, err := dir.CreateBookings(alice, "Boardroom", nil)
		assert.True(t, model.IsValidation(err))
	})
}

func TestUpdateBooking(t *testing.T) {
	t.Run("rescheduling to the current interval is a no-op success", func(t *testing.T) {
		dir := newTestDirectory(t, seededStore())
		booking, err := dir.CreateBooking(alice, "Boardroom", interval(t, "2026-03-02 09:00", "2026-03-02 10:00"))
		require.NoError(t, err)

		updated, err := dir.UpdateBooking(alice, booking.ID, booking.Interval())
		require.NoError(t, err, "self must be excluded from its own conflict check")
		assert.Equal(t, booking.ID, updated.ID)
	})

	t.Run("reschedule into another booking conflicts", func(t *testing.T) {
		dir := newTestDirectory(t, seededStore())
		first, err := dir.CreateBooking(alice, "Boardroom", interval(t, "2026-03-02 09:00", "2026-03-02 10:00"))
		require.NoError(t, err)
		second, err := dir.CreateBooking(alice, "Boardroom", interval(t, "2026-03-02 11:00", "2026-03-02 12:00"))
		require.NoError(t, err)

		_, err = dir.UpdateBooking(alice, second.ID, interval(t, "2026-03-02 09:30", "2026-03-02 10:30"))
		var conflict *model.ConflictError
		require.ErrorAs(t, err, &conflict)
		assert.Equal(t, []string{first.ID}, conflict.BookingIDs())
	})

	t.Run("ordinary user cannot reschedule another user's booking", func(t *testing.T) {
		dir := newTestDirectory(t, seededStore())
		booking, err := dir.CreateBooking(alice, "Boardroom", interval(t, "2026-03-02 09:00", "2026-03-02 10:00"))
		require.NoError(t, err)

		_, err = dir.UpdateBooking(bob, booking.ID, interval(t, "2026-03-02 14:00", "2026-03-02 15:00"))
		assert.True(t, model.IsPermission(err))
	})

	t.Run("scheduler can reschedule anyone's booking", func(t *testing.T) {
		dir := newTestDirectory(t, seededStore())
		booking, err := dir.CreateBooking(alice, "Boardroom", interval(t, "2026-03-02 09:00", "2026-03-02 10:00"))
		require.NoError(t, err)

		updated, err := dir.UpdateBooking(scheduler, booking.ID, interval(t, "2026-03-02 14:00", "2026-03-02 15:00"))
		require.NoError(t, err)
		assert.Equal(t, "alice", updated.Owner, "ownership never transfers")
	})

	t.Run("unknown booking", func(t *testing.T) {
		dir := newTestDirectory(t, seededStore())
		_, err := dir.UpdateBooking(alice, "missing", interval(t, "2026-03-02 09:00", "2026-03-02 10:00"))
		assert.True(t, model.IsNotFound(err))
	})
}

func TestCancelBooking(t *testing.T) {
	t.Run("owner cancels own booking", func(t *testing.T) {
		dir := newTestDirectory(t, seededStore())
		booking, err := dir.CreateBooking(alice, "Boardroom", interval(t, "2026-03-02 09:00", "2026-03-02 10:00"))
		require.NoError(t, err)

		require.NoError(t, dir.CancelBooking(alice, booking.ID))
		all, err := dir.ListBookings(admin)
		require.NoError(t, err)
		assert.Empty(t, all)
	})

	t.Run("ordinary user cannot cancel another user's booking", func(t *testing.T) {
		dir := newTestDirectory(t, seededStore())
		booking, err := dir.CreateBooking(alice, "Boardroom", interval(t, "2026-03-02 09:00", "2026-03-02 10:00"))
		require.NoError(t, err)

		err = dir.CancelBooking(bob, booking.ID)
		assert.True(t, model.IsPermission(err))
	})

	t.Run("admin cancels anyone's booking", func(t *testing.T) {
		dir := newTestDirectory(t, seededStore())
		booking, err := dir.CreateBooking(alice, "Boardroom", interval(t, "2026-03-02 09:00", "2026-03-02 10:00"))
		require.NoError(t, err)

		assert.NoError(t, dir.CancelBooking(admin, booking.ID))
	})

	t.Run("unknown booking", func(t *testing.T) {
		dir := newTestDirectory(t, seededStore())
		err := dir.CancelBooking(alice, "missing")
		assert.True(t, model.IsNotFound(err))
	})
}

func TestListBookings(t *testing.T) {
	dir := newTestDirectory(t, seededStore())
	_, err := dir.CreateBooking(alice, "Boardroom", interval(t, "2026-03-02 09:00", "2026-03-02 10:00"))
	require.NoError(t, err)
	_, err = dir.CreateBooking(bob, "Boardroom", interval(t, "2026-03-02 11:00", "2026-03-02 12:00"))
	require.NoError(t, err)

	t.Run("admin sees everything", func(t *testing.T) {
		bookings, err := dir.ListBookings(admin)
		require.NoError(t, err)
		assert.Len(t, bookings, 2)
	})

	t.Run("guest sees everything", func(t *testing.T) {
		bookings, err := dir.ListBookings(guest)
		require.NoError(t, err)
		assert.Len(t, bookings, 2)
	})

	t.Run("ordinary user sees only own bookings", func(t *testing.T) {
		bookings, err := dir.ListBookings(alice)
		require.NoError(t, err)
		require.Len(t, bookings, 1)
		assert.Equal(t, "alice", bookings[0].Owner)
	})

	t.Run("unauthenticated actor is denied", func(t *testing.T) {
		_, err := dir.ListBookings(model.Account{})
		assert.True(t, model.IsPermission(err))
	})
}

func TestFindConflictsPreview(t *testing.T) {
	dir := newTestDirectory(t, seededStore())
	booking, err := dir.CreateBooking(alice, "Boardroom", interval(t, "2026-03-02 09:00", "2026-03-02 10:00"))
	require.NoError(t, err)

	t.Run("reports collisions without mutating", func(t *testing.T) {
		conflicts, err := dir.FindConflicts("boardroom", []model.TimeInterval{
			interval(t, "2026-03-02 09:30", "2026-03-02 10:30"),
		}, "")
		require.NoError(t, err)
		require.Len(t, conflicts, 1)
		assert.Equal(t, booking.ID, conflicts[0].ID)
	})

	t.Run("exclude id skips the booking", func(t *testing.T) {
		conflicts, err := dir.FindConflicts("Boardroom", []model.TimeInterval{
			interval(t, "2026-03-02 09:30", "2026-03-02 10:30"),
		}, booking.ID)
		require.NoError(t, err)
		assert.Empty(t, conflicts)
	})

	t.Run("unknown room", func(t *testing.T) {
		_, err := dir.FindConflicts("Dungeon", nil, "")
		assert.True(t, model.IsNotFound(err))
	})
}

func TestPersistFailureLeavesStateUnchanged(t *testing.T) {
	store := seededStore()
	dir := newTestDirectory(t, store)
	store.persistErr = errors.New("disk full")

	t.Run("create room", func(t *testing.T) {
		_, err := dir.CreateRoom(admin, "Lab", 6, "")
		assert.True(t, model.IsStorage(err))
		assert.Len(t, dir.ListRooms(), 1)
	})

	t.Run("create booking", func(t *testing.T) {
		_, err := dir.CreateBooking(alice, "Boardroom", interval(t, "2026-03-02 09:00", "2026-03-02 10:00"))
		assert.True(t, model.IsStorage(err))

		store.persistErr = nil
		bookings, listErr := dir.ListBookings(admin)
		require.NoError(t, listErr)
		assert.Empty(t, bookings, "failed persist must not leave a booking behind")
	})
}

func TestDirectoryPublishesEvents(t *testing.T) {
	bus := events.NewBus()
	var seen []string
	for _, eventType := range []string{events.TypeBookingCreated, events.TypeBookingCancelled} {
		et := eventType
		bus.Subscribe(et, func(events.Event) error {
			seen = append(seen, et)
			return nil
		})
	}

	store := seededStore()
	dir, err := New(store, bus, zerolog.New(io.Discard))
	require.NoError(t, err)

	booking, err := dir.CreateBooking(alice, "Boardroom", interval(t, "2026-03-02 09:00", "2026-03-02 10:00"))
	require.NoError(t, err)
	require.NoError(t, dir.CancelBooking(alice, booking.ID))

	assert.Equal(t, []string{events.TypeBookingCreated, events.TypeBookingCancelled}, seen)
}
