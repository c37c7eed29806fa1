package release

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roomsense/roomsense-platform/internal/device"
	"github.com/roomsense/roomsense-platform/pkg/config"
)

func newTestCoordinator(t *testing.T) (*Coordinator, *device.FakeController, *Session) {
	t.Helper()

	cfg := config.NewConfig()
	cfg.RoomName = "room-3a"

	fake := device.NewFakeController()
	fake.Bookings["b1"] = &device.Booking{BookingID: "b1", MeetingID: "m1"}

	session := NewSession(cfg.RoomName)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	coord := NewCoordinator(fake, session, cfg, logger, func(Event) {}, func() time.Time { return now })
	t.Cleanup(coord.StopReevaluation)

	return coord, fake, session
}

func TestActivate_ReservingBooking(t *testing.T) {
	coord, _, session := newTestCoordinator(t)

	ok := coord.Activate(context.Background(), "b1", device.AvailabilityBooked)

	require.True(t, ok)
	assert.True(t, session.Monitoring)
	assert.Equal(t, "b1", session.Booking.BookingID)
	assert.Equal(t, "m1", session.Booking.MeetingID)
	assert.True(t, session.Booking.Active)
	assert.NotEmpty(t, session.ID)
	assert.True(t, session.Presence.ListenerActive)
}

func TestActivate_NonReservingAvailability(t *testing.T) {
	coord, _, session := newTestCoordinator(t)

	assert.False(t, coord.Activate(context.Background(), "b1", device.AvailabilityFree))
	assert.False(t, coord.Activate(context.Background(), "b1", ""))
	assert.False(t, session.Monitoring)
}

func TestActivate_DuplicateBookingIgnored(t *testing.T) {
	coord, _, session := newTestCoordinator(t)

	require.True(t, coord.Activate(context.Background(), "b1", device.AvailabilityBooked))
	firstSession := session.ID

	assert.False(t, coord.Activate(context.Background(), "b1", device.AvailabilityBooked))
	assert.Equal(t, firstSession, session.ID, "duplicate start must not reset the session")
}

func TestActivate_OverlappingBookingIgnored(t *testing.T) {
	coord, fake, session := newTestCoordinator(t)
	fake.Bookings["b2"] = &device.Booking{BookingID: "b2", MeetingID: "m2"}

	require.True(t, coord.Activate(context.Background(), "b1", device.AvailabilityBooked))

	assert.False(t, coord.Activate(context.Background(), "b2", device.AvailabilityBooked))
	assert.Equal(t, "b1", session.Booking.BookingID, "monitored booking must not change")
}

func TestActivate_DetailsFailureStillMonitors(t *testing.T) {
	coord, fake, session := newTestCoordinator(t)
	delete(fake.Bookings, "b1")

	ok := coord.Activate(context.Background(), "b1", device.AvailabilityBooked)

	require.True(t, ok)
	assert.True(t, session.Monitoring)
	assert.Empty(t, session.Booking.MeetingID)
}

func TestActivate_ResetsPriorSessionState(t *testing.T) {
	coord, _, session := newTestCoordinator(t)

	session.Snapshot.PeopleCount = 4
	session.Presence.IsFull = true
	session.Presence.LastOccupiedAt = time.Now()

	require.True(t, coord.Activate(context.Background(), "b1", device.AvailabilityBooked))

	assert.Equal(t, Snapshot{}, session.Snapshot)
	assert.False(t, session.Presence.IsFull)
	assert.True(t, session.Presence.LastOccupiedAt.IsZero())
}

func TestPoll_RefreshesAllEnabledSignals(t *testing.T) {
	coord, fake, session := newTestCoordinator(t)
	fake.PeopleCountValue = 3
	fake.PresenceValue = true
	fake.CallCountValue = 1
	fake.SharingValue = true

	coord.Poll(context.Background())

	assert.Equal(t, 3, session.Snapshot.PeopleCount)
	assert.True(t, session.Snapshot.PeoplePresence)
	assert.True(t, session.Snapshot.InCall)
	assert.True(t, session.Snapshot.Sharing)
	// Sound is disabled by default and must stay untouched.
	assert.False(t, session.Snapshot.SoundDetected)
}

func TestPoll_SkipsDisabledSignals(t *testing.T) {
	coord, fake, session := newTestCoordinator(t)
	coord.cfg.CallEnabled = false
	coord.cfg.SharingEnabled = false
	fake.CallCountValue = 2
	fake.SharingValue = true

	coord.Poll(context.Background())

	assert.False(t, session.Snapshot.InCall)
	assert.False(t, session.Snapshot.Sharing)
}

func TestPoll_ReadFailureKeepsLastValue(t *testing.T) {
	coord, fake, session := newTestCoordinator(t)
	fake.PeopleCountValue = 2
	fake.PresenceValue = true
	coord.Poll(context.Background())
	require.Equal(t, 2, session.Snapshot.PeopleCount)

	fake.FailReads = true
	coord.Poll(context.Background())

	assert.Equal(t, 2, session.Snapshot.PeopleCount)
	assert.True(t, session.Snapshot.PeoplePresence)
}

func TestPoll_NormalizesCountSentinel(t *testing.T) {
	coord, fake, session := newTestCoordinator(t)
	fake.PeopleCountValue = -1

	coord.Poll(context.Background())

	assert.Zero(t, session.Snapshot.PeopleCount)
}

func TestStopReevaluation_Idempotent(t *testing.T) {
	coord, _, _ := newTestCoordinator(t)

	// Safe with no ticker running.
	coord.StopReevaluation()

	require.True(t, coord.Activate(context.Background(), "b1", device.AvailabilityBooked))
	coord.StopReevaluation()
	coord.StopReevaluation()
}

func TestActivate_SchedulesReevaluation(t *testing.T) {
	coord, _, _ := newTestCoordinator(t)
	require.Nil(t, coord.reevalStop)

	require.True(t, coord.Activate(context.Background(), "b1", device.AvailabilityBooked))
	assert.NotNil(t, coord.reevalStop, "reevaluation ticker must be scheduled")

	coord.StopReevaluation()
	assert.Nil(t, coord.reevalStop)
}
