package release

import (
	"time"

	"github.com/google/uuid"
)

// PresenceState is the per-session hysteresis state. The zero timestamps act
// as the "unset" sentinel distinguishing "no timer running" from "just
// started". IsFull and IsEmpty are never both true.
type PresenceState struct {
	LastOccupiedAt time.Time
	LastVacantAt   time.Time
	IsFull         bool
	IsEmpty        bool

	// ListenerActive gates state-machine evaluation. It goes false when a
	// countdown starts so repeated polls cannot spawn duplicate countdowns,
	// and back to true when the countdown resolves or is canceled.
	ListenerActive bool
}

// BookingContext tracks the booking under monitoring. At most one booking is
// monitored at a time.
type BookingContext struct {
	BookingID string
	MeetingID string
	Active    bool
}

// Session owns all mutable monitoring state: the sensor snapshot, the
// hysteresis state, the booking context, and the active countdown. It is
// mutated only from the router's dispatch goroutine, so no locking is needed;
// each handler completes its transition before yielding control.
type Session struct {
	ID         string
	Room       string
	Monitoring bool

	Snapshot  Snapshot
	Presence  PresenceState
	Booking   BookingContext
	Countdown *Countdown

	StartedAt time.Time
}

// NewSession creates an idle session for a room
func NewSession(room string) *Session {
	return &Session{
		Room:     room,
		Presence: PresenceState{ListenerActive: true},
	}
}

// Begin resets the session for a newly monitored booking
func (s *Session) Begin(booking BookingContext, now time.Time) {
	s.ID = uuid.NewString()
	s.Monitoring = true
	s.Booking = booking
	s.Snapshot = Snapshot{}
	s.ResetPresence()
	s.StartedAt = now
}

// ResetPresence returns the hysteresis state to its fully unset form while
// keeping evaluation open
func (s *Session) ResetPresence() {
	s.Presence = PresenceState{ListenerActive: true}
}

// MarkOccupied applies the cancellation reset: both debounce timers cleared,
// state forced to Full with the occupied timer restarted from now, and the
// evaluation gate reopened
func (s *Session) MarkOccupied(now time.Time) {
	s.Presence.LastOccupiedAt = now
	s.Presence.LastVacantAt = time.Time{}
	s.Presence.IsFull = true
	s.Presence.IsEmpty = false
	s.Presence.ListenerActive = true
}

// End stops monitoring and clears all per-booking state
func (s *Session) End() {
	s.Monitoring = false
	s.Booking = BookingContext{}
	s.Snapshot = Snapshot{}
	s.ResetPresence()
}
