package device

import "context"

// Booking availability status delivered with booking-start events. Only
// AvailabilityBooked means the room is actually reserved going forward and
// activates monitoring.
const (
	AvailabilityBooked = "bookedUntil"
	AvailabilityFree   = "free"
)

// Check-in prompt identity. Prompt responses are matched against these so a
// response to an unrelated prompt never counts as a check-in.
const (
	CheckInPromptID = "roomsense-checkin"
	CheckInOptionID = 1
)

// Booking holds the details the device knows about a booking
type Booking struct {
	BookingID string `json:"booking_id"`
	MeetingID string `json:"meeting_id"`
}

// Controller is the external room-device collaborator. Status reads are
// asynchronous and fallible; callers substitute defaults and keep going when
// a read fails. Commands are best-effort: the caller logs failures and
// proceeds with its own state transition regardless.
type Controller interface {
	// Status reads (last value pushed by the device, error when unknown)
	PeopleCount(ctx context.Context) (int, error)
	PeoplePresence(ctx context.Context) (bool, error)
	CallCount(ctx context.Context) (int, error)
	SoundLevel(ctx context.Context) (int, error)
	Sharing(ctx context.Context) (bool, error)

	// UI commands
	ShowCheckInPrompt(ctx context.Context) error
	ClearPrompt(ctx context.Context) error
	ShowCountdown(ctx context.Context, remainingSeconds int) error
	ClearCountdown(ctx context.Context) error

	// Booking commands
	BookingDetails(ctx context.Context, bookingID string) (*Booking, error)
	DeclineBooking(ctx context.Context, meetingID string) error
}

// Listener receives device notifications decoded by the bridge. All methods
// are invoked from MQTT handler goroutines; implementations must hand the
// work off to their own dispatch loop.
type Listener interface {
	// OnStatus delivers a sensor value change. Numeric signals use intValue,
	// boolean signals use boolValue.
	OnStatus(signal string, intValue int, boolValue bool)

	// OnUIActivity delivers generic touch-panel activity
	OnUIActivity()

	// OnPromptResponse delivers a prompt answer
	OnPromptResponse(promptID string, optionID int)

	// OnBookingStart delivers a booking-started notification
	OnBookingStart(bookingID, availability string)

	// OnBookingEnd delivers a booking-ended notification
	OnBookingEnd(bookingID string)
}
