package release

// EventType identifies an externally delivered or timer-generated event
type EventType int

const (
	// EventSensorUpdate carries a pushed sensor value change
	EventSensorUpdate EventType = iota
	// EventUIActivity carries generic touch-panel activity
	EventUIActivity
	// EventPromptResponse carries a prompt answer
	EventPromptResponse
	// EventBookingStart carries a booking-started notification
	EventBookingStart
	// EventBookingEnd carries a booking-ended notification
	EventBookingEnd
	// EventCountdownTick is the countdown's once-per-second tick
	EventCountdownTick
	// EventCountdownExpire is the countdown's terminal deadline
	EventCountdownExpire
	// EventReevaluate is the periodic forced occupancy reassessment
	EventReevaluate
)

// String returns a label for logs
func (t EventType) String() string {
	switch t {
	case EventSensorUpdate:
		return "sensor-update"
	case EventUIActivity:
		return "ui-activity"
	case EventPromptResponse:
		return "prompt-response"
	case EventBookingStart:
		return "booking-start"
	case EventBookingEnd:
		return "booking-end"
	case EventCountdownTick:
		return "countdown-tick"
	case EventCountdownExpire:
		return "countdown-expire"
	case EventReevaluate:
		return "reevaluate"
	}
	return "unknown"
}

// Event is the single unit of work for the router's dispatch loop. Only the
// fields relevant to the event type are populated.
type Event struct {
	Type EventType

	// Sensor updates
	Signal    string
	IntValue  int
	BoolValue bool

	// Prompt responses
	PromptID string
	OptionID int

	// Booking lifecycle
	BookingID    string
	Availability string

	// Countdown ticks and expiry carry the countdown's id so stale timer
	// events from an already-canceled countdown are ignored
	CountdownID string
}
