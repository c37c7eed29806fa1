package release

import (
	"time"
)

// Transition is the outcome of a presence state machine evaluation
type Transition int

const (
	// TransitionNone means no stable state change occurred
	TransitionNone Transition = iota
	// TransitionFull means sustained occupancy was confirmed
	TransitionFull
	// TransitionEmpty means sustained vacancy was confirmed
	TransitionEmpty
)

// String returns a label for recording and logs
func (t Transition) String() string {
	switch t {
	case TransitionFull:
		return "full"
	case TransitionEmpty:
		return "empty"
	default:
		return "none"
	}
}

// Evaluate advances the hysteresis state machine with a fresh classifier
// result. Timers are wall-clock timestamps rather than elapsed counters, so
// irregular polling intervals do not skew the debounce.
//
// Occupied: the occupied-since timer starts on first sight and, once it has
// run past minBeforeBook, the state becomes Full. The timer restarts on that
// edge so sustained occupancy neither re-fires Full on every poll nor ever
// expires while someone stays in the room.
//
// Vacant: the vacant-since timer starts on first sight and, once it has run
// past minBeforeRelease, the state becomes Empty, at most once until reset.
func Evaluate(p *PresenceState, occupied bool, now time.Time, minBeforeBook, minBeforeRelease time.Duration) Transition {
	if occupied {
		if p.LastOccupiedAt.IsZero() {
			p.LastOccupiedAt = now
			p.LastVacantAt = time.Time{}
			return TransitionNone
		}
		if now.Sub(p.LastOccupiedAt) > minBeforeBook {
			p.LastOccupiedAt = now
			if !p.IsFull {
				p.IsFull = true
				p.IsEmpty = false
				return TransitionFull
			}
		}
		return TransitionNone
	}

	if p.LastVacantAt.IsZero() {
		p.LastVacantAt = now
		p.LastOccupiedAt = time.Time{}
		return TransitionNone
	}
	if now.Sub(p.LastVacantAt) > minBeforeRelease && !p.IsEmpty {
		p.IsEmpty = true
		p.IsFull = false
		return TransitionEmpty
	}
	return TransitionNone
}
