package release

import (
	"github.com/roomsense/roomsense-platform/pkg/config"
	"github.com/roomsense/roomsense-platform/pkg/mqtt"
)

// Snapshot holds the latest known value of each monitored signal. It is owned
// by the running monitoring session: replaced wholesale on each full poll,
// field-wise on each push event.
type Snapshot struct {
	PeopleCount    int
	PeoplePresence bool
	InCall         bool
	SoundDetected  bool
	Sharing        bool
}

// NormalizeCount maps the device's "no reading" sentinel (-1) and any other
// negative value to zero
func NormalizeCount(raw int) int {
	if raw < 0 {
		return 0
	}
	return raw
}

// Apply updates a single snapshot field from a pushed signal value. Numeric
// signals use intValue, boolean signals use boolValue. When the presence
// sensor is disabled, presence is synthesized from the people count.
func (s *Snapshot) Apply(cfg *config.Config, signal string, intValue int, boolValue bool) {
	switch signal {
	case mqtt.SignalPeopleCount:
		s.PeopleCount = NormalizeCount(intValue)
		if !cfg.PresenceEnabled {
			s.PeoplePresence = s.PeopleCount > 0
		}
	case mqtt.SignalPresence:
		if cfg.PresenceEnabled {
			s.PeoplePresence = boolValue
		}
	case mqtt.SignalCallCount:
		s.InCall = intValue > 0
	case mqtt.SignalSoundLevel:
		s.SoundDetected = intValue > cfg.SoundThresholdDb
	case mqtt.SignalSharing:
		s.Sharing = boolValue
	}
}

// PresenceIndicated reports whether the snapshot carries direct evidence of a
// person in the room: a nonzero people count or an explicit presence reading.
// Used for the fast cancellation path that bypasses the debounce cycle.
func (s Snapshot) PresenceIndicated(cfg *config.Config) bool {
	if cfg.PeopleCountEnabled && s.PeopleCount > 0 {
		return true
	}
	if cfg.PresenceEnabled && s.PeoplePresence {
		return true
	}
	return false
}
