package release

import (
	"github.com/roomsense/roomsense-platform/pkg/config"
)

// Classify is the occupancy classifier: a pure function from a snapshot and
// configuration to an occupied judgment, with no memory of prior calls.
// A disabled signal contributes false regardless of its raw value.
//
// In combined mode the people count and presence sensor must jointly agree
// before counting as occupancy evidence; a call, sound, or sharing signal
// still suffices on its own. Otherwise any enabled signal alone suffices.
func Classify(s Snapshot, cfg *config.Config) bool {
	if cfg.CombinedMode {
		if s.PeopleCount > 0 && s.PeoplePresence {
			return true
		}
	} else {
		if cfg.PeopleCountEnabled && s.PeopleCount > 0 {
			return true
		}
		if cfg.PresenceEnabled && s.PeoplePresence {
			return true
		}
	}

	if cfg.CallEnabled && s.InCall {
		return true
	}
	if cfg.SoundEnabled && s.SoundDetected {
		return true
	}
	if cfg.SharingEnabled && s.Sharing {
		return true
	}

	return false
}
