package release

import (
	"testing"

	"github.com/roomsense/roomsense-platform/pkg/config"
)

func allSignalsConfig() *config.Config {
	cfg := config.NewConfig()
	cfg.PeopleCountEnabled = true
	cfg.PresenceEnabled = true
	cfg.CallEnabled = true
	cfg.SoundEnabled = true
	cfg.SharingEnabled = true
	cfg.CombinedMode = false
	return cfg
}

func TestClassify_AnyEnabledSignalSuffices(t *testing.T) {
	cfg := allSignalsConfig()

	cases := []struct {
		name string
		snap Snapshot
	}{
		{"people count", Snapshot{PeopleCount: 1}},
		{"presence", Snapshot{PeoplePresence: true}},
		{"active call", Snapshot{InCall: true}},
		{"sound", Snapshot{SoundDetected: true}},
		{"sharing", Snapshot{Sharing: true}},
	}

	for _, tc := range cases {
		if !Classify(tc.snap, cfg) {
			t.Errorf("%s: expected occupied", tc.name)
		}
	}
}

func TestClassify_AllSignalsFalse(t *testing.T) {
	cfg := allSignalsConfig()

	if Classify(Snapshot{}, cfg) {
		t.Error("expected not occupied when every signal is false")
	}
}

func TestClassify_DisabledSignalContributesFalse(t *testing.T) {
	cfg := allSignalsConfig()
	cfg.SoundEnabled = false
	cfg.SharingEnabled = false
	cfg.CallEnabled = false

	snap := Snapshot{SoundDetected: true, Sharing: true, InCall: true}
	if Classify(snap, cfg) {
		t.Error("expected disabled signals to be ignored")
	}
}

func TestClassify_CombinedModeRequiresBoth(t *testing.T) {
	cfg := allSignalsConfig()
	cfg.CombinedMode = true
	cfg.CallEnabled = false
	cfg.SoundEnabled = false
	cfg.SharingEnabled = false

	if Classify(Snapshot{PeopleCount: 2}, cfg) {
		t.Error("count alone must not satisfy combined mode")
	}
	if Classify(Snapshot{PeoplePresence: true}, cfg) {
		t.Error("presence alone must not satisfy combined mode")
	}
	if !Classify(Snapshot{PeopleCount: 2, PeoplePresence: true}, cfg) {
		t.Error("count and presence together must satisfy combined mode")
	}
}

func TestClassify_CombinedModeOtherSignalsStillCount(t *testing.T) {
	cfg := allSignalsConfig()
	cfg.CombinedMode = true

	if !Classify(Snapshot{InCall: true}, cfg) {
		t.Error("an active call must count as occupancy in combined mode")
	}
	if !Classify(Snapshot{Sharing: true}, cfg) {
		t.Error("sharing must count as occupancy in combined mode")
	}
}
