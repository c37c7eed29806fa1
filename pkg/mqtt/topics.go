package mqtt

import (
	"fmt"
	"strings"
)

// Topic layout for the room-control bridge.
//
// Status pushes (retained by the bridge so late subscribers see the last
// value): roomctl/status/{room}/{signal}
// UI and booking events:               roomctl/event/{room}/{kind}
// Commands toward the device:          roomctl/command/{room}/{action}
const (
	// Signal names used in status topics
	SignalPeopleCount = "people-count"
	SignalPresence    = "presence"
	SignalCallCount   = "call-count"
	SignalSoundLevel  = "sound-level"
	SignalSharing     = "sharing"

	// Event kinds
	EventUIActivity     = "ui-activity"
	EventPromptResponse = "prompt-response"
	EventBookingStart   = "booking-start"
	EventBookingEnd     = "booking-end"

	// Command actions
	CommandPrompt         = "prompt"
	CommandPromptClear    = "prompt-clear"
	CommandCountdown      = "countdown"
	CommandCountdownClear = "countdown-clear"
	CommandBookingDecline = "booking-decline"
)

// StatusTopic constructs a status topic for a signal in a room
func StatusTopic(room, signal string) string {
	return fmt.Sprintf("roomctl/status/%s/%s", room, signal)
}

// StatusWildcard returns the subscription pattern for all status pushes of a room
func StatusWildcard(room string) string {
	return fmt.Sprintf("roomctl/status/%s/+", room)
}

// EventTopic constructs an event topic for a room
func EventTopic(room, kind string) string {
	return fmt.Sprintf("roomctl/event/%s/%s", room, kind)
}

// EventWildcard returns the subscription pattern for all events of a room
func EventWildcard(room string) string {
	return fmt.Sprintf("roomctl/event/%s/+", room)
}

// CommandTopic constructs a command topic for a room
func CommandTopic(room, action string) string {
	return fmt.Sprintf("roomctl/command/%s/%s", room, action)
}

// ParseTopic splits a roomctl topic into its class (status/event/command),
// room, and leaf segment. Returns false when the topic does not match the
// roomctl layout.
func ParseTopic(topic string) (class, room, leaf string, ok bool) {
	parts := strings.Split(topic, "/")
	if len(parts) != 4 || parts[0] != "roomctl" {
		return "", "", "", false
	}
	return parts[1], parts[2], parts[3], true
}
