package device

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/roomsense/roomsense-platform/pkg/config"
	"github.com/roomsense/roomsense-platform/pkg/mqtt"
)

// Bridge implements Controller over the MQTT room-control topics. It caches
// the last pushed value per signal so status reads answer without a round
// trip, decodes event payloads, and publishes commands.
type Bridge struct {
	mqtt     mqtt.Client
	cfg      *config.Config
	logger   *slog.Logger
	listener Listener

	mu          sync.RWMutex
	intValues   map[string]int
	boolValues  map[string]bool
	seen        map[string]time.Time
	lastBooking *Booking
}

// NewBridge creates a bridge for the configured room
func NewBridge(mqttClient mqtt.Client, cfg *config.Config, logger *slog.Logger) *Bridge {
	return &Bridge{
		mqtt:       mqttClient,
		cfg:        cfg,
		logger:     logger,
		intValues:  make(map[string]int),
		boolValues: make(map[string]bool),
		seen:       make(map[string]time.Time),
	}
}

// Start subscribes to the room's status and event topics and begins
// forwarding notifications to the listener
func (b *Bridge) Start(listener Listener) error {
	b.listener = listener
	room := b.cfg.RoomName

	if err := b.mqtt.Subscribe(mqtt.StatusWildcard(room), 0, b.handleStatus); err != nil {
		return fmt.Errorf("failed to subscribe to status topics: %w", err)
	}
	if err := b.mqtt.Subscribe(mqtt.EventWildcard(room), 0, b.handleEvent); err != nil {
		return fmt.Errorf("failed to subscribe to event topics: %w", err)
	}

	b.logger.Info("Device bridge started", "room", room)
	return nil
}

// statusPayload is the wire format of status pushes
type statusPayload struct {
	Value interface{} `json:"value"`
	TS    string      `json:"ts"`
}

// handleStatus decodes a status push, updates the read cache, and notifies
// the listener. Invalid values normalize to 0/false rather than crashing.
func (b *Bridge) handleStatus(msg mqtt.Message) {
	_, room, signal, ok := mqtt.ParseTopic(msg.Topic())
	if !ok || room != b.cfg.RoomName {
		return
	}

	var payload statusPayload
	if err := json.Unmarshal(msg.Payload(), &payload); err != nil {
		b.logger.Warn("Failed to parse status payload", "signal", signal, "error", err)
		return
	}

	intValue, boolValue := normalizeValue(signal, payload.Value, b.logger)

	b.mu.Lock()
	b.intValues[signal] = intValue
	b.boolValues[signal] = boolValue
	b.seen[signal] = time.Now()
	b.mu.Unlock()

	b.logger.Debug("Status push",
		"signal", signal,
		"int_value", intValue,
		"bool_value", boolValue)

	if b.listener != nil {
		b.listener.OnStatus(signal, intValue, boolValue)
	}
}

// normalizeValue coerces a raw JSON value into the int/bool pair a signal
// carries. Non-numeric and unexpected payloads become 0/false.
func normalizeValue(signal string, raw interface{}, logger *slog.Logger) (int, bool) {
	switch signal {
	case mqtt.SignalPeopleCount, mqtt.SignalCallCount, mqtt.SignalSoundLevel:
		switch v := raw.(type) {
		case float64:
			return int(v), int(v) > 0
		case bool:
			if v {
				return 1, true
			}
			return 0, false
		default:
			logger.Warn("Non-numeric value for numeric signal", "signal", signal, "value", raw)
			return 0, false
		}
	case mqtt.SignalPresence, mqtt.SignalSharing:
		switch v := raw.(type) {
		case bool:
			if v {
				return 1, true
			}
			return 0, false
		case string:
			// Some firmwares report presence as "Yes"/"No"
			if v == "Yes" || v == "yes" || v == "true" || v == "on" {
				return 1, true
			}
			return 0, false
		case float64:
			return int(v), v > 0
		default:
			logger.Warn("Unexpected value for boolean signal", "signal", signal, "value", raw)
			return 0, false
		}
	default:
		logger.Warn("Unknown signal", "signal", signal)
		return 0, false
	}
}

// handleEvent decodes UI and booking events and notifies the listener
func (b *Bridge) handleEvent(msg mqtt.Message) {
	_, room, kind, ok := mqtt.ParseTopic(msg.Topic())
	if !ok || room != b.cfg.RoomName || b.listener == nil {
		return
	}

	switch kind {
	case mqtt.EventUIActivity:
		b.listener.OnUIActivity()

	case mqtt.EventPromptResponse:
		var ev struct {
			PromptID string `json:"prompt_id"`
			OptionID int    `json:"option_id"`
		}
		if err := json.Unmarshal(msg.Payload(), &ev); err != nil {
			b.logger.Warn("Failed to parse prompt response", "error", err)
			return
		}
		b.listener.OnPromptResponse(ev.PromptID, ev.OptionID)

	case mqtt.EventBookingStart:
		var ev struct {
			BookingID    string `json:"booking_id"`
			MeetingID    string `json:"meeting_id"`
			Availability string `json:"availability"`
		}
		if err := json.Unmarshal(msg.Payload(), &ev); err != nil {
			b.logger.Warn("Failed to parse booking start", "error", err)
			return
		}
		b.mu.Lock()
		b.lastBooking = &Booking{BookingID: ev.BookingID, MeetingID: ev.MeetingID}
		b.mu.Unlock()
		b.listener.OnBookingStart(ev.BookingID, ev.Availability)

	case mqtt.EventBookingEnd:
		var ev struct {
			BookingID string `json:"booking_id"`
		}
		if err := json.Unmarshal(msg.Payload(), &ev); err != nil {
			b.logger.Warn("Failed to parse booking end", "error", err)
			return
		}
		b.listener.OnBookingEnd(ev.BookingID)

	default:
		b.logger.Debug("Ignoring unknown event kind", "kind", kind)
	}
}

// readInt serves a cached numeric signal value
func (b *Bridge) readInt(signal string) (int, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if _, ok := b.seen[signal]; !ok {
		return 0, fmt.Errorf("no reading for signal %s", signal)
	}
	return b.intValues[signal], nil
}

// readBool serves a cached boolean signal value
func (b *Bridge) readBool(signal string) (bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if _, ok := b.seen[signal]; !ok {
		return false, fmt.Errorf("no reading for signal %s", signal)
	}
	return b.boolValues[signal], nil
}

// PeopleCount returns the last pushed people count
func (b *Bridge) PeopleCount(ctx context.Context) (int, error) {
	return b.readInt(mqtt.SignalPeopleCount)
}

// PeoplePresence returns the last pushed presence state
func (b *Bridge) PeoplePresence(ctx context.Context) (bool, error) {
	return b.readBool(mqtt.SignalPresence)
}

// CallCount returns the last pushed active call count
func (b *Bridge) CallCount(ctx context.Context) (int, error) {
	return b.readInt(mqtt.SignalCallCount)
}

// SoundLevel returns the last pushed ambient sound level
func (b *Bridge) SoundLevel(ctx context.Context) (int, error) {
	return b.readInt(mqtt.SignalSoundLevel)
}

// Sharing returns the last pushed presentation sharing state
func (b *Bridge) Sharing(ctx context.Context) (bool, error) {
	return b.readBool(mqtt.SignalSharing)
}

// publishCommand marshals and publishes a command payload
func (b *Bridge) publishCommand(action string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal %s command: %w", action, err)
	}
	topic := mqtt.CommandTopic(b.cfg.RoomName, action)
	if err := b.mqtt.Publish(topic, 0, false, data); err != nil {
		return fmt.Errorf("failed to publish %s command: %w", action, err)
	}
	return nil
}

// ShowCheckInPrompt displays the persistent check-in prompt
func (b *Bridge) ShowCheckInPrompt(ctx context.Context) error {
	return b.publishCommand(mqtt.CommandPrompt, map[string]interface{}{
		"prompt_id": CheckInPromptID,
		"title":     "Is this room still in use?",
		"options": []map[string]interface{}{
			{"id": CheckInOptionID, "label": "Check in"},
		},
	})
}

// ClearPrompt removes the check-in prompt
func (b *Bridge) ClearPrompt(ctx context.Context) error {
	return b.publishCommand(mqtt.CommandPromptClear, map[string]interface{}{
		"prompt_id": CheckInPromptID,
	})
}

// ShowCountdown updates the visible countdown line
func (b *Bridge) ShowCountdown(ctx context.Context, remainingSeconds int) error {
	return b.publishCommand(mqtt.CommandCountdown, map[string]interface{}{
		"remaining_seconds": remainingSeconds,
	})
}

// ClearCountdown removes the countdown line
func (b *Bridge) ClearCountdown(ctx context.Context) error {
	return b.publishCommand(mqtt.CommandCountdownClear, map[string]interface{}{})
}

// BookingDetails returns the details carried by the most recent booking-start
// event. The device pushes details with the event rather than serving lookups.
func (b *Bridge) BookingDetails(ctx context.Context, bookingID string) (*Booking, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.lastBooking == nil || b.lastBooking.BookingID != bookingID {
		return nil, fmt.Errorf("no details for booking %s", bookingID)
	}
	booking := *b.lastBooking
	return &booking, nil
}

// DeclineBooking asks the device to decline the booking with the given meeting id
func (b *Bridge) DeclineBooking(ctx context.Context, meetingID string) error {
	return b.publishCommand(mqtt.CommandBookingDecline, map[string]interface{}{
		"meeting_id": meetingID,
	})
}
