package device

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roomsense/roomsense-platform/pkg/config"
	"github.com/roomsense/roomsense-platform/pkg/mqtt"
)

// fakeMQTT is an in-memory mqtt.Client that records subscriptions and
// publishes, and lets tests inject incoming messages
type fakeMQTT struct {
	mu        sync.Mutex
	handlers  map[string]mqtt.MessageHandler
	published []publishedMessage
}

type publishedMessage struct {
	topic   string
	payload []byte
}

func newFakeMQTT() *fakeMQTT {
	return &fakeMQTT{handlers: make(map[string]mqtt.MessageHandler)}
}

func (f *fakeMQTT) Connect(_ context.Context) error { return nil }
func (f *fakeMQTT) Disconnect()                     {}
func (f *fakeMQTT) IsConnected() bool               { return true }

func (f *fakeMQTT) Subscribe(topic string, _ byte, handler mqtt.MessageHandler) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[topic] = handler
	return nil
}

func (f *fakeMQTT) Publish(topic string, _ byte, _ bool, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, publishedMessage{topic: topic, payload: payload})
	return nil
}

// inject delivers a message to the handler whose subscription filter matches
// the topic. Only the single-level trailing wildcard used by the bridge is
// supported.
func (f *fakeMQTT) inject(t *testing.T, topic string, payload []byte) {
	t.Helper()
	f.mu.Lock()
	var handler mqtt.MessageHandler
	for filter, h := range f.handlers {
		prefix := strings.TrimSuffix(filter, "+")
		if filter != prefix && strings.HasPrefix(topic, prefix) {
			handler = h
			break
		}
	}
	f.mu.Unlock()

	require.NotNil(t, handler, "no subscription matches topic %s", topic)
	handler(fakeMessage{topic: topic, payload: payload})
}

func (f *fakeMQTT) lastPublished(t *testing.T) publishedMessage {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.published, "expected a published message")
	return f.published[len(f.published)-1]
}

type fakeMessage struct {
	topic   string
	payload []byte
}

func (m fakeMessage) Topic() string   { return m.topic }
func (m fakeMessage) Payload() []byte { return m.payload }
func (m fakeMessage) Ack()            {}

// recordingListener captures bridge notifications
type recordingListener struct {
	mu            sync.Mutex
	statuses      []string
	intValues     []int
	boolValues    []bool
	uiActivity    int
	prompts       []string
	bookingStarts []string
	bookingEnds   []string
}

func (l *recordingListener) OnStatus(signal string, intValue int, boolValue bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.statuses = append(l.statuses, signal)
	l.intValues = append(l.intValues, intValue)
	l.boolValues = append(l.boolValues, boolValue)
}

func (l *recordingListener) OnUIActivity() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.uiActivity++
}

func (l *recordingListener) OnPromptResponse(promptID string, optionID int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.prompts = append(l.prompts, promptID)
}

func (l *recordingListener) OnBookingStart(bookingID, availability string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.bookingStarts = append(l.bookingStarts, bookingID)
}

func (l *recordingListener) OnBookingEnd(bookingID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.bookingEnds = append(l.bookingEnds, bookingID)
}

func newTestBridge(t *testing.T) (*Bridge, *fakeMQTT, *recordingListener) {
	t.Helper()

	cfg := config.NewConfig()
	cfg.RoomName = "room-3a"

	client := newFakeMQTT()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	bridge := NewBridge(client, cfg, logger)

	listener := &recordingListener{}
	require.NoError(t, bridge.Start(listener))

	return bridge, client, listener
}

func TestBridge_SubscribesToRoomTopics(t *testing.T) {
	_, client, _ := newTestBridge(t)

	assert.Contains(t, client.handlers, "roomctl/status/room-3a/+")
	assert.Contains(t, client.handlers, "roomctl/event/room-3a/+")
}

func TestBridge_StatusPushCachedAndForwarded(t *testing.T) {
	bridge, client, listener := newTestBridge(t)

	client.inject(t, mqtt.StatusTopic("room-3a", mqtt.SignalPeopleCount), []byte(`{"value": 3}`))

	count, err := bridge.PeopleCount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	require.Len(t, listener.statuses, 1)
	assert.Equal(t, mqtt.SignalPeopleCount, listener.statuses[0])
	assert.Equal(t, 3, listener.intValues[0])
	assert.True(t, listener.boolValues[0])
}

func TestBridge_ReadsErrorBeforeFirstPush(t *testing.T) {
	bridge, _, _ := newTestBridge(t)

	_, err := bridge.PeopleCount(context.Background())
	assert.Error(t, err)
	_, err = bridge.PeoplePresence(context.Background())
	assert.Error(t, err)
}

func TestBridge_PresenceStringForms(t *testing.T) {
	bridge, client, _ := newTestBridge(t)

	client.inject(t, mqtt.StatusTopic("room-3a", mqtt.SignalPresence), []byte(`{"value": "Yes"}`))
	presence, err := bridge.PeoplePresence(context.Background())
	require.NoError(t, err)
	assert.True(t, presence)

	client.inject(t, mqtt.StatusTopic("room-3a", mqtt.SignalPresence), []byte(`{"value": "No"}`))
	presence, err = bridge.PeoplePresence(context.Background())
	require.NoError(t, err)
	assert.False(t, presence)

	client.inject(t, mqtt.StatusTopic("room-3a", mqtt.SignalPresence), []byte(`{"value": true}`))
	presence, err = bridge.PeoplePresence(context.Background())
	require.NoError(t, err)
	assert.True(t, presence)
}

func TestBridge_InvalidValueNormalizesToZero(t *testing.T) {
	bridge, client, _ := newTestBridge(t)

	client.inject(t, mqtt.StatusTopic("room-3a", mqtt.SignalPeopleCount), []byte(`{"value": "three"}`))

	count, err := bridge.PeopleCount(context.Background())
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestBridge_MalformedPayloadDropped(t *testing.T) {
	bridge, client, listener := newTestBridge(t)

	client.inject(t, mqtt.StatusTopic("room-3a", mqtt.SignalPeopleCount), []byte(`{not json`))

	_, err := bridge.PeopleCount(context.Background())
	assert.Error(t, err)
	assert.Empty(t, listener.statuses)
}

func TestBridge_OtherRoomIgnored(t *testing.T) {
	bridge, client, listener := newTestBridge(t)

	// Delivered straight to the status handler so the bridge's own room
	// filter is what drops it.
	handler := client.handlers["roomctl/status/room-3a/+"]
	require.NotNil(t, handler)
	handler(fakeMessage{
		topic:   mqtt.StatusTopic("room-9z", mqtt.SignalPeopleCount),
		payload: []byte(`{"value": 5}`),
	})

	_, err := bridge.PeopleCount(context.Background())
	assert.Error(t, err)
	assert.Empty(t, listener.statuses)
}

func TestBridge_EventNotifications(t *testing.T) {
	_, client, listener := newTestBridge(t)

	client.inject(t, mqtt.EventTopic("room-3a", mqtt.EventUIActivity), []byte(`{}`))
	client.inject(t, mqtt.EventTopic("room-3a", mqtt.EventPromptResponse),
		[]byte(`{"prompt_id": "roomsense-checkin", "option_id": 1}`))
	client.inject(t, mqtt.EventTopic("room-3a", mqtt.EventBookingStart),
		[]byte(`{"booking_id": "b1", "meeting_id": "m1", "availability": "bookedUntil"}`))
	client.inject(t, mqtt.EventTopic("room-3a", mqtt.EventBookingEnd), []byte(`{"booking_id": "b1"}`))

	assert.Equal(t, 1, listener.uiActivity)
	assert.Equal(t, []string{"roomsense-checkin"}, listener.prompts)
	assert.Equal(t, []string{"b1"}, listener.bookingStarts)
	assert.Equal(t, []string{"b1"}, listener.bookingEnds)
}

func TestBridge_BookingDetailsFromStartEvent(t *testing.T) {
	bridge, client, _ := newTestBridge(t)

	client.inject(t, mqtt.EventTopic("room-3a", mqtt.EventBookingStart),
		[]byte(`{"booking_id": "b1", "meeting_id": "m1", "availability": "bookedUntil"}`))

	booking, err := bridge.BookingDetails(context.Background(), "b1")
	require.NoError(t, err)
	assert.Equal(t, "m1", booking.MeetingID)

	_, err = bridge.BookingDetails(context.Background(), "b2")
	assert.Error(t, err)
}

func TestBridge_CommandsPublished(t *testing.T) {
	bridge, client, _ := newTestBridge(t)
	ctx := context.Background()

	require.NoError(t, bridge.ShowCountdown(ctx, 42))
	msg := client.lastPublished(t)
	assert.Equal(t, "roomctl/command/room-3a/countdown", msg.topic)

	var countdown struct {
		RemainingSeconds int `json:"remaining_seconds"`
	}
	require.NoError(t, json.Unmarshal(msg.payload, &countdown))
	assert.Equal(t, 42, countdown.RemainingSeconds)

	require.NoError(t, bridge.ShowCheckInPrompt(ctx))
	msg = client.lastPublished(t)
	assert.Equal(t, "roomctl/command/room-3a/prompt", msg.topic)
	assert.Contains(t, string(msg.payload), CheckInPromptID)

	require.NoError(t, bridge.ClearPrompt(ctx))
	assert.Equal(t, "roomctl/command/room-3a/prompt-clear", client.lastPublished(t).topic)

	require.NoError(t, bridge.ClearCountdown(ctx))
	assert.Equal(t, "roomctl/command/room-3a/countdown-clear", client.lastPublished(t).topic)

	require.NoError(t, bridge.DeclineBooking(ctx, "m1"))
	msg = client.lastPublished(t)
	assert.Equal(t, "roomctl/command/room-3a/booking-decline", msg.topic)

	var decline struct {
		MeetingID string `json:"meeting_id"`
	}
	require.NoError(t, json.Unmarshal(msg.payload, &decline))
	assert.Equal(t, "m1", decline.MeetingID)
}
