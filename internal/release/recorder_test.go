package release

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roomsense/roomsense-platform/pkg/config"
	"github.com/roomsense/roomsense-platform/pkg/redis"
)

// fakeRedis is an in-memory redis.Client covering the operations the
// recorder uses
type fakeRedis struct {
	hashes map[string]map[string]string
	lists  map[string][]string
	ttls   map[string]time.Duration

	failWrites bool
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{
		hashes: make(map[string]map[string]string),
		lists:  make(map[string][]string),
		ttls:   make(map[string]time.Duration),
	}
}

func (f *fakeRedis) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	return nil
}

func (f *fakeRedis) Get(_ context.Context, key string) (string, error) {
	return "", fmt.Errorf("fake: key %s not found", key)
}

func (f *fakeRedis) HSet(_ context.Context, key string, field string, value interface{}) error {
	if f.failWrites {
		return fmt.Errorf("fake: write failed")
	}
	if f.hashes[key] == nil {
		f.hashes[key] = make(map[string]string)
	}
	switch v := value.(type) {
	case []byte:
		f.hashes[key][field] = string(v)
	default:
		f.hashes[key][field] = fmt.Sprint(v)
	}
	return nil
}

func (f *fakeRedis) HGet(_ context.Context, key string, field string) (string, error) {
	v, ok := f.hashes[key][field]
	if !ok {
		return "", fmt.Errorf("fake: field %s not found", field)
	}
	return v, nil
}

func (f *fakeRedis) HGetAll(_ context.Context, key string) (map[string]string, error) {
	return f.hashes[key], nil
}

func (f *fakeRedis) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(f.hashes, key)
		delete(f.lists, key)
	}
	return nil
}

func (f *fakeRedis) LPush(_ context.Context, key string, values ...interface{}) error {
	if f.failWrites {
		return fmt.Errorf("fake: write failed")
	}
	for _, value := range values {
		var s string
		switch v := value.(type) {
		case []byte:
			s = string(v)
		default:
			s = fmt.Sprint(v)
		}
		f.lists[key] = append([]string{s}, f.lists[key]...)
	}
	return nil
}

func (f *fakeRedis) LTrim(_ context.Context, key string, start, stop int64) error {
	list := f.lists[key]
	if int64(len(list)) > stop+1 {
		f.lists[key] = list[start : stop+1]
	}
	return nil
}

func (f *fakeRedis) LLen(_ context.Context, key string) (int64, error) {
	return int64(len(f.lists[key])), nil
}

func (f *fakeRedis) LRange(_ context.Context, key string, start, stop int64) ([]string, error) {
	list := f.lists[key]
	if stop < 0 || stop >= int64(len(list)) {
		stop = int64(len(list)) - 1
	}
	if start > stop {
		return nil, nil
	}
	return list[start : stop+1], nil
}

func (f *fakeRedis) Expire(_ context.Context, key string, ttl time.Duration) error {
	f.ttls[key] = ttl
	return nil
}

func (f *fakeRedis) Ping(_ context.Context) error { return nil }
func (f *fakeRedis) Close() error                 { return nil }

func newTestRecorder() (*RedisRecorder, *fakeRedis) {
	cfg := config.NewConfig()
	cfg.RoomName = "room-3a"
	fake := newFakeRedis()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewRedisRecorder(fake, cfg, logger), fake
}

func monitoringSession() *Session {
	s := NewSession("room-3a")
	s.Begin(BookingContext{BookingID: "b1", MeetingID: "m1", Active: true}, time.Now())
	s.Snapshot.PeopleCount = 2
	s.Snapshot.PeoplePresence = true
	return s
}

func TestTransition_MirrorsSession(t *testing.T) {
	rec, fake := newTestRecorder()
	s := monitoringSession()

	rec.Transition(context.Background(), s, "monitoring-started")

	mirror := fake.hashes[redis.SessionKey("room-3a")]
	require.NotNil(t, mirror)
	assert.Equal(t, s.ID, mirror["session_id"])
	assert.Equal(t, "true", mirror["monitoring"])
	assert.Equal(t, "b1", mirror["booking_id"])
	assert.Equal(t, "m1", mirror["meeting_id"])
	assert.Equal(t, "true", mirror["listener_active"])
	assert.NotEmpty(t, mirror["updated_at"])
	assert.Equal(t, historyTTL, fake.ttls[redis.SessionKey("room-3a")])
}

func TestTransition_AppendsHistoryEntry(t *testing.T) {
	rec, fake := newTestRecorder()
	s := monitoringSession()

	rec.Transition(context.Background(), s, "full")

	history := fake.lists[redis.HistoryKey("room-3a")]
	require.Len(t, history, 1)

	var entry historyEntry
	require.NoError(t, json.Unmarshal([]byte(history[0]), &entry))
	assert.Equal(t, "full", entry.Event)
	assert.Equal(t, s.ID, entry.SessionID)
	assert.Equal(t, "b1", entry.BookingID)
	assert.Equal(t, 2, entry.PeopleCount)
	assert.True(t, entry.PeoplePresence)
}

func TestTransition_HistoryNewestFirstAndCapped(t *testing.T) {
	rec, fake := newTestRecorder()
	s := monitoringSession()

	for i := 0; i < historyMaxEntries+20; i++ {
		rec.Transition(context.Background(), s, fmt.Sprintf("event-%d", i))
	}

	history := fake.lists[redis.HistoryKey("room-3a")]
	require.Len(t, history, historyMaxEntries)

	var newest historyEntry
	require.NoError(t, json.Unmarshal([]byte(history[0]), &newest))
	assert.Equal(t, fmt.Sprintf("event-%d", historyMaxEntries+19), newest.Event)
}

func TestTransition_WriteFailureDoesNotPanic(t *testing.T) {
	rec, fake := newTestRecorder()
	fake.failWrites = true

	rec.Transition(context.Background(), monitoringSession(), "full")
}

func TestDecision_RecordedInHistoryAndMirror(t *testing.T) {
	rec, fake := newTestRecorder()

	d := Decision{
		ID:         "d1",
		Room:       "room-3a",
		SessionID:  "s1",
		BookingID:  "b1",
		MeetingID:  "m1",
		Outcome:    OutcomeDeclined,
		StartedAt:  time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC),
		ResolvedAt: time.Date(2026, 3, 10, 9, 1, 0, 0, time.UTC),
	}
	rec.Decision(context.Background(), d)

	history := fake.lists[redis.HistoryKey("room-3a")]
	require.Len(t, history, 1)

	var got Decision
	require.NoError(t, json.Unmarshal([]byte(history[0]), &got))
	assert.Equal(t, d, got)

	last := fake.hashes[redis.SessionKey("room-3a")]["last_decision"]
	require.NotEmpty(t, last)
	require.NoError(t, json.Unmarshal([]byte(last), &got))
	assert.Equal(t, OutcomeDeclined, got.Outcome)
}
