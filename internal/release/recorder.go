package release

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/roomsense/roomsense-platform/pkg/config"
	"github.com/roomsense/roomsense-platform/pkg/redis"
)

// Decision is the record of one countdown resolution
type Decision struct {
	ID         string    `json:"id"`
	Room       string    `json:"room"`
	SessionID  string    `json:"session_id"`
	BookingID  string    `json:"booking_id"`
	MeetingID  string    `json:"meeting_id"`
	Outcome    string    `json:"outcome"`
	StartedAt  time.Time `json:"started_at"`
	ResolvedAt time.Time `json:"resolved_at"`
}

// Decision outcomes
const (
	OutcomeDeclined  = "declined"
	OutcomeCheckedIn = "checked_in"
	OutcomeCanceled  = "canceled"
)

// Recorder mirrors monitoring state for observability. All operations are
// best-effort: failures are logged by implementations and never surface to
// the decision path.
type Recorder interface {
	// Transition records a state transition or countdown event and refreshes
	// the live session mirror
	Transition(ctx context.Context, s *Session, event string)

	// Decision records a countdown resolution
	Decision(ctx context.Context, d Decision)
}

// NopRecorder discards everything; used in tests
type NopRecorder struct{}

func (NopRecorder) Transition(context.Context, *Session, string) {}
func (NopRecorder) Decision(context.Context, Decision)           {}

// historyTTL bounds how long per-room history and mirrors survive in Redis
const historyTTL = 7 * 24 * time.Hour

// historyMaxEntries caps the per-room history list
const historyMaxEntries = 200

// RedisRecorder mirrors the session into a Redis hash and keeps a capped
// history list per room
type RedisRecorder struct {
	redis  redis.Client
	cfg    *config.Config
	logger *slog.Logger
}

// NewRedisRecorder creates a recorder backed by Redis
func NewRedisRecorder(redisClient redis.Client, cfg *config.Config, logger *slog.Logger) *RedisRecorder {
	return &RedisRecorder{
		redis:  redisClient,
		cfg:    cfg,
		logger: logger,
	}
}

// historyEntry is the JSON shape of one history list element
type historyEntry struct {
	Timestamp      string `json:"ts"`
	Event          string `json:"event"`
	SessionID      string `json:"session_id"`
	BookingID      string `json:"booking_id,omitempty"`
	PeopleCount    int    `json:"people_count"`
	PeoplePresence bool   `json:"people_presence"`
	InCall         bool   `json:"in_call"`
	SoundDetected  bool   `json:"sound_detected"`
	Sharing        bool   `json:"sharing"`
}

// Transition mirrors the live session and appends a history entry
func (r *RedisRecorder) Transition(ctx context.Context, s *Session, event string) {
	sessionKey := redis.SessionKey(s.Room)

	fields := map[string]interface{}{
		"session_id":      s.ID,
		"monitoring":      s.Monitoring,
		"is_full":         s.Presence.IsFull,
		"is_empty":        s.Presence.IsEmpty,
		"listener_active": s.Presence.ListenerActive,
		"booking_id":      s.Booking.BookingID,
		"meeting_id":      s.Booking.MeetingID,
		"updated_at":      time.Now().UTC().Format(time.RFC3339Nano),
	}
	for field, value := range fields {
		if err := r.redis.HSet(ctx, sessionKey, field, value); err != nil {
			r.logger.Warn("Failed to mirror session field",
				"room", s.Room,
				"field", field,
				"error", err)
			break
		}
	}
	if err := r.redis.Expire(ctx, sessionKey, historyTTL); err != nil {
		r.logger.Warn("Failed to set session mirror TTL", "room", s.Room, "error", err)
	}

	entry := historyEntry{
		Timestamp:      time.Now().UTC().Format(time.RFC3339Nano),
		Event:          event,
		SessionID:      s.ID,
		BookingID:      s.Booking.BookingID,
		PeopleCount:    s.Snapshot.PeopleCount,
		PeoplePresence: s.Snapshot.PeoplePresence,
		InCall:         s.Snapshot.InCall,
		SoundDetected:  s.Snapshot.SoundDetected,
		Sharing:        s.Snapshot.Sharing,
	}
	data, err := json.Marshal(entry)
	if err != nil {
		r.logger.Warn("Failed to marshal history entry", "room", s.Room, "error", err)
		return
	}

	historyKey := redis.HistoryKey(s.Room)
	if err := r.redis.LPush(ctx, historyKey, data); err != nil {
		r.logger.Warn("Failed to append history", "room", s.Room, "error", err)
		return
	}
	if err := r.redis.LTrim(ctx, historyKey, 0, historyMaxEntries-1); err != nil {
		r.logger.Warn("Failed to trim history", "room", s.Room, "error", err)
	}
	if err := r.redis.Expire(ctx, historyKey, historyTTL); err != nil {
		r.logger.Warn("Failed to set history TTL", "room", s.Room, "error", err)
	}
}

// Decision appends the resolution to the history and stores it as the room's
// last decision
func (r *RedisRecorder) Decision(ctx context.Context, d Decision) {
	data, err := json.Marshal(d)
	if err != nil {
		r.logger.Warn("Failed to marshal decision", "room", d.Room, "error", err)
		return
	}

	historyKey := redis.HistoryKey(d.Room)
	if err := r.redis.LPush(ctx, historyKey, data); err != nil {
		r.logger.Warn("Failed to record decision", "room", d.Room, "error", err)
	}

	if err := r.redis.HSet(ctx, redis.SessionKey(d.Room), "last_decision", data); err != nil {
		r.logger.Warn("Failed to store last decision", "room", d.Room, "error", err)
	}

	r.logger.Info("Release decision recorded",
		"room", d.Room,
		"outcome", d.Outcome,
		"booking_id", d.BookingID)
}
