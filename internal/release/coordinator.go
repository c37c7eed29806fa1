package release

import (
	"context"
	"log/slog"
	"time"

	"github.com/roomsense/roomsense-platform/internal/device"
	"github.com/roomsense/roomsense-platform/pkg/config"
	"github.com/roomsense/roomsense-platform/pkg/mqtt"
)

// Coordinator keeps monitoring in lockstep with the active booking window.
// It decides whether a booking-start notification actually reserves the room,
// runs the full status poll, and owns the forced-reevaluation ticker that
// keeps occupancy assessed even when no push events arrive.
//
// All methods run on the router's dispatch goroutine.
type Coordinator struct {
	ctrl    device.Controller
	session *Session
	cfg     *config.Config
	logger  *slog.Logger
	deliver func(Event)
	now     func() time.Time

	reevalStop chan struct{}
}

// NewCoordinator creates a coordinator bound to the router's session
func NewCoordinator(ctrl device.Controller, session *Session, cfg *config.Config, logger *slog.Logger, deliver func(Event), now func() time.Time) *Coordinator {
	return &Coordinator{
		ctrl:    ctrl,
		session: session,
		cfg:     cfg,
		logger:  logger,
		deliver: deliver,
		now:     now,
	}
}

// Activate starts monitoring for a booking if it actually reserves the room
// going forward. Returns false when monitoring did not start.
func (c *Coordinator) Activate(ctx context.Context, bookingID, availability string) bool {
	if availability != device.AvailabilityBooked {
		c.logger.Debug("Booking does not reserve the room, not monitoring",
			"booking_id", bookingID,
			"availability", availability)
		return false
	}

	if c.session.Monitoring && c.session.Booking.Active {
		if c.session.Booking.BookingID == bookingID {
			c.logger.Debug("Already monitoring this booking", "booking_id", bookingID)
		} else {
			// Overlapping monitored bookings are not supported
			c.logger.Warn("Ignoring booking start while another booking is monitored",
				"booking_id", bookingID,
				"monitored_booking_id", c.session.Booking.BookingID)
		}
		return false
	}

	booking := BookingContext{BookingID: bookingID, Active: true}
	details, err := c.ctrl.BookingDetails(ctx, bookingID)
	if err != nil {
		// Monitoring still starts; only the eventual decline needs the
		// meeting id and that failure is logged again at decline time.
		c.logger.Warn("Failed to fetch booking details",
			"booking_id", bookingID,
			"error", err)
	} else {
		booking.MeetingID = details.MeetingID
	}

	c.session.Begin(booking, c.now())
	c.startReevaluation()

	c.logger.Info("Monitoring started",
		"room", c.cfg.RoomName,
		"booking_id", bookingID,
		"meeting_id", booking.MeetingID,
		"session_id", c.session.ID)

	return true
}

// startReevaluation launches the periodic forced-reevaluation ticker
func (c *Coordinator) startReevaluation() {
	c.StopReevaluation()

	stop := make(chan struct{})
	c.reevalStop = stop
	period := c.cfg.ReevaluationPeriod()
	ticker := time.NewTicker(period)

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				c.deliver(Event{Type: EventReevaluate})
			case <-stop:
				return
			}
		}
	}()

	c.logger.Debug("Forced reevaluation scheduled", "period", period.String())
}

// StopReevaluation cancels the forced-reevaluation ticker. Safe to call when
// no ticker is running.
func (c *Coordinator) StopReevaluation() {
	if c.reevalStop != nil {
		close(c.reevalStop)
		c.reevalStop = nil
	}
}

// Poll refreshes the whole snapshot from the device. Each signal read is
// independent: a failure keeps the last-known value for that signal and the
// poll carries on.
func (c *Coordinator) Poll(ctx context.Context) {
	snap := c.session.Snapshot

	if c.cfg.PeopleCountEnabled {
		if count, err := c.ctrl.PeopleCount(ctx); err != nil {
			c.logger.Warn("People count read failed, keeping last value", "error", err)
		} else {
			snap.Apply(c.cfg, mqtt.SignalPeopleCount, count, count > 0)
		}
	}

	if c.cfg.PresenceEnabled {
		if presence, err := c.ctrl.PeoplePresence(ctx); err != nil {
			c.logger.Warn("Presence read failed, keeping last value", "error", err)
		} else {
			snap.Apply(c.cfg, mqtt.SignalPresence, 0, presence)
		}
	}

	if c.cfg.CallEnabled {
		if calls, err := c.ctrl.CallCount(ctx); err != nil {
			c.logger.Warn("Call count read failed, keeping last value", "error", err)
		} else {
			snap.Apply(c.cfg, mqtt.SignalCallCount, calls, calls > 0)
		}
	}

	if c.cfg.SoundEnabled {
		if level, err := c.ctrl.SoundLevel(ctx); err != nil {
			c.logger.Warn("Sound level read failed, keeping last value", "error", err)
		} else {
			snap.Apply(c.cfg, mqtt.SignalSoundLevel, level, false)
		}
	}

	if c.cfg.SharingEnabled {
		if sharing, err := c.ctrl.Sharing(ctx); err != nil {
			c.logger.Warn("Sharing read failed, keeping last value", "error", err)
		} else {
			snap.Apply(c.cfg, mqtt.SignalSharing, 0, sharing)
		}
	}

	c.session.Snapshot = snap

	c.logger.Debug("Status poll complete",
		"room", c.cfg.RoomName,
		"people_count", snap.PeopleCount,
		"presence", snap.PeoplePresence,
		"in_call", snap.InCall,
		"sound", snap.SoundDetected,
		"sharing", snap.Sharing)
}
