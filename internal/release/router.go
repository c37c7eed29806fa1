package release

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/roomsense/roomsense-platform/internal/device"
	"github.com/roomsense/roomsense-platform/pkg/config"
)

// Router is the single entry point for all asynchronous signals: sensor
// pushes, UI responses, booking lifecycle, countdown ticks, and forced
// reevaluations. One goroutine drains the event channel and dispatches in
// arrival order, so the session it owns needs no locking; every handler
// finishes its transition before the next event runs.
type Router struct {
	cfg      *config.Config
	ctrl     device.Controller
	recorder Recorder
	archive  DecisionArchive
	session  *Session
	coord    *Coordinator
	logger   *slog.Logger

	events chan Event

	// tickInterval is one second in production, shortened in tests
	tickInterval time.Duration
	now          func() time.Time
}

// NewRouter wires a router around a fresh session for the configured room.
// archive may be nil when the Postgres decision archive is disabled.
func NewRouter(ctrl device.Controller, recorder Recorder, archive DecisionArchive, cfg *config.Config, logger *slog.Logger) *Router {
	r := &Router{
		cfg:          cfg,
		ctrl:         ctrl,
		recorder:     recorder,
		archive:      archive,
		session:      NewSession(cfg.RoomName),
		logger:       logger,
		events:       make(chan Event, 128),
		tickInterval: time.Second,
		now:          time.Now,
	}
	r.coord = NewCoordinator(ctrl, r.session, cfg, logger, r.Deliver, func() time.Time { return r.now() })
	return r
}

// Deliver queues an event for dispatch. Non-blocking so timer goroutines and
// MQTT handlers can never deadlock against the dispatch loop; a full channel
// drops the event with a warning.
func (r *Router) Deliver(ev Event) {
	select {
	case r.events <- ev:
	default:
		r.logger.Warn("Event channel full, dropping event", "type", ev.Type.String())
	}
}

// Run drains the event channel until the context is canceled
func (r *Router) Run(ctx context.Context) {
	r.logger.Info("Event router started", "room", r.cfg.RoomName)
	for {
		select {
		case ev := <-r.events:
			r.dispatch(ctx, ev)
		case <-ctx.Done():
			if r.session.Countdown != nil {
				r.session.Countdown.Cancel()
				r.session.Countdown = nil
			}
			r.coord.StopReevaluation()
			r.logger.Info("Event router stopped")
			return
		}
	}
}

// dispatch routes one event. Also called directly by tests for deterministic
// single-threaded scenarios.
func (r *Router) dispatch(ctx context.Context, ev Event) {
	switch ev.Type {
	case EventSensorUpdate:
		r.handleSensor(ctx, ev)

	case EventUIActivity:
		if !r.session.Monitoring {
			return
		}
		r.logger.Debug("UI activity while monitoring", "room", r.session.Room)
		r.handleOccupancyConfirmed(ctx, "ui-activity", OutcomeCanceled)

	case EventPromptResponse:
		r.handlePromptResponse(ctx, ev)

	case EventBookingStart:
		if !r.coord.Activate(ctx, ev.BookingID, ev.Availability) {
			return
		}
		r.recorder.Transition(ctx, r.session, "monitoring-started")
		r.coord.Poll(ctx)
		r.evaluateNow(ctx)

	case EventBookingEnd:
		r.handleBookingEnd(ctx)

	case EventReevaluate:
		if !r.session.Monitoring {
			return
		}
		r.coord.Poll(ctx)
		r.evaluateNow(ctx)

	case EventCountdownTick:
		r.handleTick(ctx, ev)

	case EventCountdownExpire:
		r.handleExpire(ctx, ev)
	}
}

// handleSensor applies a pushed value and either short-circuits to the
// presence cancellation path or runs a gated evaluation
func (r *Router) handleSensor(ctx context.Context, ev Event) {
	if !r.session.Monitoring {
		r.logger.Debug("Ignoring sensor push, monitoring inactive", "signal", ev.Signal)
		return
	}

	r.session.Snapshot.Apply(r.cfg, ev.Signal, ev.IntValue, ev.BoolValue)

	// Direct presence evidence cancels without waiting out the debounce
	if r.session.Snapshot.PresenceIndicated(r.cfg) {
		r.handleOccupancyConfirmed(ctx, "presence-detected", OutcomeCanceled)
		return
	}

	r.evaluateNow(ctx)
}

// handlePromptResponse treats a check-in answer as a manual occupancy
// override regardless of sensor readings
func (r *Router) handlePromptResponse(ctx context.Context, ev Event) {
	if !r.session.Monitoring {
		return
	}
	if ev.PromptID != device.CheckInPromptID || ev.OptionID != device.CheckInOptionID {
		r.logger.Debug("Ignoring unrelated prompt response",
			"prompt_id", ev.PromptID,
			"option_id", ev.OptionID)
		return
	}

	r.logger.Info("Check-in received", "room", r.session.Room)
	r.session.Snapshot.PeoplePresence = true
	r.handleOccupancyConfirmed(ctx, "check-in", OutcomeCheckedIn)
}

// handleOccupancyConfirmed is the shared cancellation path for presence
// detection, UI activity, and check-in: stop any countdown, force the state
// to Full with the occupied timer restarted, and reopen the evaluation gate.
func (r *Router) handleOccupancyConfirmed(ctx context.Context, reason string, outcome string) {
	now := r.now()
	wasFull := r.session.Presence.IsFull

	if cd := r.session.Countdown; cd != nil {
		startedAt := cd.StartedAt
		r.cancelCountdown(ctx)
		r.resolveDecision(ctx, outcome, startedAt, now)
	}

	r.session.MarkOccupied(now)

	if !wasFull || outcome == OutcomeCheckedIn {
		r.logger.Info("Occupancy confirmed", "room", r.session.Room, "reason", reason)
		r.recorder.Transition(ctx, r.session, reason)
	}
}

// handleBookingEnd unconditionally stops monitoring and resets all state
func (r *Router) handleBookingEnd(ctx context.Context) {
	if !r.session.Monitoring {
		r.logger.Debug("Booking end while not monitoring, nothing to do")
		return
	}

	now := r.now()
	if cd := r.session.Countdown; cd != nil {
		startedAt := cd.StartedAt
		r.cancelCountdown(ctx)
		r.resolveDecision(ctx, OutcomeCanceled, startedAt, now)
	} else {
		// Countdown cancellation already clears the panel; without one the
		// prompt may still linger from a prior session, so clear anyway.
		r.clearUI(ctx)
	}

	r.coord.StopReevaluation()
	r.session.End()
	r.recorder.Transition(ctx, r.session, "monitoring-stopped")
	r.logger.Info("Monitoring stopped", "room", r.session.Room)
}

// evaluateNow runs one gated state-machine evaluation on the current snapshot
func (r *Router) evaluateNow(ctx context.Context) {
	if !r.session.Presence.ListenerActive {
		return
	}

	occupied := Classify(r.session.Snapshot, r.cfg)
	transition := Evaluate(&r.session.Presence, occupied, r.now(),
		r.cfg.MinBeforeBook(), r.cfg.MinBeforeRelease())

	switch transition {
	case TransitionFull:
		r.logger.Info("Room confirmed occupied", "room", r.session.Room)
		r.recorder.Transition(ctx, r.session, "full")

	case TransitionEmpty:
		r.logger.Info("Room confirmed vacant, starting release countdown",
			"room", r.session.Room,
			"countdown_seconds", r.cfg.CountdownSeconds)
		r.recorder.Transition(ctx, r.session, "empty")
		r.startCountdown(ctx)
	}
}

// startCountdown closes the evaluation gate and launches the release
// countdown with its initial prompt
func (r *Router) startCountdown(ctx context.Context) {
	r.session.Presence.ListenerActive = false

	cd := StartCountdown(r.cfg.CountdownSeconds, r.tickInterval, r.Deliver)
	cd.StartedAt = r.now()
	r.session.Countdown = cd

	if err := r.ctrl.ShowCheckInPrompt(ctx); err != nil {
		r.logger.Warn("Failed to show check-in prompt", "room", r.session.Room, "error", err)
	}
	if err := r.ctrl.ShowCountdown(ctx, cd.Remaining); err != nil {
		r.logger.Warn("Failed to show countdown", "room", r.session.Room, "error", err)
	}
}

// handleTick advances the countdown display and re-shows the prompt on its
// cadence. Stale ticks from a canceled countdown are dropped by id.
func (r *Router) handleTick(ctx context.Context, ev Event) {
	cd := r.session.Countdown
	if cd == nil || cd.ID != ev.CountdownID {
		return
	}

	if cd.Remaining > 0 {
		cd.Remaining--
	}

	if err := r.ctrl.ShowCountdown(ctx, cd.Remaining); err != nil {
		r.logger.Warn("Failed to update countdown", "room", r.session.Room, "error", err)
	}

	if cd.Remaining > 0 && cd.Remaining%r.cfg.PromptRepeatSeconds == 0 {
		if err := r.ctrl.ShowCheckInPrompt(ctx); err != nil {
			r.logger.Warn("Failed to re-show check-in prompt", "room", r.session.Room, "error", err)
		}
	}
}

// handleExpire declines the tracked booking and resets the session. Stale
// expiry from a canceled countdown is dropped by id.
func (r *Router) handleExpire(ctx context.Context, ev Event) {
	cd := r.session.Countdown
	if cd == nil || cd.ID != ev.CountdownID {
		return
	}

	now := r.now()
	startedAt := cd.StartedAt
	r.cancelCountdown(ctx)

	booking := r.session.Booking
	if booking.Active && booking.MeetingID != "" {
		if err := r.ctrl.DeclineBooking(ctx, booking.MeetingID); err != nil {
			r.logger.Error("Failed to decline booking",
				"room", r.session.Room,
				"meeting_id", booking.MeetingID,
				"error", err)
		} else {
			r.logger.Info("Booking declined after release countdown",
				"room", r.session.Room,
				"booking_id", booking.BookingID,
				"meeting_id", booking.MeetingID)
		}
	} else if booking.Active {
		r.logger.Warn("No meeting id for booking, cannot decline",
			"room", r.session.Room,
			"booking_id", booking.BookingID)
	}

	r.resolveDecision(ctx, OutcomeDeclined, startedAt, now)

	r.coord.StopReevaluation()
	r.session.End()
	r.recorder.Transition(ctx, r.session, "released")
}

// cancelCountdown stops the countdown timers and clears the visible UI
func (r *Router) cancelCountdown(ctx context.Context) {
	if cd := r.session.Countdown; cd != nil {
		cd.Cancel()
		r.session.Countdown = nil
	}
	r.clearUI(ctx)
}

// clearUI removes the prompt and countdown line, best-effort
func (r *Router) clearUI(ctx context.Context) {
	if err := r.ctrl.ClearPrompt(ctx); err != nil {
		r.logger.Warn("Failed to clear prompt", "room", r.session.Room, "error", err)
	}
	if err := r.ctrl.ClearCountdown(ctx); err != nil {
		r.logger.Warn("Failed to clear countdown", "room", r.session.Room, "error", err)
	}
}

// resolveDecision records one countdown resolution in the mirror and, when
// enabled, the durable archive
func (r *Router) resolveDecision(ctx context.Context, outcome string, startedAt, resolvedAt time.Time) {
	d := Decision{
		ID:         uuid.NewString(),
		Room:       r.session.Room,
		SessionID:  r.session.ID,
		BookingID:  r.session.Booking.BookingID,
		MeetingID:  r.session.Booking.MeetingID,
		Outcome:    outcome,
		StartedAt:  startedAt,
		ResolvedAt: resolvedAt,
	}

	r.recorder.Decision(ctx, d)

	if r.archive != nil {
		if err := r.archive.Store(ctx, d); err != nil {
			r.logger.Error("Failed to archive decision",
				"room", d.Room,
				"decision_id", d.ID,
				"error", err)
		}
	}
}
