package release

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roomsense/roomsense-platform/internal/device"
	"github.com/roomsense/roomsense-platform/pkg/config"
	"github.com/roomsense/roomsense-platform/pkg/mqtt"
	"github.com/roomsense/roomsense-platform/pkg/redis"
)

// Agent is the release agent: it bridges the room device over MQTT, feeds
// every notification into the event router, and mirrors state into Redis.
type Agent struct {
	mqtt   mqtt.Client
	redis  redis.Client
	bridge *device.Bridge
	router *Router
	cfg    *config.Config
	logger *slog.Logger
}

// NewAgent creates a new release agent with the given dependencies. archive
// may be nil when the Postgres decision archive is disabled.
func NewAgent(mqttClient mqtt.Client, redisClient redis.Client, archive DecisionArchive, cfg *config.Config, logger *slog.Logger) *Agent {
	bridge := device.NewBridge(mqttClient, cfg, logger)
	recorder := NewRedisRecorder(redisClient, cfg, logger)
	router := NewRouter(bridge, recorder, archive, cfg, logger)

	return &Agent{
		mqtt:   mqttClient,
		redis:  redisClient,
		bridge: bridge,
		router: router,
		cfg:    cfg,
		logger: logger,
	}
}

// Start starts the release agent and begins monitoring device events
func (a *Agent) Start(ctx context.Context) error {
	a.logger.Info("Starting release agent",
		"service_name", a.cfg.ServiceName,
		"room", a.cfg.RoomName,
		"mqtt_broker", a.cfg.MQTTAddress(),
		"min_before_book_sec", a.cfg.MinBeforeBookSec,
		"min_before_release_sec", a.cfg.MinBeforeReleaseSec,
		"countdown_seconds", a.cfg.CountdownSeconds)

	// Connect to MQTT broker
	if err := a.mqtt.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect to MQTT: %w", err)
	}

	// Verify Redis connection
	if err := a.redis.Ping(ctx); err != nil {
		return fmt.Errorf("failed to ping Redis: %w", err)
	}

	// Surface what the previous run left behind, if anything
	if fields, err := a.redis.HGetAll(ctx, redis.SessionKey(a.cfg.RoomName)); err == nil && len(fields) > 0 {
		a.logger.Info("Previous session state found",
			"booking_id", fields["booking_id"],
			"monitoring", fields["monitoring"],
			"updated_at", fields["updated_at"])
	}

	go a.router.Run(ctx)

	if err := a.bridge.Start(a); err != nil {
		return fmt.Errorf("failed to start device bridge: %w", err)
	}

	a.logger.Info("Release agent started and ready")

	// Block until context is cancelled
	<-ctx.Done()
	a.logger.Info("Release agent stopping")

	return nil
}

// Stop gracefully stops the release agent
func (a *Agent) Stop() error {
	a.logger.Info("Stopping release agent")

	// Disconnect from MQTT
	a.mqtt.Disconnect()

	// Close Redis connection
	if err := a.redis.Close(); err != nil {
		a.logger.Error("Error closing Redis connection", "error", err)
		return err
	}

	a.logger.Info("Release agent stopped")
	return nil
}

// Device bridge notifications. These run on MQTT handler goroutines and only
// enqueue events; all state changes happen on the router's dispatch loop.

func (a *Agent) OnStatus(signal string, intValue int, boolValue bool) {
	a.router.Deliver(Event{
		Type:      EventSensorUpdate,
		Signal:    signal,
		IntValue:  intValue,
		BoolValue: boolValue,
	})
}

func (a *Agent) OnUIActivity() {
	a.router.Deliver(Event{Type: EventUIActivity})
}

func (a *Agent) OnPromptResponse(promptID string, optionID int) {
	a.router.Deliver(Event{
		Type:     EventPromptResponse,
		PromptID: promptID,
		OptionID: optionID,
	})
}

func (a *Agent) OnBookingStart(bookingID, availability string) {
	a.router.Deliver(Event{
		Type:         EventBookingStart,
		BookingID:    bookingID,
		Availability: availability,
	})
}

func (a *Agent) OnBookingEnd(bookingID string) {
	a.router.Deliver(Event{
		Type:      EventBookingEnd,
		BookingID: bookingID,
	})
}
