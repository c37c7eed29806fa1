package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/roomsense/roomsense-platform/internal/release"
	"github.com/roomsense/roomsense-platform/pkg/config"
	"github.com/roomsense/roomsense-platform/pkg/health"
	"github.com/roomsense/roomsense-platform/pkg/mqtt"
	"github.com/roomsense/roomsense-platform/pkg/postgres"
	"github.com/roomsense/roomsense-platform/pkg/redis"
)

func main() {
	// Standard bootstrap: defaults, optional YAML file, env, flags
	cfg := config.NewConfig()
	cfg.ServiceName = "release-agent"
	if err := cfg.LoadFromFile(os.Getenv("ROOMSENSE_CONFIG")); err != nil {
		fmt.Fprintf(os.Stderr, "Config file error: %v\n", err)
		os.Exit(1)
	}
	cfg.LoadFromEnv()
	cfg.LoadFromFlags()

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel(cfg.LogLevel),
	}))
	slog.SetDefault(logger)

	logger.Info("Starting Release Agent",
		"room", cfg.RoomName,
		"mqtt", cfg.MQTTAddress(),
		"redis", cfg.RedisAddress())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Initialize clients
	mqttClient := mqtt.NewClient(cfg, logger)
	redisClient := redis.NewClient(cfg, logger)

	// Optional Postgres decision archive
	var archive release.DecisionArchive
	if cfg.PostgresEnable {
		pgClient := postgres.NewClient(cfg, logger)
		if err := pgClient.Connect(ctx); err != nil {
			logger.Error("Failed to connect to postgres", "error", err)
			os.Exit(1)
		}
		defer pgClient.Disconnect()

		pgArchive := release.NewPostgresArchive(pgClient, logger)
		if err := pgArchive.EnsureSchema(ctx); err != nil {
			logger.Error("Failed to prepare decision archive", "error", err)
			os.Exit(1)
		}
		archive = pgArchive
	}

	agent := release.NewAgent(mqttClient, redisClient, archive, cfg, logger)

	// Health endpoint
	checker := health.NewChecker(mqttClient, redisClient, logger)
	go func() {
		mux := http.NewServeMux()
		mux.HandleFunc("/health", checker.HandlerFunc())
		mux.HandleFunc("/health/detailed", checker.DetailedHandlerFunc())
		addr := fmt.Sprintf(":%d", cfg.HealthPort)
		if err := http.ListenAndServe(addr, mux); err != nil {
			logger.Error("Health server failed", "error", err)
		}
	}()

	// Start agent
	agentErr := make(chan error, 1)
	go func() {
		if err := agent.Start(ctx); err != nil {
			agentErr <- err
		}
	}()

	// Wait for shutdown
	select {
	case <-sigChan:
		logger.Info("Shutdown signal received")
	case err := <-agentErr:
		logger.Error("Agent failed", "error", err)
	}

	cancel()
	agent.Stop()
	logger.Info("Release agent stopped")
}

// logLevel maps the configured level string to a slog level
func logLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
