package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

// Config holds the configuration for a roomsense agent
type Config struct {
	// MQTT configuration
	MQTTBroker   string `yaml:"mqtt_broker"`
	MQTTPort     int    `yaml:"mqtt_port"`
	MQTTUser     string `yaml:"mqtt_user"`
	MQTTPassword string `yaml:"mqtt_password"`
	MQTTClientID string `yaml:"mqtt_client_id"`

	// Redis configuration
	RedisHost     string `yaml:"redis_host"`
	RedisPort     int    `yaml:"redis_port"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`

	// Postgres configuration (decision archive, optional)
	PostgresEnable      bool          `yaml:"postgres_enable"`
	PostgresHost        string        `yaml:"postgres_host"`
	PostgresPort        int           `yaml:"postgres_port"`
	PostgresUser        string        `yaml:"postgres_user"`
	PostgresPassword    string        `yaml:"postgres_password"`
	PostgresDB          string        `yaml:"postgres_db"`
	PostgresSSLMode     string        `yaml:"postgres_sslmode"`
	PostgresMaxConns    int           `yaml:"postgres_max_conns"`
	PostgresMaxIdle     int           `yaml:"postgres_max_idle"`
	PostgresConnMaxLife time.Duration `yaml:"postgres_conn_max_life"`

	// Service configuration
	ServiceName string `yaml:"service_name"`
	HealthPort  int    `yaml:"health_port"`
	LogLevel    string `yaml:"log_level"`

	// Room configuration
	RoomName string `yaml:"room_name"`

	// Occupancy signal enables
	PeopleCountEnabled bool `yaml:"people_count_enabled"`
	PresenceEnabled    bool `yaml:"presence_enabled"`
	CallEnabled        bool `yaml:"call_enabled"`
	SoundEnabled       bool `yaml:"sound_enabled"`
	SharingEnabled     bool `yaml:"sharing_enabled"`

	// CombinedMode requires people count and presence to jointly agree before
	// the room counts as occupied; when false any enabled signal suffices.
	CombinedMode bool `yaml:"combined_mode"`

	// Debounce and countdown timing
	MinBeforeBookSec    int `yaml:"min_before_book_sec"`
	MinBeforeReleaseSec int `yaml:"min_before_release_sec"`
	CountdownSeconds    int `yaml:"countdown_seconds"`
	PromptRepeatSeconds int `yaml:"prompt_repeat_seconds"`
	SoundThresholdDb    int `yaml:"sound_threshold_db"`
}

// NewConfig creates a new Config with default values
func NewConfig() *Config {
	return &Config{
		MQTTBroker:   "localhost",
		MQTTPort:     1883,
		MQTTUser:     "",
		MQTTPassword: "",
		MQTTClientID: "",

		RedisHost:     "localhost",
		RedisPort:     6379,
		RedisPassword: "",
		RedisDB:       0,

		PostgresEnable:      false,
		PostgresHost:        "localhost",
		PostgresPort:        5432,
		PostgresUser:        "roomsense",
		PostgresPassword:    "",
		PostgresDB:          "roomsense",
		PostgresSSLMode:     "disable",
		PostgresMaxConns:    10,
		PostgresMaxIdle:     5,
		PostgresConnMaxLife: 30 * time.Minute,

		ServiceName: "roomsense-agent",
		HealthPort:  8080,
		LogLevel:    "info",

		RoomName: "default",

		PeopleCountEnabled: true,
		PresenceEnabled:    true,
		CallEnabled:        true,
		SoundEnabled:       false,
		SharingEnabled:     true,
		CombinedMode:       false,

		MinBeforeBookSec:    300,
		MinBeforeReleaseSec: 300,
		CountdownSeconds:    60,
		PromptRepeatSeconds: 3,
		SoundThresholdDb:    50,
	}
}

// LoadFromFile loads configuration from a YAML file. A missing file is not an
// error so agents can run on defaults, env, and flags alone.
func (c *Config) LoadFromFile(path string) error {
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	return nil
}

// LoadFromEnv loads configuration from environment variables with ROOMSENSE_ prefix
func (c *Config) LoadFromEnv() {
	// MQTT configuration
	if v := os.Getenv("ROOMSENSE_MQTT_BROKER"); v != "" {
		c.MQTTBroker = v
	}
	if v := os.Getenv("ROOMSENSE_MQTT_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.MQTTPort = port
		}
	}
	if v := os.Getenv("ROOMSENSE_MQTT_USER"); v != "" {
		c.MQTTUser = v
	}
	if v := os.Getenv("ROOMSENSE_MQTT_PASSWORD"); v != "" {
		c.MQTTPassword = v
	}
	if v := os.Getenv("ROOMSENSE_MQTT_CLIENT_ID"); v != "" {
		c.MQTTClientID = v
	}

	// Redis configuration
	if v := os.Getenv("ROOMSENSE_REDIS_HOST"); v != "" {
		c.RedisHost = v
	}
	if v := os.Getenv("ROOMSENSE_REDIS_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.RedisPort = port
		}
	}
	if v := os.Getenv("ROOMSENSE_REDIS_PASSWORD"); v != "" {
		c.RedisPassword = v
	}
	if v := os.Getenv("ROOMSENSE_REDIS_DB"); v != "" {
		if db, err := strconv.Atoi(v); err == nil {
			c.RedisDB = db
		}
	}

	// Postgres configuration
	if v := os.Getenv("ROOMSENSE_POSTGRES_ENABLE"); v != "" {
		if enable, err := strconv.ParseBool(v); err == nil {
			c.PostgresEnable = enable
		}
	}
	if v := os.Getenv("ROOMSENSE_POSTGRES_HOST"); v != "" {
		c.PostgresHost = v
	}
	if v := os.Getenv("ROOMSENSE_POSTGRES_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.PostgresPort = port
		}
	}
	if v := os.Getenv("ROOMSENSE_POSTGRES_USER"); v != "" {
		c.PostgresUser = v
	}
	if v := os.Getenv("ROOMSENSE_POSTGRES_PASSWORD"); v != "" {
		c.PostgresPassword = v
	}
	if v := os.Getenv("ROOMSENSE_POSTGRES_DB"); v != "" {
		c.PostgresDB = v
	}
	if v := os.Getenv("ROOMSENSE_POSTGRES_SSLMODE"); v != "" {
		c.PostgresSSLMode = v
	}

	// Service configuration
	if v := os.Getenv("ROOMSENSE_SERVICE_NAME"); v != "" {
		c.ServiceName = v
	}
	if v := os.Getenv("ROOMSENSE_HEALTH_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.HealthPort = port
		}
	}
	if v := os.Getenv("ROOMSENSE_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}

	// Room configuration
	if v := os.Getenv("ROOMSENSE_ROOM_NAME"); v != "" {
		c.RoomName = v
	}
	if v := os.Getenv("ROOMSENSE_PEOPLE_COUNT_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.PeopleCountEnabled = b
		}
	}
	if v := os.Getenv("ROOMSENSE_PRESENCE_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.PresenceEnabled = b
		}
	}
	if v := os.Getenv("ROOMSENSE_CALL_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.CallEnabled = b
		}
	}
	if v := os.Getenv("ROOMSENSE_SOUND_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.SoundEnabled = b
		}
	}
	if v := os.Getenv("ROOMSENSE_SHARING_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.SharingEnabled = b
		}
	}
	if v := os.Getenv("ROOMSENSE_COMBINED_MODE"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.CombinedMode = b
		}
	}

	// Timing configuration
	if v := os.Getenv("ROOMSENSE_MIN_BEFORE_BOOK_SEC"); v != "" {
		if sec, err := strconv.Atoi(v); err == nil {
			c.MinBeforeBookSec = sec
		}
	}
	if v := os.Getenv("ROOMSENSE_MIN_BEFORE_RELEASE_SEC"); v != "" {
		if sec, err := strconv.Atoi(v); err == nil {
			c.MinBeforeReleaseSec = sec
		}
	}
	if v := os.Getenv("ROOMSENSE_COUNTDOWN_SECONDS"); v != "" {
		if sec, err := strconv.Atoi(v); err == nil {
			c.CountdownSeconds = sec
		}
	}
	if v := os.Getenv("ROOMSENSE_PROMPT_REPEAT_SECONDS"); v != "" {
		if sec, err := strconv.Atoi(v); err == nil {
			c.PromptRepeatSeconds = sec
		}
	}
	if v := os.Getenv("ROOMSENSE_SOUND_THRESHOLD_DB"); v != "" {
		if db, err := strconv.Atoi(v); err == nil {
			c.SoundThresholdDb = db
		}
	}
}

// LoadFromFlags parses command-line flags and overrides config values
func (c *Config) LoadFromFlags() {
	// MQTT flags
	pflag.StringVar(&c.MQTTBroker, "mqtt-broker", c.MQTTBroker, "MQTT broker hostname")
	pflag.IntVar(&c.MQTTPort, "mqtt-port", c.MQTTPort, "MQTT broker port")
	pflag.StringVar(&c.MQTTUser, "mqtt-user", c.MQTTUser, "MQTT username")
	pflag.StringVar(&c.MQTTPassword, "mqtt-password", c.MQTTPassword, "MQTT password")
	pflag.StringVar(&c.MQTTClientID, "mqtt-client-id", c.MQTTClientID, "MQTT client ID")

	// Redis flags
	pflag.StringVar(&c.RedisHost, "redis-host", c.RedisHost, "Redis hostname")
	pflag.IntVar(&c.RedisPort, "redis-port", c.RedisPort, "Redis port")
	pflag.StringVar(&c.RedisPassword, "redis-password", c.RedisPassword, "Redis password")
	pflag.IntVar(&c.RedisDB, "redis-db", c.RedisDB, "Redis database number")

	// Postgres flags
	pflag.BoolVar(&c.PostgresEnable, "postgres-enable", c.PostgresEnable, "Enable Postgres decision archive")
	pflag.StringVar(&c.PostgresHost, "postgres-host", c.PostgresHost, "Postgres hostname")
	pflag.IntVar(&c.PostgresPort, "postgres-port", c.PostgresPort, "Postgres port")
	pflag.StringVar(&c.PostgresUser, "postgres-user", c.PostgresUser, "Postgres username")
	pflag.StringVar(&c.PostgresPassword, "postgres-password", c.PostgresPassword, "Postgres password")
	pflag.StringVar(&c.PostgresDB, "postgres-db", c.PostgresDB, "Postgres database name")

	// Service flags
	pflag.StringVar(&c.ServiceName, "service-name", c.ServiceName, "Service name")
	pflag.IntVar(&c.HealthPort, "health-port", c.HealthPort, "Health check HTTP port")
	pflag.StringVar(&c.LogLevel, "log-level", c.LogLevel, "Log level (debug, info, warn, error)")

	// Room flags
	pflag.StringVar(&c.RoomName, "room-name", c.RoomName, "Room identifier for topics and storage keys")
	pflag.BoolVar(&c.PeopleCountEnabled, "people-count-enabled", c.PeopleCountEnabled, "Use the people count signal")
	pflag.BoolVar(&c.PresenceEnabled, "presence-enabled", c.PresenceEnabled, "Use the presence sensor signal")
	pflag.BoolVar(&c.CallEnabled, "call-enabled", c.CallEnabled, "Use the active call signal")
	pflag.BoolVar(&c.SoundEnabled, "sound-enabled", c.SoundEnabled, "Use the ambient sound signal")
	pflag.BoolVar(&c.SharingEnabled, "sharing-enabled", c.SharingEnabled, "Use the presentation sharing signal")
	pflag.BoolVar(&c.CombinedMode, "combined-mode", c.CombinedMode, "Require people count and presence to jointly agree")

	// Timing flags
	pflag.IntVar(&c.MinBeforeBookSec, "min-before-book-sec", c.MinBeforeBookSec, "Seconds of sustained occupancy before the room counts as full")
	pflag.IntVar(&c.MinBeforeReleaseSec, "min-before-release-sec", c.MinBeforeReleaseSec, "Seconds of sustained vacancy before the release countdown starts")
	pflag.IntVar(&c.CountdownSeconds, "countdown-seconds", c.CountdownSeconds, "Release countdown duration in seconds")
	pflag.IntVar(&c.PromptRepeatSeconds, "prompt-repeat-seconds", c.PromptRepeatSeconds, "How often the check-in prompt is re-displayed during the countdown")
	pflag.IntVar(&c.SoundThresholdDb, "sound-threshold-db", c.SoundThresholdDb, "Ambient sound level above which the room counts as occupied (dB)")

	pflag.Parse()
}

// Validate checks that required configuration values are set
func (c *Config) Validate() error {
	if c.MQTTBroker == "" {
		return fmt.Errorf("MQTT broker is required")
	}
	if c.MQTTPort <= 0 || c.MQTTPort > 65535 {
		return fmt.Errorf("MQTT port must be between 1 and 65535")
	}
	if c.RedisHost == "" {
		return fmt.Errorf("Redis host is required")
	}
	if c.RedisPort <= 0 || c.RedisPort > 65535 {
		return fmt.Errorf("Redis port must be between 1 and 65535")
	}
	if c.HealthPort <= 0 || c.HealthPort > 65535 {
		return fmt.Errorf("Health port must be between 1 and 65535")
	}
	if c.ServiceName == "" {
		return fmt.Errorf("Service name is required")
	}
	if c.RoomName == "" {
		return fmt.Errorf("Room name is required")
	}
	if c.MinBeforeBookSec <= 0 {
		return fmt.Errorf("min-before-book-sec must be positive")
	}
	if c.MinBeforeReleaseSec <= 0 {
		return fmt.Errorf("min-before-release-sec must be positive")
	}
	if c.CountdownSeconds <= 0 {
		return fmt.Errorf("countdown-seconds must be positive")
	}
	if c.PromptRepeatSeconds <= 0 {
		return fmt.Errorf("prompt-repeat-seconds must be positive")
	}

	// Validate log level
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.LogLevel)
	}

	return nil
}

// MQTTAddress returns the full MQTT broker address
func (c *Config) MQTTAddress() string {
	return fmt.Sprintf("tcp://%s:%d", c.MQTTBroker, c.MQTTPort)
}

// RedisAddress returns the full Redis address
func (c *Config) RedisAddress() string {
	return fmt.Sprintf("%s:%d", c.RedisHost, c.RedisPort)
}

// PostgresConnectionString returns a lib/pq connection string
func (c *Config) PostgresConnectionString() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.PostgresHost, c.PostgresPort, c.PostgresUser, c.PostgresPassword, c.PostgresDB, c.PostgresSSLMode)
}

// MinBeforeBook returns the occupied debounce duration
func (c *Config) MinBeforeBook() time.Duration {
	return time.Duration(c.MinBeforeBookSec) * time.Second
}

// MinBeforeRelease returns the vacancy debounce duration
func (c *Config) MinBeforeRelease() time.Duration {
	return time.Duration(c.MinBeforeReleaseSec) * time.Second
}

// ReevaluationPeriod returns the forced reevaluation interval. Slightly longer
// than the occupied debounce so a quiet room still gets reassessed even when
// no push events arrive.
func (c *Config) ReevaluationPeriod() time.Duration {
	return c.MinBeforeBook() + 30*time.Second
}
