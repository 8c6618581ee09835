package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrConfiguration is returned when the configuration is unusable.
// It is fatal: the bridge refuses to start.
var ErrConfiguration = errors.New("config: invalid configuration")

// Config is the root configuration structure for the KAKU bridge.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Platform   PlatformConfig   `yaml:"platform"`
	Hub        HubConfig        `yaml:"hub"`
	Database   DatabaseConfig   `yaml:"database"`
	MQTT       MQTTConfig       `yaml:"mqtt"`
	API        APIConfig        `yaml:"api"`
	WebSocket  WebSocketConfig  `yaml:"websocket"`
	InfluxDB   InfluxDBConfig   `yaml:"influxdb"`
	Prometheus PrometheusConfig `yaml:"prometheus"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// PlatformConfig identifies this bridge towards the host.
type PlatformConfig struct {
	Name string `yaml:"name"`
}

// HubConfig contains the ICS-2000 hub settings.
type HubConfig struct {
	// Email and Password are the KAKU cloud credentials. Both are required.
	Email    string `yaml:"email"`
	Password string `yaml:"password"`

	// EntityBlacklist lists entity ids that are never exposed to the host.
	EntityBlacklist []int `yaml:"entity_blacklist"`

	// DeviceBlacklist is the legacy name of EntityBlacklist.
	// It is only used when EntityBlacklist is empty.
	DeviceBlacklist []int `yaml:"device_blacklist"`

	// LocalBackupAddress is used when local discovery times out.
	LocalBackupAddress string `yaml:"local_backup_address"`

	// DeviceConfigOverrides is keyed by device type number (as a string).
	DeviceConfigOverrides map[string]DeviceConfigOverride `yaml:"device_configs_overrides"`

	// DiscoverMessage replaces the default hex encoded discovery probe.
	DiscoverMessage string `yaml:"discover_message"`

	// DiscoveryTimeout bounds the wait for a discovery reply.
	// Default: 10s
	DiscoveryTimeout time.Duration `yaml:"discovery_timeout"`

	// CloudURL is the base URL of the KAKU cloud API.
	CloudURL string `yaml:"cloud_url"`

	// RequestTimeout bounds every cloud request.
	// Default: 15s
	RequestTimeout time.Duration `yaml:"request_timeout"`

	ShowScenes       bool `yaml:"show_scenes"`
	HideReloadSwitch bool `yaml:"hide_reload_switch"`
}

// DeviceConfigOverride replaces the built-in function layout for one device type.
// Zero values keep the built-in value.
type DeviceConfigOverride struct {
	// Capability is one of "switch", "dimmable", "color-temperature".
	Capability               string `yaml:"capability"`
	OnOffFunction            *int   `yaml:"on_off_function"`
	DimFunction              *int   `yaml:"dim_function"`
	ColorTemperatureFunction *int   `yaml:"color_temperature_function"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
}

// APIConfig contains the administrative REST server settings.
type APIConfig struct {
	// Enabled starts the REST server after the first sync cycle.
	Enabled  bool             `yaml:"enabled"`
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`

	// JWTSecret enables bearer token authentication when set.
	JWTSecret string `yaml:"jwt_secret"`

	CORS APICORSConfig `yaml:"cors"`
}

// APICORSConfig contains Cross-Origin Resource Sharing settings.
// An empty AllowedOrigins list allows every origin.
type APICORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
}

// APITimeoutConfig contains HTTP timeout settings (seconds).
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// WebSocketConfig contains WebSocket event stream settings.
type WebSocketConfig struct {
	MaxMessageSize int `yaml:"max_message_size"`
	PingInterval   int `yaml:"ping_interval"`
	PongTimeout    int `yaml:"pong_timeout"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// PrometheusConfig enables the scrape endpoint at /api/v1/metrics/prometheus.
// It is served by the REST server.
type PrometheusConfig struct {
	Enabled bool `yaml:"enabled"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: KAKU_SECTION_KEY
// For example: KAKU_HUB_EMAIL, KAKU_DATABASE_PATH
//
// Returns an error wrapping ErrConfiguration when validation fails.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Platform: PlatformConfig{
			Name: "KAKU-ICS2000",
		},
		Hub: HubConfig{
			DiscoveryTimeout: 10 * time.Second,
			CloudURL:         "https://trustsmartcloud2.com/ics2000_api",
			RequestTimeout:   15 * time.Second,
		},
		Database: DatabaseConfig{
			Path:        "./data/kakubridge.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "kakubridge",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		API: APIConfig{
			Host: "0.0.0.0",
			Port: 9100,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		WebSocket: WebSocketConfig{
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("KAKU_HUB_EMAIL"); v != "" {
		cfg.Hub.Email = v
	}
	if v := os.Getenv("KAKU_HUB_PASSWORD"); v != "" {
		cfg.Hub.Password = v
	}
	if v := os.Getenv("KAKU_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("KAKU_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("KAKU_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("KAKU_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}
	if v := os.Getenv("KAKU_API_JWT_SECRET"); v != "" {
		cfg.API.JWTSecret = v
	}
	if v := os.Getenv("KAKU_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []string

	if c.Hub.Email == "" || c.Hub.Password == "" {
		errs = append(errs, "hub.email and hub.password are required")
	}

	for deviceType, o := range c.Hub.DeviceConfigOverrides {
		if _, err := strconv.Atoi(deviceType); err != nil {
			errs = append(errs, fmt.Sprintf("hub.device_configs_overrides key %q is not a device type number", deviceType))
		}
		switch o.Capability {
		case "", "switch", "dimmable", "color-temperature":
		default:
			errs = append(errs, fmt.Sprintf("hub.device_configs_overrides.%s.capability %q is not supported", deviceType, o.Capability))
		}
	}

	if c.Hub.DiscoveryTimeout <= 0 {
		errs = append(errs, "hub.discovery_timeout must be positive")
	}

	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	if c.API.Port < 1 || c.API.Port > 65535 {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	const minJWTSecretLength = 32
	if c.API.JWTSecret != "" && len(c.API.JWTSecret) < minJWTSecretLength {
		errs = append(errs, "api.jwt_secret must be at least 32 characters")
	}

	if c.InfluxDB.Enabled && c.InfluxDB.URL == "" {
		errs = append(errs, "influxdb.url is required when influxdb is enabled")
	}

	if c.Prometheus.Enabled && !c.API.Enabled {
		errs = append(errs, "prometheus requires api.enabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %s", ErrConfiguration, strings.Join(errs, "; "))
	}

	return nil
}

// Blacklist returns the effective entity blacklist.
func (h HubConfig) Blacklist() []int {
	if len(h.EntityBlacklist) > 0 {
		return h.EntityBlacklist
	}
	return h.DeviceBlacklist
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}
