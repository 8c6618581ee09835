package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return configPath
}

func TestLoad_ValidConfig(t *testing.T) {
	configPath := writeConfig(t, `
hub:
  email: "user@example.com"
  password: "secret"
  entity_blacklist: [12, 40]
  local_backup_address: "192.168.1.50"
  discover_message: "0100"
  discovery_timeout: 3s
  show_scenes: true
  device_configs_overrides:
    "24":
      capability: dimmable
      dim_function: 5
database:
  path: "/tmp/test.db"
mqtt:
  broker:
    host: "broker.local"
    port: 1883
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Hub.Email != "user@example.com" {
		t.Errorf("Hub.Email = %q, want %q", cfg.Hub.Email, "user@example.com")
	}
	if got := cfg.Hub.Blacklist(); len(got) != 2 || got[0] != 12 || got[1] != 40 {
		t.Errorf("Hub.Blacklist() = %v, want [12 40]", got)
	}
	if cfg.Hub.DiscoveryTimeout != 3*time.Second {
		t.Errorf("Hub.DiscoveryTimeout = %v, want 3s", cfg.Hub.DiscoveryTimeout)
	}
	if !cfg.Hub.ShowScenes {
		t.Error("Hub.ShowScenes = false, want true")
	}
	override := cfg.Hub.DeviceConfigOverrides["24"]
	if override.Capability != "dimmable" || override.DimFunction == nil || *override.DimFunction != 5 {
		t.Errorf("override for 24 = %+v, want dimmable with dim_function 5", override)
	}
	if override.OnOffFunction != nil {
		t.Errorf("override.OnOffFunction = %v, want nil", *override.OnOffFunction)
	}
	if cfg.MQTT.Broker.Host != "broker.local" {
		t.Errorf("MQTT.Broker.Host = %q, want %q", cfg.MQTT.Broker.Host, "broker.local")
	}
}

func TestLoad_Defaults(t *testing.T) {
	configPath := writeConfig(t, `
hub:
  email: "user@example.com"
  password: "secret"
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.API.Port != 9100 {
		t.Errorf("API.Port = %d, want 9100", cfg.API.Port)
	}
	if cfg.API.Enabled {
		t.Error("API.Enabled = true, want false by default")
	}
	if cfg.Hub.DiscoveryTimeout != 10*time.Second {
		t.Errorf("Hub.DiscoveryTimeout = %v, want 10s", cfg.Hub.DiscoveryTimeout)
	}
	if cfg.Platform.Name != "KAKU-ICS2000" {
		t.Errorf("Platform.Name = %q, want KAKU-ICS2000", cfg.Platform.Name)
	}
	if cfg.Hub.HideReloadSwitch {
		t.Error("Hub.HideReloadSwitch = true, want false by default")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	configPath := writeConfig(t, "invalid: [yaml: content")

	_, err := Load(configPath)
	if err == nil {
		t.Error("Load() expected error for invalid YAML, got nil")
	}
}

func TestLoad_MissingCredentials(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"no hub section", "database:\n  path: /tmp/x.db\n"},
		{"email only", "hub:\n  email: a@b.c\n"},
		{"password only", "hub:\n  password: pw\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			if !errors.Is(err, ErrConfiguration) {
				t.Errorf("Load() error = %v, want ErrConfiguration", err)
			}
		})
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	configPath := writeConfig(t, `
hub:
  email: "file@example.com"
`)
	t.Setenv("KAKU_HUB_EMAIL", "env@example.com")
	t.Setenv("KAKU_HUB_PASSWORD", "from-env")
	t.Setenv("KAKU_MQTT_HOST", "mqtt.env")

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Hub.Email != "env@example.com" {
		t.Errorf("Hub.Email = %q, want env override", cfg.Hub.Email)
	}
	if cfg.Hub.Password != "from-env" {
		t.Errorf("Hub.Password = %q, want env override", cfg.Hub.Password)
	}
	if cfg.MQTT.Broker.Host != "mqtt.env" {
		t.Errorf("MQTT.Broker.Host = %q, want env override", cfg.MQTT.Broker.Host)
	}
}

func TestHubConfig_LegacyBlacklist(t *testing.T) {
	h := HubConfig{DeviceBlacklist: []int{7}}
	if got := h.Blacklist(); len(got) != 1 || got[0] != 7 {
		t.Errorf("Blacklist() = %v, want [7]", got)
	}

	h.EntityBlacklist = []int{9}
	if got := h.Blacklist(); len(got) != 1 || got[0] != 9 {
		t.Errorf("Blacklist() = %v, want entity_blacklist to win", got)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{"valid", func(*Config) {}, false},
		{"bad port", func(c *Config) { c.API.Port = 0 }, true},
		{"bad qos", func(c *Config) { c.MQTT.QoS = 3 }, true},
		{"short jwt secret", func(c *Config) { c.API.JWTSecret = "short" }, true},
		{"long jwt secret", func(c *Config) { c.API.JWTSecret = "0123456789abcdef0123456789abcdef" }, false},
		{"unknown override capability", func(c *Config) {
			c.Hub.DeviceConfigOverrides = map[string]DeviceConfigOverride{"3": {Capability: "rgb"}}
		}, true},
		{"non-numeric override key", func(c *Config) {
			c.Hub.DeviceConfigOverrides = map[string]DeviceConfigOverride{"dimmer": {Capability: "dimmable"}}
		}, true},
		{"influx without url", func(c *Config) { c.InfluxDB.Enabled = true }, true},
		{"prometheus without api", func(c *Config) { c.API.Enabled = false; c.Prometheus.Enabled = true }, true},
		{"prometheus with api", func(c *Config) { c.API.Enabled = true; c.Prometheus.Enabled = true }, false},
		{"zero discovery timeout", func(c *Config) { c.Hub.DiscoveryTimeout = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			cfg.Hub.Email = "a@b.c"
			cfg.Hub.Password = "pw"
			tt.modify(cfg)

			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrConfiguration) {
				t.Errorf("Validate() error = %v, want ErrConfiguration", err)
			}
		})
	}
}
