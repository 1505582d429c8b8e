package config

import (
	"fmt"
	"net/netip"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for the JAP control panel.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Panel     PanelConfig     `yaml:"panel"`
	Devices   []DeviceConfig  `yaml:"devices"`
	JAP       JAPConfig       `yaml:"jap"`
	Database  DatabaseConfig  `yaml:"database"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	API       APIConfig       `yaml:"api"`
	WebSocket WebSocketConfig `yaml:"websocket"`
	InfluxDB  InfluxDBConfig  `yaml:"influxdb"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// PanelConfig contains installation-specific information shown on the panel.
type PanelConfig struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`

	// StaticDir serves the panel stylesheet from disk instead of the
	// embedded copy. Empty uses the embedded assets.
	StaticDir string `yaml:"static_dir"`
}

// DeviceConfig maps a display name to the network address of a JAP unit.
type DeviceConfig struct {
	Name    string `yaml:"name"`
	Address string `yaml:"address"`
}

// JAPConfig contains the device API settings and control bounds.
type JAPConfig struct {
	// Timeout caps every request made to a device.
	// Default: 10s
	Timeout time.Duration `yaml:"timeout"`

	// Port is the TCP port of the device API. Default: 80
	Port int `yaml:"port"`

	// MaxChannels is the highest selectable channel (channels start at 1).
	MaxChannels int `yaml:"max_channels"`

	// MinVolume and MaxVolume bound the stereo volume, inclusive.
	// MinVolume is also the value shown when a device volume cannot be read.
	MinVolume int `yaml:"min_volume"`
	MaxVolume int `yaml:"max_volume"`

	// VolumeStep is the increment offered by the panel's volume selector.
	VolumeStep int `yaml:"volume_step"`

	// VolumeModels lists model strings (exact, case-sensitive) that accept
	// volume commands.
	VolumeModels []string `yaml:"volume_models"`

	// RenderConcurrency limits simultaneous device reads when rendering
	// the whole panel. Default: 8
	RenderConcurrency int `yaml:"render_concurrency"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Enabled   bool                `yaml:"enabled"`
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

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	TLS      TLSConfig        `yaml:"tls"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`
}

// TLSConfig contains TLS certificate settings.
type TLSConfig struct {
	Enabled  bool   `yaml:"enabled"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// APITimeoutConfig contains HTTP timeout settings in seconds.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
}

// WebSocketConfig contains WebSocket server settings.
type WebSocketConfig struct {
	Path           string `yaml:"path"`
	MaxMessageSize int    `yaml:"max_message_size"`
	PingInterval   int    `yaml:"ping_interval"`
	PongTimeout    int    `yaml:"pong_timeout"`
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

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string            `yaml:"level"`
	Format string            `yaml:"format"`
	Output string            `yaml:"output"`
	File   FileLoggingConfig `yaml:"file"`
}

// FileLoggingConfig contains file-based logging settings.
// Sizes are in megabytes, ages in days.
type FileLoggingConfig struct {
	Path       string `yaml:"path"`
	MaxSize    int    `yaml:"max_size"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAge     int    `yaml:"max_age"`
	Compress   bool   `yaml:"compress"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: JAPPANEL_SECTION_KEY
// For example: JAPPANEL_DATABASE_PATH, JAPPANEL_API_PORT
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
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
		Panel: PanelConfig{
			ID:   "panel-001",
			Name: "Just Add Power",
		},
		JAP: JAPConfig{
			Timeout:           10 * time.Second,
			Port:              80,
			MaxChannels:       100,
			MinVolume:         0,
			MaxVolume:         100,
			VolumeStep:        5,
			VolumeModels:      []string{"3G+AVP RX"},
			RenderConcurrency: 8,
		},
		Database: DatabaseConfig{
			Enabled:     true,
			Path:        "./data/jappanel.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "jappanel",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		API: APIConfig{
			Host: "0.0.0.0",
			Port: 8080,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		WebSocket: WebSocketConfig{
			Path:           "/ws",
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
			File: FileLoggingConfig{
				MaxSize:    10,
				MaxBackups: 5,
				MaxAge:     30,
			},
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: JAPPANEL_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Panel
	if v := os.Getenv("JAPPANEL_PANEL_STATIC_DIR"); v != "" {
		cfg.Panel.StaticDir = v
	}

	// Database
	if v := os.Getenv("JAPPANEL_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// MQTT
	if v := os.Getenv("JAPPANEL_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("JAPPANEL_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("JAPPANEL_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// API
	if v := os.Getenv("JAPPANEL_API_HOST"); v != "" {
		cfg.API.Host = v
	}
	if v := os.Getenv("JAPPANEL_API_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.API.Port = port
		}
	}

	// JAP devices
	if v := os.Getenv("JAPPANEL_JAP_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.JAP.Timeout = d
		}
	}

	// InfluxDB
	if v := os.Getenv("JAPPANEL_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	// Logging
	if v := os.Getenv("JAPPANEL_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

// maxDeviceTimeout keeps a single unresponsive device from stalling the panel.
const maxDeviceTimeout = time.Minute

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of every validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	if c.Panel.ID == "" {
		errs = append(errs, "panel.id is required")
	}

	errs = append(errs, c.validateDevices()...)
	errs = append(errs, c.validateJAP()...)

	if c.Database.Enabled && c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	if c.API.Port < 1 || c.API.Port > 65535 {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	if c.InfluxDB.Enabled && c.InfluxDB.URL == "" {
		errs = append(errs, "influxdb.url is required when influxdb is enabled")
	}

	if strings.EqualFold(c.Logging.Output, "file") && c.Logging.File.Path == "" {
		errs = append(errs, "logging.file.path is required when logging.output is file")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// validateDevices checks device names are present and unique and that every
// address is an IP literal.
func (c *Config) validateDevices() []string {
	var errs []string
	seen := make(map[string]struct{}, len(c.Devices))

	for i, d := range c.Devices {
		name := strings.TrimSpace(d.Name)
		if name == "" {
			errs = append(errs, fmt.Sprintf("devices[%d].name is required", i))
			continue
		}
		if _, dup := seen[name]; dup {
			errs = append(errs, fmt.Sprintf("devices[%d].name %q is duplicated", i, name))
		}
		seen[name] = struct{}{}

		addr, err := netip.ParseAddr(strings.TrimSpace(d.Address))
		if err != nil || addr.Zone() != "" {
			errs = append(errs, fmt.Sprintf("devices[%d].address %q is not an IP address", i, d.Address))
		}
	}

	return errs
}

func (c *Config) validateJAP() []string {
	var errs []string
	j := c.JAP

	if j.Timeout <= 0 || j.Timeout > maxDeviceTimeout {
		errs = append(errs, "jap.timeout must be between 1ns and 1m")
	}
	if j.Port < 1 || j.Port > 65535 {
		errs = append(errs, "jap.port must be between 1 and 65535")
	}
	if j.MaxChannels < 1 {
		errs = append(errs, "jap.max_channels must be at least 1")
	}
	if j.MinVolume > j.MaxVolume {
		errs = append(errs, "jap.min_volume must not exceed jap.max_volume")
	}
	if j.VolumeStep < 1 {
		errs = append(errs, "jap.volume_step must be at least 1")
	}
	if j.RenderConcurrency < 1 {
		errs = append(errs, "jap.render_concurrency must be at least 1")
	}

	return errs
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
