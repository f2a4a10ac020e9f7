// Package config defines the adapter's configuration surface and a YAML
// loader with struct-tag defaults and search-path/environment-variable
// resolution, grounded on the teacher SDK's config loading conventions.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/creasty/defaults"
	"github.com/imdario/mergo"
	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Config is the adapter's top-level configuration, corresponding to the
// recognized keys in the runtime's configuration surface.
type Config struct {
	Service  ServiceConfig  `yaml:"service"`
	Clients  ClientsConfig  `yaml:"clients"`
	Device   DeviceConfig   `yaml:"device"`
	Logging  LoggingConfig  `yaml:"logging"`
	Driver   map[string]string `yaml:"driver,omitempty"`

	Schedules      map[string]string         `yaml:"schedules,omitempty"`
	ScheduleEvents map[string]ScheduleEvent  `yaml:"scheduleEvents,omitempty"`

	DeviceList []DeviceConfigEntry `yaml:"deviceList,omitempty"`

	// Registry is the remote configuration-registry location. When set, the
	// orchestrator reconciles this configuration against the registry at
	// startup and advertises its health-check endpoint there once serving.
	// When empty, both are skipped entirely.
	Registry string `yaml:"registry,omitempty"`
}

// ServiceConfig describes this adapter's own identity and runtime tuning.
type ServiceConfig struct {
	Name           string   `yaml:"name" default:"adapter"`
	Host           string   `yaml:"host" default:"0.0.0.0"`
	Port           int      `yaml:"port" default:"48080"`
	Timeout        int      `yaml:"timeout" default:"5000"` // ms, per ping retry
	ConnectRetries int      `yaml:"connectRetries" default:"3"`
	CheckInterval  string   `yaml:"checkInterval" default:"30s"`
	Labels         []string `yaml:"labels,omitempty"`
	StartupMsg     string   `yaml:"startupMsg,omitempty"`
}

// ClientConfig is a host/port pair for a single platform client.
type ClientConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// ClientsConfig groups the platform clients this adapter talks to.
type ClientsConfig struct {
	Data     ClientConfig `yaml:"data"`
	Metadata ClientConfig `yaml:"metadata"`
}

// DeviceConfig controls device profile loading and the transform engine.
type DeviceConfig struct {
	ProfilesDir   string `yaml:"profilesDir" default:"./res"`
	DataTransform bool   `yaml:"dataTransform" default:"true"`

	// RateLimit caps sustained dispatcher commands per second across all
	// devices; 0 disables limiting. RateLimitBurst is the bucket size,
	// defaulting to RateLimit itself when unset.
	RateLimit      float64 `yaml:"rateLimit,omitempty"`
	RateLimitBurst int     `yaml:"rateLimitBurst,omitempty"`
}

// LoggingConfig controls the logging sink.
type LoggingConfig struct {
	File      string `yaml:"file,omitempty"`
	RemoteURL string `yaml:"remoteUrl,omitempty"`
	Level     string `yaml:"level" default:"info"`
}

// ScheduleEvent names a schedule and the dispatcher path it should invoke
// (either a discovery trigger or a device command URL) when it fires.
type ScheduleEvent struct {
	Schedule string `yaml:"schedule"`
	Path     string `yaml:"path"`
}

// DeviceConfigEntry is a device to create from local configuration at
// startup, if it does not already exist in the platform's metadata.
type DeviceConfigEntry struct {
	Name        string            `yaml:"name"`
	Profile     string            `yaml:"profile"`
	Description string            `yaml:"description,omitempty"`
	Labels      map[string]string `yaml:"labels,omitempty"`
	Addressable AddressableConfig `yaml:"addressable"`
}

// AddressableConfig is the addressable record for a DeviceConfigEntry.
type AddressableConfig struct {
	Name     string `yaml:"name"`
	Protocol string `yaml:"protocol"`
	Address  string `yaml:"address"`
	Port     int    `yaml:"port"`
	Path     string `yaml:"path,omitempty"`
}

// EnvOverride is the environment variable that, if set, overrides the
// configuration file search and is read directly as the config file path.
const EnvOverride = "ADAPTER_CONFIG"

// Load resolves and parses the adapter configuration. Resolution order:
//  1. If the EnvOverride environment variable is set, load exactly that file.
//  2. Otherwise search the given directories in order for "config.yaml" or
//     "config.yml" and load the first match.
//
// Struct-tag defaults (via github.com/creasty/defaults) are applied before
// YAML unmarshaling overwrites them with any configured values.
func Load(searchPaths ...string) (*Config, error) {
	cfg := new(Config)
	if err := defaults.Set(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to set defaults: %w", err)
	}

	path, err := resolvePath(searchPaths)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: failed to read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse %s: %w", path, err)
	}

	log.WithField("path", path).Info("[config] loaded configuration")
	return cfg, nil
}

// ApplyOverlay layers the YAML document at path onto cfg, overwriting any
// field the overlay sets and leaving the rest of cfg untouched. It is meant
// for environment-specific overrides (a per-site addressable, a tighter rate
// limit) applied on top of the base configuration loaded by Load.
func ApplyOverlay(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: failed to read overlay %s: %w", path, err)
	}

	var overlay Config
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return fmt.Errorf("config: failed to parse overlay %s: %w", path, err)
	}

	if err := mergo.Merge(cfg, overlay, mergo.WithOverride); err != nil {
		return fmt.Errorf("config: failed to merge overlay %s: %w", path, err)
	}

	log.WithField("path", path).Info("[config] applied configuration overlay")
	return nil
}

func resolvePath(searchPaths []string) (string, error) {
	if override := os.Getenv(EnvOverride); override != "" {
		if _, err := os.Stat(override); err != nil {
			return "", fmt.Errorf("config: override path %s from %s is not readable: %w", override, EnvOverride, err)
		}
		return override, nil
	}

	for _, dir := range searchPaths {
		for _, name := range []string{"config.yaml", "config.yml"} {
			candidate := filepath.Join(dir, name)
			if _, err := os.Stat(candidate); err == nil {
				return candidate, nil
			}
		}
	}
	return "", fmt.Errorf("config: no configuration file found in search paths %v", searchPaths)
}

// Log logs the effective configuration at INFO level, matching the
// teacher's convention of logging config structs on startup.
func (c *Config) Log() {
	log.WithFields(log.Fields{
		"name":       c.Service.Name,
		"host":       c.Service.Host,
		"port":       c.Service.Port,
		"labels":     c.Service.Labels,
		"dataHost":   c.Clients.Data.Host,
		"metaHost":   c.Clients.Metadata.Host,
		"profiles":   c.Device.ProfilesDir,
		"transform":  c.Device.DataTransform,
		"registry":   c.Registry,
	}).Info("[config] effective configuration")
}

// CheckIntervalDuration parses the CheckInterval string into a time.Duration,
// falling back to 30s on a malformed value.
func (s ServiceConfig) CheckIntervalDuration() time.Duration {
	d, err := time.ParseDuration(s.CheckInterval)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// TimeoutDuration converts the millisecond Timeout into a time.Duration.
func (s ServiceConfig) TimeoutDuration() time.Duration {
	return time.Duration(s.Timeout) * time.Millisecond
}
