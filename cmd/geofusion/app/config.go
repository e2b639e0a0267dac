package app

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roman-kulish/drone-geofusion/internal/correlation"
	"github.com/roman-kulish/drone-geofusion/internal/geo"
)

const (
	defaultStorageDir  = "data"
	defaultSessionName = "geofusion"
)

// Config represents the main application configuration
type Config struct {
	Settings    Settings           `yaml:"settings"`
	Mission     string             `yaml:"mission"` // Mission file to replay
	Telemetry   TelemetryConfig    `yaml:"telemetry"`
	Correlation correlation.Config `yaml:"correlation"`
	Validation  ValidationConfig   `yaml:"validation"`
	Storage     StorageConfig      `yaml:"storage"`
}

// Settings represents global application settings
type Settings struct {
	LogLevel string `yaml:"logLevel"`
}

// Level parses the configured log level, defaulting to info
func (s Settings) Level() (slog.Level, error) {
	var level slog.Level
	if s.LogLevel == "" {
		return level, nil
	}
	if err := level.UnmarshalText([]byte(s.LogLevel)); err != nil {
		return level, fmt.Errorf("invalid log level '%s'", s.LogLevel)
	}
	return level, nil
}

// TelemetryConfig represents telemetry settings. Without a live link the
// drone reports the configured pose until a mission step replaces it.
type TelemetryConfig struct {
	Pose geo.DronePose `yaml:"pose"`
}

// ValidationConfig represents sighting validation settings
type ValidationConfig struct {
	Enabled bool `yaml:"enabled"`
}

// StorageConfig represents journal settings
type StorageConfig struct {
	Enabled       bool   `yaml:"enabled"`
	DataDirectory string `yaml:"dataDirectory"`
	SessionName   string `yaml:"sessionName"`
}

// NewConfig returns the configuration defaults
func NewConfig() *Config {
	return &Config{
		Correlation: correlation.Config{
			Matcher:   correlation.MatcherFixed,
			Threshold: correlation.DefaultThreshold,
		},
		Storage: StorageConfig{
			DataDirectory: defaultStorageDir,
			SessionName:   defaultSessionName,
		},
	}
}

// LoadConfig reads the YAML configuration file at path on top of the defaults
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading configuration: %w", err)
	}

	c := NewConfig()
	if err = yaml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	if err = c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks the configuration
func (c *Config) Validate() error {
	if _, err := c.Settings.Level(); err != nil {
		return err
	}

	switch c.Correlation.Matcher {
	case correlation.MatcherFixed:
	case correlation.MatcherSatellite:
		if c.Correlation.CacheDirectory == "" {
			return errors.New("correlation: cache directory is required by the satellite matcher")
		}
	default:
		return fmt.Errorf("correlation: unknown matcher '%s'", c.Correlation.Matcher)
	}

	if c.Correlation.Threshold <= 0 || c.Correlation.Threshold > 1 {
		return fmt.Errorf("correlation: threshold %v outside (0, 1]", c.Correlation.Threshold)
	}

	if c.Storage.Enabled && c.Storage.DataDirectory == "" {
		return errors.New("storage: data directory is required")
	}

	return nil
}
