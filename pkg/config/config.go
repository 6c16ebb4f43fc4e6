// Package config provides configuration loading and management for annotationsr.
// It handles loading configuration from YAML files and provides default values.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"

	"annotationsr/pkg/dicomio"
	"annotationsr/pkg/errs"
	"annotationsr/pkg/logging"
	"annotationsr/pkg/metadata"
	"annotationsr/pkg/segmentation"
	"annotationsr/pkg/sr"
	"annotationsr/pkg/vti"
)

// EnvConfigPath names the config file when no path is given on the command line
const EnvConfigPath = "ANNOTATIONSR_CONFIG"

// DefaultConfigPath is used when neither the flag nor the environment names a file
const DefaultConfigPath = "annotationsr.yaml"

// Config represents the application configuration loaded from YAML
type Config struct {
	// Segmentation parameters
	Segmentation struct {
		// DecodeWorkers bounds how many objects are decoded in parallel
		DecodeWorkers int `yaml:"decodeWorkers"`

		// OverridePixelSpacing forces in-plane spacing to 1.0 x 1.0
		OverridePixelSpacing bool `yaml:"overridePixelSpacing"`

		// DefaultSliceThickness is used when the source has none, in mm
		DefaultSliceThickness float64 `yaml:"defaultSliceThickness"`
	} `yaml:"segmentation"`

	// Volume image output
	Volume struct {
		// Encoding of the appended block: base64 or raw
		Encoding string `yaml:"encoding"`

		// ScalarName names the point data array
		ScalarName string `yaml:"scalarName"`
	} `yaml:"volume"`

	// Report parameters
	Report struct {
		ObserverName          string `yaml:"observerName"`
		TrackingIdentifier    string `yaml:"trackingIdentifier"`
		SeriesDescription     string `yaml:"seriesDescription"`
		ImplementationVersion string `yaml:"implementationVersion"`
	} `yaml:"report"`

	// Private metadata channel
	Metadata struct {
		Creator string `yaml:"creator"`
		Group   uint16 `yaml:"group"`
	} `yaml:"metadata"`

	// Logging output
	Logging struct {
		// Level is one of debug, info, warn, error
		Level string `yaml:"level"`

		// Format is one of auto, json, text
		Format string `yaml:"format"`
	} `yaml:"logging"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Segmentation.DecodeWorkers = runtime.NumCPU()
	cfg.Segmentation.OverridePixelSpacing = true
	cfg.Segmentation.DefaultSliceThickness = segmentation.DefaultSliceThickness

	cfg.Volume.Encoding = string(vti.EncodingBase64)
	cfg.Volume.ScalarName = vti.DefaultScalarName

	cfg.Report.ObserverName = sr.DefaultObserverName
	cfg.Report.TrackingIdentifier = sr.DefaultTrackingIdentifier
	cfg.Report.SeriesDescription = dicomio.DefaultSeriesDescription
	cfg.Report.ImplementationVersion = dicomio.DefaultImplementationVersion

	cfg.Metadata.Creator = metadata.DefaultCreator
	cfg.Metadata.Group = metadata.DefaultGroup

	cfg.Logging.Level = "info"
	cfg.Logging.Format = logging.FormatAuto

	return cfg
}

// Validate checks values that cannot be repaired by defaults
func (c *Config) Validate() error {
	if c.Segmentation.DecodeWorkers < 0 {
		return errs.NewValidation("segmentation.decodeWorkers", "must not be negative")
	}
	if c.Segmentation.DefaultSliceThickness <= 0 {
		return errs.NewValidation("segmentation.defaultSliceThickness", "must be positive")
	}
	if _, err := vti.ParseEncoding(c.Volume.Encoding); err != nil {
		return err
	}
	if c.Volume.ScalarName == "" {
		return errs.NewValidation("volume.scalarName", "must not be empty")
	}
	if c.Metadata.Creator == "" {
		return errs.NewValidation("metadata.creator", "must not be empty")
	}
	// private groups are odd
	if c.Metadata.Group%2 == 0 {
		return errs.NewValidation("metadata.group", fmt.Sprintf("0x%04X is not a private group", c.Metadata.Group))
	}
	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		return errs.NewValidation("logging.level", err.Error())
	}
	return nil
}

// ResolvePath picks the config path: the explicit path, then the
// ANNOTATIONSR_CONFIG environment variable, then DefaultConfigPath
func ResolvePath(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if p := os.Getenv(EnvConfigPath); p != "" {
		return p
	}
	return DefaultConfigPath
}

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", configPath, err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// CreateDefaultConfigFile creates a default configuration file at the specified path
func CreateDefaultConfigFile(configPath string) error {
	cfg := DefaultConfig()
	return SaveConfig(cfg, configPath)
}
