package config

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"annotationsr/pkg/errs"
	"annotationsr/pkg/metadata"
)

// TestDefaultConfig checks the documented defaults
func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Segmentation.DecodeWorkers != runtime.NumCPU() {
		t.Errorf("Expected %d decode workers, got %d", runtime.NumCPU(), cfg.Segmentation.DecodeWorkers)
	}
	if !cfg.Segmentation.OverridePixelSpacing {
		t.Error("Expected pixel spacing override on by default")
	}
	if cfg.Volume.Encoding != "base64" {
		t.Errorf("Expected base64 encoding, got %s", cfg.Volume.Encoding)
	}
	if cfg.Volume.ScalarName != "Scalars_" {
		t.Errorf("Expected scalar name Scalars_, got %s", cfg.Volume.ScalarName)
	}
	if cfg.Report.ObserverName != "unknown^unknown" {
		t.Errorf("Expected observer unknown^unknown, got %s", cfg.Report.ObserverName)
	}
	if cfg.Metadata.Group != 0x7777 {
		t.Errorf("Expected group 0x7777, got 0x%04X", cfg.Metadata.Group)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Expected defaults to validate, got %v", err)
	}
}

// TestLoadMissingFile falls back to defaults
func TestLoadMissingFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if cfg.Metadata.Creator != metadata.DefaultCreator {
		t.Errorf("Expected default creator, got %s", cfg.Metadata.Creator)
	}
}

// TestSaveAndLoad writes a modified config and reads it back
func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "annotationsr.yaml")

	cfg := DefaultConfig()
	cfg.Segmentation.DecodeWorkers = 3
	cfg.Volume.Encoding = "raw"
	cfg.Logging.Level = "debug"
	if err := SaveConfig(cfg, path); err != nil {
		t.Fatalf("Failed to save config: %v", err)
	}

	loaded, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if loaded.Segmentation.DecodeWorkers != 3 {
		t.Errorf("Expected 3 decode workers, got %d", loaded.Segmentation.DecodeWorkers)
	}
	if loaded.Volume.Encoding != "raw" {
		t.Errorf("Expected raw encoding, got %s", loaded.Volume.Encoding)
	}
	if loaded.Logging.Level != "debug" {
		t.Errorf("Expected debug level, got %s", loaded.Logging.Level)
	}
}

// TestPartialFileKeepsDefaults only overrides the keys present
func TestPartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partial.yaml")
	data := []byte("volume:\n  encoding: raw\nmetadata:\n  group: 0x7779\n")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if cfg.Volume.Encoding != "raw" {
		t.Errorf("Expected raw encoding, got %s", cfg.Volume.Encoding)
	}
	if cfg.Volume.ScalarName != "Scalars_" {
		t.Errorf("Expected default scalar name to survive, got %s", cfg.Volume.ScalarName)
	}
	if cfg.Metadata.Group != 0x7779 {
		t.Errorf("Expected group 0x7779, got 0x%04X", cfg.Metadata.Group)
	}
}

// TestInvalidConfig rejects values defaults cannot repair
func TestInvalidConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"negative workers", func(c *Config) { c.Segmentation.DecodeWorkers = -1 }},
		{"zero thickness", func(c *Config) { c.Segmentation.DefaultSliceThickness = 0 }},
		{"unknown encoding", func(c *Config) { c.Volume.Encoding = "zlib" }},
		{"empty scalar name", func(c *Config) { c.Volume.ScalarName = "" }},
		{"empty creator", func(c *Config) { c.Metadata.Creator = "" }},
		{"even group", func(c *Config) { c.Metadata.Group = 0x0010 }},
		{"unknown level", func(c *Config) { c.Logging.Level = "chatty" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if !errors.Is(err, errs.ErrValidation) {
				t.Errorf("Expected validation error, got %v", err)
			}
		})
	}
}

// TestLoadRejectsBadYAML reports parse failures
func TestLoadRejectsBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("volume: [unclosed"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfig(path); err == nil {
		t.Error("Expected parse error")
	}
}

// TestResolvePath prefers the explicit path, then the environment
func TestResolvePath(t *testing.T) {
	t.Setenv(EnvConfigPath, "")
	if got := ResolvePath(""); got != DefaultConfigPath {
		t.Errorf("Expected %s, got %s", DefaultConfigPath, got)
	}

	t.Setenv(EnvConfigPath, "/etc/annotationsr.yaml")
	if got := ResolvePath(""); got != "/etc/annotationsr.yaml" {
		t.Errorf("Expected environment path, got %s", got)
	}
	if got := ResolvePath("local.yaml"); got != "local.yaml" {
		t.Errorf("Expected explicit path, got %s", got)
	}
}

// TestCreateDefaultConfigFile writes a loadable file
func TestCreateDefaultConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "default.yaml")
	if err := CreateDefaultConfigFile(path); err != nil {
		t.Fatalf("Failed to create default config: %v", err)
	}
	if _, err := LoadConfig(path); err != nil {
		t.Errorf("Expected default file to load, got %v", err)
	}
}
