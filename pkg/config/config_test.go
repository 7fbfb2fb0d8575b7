package config

import (
	"os"
	"path/filepath"
	"testing"
)

// TestDefaultConfig verifies the built-in defaults
func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Processing.NumCores < 1 {
		t.Errorf("Expected at least 1 core, got %d", cfg.Processing.NumCores)
	}
	if cfg.Processing.DefaultLevels != 5 {
		t.Errorf("Expected 5 default levels, got %d", cfg.Processing.DefaultLevels)
	}
	if cfg.Dataset.TrainRatio+cfg.Dataset.ValRatio+cfg.Dataset.TestRatio != 1.0 {
		t.Error("Expected default split ratios to sum to 1.0")
	}
	if cfg.Output.ThumbnailSize != 256 {
		t.Errorf("Expected thumbnail size 256, got %d", cfg.Output.ThumbnailSize)
	}
}

// TestLoadConfigMissingFile verifies a missing file yields defaults
func TestLoadConfigMissingFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Expected defaults for missing file, got error: %v", err)
	}
	if cfg.Processing.DefaultLevels != 5 {
		t.Errorf("Expected default levels 5, got %d", cfg.Processing.DefaultLevels)
	}
}

// TestLoadConfigOverrides verifies YAML values replace defaults and the
// model table parses into noise overrides
func TestLoadConfigOverrides(t *testing.T) {
	yaml := `
processing:
  numCores: 2
  defaultLevels: 3
  seed: 99
models:
  gaussian:
    description: "custom gaussian"
    parameter_name: "sigma"
    parameter_range: [1.0, 20.0]
output:
  verbose: false
dataset:
  trainRatio: 0.8
  valRatio: 0.1
  testRatio: 0.1
`
	path := filepath.Join(t.TempDir(), "cfg.yaml")
	if err := os.WriteFile(path, []byte(yaml), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Processing.NumCores != 2 || cfg.Processing.DefaultLevels != 3 || cfg.Processing.Seed != 99 {
		t.Errorf("Expected processing overrides (2, 3, 99), got (%d, %d, %d)",
			cfg.Processing.NumCores, cfg.Processing.DefaultLevels, cfg.Processing.Seed)
	}

	overrides := cfg.ModelOverrides()
	o, ok := overrides["gaussian"]
	if !ok {
		t.Fatal("Expected gaussian override to be present")
	}
	if o.Range != [2]float64{1, 20} {
		t.Errorf("Expected range [1, 20], got %v", o.Range)
	}
	if o.Description != "custom gaussian" {
		t.Errorf("Expected custom description, got %q", o.Description)
	}
}

// TestLoadConfigBadRatios verifies validation of split ratios
func TestLoadConfigBadRatios(t *testing.T) {
	yaml := `
dataset:
  trainRatio: 0.5
  valRatio: 0.1
  testRatio: 0.1
`
	path := filepath.Join(t.TempDir(), "cfg.yaml")
	if err := os.WriteFile(path, []byte(yaml), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfig(path); err == nil {
		t.Error("Expected error for ratios summing to 0.7, got nil")
	}
}

// TestLoadConfigBadRange verifies a malformed parameter_range is caught
func TestLoadConfigBadRange(t *testing.T) {
	yaml := `
models:
  gaussian:
    parameter_range: [1.0, 2.0, 3.0]
`
	path := filepath.Join(t.TempDir(), "cfg.yaml")
	if err := os.WriteFile(path, []byte(yaml), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfig(path); err == nil {
		t.Error("Expected error for three-element range, got nil")
	}
}

// TestSaveConfigRoundTrip verifies saved config loads back identically
func TestSaveConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "cfg.yaml")

	cfg := DefaultConfig()
	cfg.Processing.Seed = 1234
	if err := SaveConfig(cfg, path); err != nil {
		t.Fatalf("SaveConfig failed: %v", err)
	}

	back, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if back.Processing.Seed != 1234 {
		t.Errorf("Expected seed 1234 after round trip, got %d", back.Processing.Seed)
	}
}
