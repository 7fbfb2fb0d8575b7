// Package config provides configuration loading and management for multinoise.
// It handles loading configuration from YAML files and provides default values.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"

	"multinoise/pkg/noise"
)

// ModelConfig describes one noise model entry in the configuration.
type ModelConfig struct {
	// Description is a short human readable summary of the model.
	Description string `yaml:"description"`

	// ParameterName names the physical parameter, e.g. "sigma".
	ParameterName string `yaml:"parameter_name"`

	// ParameterRange holds [min, max] of legal parameter values.
	ParameterRange []float64 `yaml:"parameter_range"`
}

// Config represents the application configuration loaded from YAML
type Config struct {
	// Processing parameters
	Processing struct {
		// NumCores specifies how many CPU cores to use for parallel processing
		NumCores int `yaml:"numCores"`

		// DefaultLevels is the number of severity levels generated per model
		DefaultLevels int `yaml:"defaultLevels"`

		// Seed is the base seed for all randomized models; every job
		// derives its own sub-stream from it
		Seed uint64 `yaml:"seed"`
	} `yaml:"processing"`

	// Models maps model names to parameter range overrides. Entries
	// replace the built-in descriptor fields; absent models keep their
	// defaults.
	Models map[string]ModelConfig `yaml:"models"`

	// Output parameters
	Output struct {
		// Format selects the output container: "tiff", "png" or "jpeg".
		// Empty keeps each image's source format.
		Format string `yaml:"format"`

		// Thumbnails enables per-result PNG previews
		Thumbnails bool `yaml:"thumbnails"`

		// ThumbnailSize is the longest side of generated previews in pixels
		ThumbnailSize int `yaml:"thumbnailSize"`

		// Verbose controls the level of logging output
		Verbose bool `yaml:"verbose"`
	} `yaml:"output"`

	// Dataset split parameters
	Dataset struct {
		// TrainRatio, ValRatio and TestRatio must sum to 1.0
		TrainRatio float64 `yaml:"trainRatio"`
		ValRatio   float64 `yaml:"valRatio"`
		TestRatio  float64 `yaml:"testRatio"`

		// Zip packages each split directory into an archive
		Zip bool `yaml:"zip"`
	} `yaml:"dataset"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	// Set default processing parameters
	cfg.Processing.NumCores = runtime.NumCPU() // Use all available cores by default
	cfg.Processing.DefaultLevels = 5
	cfg.Processing.Seed = 1

	cfg.Models = map[string]ModelConfig{}

	// Set default output parameters
	cfg.Output.Format = ""
	cfg.Output.Thumbnails = false
	cfg.Output.ThumbnailSize = 256
	cfg.Output.Verbose = true

	// Set default dataset split parameters
	cfg.Dataset.TrainRatio = 0.7
	cfg.Dataset.ValRatio = 0.15
	cfg.Dataset.TestRatio = 0.15
	cfg.Dataset.Zip = false

	return cfg
}

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	// Check if config file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	// Read config file
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	// Parse YAML
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (cfg *Config) validate() error {
	if cfg.Processing.NumCores < 1 {
		return fmt.Errorf("numCores must be at least 1, got %d", cfg.Processing.NumCores)
	}
	if cfg.Processing.DefaultLevels < 1 {
		return fmt.Errorf("defaultLevels must be at least 1, got %d", cfg.Processing.DefaultLevels)
	}
	for name, mc := range cfg.Models {
		if n := len(mc.ParameterRange); n != 0 && n != 2 {
			return fmt.Errorf("model %q: parameter_range needs exactly two values, got %d", name, n)
		}
	}
	sum := cfg.Dataset.TrainRatio + cfg.Dataset.ValRatio + cfg.Dataset.TestRatio
	if sum < 0.999 || sum > 1.001 {
		return fmt.Errorf("dataset split ratios must sum to 1.0, got %g", sum)
	}
	return nil
}

// ModelOverrides converts the configured model table into the override
// form the noise generator consumes.
func (cfg *Config) ModelOverrides() map[string]noise.Override {
	out := make(map[string]noise.Override, len(cfg.Models))
	for name, mc := range cfg.Models {
		o := noise.Override{
			Description:   mc.Description,
			ParameterName: mc.ParameterName,
		}
		if len(mc.ParameterRange) == 2 {
			o.Range = [2]float64{mc.ParameterRange[0], mc.ParameterRange[1]}
		}
		out[name] = o
	}
	return out
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	// Create directory if it doesn't exist
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	// Marshal config to YAML
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	// Write to file
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
