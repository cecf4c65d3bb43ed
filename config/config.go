// Package config provides YAML configuration loading for the external
// collaborators (CLI, telemetry, test fixtures) that need a reproducible
// set of default construction parameters. The simulation core itself is
// always built from explicit Go values (SPEC_FULL.md §3); nothing in
// statemachine, sample, optics, or detector imports this package.
package config

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds the default parameters used to build a reference component
// stack (UniformMono2D + Gaussian2D + SimpleCMOS + Simulator).
type Config struct {
	Physics    PhysicsConfig    `yaml:"physics"`
	Geometry   GeometryConfig   `yaml:"geometry"`
	Simulation SimulationConfig `yaml:"simulation"`
	Source     SourceConfig     `yaml:"source"`
	PSF        PSFConfig        `yaml:"psf"`
	Detector   DetectorConfig   `yaml:"detector"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`
}

// PhysicsConfig holds step timing.
type PhysicsConfig struct {
	Dt float64 `yaml:"dt"`
}

// GeometryConfig holds the image rectangle.
type GeometryConfig struct {
	XLim [2]int `yaml:"x_lim"`
	YLim [2]int `yaml:"y_lim"`
}

// SimulationConfig holds run-level parameters.
type SimulationConfig struct {
	NumMeasurements int   `yaml:"num_measurements"`
	Seed            int64 `yaml:"seed"`
	Backup          bool  `yaml:"backup"`
}

// SourceConfig holds UniformMono2D defaults.
type SourceConfig struct {
	Power    float64 `yaml:"power"`
	PowerMax float64 `yaml:"power_max"`
}

// PSFConfig holds Gaussian2D defaults.
type PSFConfig struct {
	FWHM float64 `yaml:"fwhm"`
}

// DetectorConfig holds SimpleCMOS defaults.
type DetectorConfig struct {
	Baseline          float64 `yaml:"baseline"`
	BitDepth          int     `yaml:"bit_depth"`
	DarkNoise         float64 `yaml:"dark_noise"`
	QuantumEfficiency float64 `yaml:"quantum_efficiency"`
	Sensitivity       float64 `yaml:"sensitivity"`
	NumPixels         [2]int  `yaml:"num_pixels"`
}

// TelemetryConfig holds the optional CSV telemetry post-processor's
// settings.
type TelemetryConfig struct {
	WindowDurationSec float64 `yaml:"window_duration_sec"`
	OutputDir         string  `yaml:"output_dir"`
}

// global holds the loaded configuration.
var global *Config

// Init loads configuration from path, or uses embedded defaults if path is
// empty. Must be called before Cfg().
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	global = cfg
	return nil
}

// MustInit is like Init but panics on error.
func MustInit(path string) {
	if err := Init(path); err != nil {
		panic(fmt.Sprintf("config: failed to initialize: %v", err))
	}
}

// Cfg returns the global configuration. Panics if Init was not called.
func Cfg() *Config {
	if global == nil {
		panic("config: Cfg() called before Init()")
	}
	return global
}

// Load loads configuration from a YAML file, merging with embedded
// defaults. If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}
	return cfg, nil
}

// WriteYAML saves cfg to path, for reproducing a run's configuration
// alongside its telemetry output.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}
