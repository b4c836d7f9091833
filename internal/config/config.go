package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/qflow/internal/flow"
	"github.com/san-kum/qflow/internal/geometry"
	"github.com/san-kum/qflow/internal/scenario"
)

const (
	DefaultN          = 24
	DefaultS0         = 0.6
	DefaultScaleStep  = 0.02
	DefaultMaxScale   = 1.0
	DefaultTolerance  = 1e-4
	DefaultMaxSteps   = 200
	DefaultWindow     = 3
	DefaultRicciBound = 0.5
)

type Config struct {
	Geometry   GeometryConfig `yaml:"geometry"`
	Scenario   string         `yaml:"scenario"`
	Params     ScenarioConfig `yaml:"params"`
	Flow       FlowConfig     `yaml:"flow"`
	RicciBound float64        `yaml:"ricci_bound"`
}

type GeometryConfig struct {
	Kind   string  `yaml:"kind"` // disk, torus, sphere, box
	N      int     `yaml:"n"`
	Radius float64 `yaml:"radius"`
	Major  float64 `yaml:"major"`
	Minor  float64 `yaml:"minor"`
}

type ScenarioConfig struct {
	S0         float64 `yaml:"s0"`
	Charge     float64 `yaml:"charge"`
	Separation float64 `yaml:"separation"`
	Tilt       float64 `yaml:"tilt"`
	Pitch      float64 `yaml:"pitch"`
}

type FlowConfig struct {
	ScaleStep       float64 `yaml:"scale_step"`
	MaxScale        float64 `yaml:"max_scale"`
	Tolerance       float64 `yaml:"tolerance"`
	MaxSteps        int     `yaml:"max_steps"`
	Window          int     `yaml:"window"`
	TrackNaturality bool    `yaml:"track_naturality"`
}

func DefaultConfig() *Config {
	return &Config{
		Geometry: GeometryConfig{
			Kind: "disk", N: DefaultN,
			Radius: 1.0, Major: 2.0, Minor: 0.6,
		},
		Scenario: "single-defect",
		Params:   ScenarioConfig{S0: DefaultS0, Charge: 1, Separation: 0.5},
		Flow: FlowConfig{
			ScaleStep: DefaultScaleStep,
			MaxScale:  DefaultMaxScale,
			Tolerance: DefaultTolerance,
			MaxSteps:  DefaultMaxSteps,
			Window:    DefaultWindow,
		},
		RicciBound: DefaultRicciBound,
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// BuildGeometry instantiates the configured chart.
func (c *Config) BuildGeometry() (*geometry.Geometry, error) {
	switch c.Geometry.Kind {
	case "disk", "":
		return geometry.NewDisk(c.Geometry.N), nil
	case "torus":
		return geometry.NewTorus(c.Geometry.N, c.Geometry.Major, c.Geometry.Minor), nil
	case "sphere":
		return geometry.NewSphere(c.Geometry.N, c.Geometry.Radius), nil
	case "box":
		return geometry.NewBox(c.Geometry.N), nil
	default:
		return nil, fmt.Errorf("unknown geometry: %s", c.Geometry.Kind)
	}
}

// ScenarioParams flattens the config into builder parameters.
func (c *Config) ScenarioParams() scenario.Params {
	return scenario.Params{
		"s0":         c.Params.S0,
		"charge":     c.Params.Charge,
		"separation": c.Params.Separation,
		"tilt":       c.Params.Tilt,
		"pitch":      c.Params.Pitch,
	}
}

// FlowConfig converts to the driver's config type.
func (c *Config) FlowConfig() flow.Config {
	return flow.Config{
		ScaleStep:       c.Flow.ScaleStep,
		MaxScale:        c.Flow.MaxScale,
		Tolerance:       c.Flow.Tolerance,
		MaxSteps:        c.Flow.MaxSteps,
		Window:          c.Flow.Window,
		TrackNaturality: c.Flow.TrackNaturality,
	}
}
