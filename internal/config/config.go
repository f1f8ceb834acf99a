package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/san-kum/nbody/internal/compute"
	"github.com/san-kum/nbody/internal/sim"
	"gopkg.in/yaml.v3"
)

const (
	// BaseExponent offsets the exponent: N = 2^(Exponent+BaseExponent).
	BaseExponent     = 11
	DefaultExponent  = 1
	MaxExponent      = 20
	DefaultSeed      = 1
	DefaultTolerance = 1e-3
)

var ErrInvalid = errors.New("config: invalid value")

type Config struct {
	Exponent      int          `yaml:"exponent"`
	Salt          int          `yaml:"salt"`
	Dt            float32      `yaml:"dt"`
	Iterations    int          `yaml:"iterations"`
	Seed          uint64       `yaml:"seed"`
	Backend       string       `yaml:"backend"`
	Assess        bool         `yaml:"assess"`
	Tolerance     float64      `yaml:"tolerance"`
	MinThroughput float64      `yaml:"min_throughput"`
	Validate      bool         `yaml:"validate_state"`
	Layout        LayoutConfig `yaml:"layout"`
}

type LayoutConfig struct {
	TileWidth int `yaml:"tile_width"`
	GroupSize int `yaml:"group_size"`
	Fanout    int `yaml:"fanout"`
	Workers   int `yaml:"workers"`
}

func DefaultConfig() *Config {
	return &Config{
		Exponent:   DefaultExponent,
		Dt:         sim.DefaultDt,
		Iterations: sim.DefaultIterations,
		Seed:       DefaultSeed,
		Backend:    "auto",
		Tolerance:  DefaultTolerance,
		Layout: LayoutConfig{
			TileWidth: compute.DefaultTileWidth,
			GroupSize: compute.DefaultGroupSize,
			Fanout:    compute.DefaultFanout,
		},
	}
}

func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if err := LoadInto(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadInto overlays the file at path onto cfg. Keys missing from the file
// keep their current values.
func LoadInto(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// NumBodies returns 2^(Exponent+BaseExponent).
func (c *Config) NumBodies() int {
	return 1 << (c.Exponent + BaseExponent)
}

func (c *Config) ComputeLayout() compute.Layout {
	return compute.Layout{
		TileWidth: c.Layout.TileWidth,
		GroupSize: c.Layout.GroupSize,
		Fanout:    c.Layout.Fanout,
		Workers:   c.Layout.Workers,
	}
}

func (c *Config) SimConfig() sim.Config {
	return sim.Config{
		Dt:            c.Dt,
		Iterations:    c.Iterations,
		ValidateState: c.Validate,
	}
}

func (c *Config) Check() error {
	if c.Exponent < 0 || c.Exponent > MaxExponent {
		return fmt.Errorf("%w: exponent must be in [0, %d], got %d", ErrInvalid, MaxExponent, c.Exponent)
	}
	if c.Iterations <= 0 {
		return fmt.Errorf("%w: iterations must be positive, got %d", ErrInvalid, c.Iterations)
	}
	if c.Dt < 0 {
		return fmt.Errorf("%w: dt must not be negative, got %f", ErrInvalid, c.Dt)
	}
	if c.Tolerance <= 0 {
		return fmt.Errorf("%w: tolerance must be positive, got %g", ErrInvalid, c.Tolerance)
	}
	return c.ComputeLayout().Validate()
}
