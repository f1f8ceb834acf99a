package config

import "sort"

var Presets = map[string]*Config{
	"default": DefaultConfig(),
	"accuracy": {
		Exponent: 1, Dt: 0.01, Iterations: 10, Seed: DefaultSeed, Backend: "cpu",
		Tolerance: 1e-3, Validate: true,
		Layout: LayoutConfig{TileWidth: 64, GroupSize: 64, Fanout: 1},
	},
	"assess": {
		Exponent: 1, Dt: 0.01, Iterations: 10, Seed: DefaultSeed, Backend: "auto",
		Tolerance: DefaultTolerance, Assess: true, MinThroughput: 0.1,
		Layout: LayoutConfig{TileWidth: 64, GroupSize: 64, Fanout: 1},
	},
	"tiled512": {
		Exponent: 1, Dt: 0.01, Iterations: 10, Seed: DefaultSeed, Backend: "auto",
		Tolerance: DefaultTolerance,
		Layout:    LayoutConfig{TileWidth: 64, GroupSize: 512, Fanout: 8},
	},
	"serial": {
		Exponent: 1, Dt: 0.01, Iterations: 10, Seed: DefaultSeed, Backend: "cpu",
		Tolerance: DefaultTolerance,
		Layout:    LayoutConfig{TileWidth: 64, GroupSize: 64, Fanout: 1, Workers: 1},
	},
}

// GetPreset returns a copy of the named preset, or nil.
func GetPreset(name string) *Config {
	cfg, ok := Presets[name]
	if !ok {
		return nil
	}
	c := *cfg
	return &c
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
