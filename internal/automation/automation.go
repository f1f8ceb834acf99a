// Package automation runs scripted sequences of simulations described in
// YAML.
package automation

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/san-kum/nbody/internal/config"
	"github.com/san-kum/nbody/internal/experiment"
	"github.com/san-kum/nbody/internal/metrics"
	"github.com/san-kum/nbody/internal/verify"
	"gopkg.in/yaml.v3"
)

var ErrScenario = errors.New("automation: invalid scenario")

// Scenario defines a scripted simulation sequence
type Scenario struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Steps       []ScenarioStep `yaml:"steps"`
}

// ScenarioStep starts from a preset (default when empty) and applies the
// fields present under config. Repeat runs the step again with consecutive
// seeds.
type ScenarioStep struct {
	Name   string    `yaml:"name"`
	Preset string    `yaml:"preset"`
	Repeat int       `yaml:"repeat"`
	Config yaml.Node `yaml:"config"`
}

// LoadScenario loads a scenario from a YAML file
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseScenario(data)
}

func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	if err := yaml.Unmarshal(data, &scenario); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrScenario, err)
	}
	if len(scenario.Steps) == 0 {
		return nil, fmt.Errorf("%w: no steps", ErrScenario)
	}
	return &scenario, nil
}

// Resolve builds the configuration of a step.
func (s *ScenarioStep) Resolve() (*config.Config, error) {
	cfg := config.DefaultConfig()
	if s.Preset != "" {
		cfg = config.GetPreset(s.Preset)
		if cfg == nil {
			return nil, fmt.Errorf("%w: unknown preset %q", ErrScenario, s.Preset)
		}
	}
	if !s.Config.IsZero() {
		if err := s.Config.Decode(cfg); err != nil {
			return nil, fmt.Errorf("%w: step %q: %v", ErrScenario, s.Name, err)
		}
	}
	return cfg, cfg.Check()
}

// StepResult is one run of one step. Err holds a setup, run or verification
// failure; Outcome is nil unless the run completed.
type StepResult struct {
	Step    string
	Run     int
	Config  *config.Config
	Backend string
	Outcome *experiment.Outcome
	Report  *verify.Report
	Err     error
}

// RunScenario executes all steps in order. A failing run is recorded and the
// scenario continues; only cancellation stops it early. onRun, if non-nil,
// sees every result as it completes.
func RunScenario(ctx context.Context, scenario *Scenario, onRun func(StepResult)) ([]StepResult, error) {
	results := make([]StepResult, 0, len(scenario.Steps))

	for i, step := range scenario.Steps {
		name := step.Name
		if name == "" {
			name = fmt.Sprintf("step %d", i+1)
		}

		base, err := step.Resolve()
		if err != nil {
			return results, fmt.Errorf("%s: %w", name, err)
		}

		repeat := max(step.Repeat, 1)
		for run := 0; run < repeat; run++ {
			if err := ctx.Err(); err != nil {
				return results, err
			}

			cfg := *base
			cfg.Seed = base.Seed + uint64(run)
			res := runOnce(ctx, &cfg)
			res.Step, res.Run = name, run

			results = append(results, res)
			if onRun != nil {
				onRun(res)
			}
		}
	}

	return results, nil
}

func runOnce(ctx context.Context, cfg *config.Config) StepResult {
	res := StepResult{Config: cfg}

	exp := experiment.New(cfg)
	defer exp.Close()

	if err := exp.Setup(nil, metrics.Default(cfg.NumBodies())); err != nil {
		res.Err = err
		return res
	}
	res.Backend = exp.Backend().Name()

	out, err := exp.Run(ctx)
	if err != nil {
		res.Err = err
		return res
	}
	res.Outcome = out
	res.Report, res.Err = exp.Verify(out)
	return res
}

// Summary counts passed and failed runs.
func Summary(results []StepResult) (passed int, failed int) {
	for _, r := range results {
		if r.Err == nil {
			passed++
		} else {
			failed++
		}
	}
	return
}
