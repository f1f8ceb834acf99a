// Package optim searches a parameter grid for the configuration with the
// lowest objective.
package optim

import (
	"context"
	"math"

	"github.com/san-kum/nbody/internal/experiment"
)

// Trial is one evaluated grid point. Err is set when the point could not be
// built or run; such trials never win.
type Trial struct {
	Params map[string]float64
	Score  float64
	Err    error
}

type GridSearch struct {
	paramNames []string
	ranges     [][]float64
}

func NewGridSearch(params []string, ranges [][]float64) *GridSearch {
	return &GridSearch{paramNames: params, ranges: ranges}
}

// Search evaluates every grid point in order and returns all trials and the
// index of the best one, or -1 when every trial failed. The search stops
// early when ctx is canceled.
func (g *GridSearch) Search(
	ctx context.Context,
	buildExperiment func(params map[string]float64) (*experiment.Experiment, error),
	objective func(*experiment.Outcome) float64,
) ([]Trial, int) {
	trials := make([]Trial, 0)
	g.searchRecursive(ctx, 0, make(map[string]float64), buildExperiment, objective, &trials)

	best, bestScore := -1, math.Inf(1)
	for i, t := range trials {
		if t.Err == nil && t.Score < bestScore {
			best, bestScore = i, t.Score
		}
	}
	return trials, best
}

func (g *GridSearch) searchRecursive(
	ctx context.Context,
	depth int,
	current map[string]float64,
	buildExperiment func(map[string]float64) (*experiment.Experiment, error),
	objective func(*experiment.Outcome) float64,
	trials *[]Trial,
) {
	if ctx.Err() != nil {
		return
	}

	if depth == len(g.paramNames) {
		trial := Trial{Params: current, Score: math.Inf(1)}

		exp, err := buildExperiment(current)
		if err != nil {
			trial.Err = err
			*trials = append(*trials, trial)
			return
		}
		defer exp.Close()

		out, err := exp.Run(ctx)
		if err != nil {
			trial.Err = err
		} else {
			trial.Score = objective(out)
		}
		*trials = append(*trials, trial)
		return
	}

	paramName := g.paramNames[depth]
	for _, val := range g.ranges[depth] {
		newParams := make(map[string]float64, len(current)+1)
		for k, v := range current {
			newParams[k] = v
		}
		newParams[paramName] = val

		g.searchRecursive(ctx, depth+1, newParams, buildExperiment, objective, trials)
	}
}
