package state

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/elektrokombinacija/mapf-pibt/internal/algo"
	"github.com/elektrokombinacija/mapf-pibt/internal/core"
	"github.com/elektrokombinacija/mapf-pibt/internal/ctxlog"
	"github.com/elektrokombinacija/mapf-pibt/internal/scenario"
	"github.com/elektrokombinacija/mapf-pibt/internal/sim"
)

// Source selects what the window shows for a scenario.
type Source struct {
	// SolutionPath replays a JSON solution written by the pibt command.
	SolutionPath string
	// Live steps the scheduler from the window instead of solving up front.
	Live bool
	// MAPD replays the scenario's pickup-and-delivery simulation.
	MAPD bool
	// MaxSteps overrides the scenario's budget when positive.
	MaxSteps int
}

// FromScenario builds the state for sc. A solution that fails validation
// is still shown, with its conflicts marked.
func FromScenario(ctx context.Context, sc *scenario.Scenario, src Source) (*State, error) {
	logger := ctxlog.FromContext(ctx)

	if sc.MAPD != nil && (src.MAPD || sc.Instance == nil) {
		return fromSimulation(ctx, sc, src)
	}
	if sc.Instance == nil {
		return nil, errors.New("state: scenario has no agents")
	}

	cfg := sc.Config
	if src.MaxSteps > 0 {
		cfg.MaxSteps = src.MaxSteps
	}

	switch {
	case src.SolutionPath != "":
		f, err := os.Open(src.SolutionPath)
		if err != nil {
			return nil, fmt.Errorf("state: open solution: %w", err)
		}
		defer f.Close()
		sol, err := core.ReadSolution(f)
		if err != nil {
			return nil, fmt.Errorf("state: %s: %w", src.SolutionPath, err)
		}
		if err := algo.CheckSolution(sc.Instance, sol, false); err != nil {
			logger.Warn("Loaded solution is invalid", "file", src.SolutionPath, "error", err)
		}
		return NewState(sc.Grid, sol, sc.Instance.Goals, sc.AgentNames), nil

	case src.Live:
		sched, err := algo.NewScheduler(sc.Instance, cfg)
		if err != nil {
			return nil, err
		}
		return NewLive(sc.Instance, sched, cfg.MaxSteps, sc.AgentNames), nil

	default:
		res, err := algo.NewPIBT(cfg).Solve(ctx, sc.Instance)
		if err != nil {
			if res == nil {
				return nil, err
			}
			logger.Warn("Showing partial run", "error", err, "steps", res.Steps)
		}
		return NewState(sc.Grid, res.Solution, res.Goals, sc.AgentNames), nil
	}
}

func fromSimulation(ctx context.Context, sc *scenario.Scenario, src Source) (*State, error) {
	simCfg := *sc.MAPD
	if src.MaxSteps > 0 {
		simCfg.Ticks = src.MaxSteps
	}
	simulator, err := sim.NewSimulator(sc.Grid, simCfg)
	if err != nil {
		return nil, err
	}
	if _, err := simulator.Run(ctx); err != nil {
		return nil, err
	}
	return NewState(sc.Grid, simulator.Solution(), simulator.Goals(), nil), nil
}
