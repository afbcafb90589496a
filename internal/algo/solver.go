// Package algo implements PIBT multi-agent path finding on 4-connected grids.
package algo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/elektrokombinacija/mapf-pibt/internal/core"
)

// ErrInvalidSolution is wrapped by every CheckSolution failure.
var ErrInvalidSolution = errors.New("algo: invalid solution")

// Solver is the interface for MAPF algorithms.
type Solver interface {
	// Solve plans paths for every agent of the instance. A non-nil Result
	// may accompany an error when a partial plan exists.
	Solve(ctx context.Context, inst *core.Instance) (*Result, error)

	// Name returns the algorithm name.
	Name() string
}

// Result is the outcome of a run.
type Result struct {
	Solution   *core.Solution
	Goals      core.Config
	Complete   bool // every agent on its goal in the final configuration
	Steps      int
	Makespan   int
	SumOfCosts int
	Elapsed    time.Duration
}

func newResult(sol *core.Solution, goals core.Config, complete bool, elapsed time.Duration) *Result {
	return &Result{
		Solution:   sol,
		Goals:      goals.Clone(),
		Complete:   complete,
		Steps:      sol.Steps(),
		Makespan:   sol.Makespan(goals),
		SumOfCosts: sol.SumOfCosts(goals),
		Elapsed:    elapsed,
	}
}

// PIBT adapts Scheduler to the Solver interface.
type PIBT struct {
	Config Config
	Warm   bool // warm oracles in parallel before the first step
}

// NewPIBT creates a PIBT solver with the given configuration.
func NewPIBT(cfg Config) *PIBT {
	return &PIBT{Config: cfg}
}

func (p *PIBT) Name() string { return "PIBT" }

// Solve runs a fresh Scheduler on inst.
func (p *PIBT) Solve(ctx context.Context, inst *core.Instance) (*Result, error) {
	s, err := NewScheduler(inst, p.Config)
	if err != nil {
		return nil, err
	}
	if p.Warm {
		if err := s.WarmUp(ctx); err != nil {
			return nil, fmt.Errorf("algo: warm oracles: %w", err)
		}
	}
	return s.Run(ctx)
}

// Conflict represents a collision between two agents.
type Conflict struct {
	Agent1, Agent2 core.AgentID
	Cell           core.Coord
	Time           int  // timestep at which both agents arrive (vertex) or finish the swap (edge)
	IsEdge         bool // edge conflict vs vertex conflict
	// For edge conflicts: the cells Agent1 moves between.
	EdgeFrom, EdgeTo core.Coord
}

func (c *Conflict) Error() string {
	if c.IsEdge {
		return fmt.Sprintf("agents %d and %d swap %v<->%v at t=%d", c.Agent1, c.Agent2, c.EdgeFrom, c.EdgeTo, c.Time)
	}
	return fmt.Sprintf("agents %d and %d collide at %v at t=%d", c.Agent1, c.Agent2, c.Cell, c.Time)
}

// FindFirstConflict detects the earliest conflict in sol. Vertex conflicts
// are reported before swaps at the same timestep.
func FindFirstConflict(sol *core.Solution) *Conflict {
	for t := range sol.Configs {
		if c := vertexConflicts(sol, t, true); len(c) > 0 {
			return c[0]
		}
		if c := edgeConflicts(sol, t, true); len(c) > 0 {
			return c[0]
		}
	}
	return nil
}

// FindAllConflicts returns every conflict in sol, ordered by timestep.
func FindAllConflicts(sol *core.Solution) []*Conflict {
	var out []*Conflict
	for t := range sol.Configs {
		out = append(out, vertexConflicts(sol, t, false)...)
		out = append(out, edgeConflicts(sol, t, false)...)
	}
	return out
}

func vertexConflicts(sol *core.Solution, t int, first bool) []*Conflict {
	var out []*Conflict
	cfg := sol.Configs[t]
	seen := make(map[core.Coord]core.AgentID, len(cfg))
	for i, c := range cfg {
		if j, dup := seen[c]; dup {
			out = append(out, &Conflict{Agent1: j, Agent2: core.AgentID(i), Cell: c, Time: t})
			if first {
				return out
			}
			continue
		}
		seen[c] = core.AgentID(i)
	}
	return out
}

func edgeConflicts(sol *core.Solution, t int, first bool) []*Conflict {
	if t == 0 {
		return nil
	}
	var out []*Conflict
	prev, cur := sol.Configs[t-1], sol.Configs[t]
	for i := range cur {
		if prev[i] == cur[i] {
			continue
		}
		for j := i + 1; j < len(cur); j++ {
			if prev[j] == cur[i] && cur[j] == prev[i] {
				out = append(out, &Conflict{
					Agent1:   core.AgentID(i),
					Agent2:   core.AgentID(j),
					Cell:     prev[i],
					Time:     t,
					IsEdge:   true,
					EdgeFrom: prev[i],
					EdgeTo:   cur[i],
				})
				if first {
					return out
				}
			}
		}
	}
	return out
}

// CheckSolution verifies that sol starts at the instance's starts, moves
// every agent to a walkable 4-neighbour (or keeps it in place) at each step,
// and never collides. With requireGoals the final configuration must equal
// the goals.
func CheckSolution(inst *core.Instance, sol *core.Solution, requireGoals bool) error {
	if sol == nil || sol.Len() == 0 {
		return fmt.Errorf("%w: empty", ErrInvalidSolution)
	}
	if !sol.Configs[0].Equal(inst.Starts) {
		return fmt.Errorf("%w: first configuration is not the start configuration", ErrInvalidSolution)
	}
	n := inst.NumAgents()
	for t, cfg := range sol.Configs {
		if len(cfg) != n {
			return fmt.Errorf("%w: configuration %d has %d agents, want %d", ErrInvalidSolution, t, len(cfg), n)
		}
		for i, c := range cfg {
			if !inst.Grid.Walkable(c) {
				return fmt.Errorf("%w: agent %d on blocked cell %v at t=%d", ErrInvalidSolution, i, c, t)
			}
			if t > 0 {
				if from := sol.Configs[t-1][i]; from != c && !from.Adjacent(c) {
					return fmt.Errorf("%w: agent %d jumps %v->%v at t=%d", ErrInvalidSolution, i, from, c, t)
				}
			}
		}
	}
	if c := FindFirstConflict(sol); c != nil {
		return fmt.Errorf("%w: %w", ErrInvalidSolution, c)
	}
	if requireGoals && !sol.Final().Equal(inst.Goals) {
		return fmt.Errorf("%w: final configuration is not the goal configuration", ErrInvalidSolution)
	}
	return nil
}
