package core

import (
	"errors"
	"fmt"
)

// ErrInvalidInstance is wrapped by every instance validation failure.
var ErrInvalidInstance = errors.New("core: invalid instance")

// Instance is a one-shot MAPF problem: a grid and one (start, goal) pair
// per agent.
type Instance struct {
	Name   string
	Grid   *Grid
	Starts Config
	Goals  Config
}

// NewInstance creates and validates an instance. The start and goal
// configurations are copied.
func NewInstance(grid *Grid, starts, goals Config) (*Instance, error) {
	inst := &Instance{
		Grid:   grid,
		Starts: starts.Clone(),
		Goals:  goals.Clone(),
	}
	if err := inst.Validate(); err != nil {
		return nil, err
	}
	return inst, nil
}

// NumAgents returns the number of agents.
func (inst *Instance) NumAgents() int {
	return len(inst.Starts)
}

// Validate checks instance consistency: matching start/goal counts and
// pairwise distinct, in-bounds, walkable starts and goals.
func (inst *Instance) Validate() error {
	if inst.Grid == nil {
		return fmt.Errorf("%w: grid is nil", ErrInvalidInstance)
	}
	if len(inst.Starts) == 0 {
		return fmt.Errorf("%w: no agents", ErrInvalidInstance)
	}
	if len(inst.Starts) != len(inst.Goals) {
		return fmt.Errorf("%w: %d starts but %d goals", ErrInvalidInstance, len(inst.Starts), len(inst.Goals))
	}
	if err := validateCells(inst.Grid, inst.Starts, "start"); err != nil {
		return err
	}
	return validateCells(inst.Grid, inst.Goals, "goal")
}

func validateCells(g *Grid, cells Config, kind string) error {
	seen := make(map[Coord]AgentID, len(cells))
	for i, c := range cells {
		if !g.InBounds(c) {
			return fmt.Errorf("%w: %s %v of agent %d is out of bounds", ErrInvalidInstance, kind, c, i)
		}
		if !g.Walkable(c) {
			return fmt.Errorf("%w: %s %v of agent %d is an obstacle", ErrInvalidInstance, kind, c, i)
		}
		if other, dup := seen[c]; dup {
			return fmt.Errorf("%w: agents %d and %d share %s %v", ErrInvalidInstance, other, i, kind, c)
		}
		seen[c] = AgentID(i)
	}
	return nil
}
