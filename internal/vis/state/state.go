// Package state manages the visualization state.
package state

import (
	"context"
	"fmt"
	"math"

	"github.com/elektrokombinacija/mapf-pibt/internal/algo"
	"github.com/elektrokombinacija/mapf-pibt/internal/core"
)

// Pos is a position in cell units. X runs along columns and Y along rows, so
// the centre of cell (r, c) is (c+0.5, r+0.5).
type Pos struct {
	X, Y float64
}

// CellCenter returns the centre of a grid cell.
func CellCenter(c core.Coord) Pos {
	return Pos{X: float64(c.Col) + 0.5, Y: float64(c.Row) + 0.5}
}

// State holds all visualization state.
type State struct {
	Grid       *core.Grid
	Goals      core.Config
	AgentNames []string
	Solution   *core.Solution
	Conflicts  []*algo.Conflict
	Playback   *PlaybackState
	// Live is set when the solution is produced step by step in the window.
	Live *LiveState
	// Selected is the highlighted agent, or -1.
	Selected int
}

// NewState creates a state replaying a finished solution.
func NewState(grid *core.Grid, sol *core.Solution, goals core.Config, names []string) *State {
	s := &State{
		Grid:       grid,
		Goals:      goals.Clone(),
		AgentNames: names,
		Solution:   sol,
		Selected:   -1,
	}
	s.Playback = NewPlaybackState(float64(sol.Steps()))
	s.Conflicts = algo.FindAllConflicts(sol)
	return s
}

// NewLive creates a state whose solution grows as the scheduler steps.
func NewLive(inst *core.Instance, sched *algo.Scheduler, maxSteps int, names []string) *State {
	s := NewState(inst.Grid, core.NewSolution(sched.Positions()), sched.Goals(), names)
	s.Live = NewLiveState(sched, maxSteps)
	return s
}

// NumAgents returns the number of agents on the board.
func (s *State) NumAgents() int {
	return len(s.Goals)
}

// AgentLabel returns the display name of an agent.
func (s *State) AgentLabel(agent int) string {
	if agent >= 0 && agent < len(s.AgentNames) && s.AgentNames[agent] != "" {
		return s.AgentNames[agent]
	}
	return fmt.Sprintf("a%d", agent)
}

// Tick advances playback. In live mode reaching the end of the recorded
// solution asks the scheduler for one more step.
func (s *State) Tick(ctx context.Context) error {
	playing := s.Playback.Playing
	s.Playback.Advance()
	if !playing || s.Live == nil || s.Playback.CurrentTime < s.Playback.MaxTime {
		return nil
	}
	if err := s.StepLive(ctx); err != nil {
		return err
	}
	if !s.Live.Finished() {
		s.Playback.Play()
	}
	return nil
}

// StepLive runs one scheduler step and records the resulting configuration.
// It does nothing outside live mode or once the run has finished.
func (s *State) StepLive(ctx context.Context) error {
	if s.Live == nil {
		return nil
	}
	cfg, ok, err := s.Live.Step(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	s.Solution.Append(cfg)
	s.Playback.MaxTime = float64(s.Solution.Steps())
	return nil
}

// CurrentPositions returns interpolated agent positions at the current
// playback time.
func (s *State) CurrentPositions() []Pos {
	positions := make([]Pos, s.NumAgents())
	for i := range positions {
		positions[i] = s.PositionAt(i, s.Playback.CurrentTime)
	}
	return positions
}

// PositionAt interpolates an agent's position at fractional timestep t.
func (s *State) PositionAt(agent int, t float64) Pos {
	if s.Solution == nil || s.Solution.Len() == 0 {
		return CellCenter(s.Goals[agent])
	}
	if t <= 0 {
		return CellCenter(s.Solution.At(0)[agent])
	}
	base := math.Floor(t)
	from := CellCenter(s.Solution.At(int(base))[agent])
	to := CellCenter(s.Solution.At(int(base) + 1)[agent])
	alpha := t - base
	return Pos{
		X: from.X + alpha*(to.X-from.X),
		Y: from.Y + alpha*(to.Y-from.Y),
	}
}

// PathHistory returns the trail up to the current time, ending at the
// interpolated position.
func (s *State) PathHistory(agent int) []Pos {
	if s.Solution == nil || s.Solution.Len() == 0 {
		return nil
	}
	now := s.Playback.CurrentTime
	var history []Pos
	for t := 0; t < s.Solution.Len() && float64(t) <= now; t++ {
		history = append(history, CellCenter(s.Solution.At(t)[agent]))
	}
	return append(history, s.PositionAt(agent, now))
}

// FuturePath returns the cells an agent still visits after the current
// time.
func (s *State) FuturePath(agent int) []Pos {
	if s.Solution == nil {
		return nil
	}
	start := int(math.Floor(s.Playback.CurrentTime)) + 1
	var future []Pos
	for t := start; t < s.Solution.Len(); t++ {
		future = append(future, CellCenter(s.Solution.At(t)[agent]))
	}
	return future
}

// ActiveConflicts returns the conflicts at the timestep nearest to the
// current playback time.
func (s *State) ActiveConflicts() []*algo.Conflict {
	t := int(math.Round(s.Playback.CurrentTime))
	var out []*algo.Conflict
	for _, c := range s.Conflicts {
		if c.Time == t {
			out = append(out, c)
		}
	}
	return out
}

// AgentAt returns the agent closest to p within half a cell, or -1.
func (s *State) AgentAt(p Pos) int {
	best, bestDist := -1, 0.5
	for i, q := range s.CurrentPositions() {
		if d := math.Hypot(p.X-q.X, p.Y-q.Y); d < bestDist {
			best, bestDist = i, d
		}
	}
	return best
}

// OnGoal reports whether an agent sits on its goal at the current timestep.
func (s *State) OnGoal(agent int) bool {
	if s.Solution == nil {
		return false
	}
	t := int(math.Floor(s.Playback.CurrentTime))
	return s.Solution.At(t)[agent] == s.Goals[agent]
}
