package algo

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/elektrokombinacija/mapf-pibt/internal/core"
	"github.com/elektrokombinacija/mapf-pibt/internal/ctxlog"
)

var (
	// ErrInvalidConfig is returned for a malformed scheduler Config.
	ErrInvalidConfig = errors.New("algo: invalid scheduler config")
	// ErrSchedulingFailure is wrapped by *StepError when a top-level
	// assignment finds no legal cell.
	ErrSchedulingFailure = errors.New("algo: scheduling failure")
)

// StepError reports the timestep and agent at which a scheduling failure
// occurred. It unwraps to ErrSchedulingFailure.
type StepError struct {
	Step  int
	Agent core.AgentID
}

func (e *StepError) Error() string {
	return fmt.Sprintf("algo: no legal move for agent %d at step %d", e.Agent, e.Step)
}

func (e *StepError) Unwrap() error { return ErrSchedulingFailure }

// TieBreak selects how candidate cells at equal distance are ordered.
type TieBreak int

const (
	// TieBreakFixed orders equal candidates by core.Directions, then stay.
	TieBreakFixed TieBreak = iota
	// TieBreakSeeded shuffles candidates with a seeded generator before the
	// stable distance sort. Runs with equal seeds are identical.
	TieBreakSeeded
)

func (t TieBreak) String() string {
	switch t {
	case TieBreakFixed:
		return "fixed"
	case TieBreakSeeded:
		return "seeded"
	default:
		return fmt.Sprintf("TieBreak(%d)", int(t))
	}
}

// ParseTieBreak converts "fixed" or "seeded" into a TieBreak.
func ParseTieBreak(s string) (TieBreak, error) {
	switch strings.ToLower(s) {
	case "", "fixed":
		return TieBreakFixed, nil
	case "seeded":
		return TieBreakSeeded, nil
	default:
		return 0, fmt.Errorf("%w: unknown tie-break rule %q", ErrInvalidConfig, s)
	}
}

// Config is the explicit run configuration handed to NewScheduler.
type Config struct {
	MaxSteps int      // step budget, must be positive
	TieBreak TieBreak // candidate ordering among equal distances
	Seed     int64    // used by TieBreakSeeded
}

// DefaultConfig returns a 1000-step budget with the fixed tie-break rule.
func DefaultConfig() Config {
	return Config{MaxSteps: 1000, TieBreak: TieBreakFixed}
}

// Validate checks the configuration bounds.
func (c Config) Validate() error {
	if c.MaxSteps <= 0 {
		return fmt.Errorf("%w: MaxSteps must be positive, got %d", ErrInvalidConfig, c.MaxSteps)
	}
	if c.TieBreak != TieBreakFixed && c.TieBreak != TieBreakSeeded {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, c.TieBreak)
	}
	return nil
}

// slot is one cell of an occupancy map.
type slot struct {
	agent core.AgentID
	ok    bool
}

// occupancy maps cells (by grid index) to at most one agent.
type occupancy []slot

func (o occupancy) get(idx int) (core.AgentID, bool) {
	s := o[idx]
	return s.agent, s.ok
}

func (o occupancy) put(idx int, a core.AgentID) { o[idx] = slot{agent: a, ok: true} }

func (o occupancy) clear(idx int) { o[idx] = slot{} }

// frame is one activation of the assignment procedure: agent is asked to
// choose its next cell, and when inherited is set, from is the agent that
// handed its priority down and must not be displaced in turn.
type frame struct {
	agent     core.AgentID
	from      core.AgentID
	inherited bool
}

type candidate struct {
	cell core.Coord
	dist int
}

// Scheduler runs PIBT: every timestep it assigns each agent its next cell in
// priority order, letting a blocked agent lend its priority to the agent in
// its way and backtracking when that agent cannot move.
//
// A Scheduler is single-threaded; do not call its methods concurrently.
type Scheduler struct {
	grid *core.Grid
	cfg  Config
	rng  *rand.Rand

	goals      core.Config
	oracles    []*DistanceOracle
	priorities []float64
	current    core.Config
	step       int

	// Per-step state, reset by beginStep.
	now      occupancy
	next     occupancy
	nextCell core.Config
	assigned []bool
	order    []core.AgentID
}

// NewScheduler validates the instance and configuration and prepares one
// DistanceOracle per agent.
func NewScheduler(inst *core.Instance, cfg Config) (*Scheduler, error) {
	if inst == nil {
		return nil, fmt.Errorf("%w: instance is nil", core.ErrInvalidInstance)
	}
	if err := inst.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	n := inst.NumAgents()
	size := inst.Grid.Size()
	s := &Scheduler{
		grid:       inst.Grid,
		cfg:        cfg,
		rng:        rand.New(rand.NewSource(cfg.Seed)),
		goals:      inst.Goals.Clone(),
		oracles:    make([]*DistanceOracle, n),
		priorities: make([]float64, n),
		current:    inst.Starts.Clone(),
		now:        make(occupancy, size),
		next:       make(occupancy, size),
		nextCell:   make(core.Config, n),
		assigned:   make([]bool, n),
		order:      make([]core.AgentID, n),
	}
	for i := range s.oracles {
		s.oracles[i] = NewDistanceOracle(inst.Grid, s.goals[i])
	}
	for i, start := range s.current {
		s.priorities[i] = float64(s.oracles[i].Distance(start)) / float64(size)
	}
	return s, nil
}

// WarmUp resolves each agent's start distance concurrently, one goroutine
// per oracle, and returns once all of them are done. It must not run
// concurrently with Step.
func (s *Scheduler) WarmUp(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for i := range s.oracles {
		o, cell := s.oracles[i], s.current[i]
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			for _, nb := range s.grid.Neighbors(cell) {
				o.Distance(nb)
			}
			return nil
		})
	}
	return g.Wait()
}

// Timestep returns the number of completed steps.
func (s *Scheduler) Timestep() int { return s.step }

// Positions returns a copy of the current configuration.
func (s *Scheduler) Positions() core.Config { return s.current.Clone() }

// Goals returns a copy of the current goals.
func (s *Scheduler) Goals() core.Config { return s.goals.Clone() }

// Priorities returns a copy of the per-agent priorities.
func (s *Scheduler) Priorities() []float64 {
	out := make([]float64, len(s.priorities))
	copy(out, s.priorities)
	return out
}

// Oracle returns the distance oracle of one agent.
func (s *Scheduler) Oracle(agent core.AgentID) *DistanceOracle {
	return s.oracles[agent]
}

// AtGoals reports whether every agent occupies its goal.
func (s *Scheduler) AtGoals() bool {
	return s.current.Equal(s.goals)
}

// UpdateGoal gives agent a new goal and a fresh distance oracle. Goals set
// this way need not be distinct from other agents' goals.
func (s *Scheduler) UpdateGoal(agent core.AgentID, goal core.Coord) error {
	if agent < 0 || int(agent) >= len(s.goals) {
		return fmt.Errorf("%w: agent %d out of range", core.ErrInvalidInstance, agent)
	}
	if !s.grid.Walkable(goal) {
		return fmt.Errorf("%w: goal %v of agent %d is not walkable", core.ErrInvalidInstance, goal, agent)
	}
	if s.goals[agent] == goal {
		return nil
	}
	s.goals[agent] = goal
	s.oracles[agent] = NewDistanceOracle(s.grid, goal)
	return nil
}

// Step advances every agent by one synchronized move and returns the new
// configuration. On failure the scheduler state is left unchanged.
func (s *Scheduler) Step(ctx context.Context) (core.Config, error) {
	s.beginStep()

	for _, id := range s.order {
		if s.assigned[id] {
			continue
		}
		if !s.assign(frame{agent: id}) {
			return nil, &StepError{Step: s.step + 1, Agent: id}
		}
	}

	moved := 0
	for i, c := range s.nextCell {
		if c != s.current[i] {
			moved++
		}
	}
	s.current = s.nextCell.Clone()
	s.step++
	s.updatePriorities()

	ctxlog.FromContext(ctx).Debug("PIBT step completed", "step", s.step, "moved", moved)
	return s.current.Clone(), nil
}

// Run steps until every agent reaches its goal or the step budget is spent.
// A budget-exhausted run is not an error: the Result is marked incomplete.
// On a scheduling failure or cancellation the partial Result is returned
// along with the error.
func (s *Scheduler) Run(ctx context.Context) (*Result, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Info("PIBT run started", "agents", len(s.current), "max_steps", s.cfg.MaxSteps, "tie_break", s.cfg.TieBreak.String())

	started := time.Now()
	sol := core.NewSolution(s.current)
	for !s.AtGoals() && sol.Steps() < s.cfg.MaxSteps {
		if err := ctx.Err(); err != nil {
			return newResult(sol, s.goals, false, time.Since(started)), err
		}
		cfg, err := s.Step(ctx)
		if err != nil {
			logger.Error("PIBT run aborted", "error", err, "step", sol.Steps()+1)
			return newResult(sol, s.goals, false, time.Since(started)), err
		}
		sol.Append(cfg)
	}

	res := newResult(sol, s.goals, s.AtGoals(), time.Since(started))
	logger.Info("PIBT run finished",
		"complete", res.Complete, "steps", res.Steps,
		"makespan", res.Makespan, "sum_of_costs", res.SumOfCosts, "elapsed", res.Elapsed)
	return res, nil
}

// beginStep clears the per-step maps and orders agents by descending
// priority, ties by ascending index.
func (s *Scheduler) beginStep() {
	for i := range s.next {
		s.now[i] = slot{}
		s.next[i] = slot{}
	}
	for i, c := range s.current {
		s.now.put(s.grid.Index(c), core.AgentID(i))
		s.assigned[i] = false
		s.order[i] = core.AgentID(i)
	}
	sort.SliceStable(s.order, func(a, b int) bool {
		pa, pb := s.priorities[s.order[a]], s.priorities[s.order[b]]
		if pa != pb {
			return pa > pb
		}
		return s.order[a] < s.order[b]
	})
}

// assign chooses f.agent's next cell. It returns false when no candidate
// works; the caller then pins the agent in place (inherited frames) or
// reports a scheduling failure (top-level frames).
func (s *Scheduler) assign(f frame) bool {
	i := f.agent
	here := s.current[i]

	for _, cand := range s.candidates(i) {
		v := cand.cell
		vi := s.grid.Index(v)

		// Vertex conflict: someone already moves into v.
		if _, taken := s.next.get(vi); taken {
			continue
		}
		// Swap conflict: v's occupant already moves into our cell.
		j, occupied := s.now.get(vi)
		if occupied && j != i && s.assigned[j] && s.nextCell[j] == here {
			continue
		}

		s.claim(i, v)
		if !occupied || j == i || s.assigned[j] {
			return true
		}
		if f.inherited && j == f.from {
			s.release(i, v)
			continue
		}

		// Priority inheritance: j must vacate v for us.
		if s.assign(frame{agent: j, from: i, inherited: true}) {
			return true
		}
		// Backtrack: j stays where it is, we try the next candidate.
		s.release(i, v)
		s.claim(j, v)
	}

	if _, taken := s.next.get(s.grid.Index(here)); !taken {
		s.claim(i, here)
		return true
	}
	return false
}

// candidates lists the agent's neighbours plus its own cell, ordered by
// distance to goal.
func (s *Scheduler) candidates(i core.AgentID) []candidate {
	here := s.current[i]
	cells := s.grid.AppendNeighbors(make([]core.Coord, 0, 5), here)
	cells = append(cells, here)
	if s.cfg.TieBreak == TieBreakSeeded {
		s.rng.Shuffle(len(cells), func(a, b int) { cells[a], cells[b] = cells[b], cells[a] })
	}

	oracle := s.oracles[i]
	cands := make([]candidate, len(cells))
	for k, c := range cells {
		cands[k] = candidate{cell: c, dist: oracle.Distance(c)}
	}
	sort.SliceStable(cands, func(a, b int) bool { return cands[a].dist < cands[b].dist })
	return cands
}

func (s *Scheduler) claim(a core.AgentID, c core.Coord) {
	s.next.put(s.grid.Index(c), a)
	s.nextCell[a] = c
	s.assigned[a] = true
}

func (s *Scheduler) release(a core.AgentID, c core.Coord) {
	s.next.clear(s.grid.Index(c))
	s.assigned[a] = false
}

// updatePriorities raises the priority of agents still travelling and
// drops agents on their goal back to the fractional part.
func (s *Scheduler) updatePriorities() {
	for i, c := range s.current {
		if c == s.goals[i] {
			s.priorities[i] -= math.Floor(s.priorities[i])
		} else {
			s.priorities[i]++
		}
	}
}
