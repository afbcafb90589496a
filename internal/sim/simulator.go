// Package sim runs multi-agent pickup-and-delivery (MAPD) simulations on
// top of the PIBT scheduler.
//
// Tasks arrive by a seeded Poisson process at fixed pickup and delivery
// stations. Idle agents are matched greedily to pending tasks by walkable
// distance from the pickup, and the scheduler's goals are rewritten as each
// agent moves through pickup, delivery and idle.
package sim

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/elektrokombinacija/mapf-pibt/internal/algo"
	"github.com/elektrokombinacija/mapf-pibt/internal/core"
	"github.com/elektrokombinacija/mapf-pibt/internal/ctxlog"
)

// ErrInvalidConfig is wrapped by SimulationConfig validation failures.
var ErrInvalidConfig = errors.New("sim: invalid simulation config")

// SimulationConfig configures the simulation parameters
type SimulationConfig struct {
	Agents        int           `json:"agents"`
	Ticks         int           `json:"ticks"`
	TaskFrequency float64       `json:"task_frequency"` // mean task arrivals per tick
	Pickups       []core.Coord  `json:"pickups"`
	Deliveries    []core.Coord  `json:"deliveries"`
	Seed          int64         `json:"seed"`
	TieBreak      algo.TieBreak `json:"-"`
}

// DefaultConfig returns default simulation configuration. Stations must be
// filled in by the caller.
func DefaultConfig() SimulationConfig {
	return SimulationConfig{
		Agents:        10,
		Ticks:         500,
		TaskFrequency: 0.3,
		Seed:          42,
	}
}

// Validate checks the configuration against grid.
func (c SimulationConfig) Validate(grid *core.Grid) error {
	switch {
	case c.Agents <= 0:
		return fmt.Errorf("%w: agents must be positive, got %d", ErrInvalidConfig, c.Agents)
	case c.Ticks <= 0:
		return fmt.Errorf("%w: ticks must be positive, got %d", ErrInvalidConfig, c.Ticks)
	case c.TaskFrequency < 0 || math.IsNaN(c.TaskFrequency) || math.IsInf(c.TaskFrequency, 0):
		return fmt.Errorf("%w: task frequency %v", ErrInvalidConfig, c.TaskFrequency)
	case len(c.Pickups) == 0:
		return fmt.Errorf("%w: no pickup locations", ErrInvalidConfig)
	case len(c.Deliveries) == 0:
		return fmt.Errorf("%w: no delivery locations", ErrInvalidConfig)
	}
	for _, p := range append(append([]core.Coord(nil), c.Pickups...), c.Deliveries...) {
		if !grid.Walkable(p) {
			return fmt.Errorf("%w: station %v is not walkable", ErrInvalidConfig, p)
		}
	}
	return nil
}

// SimulationMetrics collects metrics during simulation
type SimulationMetrics struct {
	// Timing
	StartTime time.Time     `json:"start_time"`
	EndTime   time.Time     `json:"end_time"`
	Elapsed   time.Duration `json:"elapsed"`
	Ticks     int           `json:"ticks"`

	// Tasks
	TasksCreated   int `json:"tasks_created"`
	TasksAssigned  int `json:"tasks_assigned"`
	TasksCompleted int `json:"tasks_completed"`
	TasksPending   int `json:"tasks_pending"`

	// Service time (creation to delivery) over completed tasks, in ticks.
	AvgServiceTime float64 `json:"avg_service_time"`
	MaxServiceTime int     `json:"max_service_time"`
	Throughput     float64 `json:"throughput"` // completed tasks per tick
}

// Simulator runs one MAPD simulation. Its methods are safe for concurrent
// use; a GUI may read Metrics while Run is ticking.
type Simulator struct {
	mu sync.Mutex

	config SimulationConfig
	grid   *core.Grid
	rng    *rand.Rand

	sched    *algo.Scheduler
	inst     *core.Instance
	solution *core.Solution
	tick     int

	// Pickup-rooted oracles for assignment; BFS from each station is reused.
	pickupOracles map[core.Coord]*algo.DistanceOracle

	carrying  []*core.Task // per agent; nil when idle
	pending   []*core.Task
	completed []*core.Task

	metrics      SimulationMetrics
	totalService int
}

// NewSimulator places cfg.Agents agents on random free cells that are not
// stations and prepares the scheduler with every agent idle.
func NewSimulator(grid *core.Grid, cfg SimulationConfig) (*Simulator, error) {
	if err := cfg.Validate(grid); err != nil {
		return nil, err
	}

	rng := rand.New(rand.NewSource(cfg.Seed))

	reserved := make(map[core.Coord]bool, len(cfg.Pickups)+len(cfg.Deliveries))
	for _, c := range cfg.Pickups {
		reserved[c] = true
	}
	for _, c := range cfg.Deliveries {
		reserved[c] = true
	}
	var available []core.Coord
	for _, c := range grid.FreeCells() {
		if !reserved[c] {
			available = append(available, c)
		}
	}
	if len(available) < cfg.Agents {
		return nil, fmt.Errorf("%w: %d agents but only %d free non-station cells", ErrInvalidConfig, cfg.Agents, len(available))
	}

	starts := make(core.Config, cfg.Agents)
	for i, k := range rng.Perm(len(available))[:cfg.Agents] {
		starts[i] = available[k]
	}
	inst, err := core.NewInstance(grid, starts, starts)
	if err != nil {
		return nil, err
	}
	inst.Name = "mapd"

	sched, err := algo.NewScheduler(inst, algo.Config{MaxSteps: cfg.Ticks, TieBreak: cfg.TieBreak, Seed: cfg.Seed})
	if err != nil {
		return nil, err
	}

	s := &Simulator{
		config:        cfg,
		grid:          grid,
		rng:           rng,
		sched:         sched,
		inst:          inst,
		solution:      core.NewSolution(starts),
		pickupOracles: make(map[core.Coord]*algo.DistanceOracle, len(cfg.Pickups)),
		carrying:      make([]*core.Task, cfg.Agents),
	}
	for _, p := range cfg.Pickups {
		if _, ok := s.pickupOracles[p]; !ok {
			s.pickupOracles[p] = algo.NewDistanceOracle(grid, p)
		}
	}
	return s, nil
}

// Run ticks the simulation cfg.Ticks times, or until ctx is cancelled or a
// step fails. Metrics are returned in every case.
func (s *Simulator) Run(ctx context.Context) (*SimulationMetrics, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Info("MAPD simulation started", "agents", s.config.Agents, "ticks", s.config.Ticks, "task_frequency", s.config.TaskFrequency)

	s.mu.Lock()
	s.metrics.StartTime = time.Now()
	s.mu.Unlock()

	var runErr error
	for s.Tick() < s.config.Ticks {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}
		if _, err := s.Step(ctx); err != nil {
			logger.Error("MAPD simulation aborted", "error", err)
			runErr = err
			break
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.metrics.EndTime = time.Now()
	s.metrics.Elapsed = s.metrics.EndTime.Sub(s.metrics.StartTime)
	m := s.snapshot()
	logger.Info("MAPD simulation finished",
		"ticks", m.Ticks, "created", m.TasksCreated, "completed", m.TasksCompleted,
		"avg_service_time", m.AvgServiceTime)
	return &m, runErr
}

// Step advances the simulation by one tick: new tasks arrive, arrivals at
// stations are processed, idle agents are matched, and every agent moves.
func (s *Simulator) Step(ctx context.Context) (core.Config, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tick++
	s.generateTasks(ctx)
	s.checkArrivals(ctx)
	if err := s.assignTasks(ctx); err != nil {
		return nil, err
	}

	cfg, err := s.sched.Step(ctx)
	if err != nil {
		return nil, fmt.Errorf("sim: tick %d: %w", s.tick, err)
	}
	s.solution.Append(cfg)
	return cfg, nil
}

// generateTasks draws this tick's arrivals.
func (s *Simulator) generateTasks(ctx context.Context) {
	n := poisson(s.rng, s.config.TaskFrequency)
	for k := 0; k < n; k++ {
		pickup := s.config.Pickups[s.rng.Intn(len(s.config.Pickups))]
		delivery := s.config.Deliveries[s.rng.Intn(len(s.config.Deliveries))]
		id, err := uuid.NewRandomFromReader(s.rng)
		if err != nil {
			// math/rand never fails to read.
			panic(err)
		}
		task := core.NewTask(id, pickup, delivery, s.tick)
		s.pending = append(s.pending, task)
		s.metrics.TasksCreated++
		ctxlog.FromContext(ctx).Debug("Task created", "task", id, "pickup", pickup, "delivery", delivery, "tick", s.tick)
	}
}

// checkArrivals advances tasks whose agent has reached the current target.
func (s *Simulator) checkArrivals(ctx context.Context) {
	logger := ctxlog.FromContext(ctx)
	pos := s.sched.Positions()
	for i, task := range s.carrying {
		if task == nil {
			continue
		}
		agent := core.AgentID(i)
		switch {
		case task.State == core.TaskAssigned && pos[i] == task.Pickup:
			task.State = core.TaskCarrying
			s.mustUpdateGoal(agent, task.Delivery)
			logger.Debug("Task picked up", "task", task.ID, "agent", agent, "tick", s.tick)

		case task.State == core.TaskCarrying && pos[i] == task.Delivery:
			task.State = core.TaskDelivered
			task.CompletedAt = s.tick
			s.carrying[i] = nil
			s.completed = append(s.completed, task)
			s.metrics.TasksCompleted++
			st := task.ServiceTime()
			s.totalService += st
			if st > s.metrics.MaxServiceTime {
				s.metrics.MaxServiceTime = st
			}
			s.mustUpdateGoal(agent, pos[i])
			logger.Debug("Task delivered", "task", task.ID, "agent", agent, "service_time", st, "tick", s.tick)
		}
	}
}

// assignTasks matches pending tasks, oldest first, to the idle agent
// closest to the pickup. Tasks no idle agent can reach stay pending.
func (s *Simulator) assignTasks(ctx context.Context) error {
	pos := s.sched.Positions()
	var idle []core.AgentID
	for i, task := range s.carrying {
		if task == nil {
			idle = append(idle, core.AgentID(i))
		}
	}

	remaining := s.pending[:0]
	for _, task := range s.pending {
		if len(idle) == 0 {
			remaining = append(remaining, task)
			continue
		}
		oracle := s.pickupOracles[task.Pickup]
		best, bestDist := -1, oracle.Unreachable()
		for k, a := range idle {
			if d := oracle.Distance(pos[a]); d < bestDist {
				best, bestDist = k, d
			}
		}
		if best < 0 {
			remaining = append(remaining, task)
			continue
		}

		agent := idle[best]
		idle = append(idle[:best], idle[best+1:]...)
		task.State = core.TaskAssigned
		task.Agent = agent
		task.AssignedAt = s.tick
		s.carrying[agent] = task
		s.metrics.TasksAssigned++
		if err := s.sched.UpdateGoal(agent, task.Pickup); err != nil {
			return err
		}
		ctxlog.FromContext(ctx).Debug("Task assigned", "task", task.ID, "agent", agent, "distance", bestDist, "tick", s.tick)
	}
	s.pending = remaining
	return nil
}

// mustUpdateGoal sets a goal known to be walkable: a station checked by
// Validate or the agent's own cell.
func (s *Simulator) mustUpdateGoal(agent core.AgentID, goal core.Coord) {
	if err := s.sched.UpdateGoal(agent, goal); err != nil {
		panic(err)
	}
}

// poisson samples a Poisson-distributed count with mean lambda (Knuth).
func poisson(rng *rand.Rand, lambda float64) int {
	if lambda <= 0 {
		return 0
	}
	limit := math.Exp(-lambda)
	k, p := 0, rng.Float64()
	for p > limit {
		k++
		p *= rng.Float64()
	}
	return k
}

func (s *Simulator) snapshot() SimulationMetrics {
	m := s.metrics
	m.Ticks = s.tick
	m.TasksPending = len(s.pending)
	if m.TasksCompleted > 0 {
		m.AvgServiceTime = float64(s.totalService) / float64(m.TasksCompleted)
	}
	if s.tick > 0 {
		m.Throughput = float64(m.TasksCompleted) / float64(s.tick)
	}
	return m
}

// Tick returns the number of completed ticks.
func (s *Simulator) Tick() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tick
}

// Metrics returns current simulation metrics
func (s *Simulator) Metrics() SimulationMetrics {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot()
}

// Instance returns the generated instance: random starts, goals equal to
// the starts.
func (s *Simulator) Instance() *core.Instance {
	return s.inst
}

// Solution returns a copy of the configurations recorded so far.
func (s *Simulator) Solution() *core.Solution {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := &core.Solution{Configs: make([]core.Config, len(s.solution.Configs))}
	copy(out.Configs, s.solution.Configs)
	return out
}

// Goals returns the scheduler's current goals.
func (s *Simulator) Goals() core.Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sched.Goals()
}

// Tasks returns completed tasks followed by open ones.
func (s *Simulator) Tasks() []core.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Task
	for _, t := range s.completed {
		out = append(out, *t)
	}
	for _, t := range s.carrying {
		if t != nil {
			out = append(out, *t)
		}
	}
	for _, t := range s.pending {
		out = append(out, *t)
	}
	return out
}

// ExportMetrics writes metrics to a JSON file
func (s *Simulator) ExportMetrics(path string) error {
	metrics := s.Metrics()

	data, err := json.MarshalIndent(metrics, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// SimulationResult is the final output of a simulation run
type SimulationResult struct {
	Config  SimulationConfig  `json:"config"`
	Metrics SimulationMetrics `json:"metrics"`
	Success bool              `json:"success"`
	Error   string            `json:"error,omitempty"`
}

// RunSimulation is a convenience function to run a complete simulation
func RunSimulation(ctx context.Context, grid *core.Grid, config SimulationConfig) (*SimulationResult, error) {
	sim, err := NewSimulator(grid, config)
	if err != nil {
		return nil, err
	}

	metrics, err := sim.Run(ctx)

	result := &SimulationResult{
		Config:  config,
		Success: err == nil,
	}

	if err != nil {
		result.Error = err.Error()
	}

	if metrics != nil {
		result.Metrics = *metrics
	}

	return result, err
}
