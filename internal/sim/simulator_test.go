package sim

import (
	"context"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elektrokombinacija/mapf-pibt/internal/algo"
	"github.com/elektrokombinacija/mapf-pibt/internal/core"
)

func openGrid(t *testing.T, h, w int) *core.Grid {
	t.Helper()
	g, err := core.NewGrid(h, w, nil)
	require.NoError(t, err)
	return g
}

func testConfig() SimulationConfig {
	cfg := DefaultConfig()
	cfg.Agents = 3
	cfg.Ticks = 150
	cfg.TaskFrequency = 0.3
	cfg.Pickups = []core.Coord{core.C(0, 0), core.C(0, 5)}
	cfg.Deliveries = []core.Coord{core.C(5, 5), core.C(5, 0)}
	cfg.Seed = 7
	return cfg
}

func TestSimulator_CompletesTasks(t *testing.T) {
	grid := openGrid(t, 6, 6)
	sim, err := NewSimulator(grid, testConfig())
	require.NoError(t, err)

	m, err := sim.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 150, m.Ticks)
	assert.Greater(t, m.TasksCreated, 0)
	assert.Greater(t, m.TasksCompleted, 0)
	assert.LessOrEqual(t, m.TasksCompleted, m.TasksAssigned)
	assert.Equal(t, m.TasksCreated, m.TasksAssigned+m.TasksPending)
	assert.Greater(t, m.AvgServiceTime, 0.0)
	assert.InDelta(t, float64(m.TasksCompleted)/150, m.Throughput, 1e-9)

	sol := sim.Solution()
	assert.Equal(t, 151, sol.Len())
	assert.NoError(t, algo.CheckSolution(sim.Instance(), sol, false))

	for _, task := range sim.Tasks() {
		if task.State == core.TaskDelivered {
			assert.GreaterOrEqual(t, task.CompletedAt, task.AssignedAt)
			assert.GreaterOrEqual(t, task.AssignedAt, task.CreatedAt)
		}
	}
}

func TestSimulator_StartsAvoidStations(t *testing.T) {
	grid := openGrid(t, 3, 3)
	cfg := testConfig()
	cfg.Agents = 5
	cfg.Pickups = []core.Coord{core.C(0, 0), core.C(1, 1)}
	cfg.Deliveries = []core.Coord{core.C(2, 2), core.C(0, 0)}

	sim, err := NewSimulator(grid, cfg)
	require.NoError(t, err)

	starts := sim.Instance().Starts
	assert.Len(t, starts, 5)
	for _, c := range starts {
		assert.NotContains(t, []core.Coord{core.C(0, 0), core.C(1, 1), core.C(2, 2)}, c)
	}
	assert.Equal(t, starts, sim.Goals(), "agents start idle")

	cfg.Agents = 7
	_, err = NewSimulator(grid, cfg)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestSimulator_UnreachablePickupStaysPending(t *testing.T) {
	grid, err := core.ParseGrid([]string{"..@."})
	require.NoError(t, err)

	cfg := testConfig()
	cfg.Agents = 1
	cfg.Ticks = 10
	cfg.TaskFrequency = 2
	cfg.Pickups = []core.Coord{core.C(0, 3)}
	cfg.Deliveries = []core.Coord{core.C(0, 0)}

	sim, err := NewSimulator(grid, cfg)
	require.NoError(t, err)
	m, err := sim.Run(context.Background())
	require.NoError(t, err)

	assert.Greater(t, m.TasksCreated, 0)
	assert.Equal(t, 0, m.TasksAssigned)
	assert.Equal(t, m.TasksCreated, m.TasksPending)
	assert.Equal(t, core.C(0, 1), sim.Solution().Final()[0])
}

func TestSimulator_Deterministic(t *testing.T) {
	run := func() (*core.Solution, []core.Task) {
		sim, err := NewSimulator(openGrid(t, 6, 6), testConfig())
		require.NoError(t, err)
		_, err = sim.Run(context.Background())
		require.NoError(t, err)
		return sim.Solution(), sim.Tasks()
	}

	solA, tasksA := run()
	solB, tasksB := run()
	if diff := cmp.Diff(solA.Configs, solB.Configs); diff != "" {
		t.Errorf("solutions differ (-first +second):\n%s", diff)
	}
	if diff := cmp.Diff(tasksA, tasksB); diff != "" {
		t.Errorf("tasks differ (-first +second):\n%s", diff)
	}
}

func TestSimulator_Cancelled(t *testing.T) {
	sim, err := NewSimulator(openGrid(t, 6, 6), testConfig())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	m, err := sim.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, m)
	assert.Equal(t, 0, m.Ticks)
}

func TestSimulationConfig_Validate(t *testing.T) {
	grid, err := core.ParseGrid([]string{"..", ".@"})
	require.NoError(t, err)

	tests := []struct {
		name   string
		mutate func(*SimulationConfig)
	}{
		{"no agents", func(c *SimulationConfig) { c.Agents = 0 }},
		{"no ticks", func(c *SimulationConfig) { c.Ticks = 0 }},
		{"negative frequency", func(c *SimulationConfig) { c.TaskFrequency = -1 }},
		{"no pickups", func(c *SimulationConfig) { c.Pickups = nil }},
		{"no deliveries", func(c *SimulationConfig) { c.Deliveries = nil }},
		{"blocked station", func(c *SimulationConfig) { c.Deliveries = []core.Coord{core.C(1, 1)} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := SimulationConfig{
				Agents: 1, Ticks: 5, TaskFrequency: 0.5,
				Pickups:    []core.Coord{core.C(0, 0)},
				Deliveries: []core.Coord{core.C(0, 1)},
			}
			require.NoError(t, cfg.Validate(grid))
			tt.mutate(&cfg)
			assert.ErrorIs(t, cfg.Validate(grid), ErrInvalidConfig)
		})
	}
}

func TestPoissonMean(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	const n = 20000
	total := 0
	for i := 0; i < n; i++ {
		total += poisson(rng, 1.5)
	}
	assert.InDelta(t, 1.5, float64(total)/n, 0.05)
	assert.Equal(t, 0, poisson(rng, 0))
}

func TestRunSimulationAndExport(t *testing.T) {
	res, err := RunSimulation(context.Background(), openGrid(t, 6, 6), testConfig())
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Empty(t, res.Error)

	sim, err := NewSimulator(openGrid(t, 6, 6), testConfig())
	require.NoError(t, err)
	_, err = sim.Run(context.Background())
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "metrics.json")
	require.NoError(t, sim.ExportMetrics(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"tasks_completed"`)
}
