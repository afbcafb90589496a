package scenario

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elektrokombinacija/mapf-pibt/internal/algo"
	"github.com/elektrokombinacija/mapf-pibt/internal/core"
)

func TestLoad_Warehouse(t *testing.T) {
	sc, err := Load(context.Background(), filepath.Join("testdata", "warehouse.hcl"))
	require.NoError(t, err)

	assert.Equal(t, "warehouse", sc.Name)
	assert.Equal(t, algo.Config{MaxSteps: 300, TieBreak: algo.TieBreakSeeded, Seed: 7}, sc.Config)
	assert.Nil(t, sc.MAPD)

	assert.Equal(t, 5, sc.Grid.Height())
	assert.Equal(t, 10, sc.Grid.Width())
	assert.False(t, sc.Grid.Walkable(core.C(1, 1)), "from rows")
	assert.False(t, sc.Grid.Walkable(core.C(4, 4)), "from obstacles")
	assert.False(t, sc.Grid.Walkable(core.C(2, 6)), "from area")
	assert.True(t, sc.Grid.Walkable(core.C(2, 7)))

	require.NotNil(t, sc.Instance)
	assert.Equal(t, []string{"north-west", "north-east", "south-west"}, sc.AgentNames)
	assert.Equal(t, core.Config{core.C(0, 0), core.C(0, 9), core.C(4, 0)}, sc.Instance.Starts)
	assert.Equal(t, core.Config{core.C(4, 9), core.C(4, 0), core.C(0, 9)}, sc.Instance.Goals)
	assert.Equal(t, "warehouse", sc.Instance.Name)
}

func TestLoad_MAPD(t *testing.T) {
	sc, err := Load(context.Background(), filepath.Join("testdata", "mapd.hcl"))
	require.NoError(t, err)

	assert.Nil(t, sc.Instance)
	require.NotNil(t, sc.MAPD)
	assert.Equal(t, 4, sc.MAPD.Agents)
	assert.Equal(t, 100, sc.MAPD.Ticks)
	assert.InDelta(t, 0.4, sc.MAPD.TaskFrequency, 1e-9)
	assert.Equal(t, int64(3), sc.MAPD.Seed, "inherits the top-level seed")
	assert.Equal(t, []core.Coord{core.C(0, 0), core.C(0, 5)}, sc.MAPD.Pickups)
	assert.Equal(t, []core.Coord{core.C(5, 0), core.C(5, 5)}, sc.MAPD.Deliveries)
}

func TestParse_Defaults(t *testing.T) {
	src := `
grid {
  height = 2
  width  = 3
}
agent "a" {
  start = [0, 0]
  goal  = [1, 2]
}
`
	sc, err := Parse(context.Background(), []byte(src), "defaults.hcl")
	require.NoError(t, err)
	assert.Equal(t, algo.DefaultConfig(), sc.Config)
	assert.Equal(t, core.Config{core.C(1, 2)}, sc.Instance.Goals)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"syntax", `grid {`},
		{"missing grid", `agent "a" {
  start = [0, 0]
  goal  = [0, 1]
}`},
		{"no agents", `grid {
  height = 2
  width  = 2
}`},
		{"unknown tie-break", `tie_break = "random"
grid {
  height = 2
  width  = 2
}
agent "a" {
  start = [0, 0]
  goal  = [0, 1]
}`},
		{"zero budget", `max_steps = 0
grid {
  height = 2
  width  = 2
}
agent "a" {
  start = [0, 0]
  goal  = [0, 1]
}`},
		{"short coordinate", `grid {
  height = 2
  width  = 2
}
agent "a" {
  start = [0]
  goal  = [0, 1]
}`},
		{"goal on obstacle", `grid {
  rows = [".@"]
}
agent "a" {
  start = [0, 0]
  goal  = [0, 1]
}`},
		{"goal out of bounds", `grid {
  height = 2
  width  = 2
}
agent "a" {
  start = [0, 0]
  goal  = [height, 0]
}`},
		{"duplicate agent", `grid {
  height = 2
  width  = 2
}
agent "a" {
  start = [0, 0]
  goal  = [0, 1]
}
agent "a" {
  start = [1, 0]
  goal  = [1, 1]
}`},
		{"rows disagree with size", `grid {
  height = 3
  rows   = ["..", ".."]
}
agent "a" {
  start = [0, 0]
  goal  = [0, 1]
}`},
		{"unknown block", `grid {
  height = 2
  width  = 2
}
robot "r" {}`},
		{"mapd without pickups", `grid {
  height = 3
  width  = 3
}
mapd {
  agents         = 1
  ticks          = 5
  task_frequency = 0.5
  pickups        = []
  deliveries     = [[2, 2]]
}`},
		{"mapd station blocked", `grid {
  rows = ["..@"]
}
mapd {
  agents         = 1
  ticks          = 5
  task_frequency = 0.5
  pickups        = [[0, 2]]
  deliveries     = [[0, 0]]
}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(context.Background(), []byte(tt.src), tt.name+".hcl")
			assert.ErrorIs(t, err, ErrInvalidScenario)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(context.Background(), filepath.Join(t.TempDir(), "nope.hcl"))
	assert.Error(t, err)
}

func TestLoad_SolvesWithPIBT(t *testing.T) {
	sc, err := Load(context.Background(), filepath.Join("testdata", "warehouse.hcl"))
	require.NoError(t, err)

	res, err := algo.NewPIBT(sc.Config).Solve(context.Background(), sc.Instance)
	require.NoError(t, err)
	assert.NoError(t, algo.CheckSolution(sc.Instance, res.Solution, res.Complete))
}
