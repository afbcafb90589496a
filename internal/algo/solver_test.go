package algo_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elektrokombinacija/mapf-pibt/internal/algo"
	"github.com/elektrokombinacija/mapf-pibt/internal/core"
)

func solutionOf(configs ...core.Config) *core.Solution {
	sol := core.NewSolution(configs[0])
	for _, c := range configs[1:] {
		sol.Append(c)
	}
	return sol
}

func TestFindFirstConflict_NoConflict(t *testing.T) {
	sol := solutionOf(
		core.Config{core.C(0, 0), core.C(1, 0)},
		core.Config{core.C(0, 1), core.C(1, 1)},
		core.Config{core.C(0, 2), core.C(1, 2)},
	)
	assert.Nil(t, algo.FindFirstConflict(sol))
	assert.Empty(t, algo.FindAllConflicts(sol))
}

func TestFindFirstConflict_VertexConflict(t *testing.T) {
	sol := solutionOf(
		core.Config{core.C(0, 0), core.C(0, 2)},
		core.Config{core.C(0, 1), core.C(0, 1)},
	)
	c := algo.FindFirstConflict(sol)
	require.NotNil(t, c)
	assert.False(t, c.IsEdge)
	assert.Equal(t, core.AgentID(0), c.Agent1)
	assert.Equal(t, core.AgentID(1), c.Agent2)
	assert.Equal(t, core.C(0, 1), c.Cell)
	assert.Equal(t, 1, c.Time)
}

func TestFindFirstConflict_EdgeConflict(t *testing.T) {
	sol := solutionOf(
		core.Config{core.C(0, 0), core.C(0, 1)},
		core.Config{core.C(0, 1), core.C(0, 0)},
	)
	c := algo.FindFirstConflict(sol)
	require.NotNil(t, c)
	assert.True(t, c.IsEdge)
	assert.Equal(t, core.C(0, 0), c.EdgeFrom)
	assert.Equal(t, core.C(0, 1), c.EdgeTo)
	assert.Equal(t, 1, c.Time)
	assert.Contains(t, c.Error(), "swap")
}

func TestFindAllConflicts(t *testing.T) {
	sol := solutionOf(
		core.Config{core.C(0, 0), core.C(0, 1), core.C(2, 2)},
		core.Config{core.C(0, 1), core.C(0, 0), core.C(2, 2)},
		core.Config{core.C(0, 1), core.C(0, 1), core.C(0, 1)},
	)
	conflicts := algo.FindAllConflicts(sol)
	require.Len(t, conflicts, 3)
	assert.True(t, conflicts[0].IsEdge)
	assert.Equal(t, 2, conflicts[1].Time)
	assert.Equal(t, 2, conflicts[2].Time)
}

func TestCheckSolution(t *testing.T) {
	g, err := core.ParseGrid([]string{"..", ".@"})
	require.NoError(t, err)
	inst, err := core.NewInstance(g,
		core.Config{core.C(0, 0)}, core.Config{core.C(1, 0)})
	require.NoError(t, err)

	tests := []struct {
		name         string
		sol          *core.Solution
		requireGoals bool
		wantErr      bool
	}{
		{"valid", solutionOf(core.Config{core.C(0, 0)}, core.Config{core.C(1, 0)}), true, false},
		{"wait then move", solutionOf(core.Config{core.C(0, 0)}, core.Config{core.C(0, 0)}, core.Config{core.C(1, 0)}), true, false},
		{"partial without goal check", solutionOf(core.Config{core.C(0, 0)}), false, false},
		{"partial with goal check", solutionOf(core.Config{core.C(0, 0)}), true, true},
		{"wrong start", solutionOf(core.Config{core.C(0, 1)}), false, true},
		{"blocked cell", solutionOf(core.Config{core.C(0, 0)}, core.Config{core.C(1, 1)}), false, true},
		{"out of bounds", solutionOf(core.Config{core.C(0, 0)}, core.Config{core.C(0, 2)}), false, true},
		{"jump", solutionOf(core.Config{core.C(0, 0)}, core.Config{core.C(0, 1)}, core.Config{core.C(1, 0)}), false, true},
		{"wrong agent count", solutionOf(core.Config{core.C(0, 0)}, core.Config{core.C(1, 0), core.C(0, 1)}), false, true},
		{"nil", nil, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := algo.CheckSolution(inst, tt.sol, tt.requireGoals)
			if tt.wantErr {
				assert.ErrorIs(t, err, algo.ErrInvalidSolution)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCheckSolution_ReportsConflict(t *testing.T) {
	g, err := core.NewGrid(1, 2, nil)
	require.NoError(t, err)
	inst, err := core.NewInstance(g,
		core.Config{core.C(0, 0), core.C(0, 1)}, core.Config{core.C(0, 1), core.C(0, 0)})
	require.NoError(t, err)

	err = algo.CheckSolution(inst, solutionOf(
		core.Config{core.C(0, 0), core.C(0, 1)},
		core.Config{core.C(0, 1), core.C(0, 0)},
	), true)
	require.ErrorIs(t, err, algo.ErrInvalidSolution)

	var c *algo.Conflict
	require.ErrorAs(t, err, &c)
	assert.True(t, c.IsEdge)
}
