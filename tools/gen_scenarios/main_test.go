package main

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elektrokombinacija/mapf-pibt/internal/algo"
	"github.com/elektrokombinacija/mapf-pibt/internal/scenario"
)

func TestGenerateIsLoadable(t *testing.T) {
	p := ScenarioParams{Seed: 5, NumAgents: 6, GridWidth: 9, GridHeight: 7, ObstacleDensity: 0.15, MaxSteps: 200, TieBreak: "seeded"}
	s, err := generate(p)
	require.NoError(t, err)

	sc, err := scenario.Parse(context.Background(), encode(s), p.Name()+".hcl")
	require.NoError(t, err)

	assert.Equal(t, p.Name(), sc.Name)
	assert.Equal(t, 200, sc.Config.MaxSteps)
	assert.Equal(t, algo.TieBreakSeeded, sc.Config.TieBreak)
	assert.Equal(t, int64(5), sc.Config.Seed)
	assert.Equal(t, s.Grid.Obstacles(), sc.Grid.Obstacles())
	assert.Empty(t, cmp.Diff(s.Starts, sc.Instance.Starts))
	assert.Empty(t, cmp.Diff(s.Goals, sc.Instance.Goals))
	assert.Equal(t, []string{"a0", "a1", "a2", "a3", "a4", "a5"}, sc.AgentNames)
}

func TestGenerateConnected(t *testing.T) {
	s, err := generate(ScenarioParams{Seed: 11, NumAgents: 8, GridWidth: 12, GridHeight: 12, ObstacleDensity: 0.3})
	require.NoError(t, err)

	for i, start := range s.Starts {
		oracle := algo.NewDistanceOracle(s.Grid, s.Goals[i])
		assert.NotEqual(t, oracle.Unreachable(), oracle.Distance(start), "agent %d", i)
	}
	free := s.Grid.FreeCells()
	oracle := algo.NewDistanceOracle(s.Grid, free[0])
	for _, c := range free {
		assert.NotEqual(t, oracle.Unreachable(), oracle.Distance(c), "isolated cell %v", c)
	}
}

func TestGenerateDeterministic(t *testing.T) {
	p := ScenarioParams{Seed: 3, NumAgents: 4, GridWidth: 8, GridHeight: 8, ObstacleDensity: 0.2, MaxSteps: 50}
	a, err := generate(p)
	require.NoError(t, err)
	b, err := generate(p)
	require.NoError(t, err)
	assert.Equal(t, encode(a), encode(b))
}

func TestGenerateTooManyAgents(t *testing.T) {
	_, err := generate(ScenarioParams{Seed: 1, NumAgents: 5, GridWidth: 2, GridHeight: 2})
	assert.Error(t, err)
}
