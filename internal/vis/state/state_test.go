package state_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elektrokombinacija/mapf-pibt/internal/algo"
	"github.com/elektrokombinacija/mapf-pibt/internal/core"
	"github.com/elektrokombinacija/mapf-pibt/internal/vis/state"
)

func corridor(t *testing.T) (*core.Instance, *core.Solution) {
	t.Helper()
	g, err := core.ParseGrid([]string{"..."})
	require.NoError(t, err)
	inst, err := core.NewInstance(g, core.Config{core.C(0, 0)}, core.Config{core.C(0, 2)})
	require.NoError(t, err)

	sol := core.NewSolution(inst.Starts)
	sol.Append(core.Config{core.C(0, 1)})
	sol.Append(core.Config{core.C(0, 2)})
	return inst, sol
}

func TestPositionAtInterpolates(t *testing.T) {
	inst, sol := corridor(t)
	s := state.NewState(inst.Grid, sol, inst.Goals, []string{"robot"})

	assert.Equal(t, state.Pos{X: 0.5, Y: 0.5}, s.PositionAt(0, 0))
	assert.Equal(t, state.Pos{X: 1.0, Y: 0.5}, s.PositionAt(0, 0.5))
	assert.Equal(t, state.Pos{X: 1.5, Y: 0.5}, s.PositionAt(0, 1))
	assert.Equal(t, state.Pos{X: 2.5, Y: 0.5}, s.PositionAt(0, 7), "rests on the final cell")
	assert.Equal(t, 2.0, s.Playback.MaxTime)
	assert.Equal(t, "robot", s.AgentLabel(0))
	assert.Equal(t, "a3", s.AgentLabel(3))
}

func TestPathHistoryAndFuture(t *testing.T) {
	inst, sol := corridor(t)
	s := state.NewState(inst.Grid, sol, inst.Goals, nil)
	s.Playback.SetTime(1.5)

	assert.Equal(t, []state.Pos{{X: 0.5, Y: 0.5}, {X: 1.5, Y: 0.5}, {X: 2.0, Y: 0.5}}, s.PathHistory(0))
	assert.Equal(t, []state.Pos{{X: 2.5, Y: 0.5}}, s.FuturePath(0))
	assert.False(t, s.OnGoal(0))

	s.Playback.SetTime(2)
	assert.True(t, s.OnGoal(0))
	assert.Empty(t, s.FuturePath(0))
}

func TestAgentAt(t *testing.T) {
	inst, sol := corridor(t)
	s := state.NewState(inst.Grid, sol, inst.Goals, nil)

	assert.Equal(t, 0, s.AgentAt(state.Pos{X: 0.6, Y: 0.4}))
	assert.Equal(t, -1, s.AgentAt(state.Pos{X: 2.5, Y: 0.5}))
}

func TestActiveConflicts(t *testing.T) {
	g, err := core.ParseGrid([]string{".."})
	require.NoError(t, err)
	sol := core.NewSolution(core.Config{core.C(0, 0), core.C(0, 1)})
	sol.Append(core.Config{core.C(0, 1), core.C(0, 0)})
	s := state.NewState(g, sol, core.Config{core.C(0, 1), core.C(0, 0)}, nil)

	require.Len(t, s.Conflicts, 1)
	assert.Empty(t, s.ActiveConflicts())
	s.Playback.SetTime(0.8)
	require.Len(t, s.ActiveConflicts(), 1)
	assert.True(t, s.ActiveConflicts()[0].IsEdge)
}

func TestLiveStepping(t *testing.T) {
	inst, _ := corridor(t)
	sched, err := algo.NewScheduler(inst, algo.DefaultConfig())
	require.NoError(t, err)
	s := state.NewLive(inst, sched, 10, nil)
	ctx := context.Background()

	require.Equal(t, 1, s.Solution.Len())
	require.NoError(t, s.StepLive(ctx))
	assert.False(t, s.Live.Finished())
	require.NoError(t, s.StepLive(ctx))
	assert.True(t, s.Live.Finished())
	assert.Equal(t, 2.0, s.Playback.MaxTime)

	require.NoError(t, s.StepLive(ctx))
	assert.Equal(t, 3, s.Solution.Len(), "finished run records nothing more")
	assert.Equal(t, core.Config{core.C(0, 2)}, s.Solution.Final())
}

func TestLiveBudget(t *testing.T) {
	inst, _ := corridor(t)
	sched, err := algo.NewScheduler(inst, algo.DefaultConfig())
	require.NoError(t, err)
	s := state.NewLive(inst, sched, 1, nil)

	require.NoError(t, s.StepLive(context.Background()))
	assert.True(t, s.Live.Finished())
	assert.NoError(t, s.Live.Err())
	assert.Equal(t, 1, s.Live.Timestep())
}

func TestTickExtendsLiveRun(t *testing.T) {
	inst, _ := corridor(t)
	sched, err := algo.NewScheduler(inst, algo.DefaultConfig())
	require.NoError(t, err)
	s := state.NewLive(inst, sched, 10, nil)

	s.Playback.Play()
	require.NoError(t, s.Tick(context.Background()))
	assert.Equal(t, 2, s.Solution.Len())
	assert.True(t, s.Playback.Playing)
}

func TestPlayback(t *testing.T) {
	p := state.NewPlaybackState(4)
	assert.Equal(t, float64(state.DefaultSpeed), p.Speed)

	p.AdvanceBy(time.Second)
	assert.Zero(t, p.CurrentTime, "paused playback does not move")

	p.Play()
	p.AdvanceBy(500 * time.Millisecond)
	assert.InDelta(t, 1.0, p.CurrentTime, 1e-9)
	assert.InDelta(t, 0.25, p.Progress(), 1e-9)

	p.AdvanceBy(10 * time.Second)
	assert.Equal(t, 4.0, p.CurrentTime)
	assert.False(t, p.Playing)

	p.TogglePlay()
	assert.True(t, p.Playing)
	assert.Zero(t, p.CurrentTime, "toggling at the end rewinds")

	p.SetTime(1.3)
	p.StepForward()
	assert.Equal(t, 2.0, p.CurrentTime)
	assert.False(t, p.Playing)
	p.SetTime(1.3)
	p.StepBack()
	assert.Equal(t, 1.0, p.CurrentTime)
	p.StepBack()
	p.StepBack()
	assert.Zero(t, p.CurrentTime)

	p.SetSpeed(100)
	assert.Equal(t, float64(state.MaxSpeed), p.Speed)
	p.Slower()
	assert.Equal(t, 8.0, p.Speed)
	p.SetSpeed(0)
	assert.Equal(t, state.MinSpeed, p.Speed)

	p.Reset()
	assert.Zero(t, p.CurrentTime)
}
