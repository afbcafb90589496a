package core

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleSolution() *Solution {
	sol := NewSolution(Config{C(0, 0), C(1, 1)})
	sol.Append(Config{C(0, 1), C(1, 1)})
	sol.Append(Config{C(0, 2), C(1, 0)})
	sol.Append(Config{C(0, 2), C(1, 1)})
	return sol
}

func TestSolutionAccessors(t *testing.T) {
	sol := sampleSolution()
	assert.Equal(t, 4, sol.Len())
	assert.Equal(t, 3, sol.Steps())
	assert.Equal(t, Config{C(0, 0), C(1, 1)}, sol.At(-3))
	assert.Equal(t, sol.Final(), sol.At(99))
	assert.Equal(t, []Coord{C(1, 1), C(1, 1), C(1, 0), C(1, 1)}, sol.Path(1))

	initial := Config{C(4, 4)}
	s2 := NewSolution(initial)
	initial[0] = C(0, 0)
	assert.Equal(t, C(4, 4), s2.Final()[0], "configurations are copied")
}

func TestSolutionCosts(t *testing.T) {
	sol := sampleSolution()

	// Agent 1 starts on its goal, leaves and comes back at t=3.
	goals := Config{C(0, 2), C(1, 1)}
	assert.Equal(t, []int{2, 3}, sol.ArrivalTimes(goals))
	assert.Equal(t, 3, sol.Makespan(goals))
	assert.Equal(t, 5, sol.SumOfCosts(goals))

	// Agents that never arrive are charged one step past the end.
	far := Config{C(5, 5), C(1, 1)}
	assert.Equal(t, []int{4, 3}, sol.ArrivalTimes(far))
}

func TestSolutionWriteTo(t *testing.T) {
	var buf bytes.Buffer
	n, err := sampleSolution().WriteTo(&buf)
	require.NoError(t, err)
	assert.Equal(t, int64(buf.Len()), n)

	want := strings.Join([]string{
		"0:(0,0),(1,1),",
		"1:(1,0),(1,1),",
		"2:(2,0),(0,1),",
		"3:(2,0),(1,1),",
		"",
	}, "\n")
	assert.Equal(t, want, buf.String())
}

func TestSolutionJSON(t *testing.T) {
	data, err := json.Marshal(sampleSolution())
	require.NoError(t, err)
	assert.Contains(t, string(data), `"steps":3`)

	got, err := ReadSolution(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, sampleSolution().Configs, got.Configs)

	_, err = ReadSolution(strings.NewReader(`{"steps":0,"configs":[]}`))
	assert.Error(t, err)
	_, err = ReadSolution(strings.NewReader(`{"configs":[[[0,0]],[[0,1],[1,1]]]}`))
	assert.Error(t, err)
}
