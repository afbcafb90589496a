package core

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// Config holds one cell per agent at a single timestep.
type Config []Coord

// Clone returns an independent copy.
func (c Config) Clone() Config {
	if c == nil {
		return nil
	}
	out := make(Config, len(c))
	copy(out, c)
	return out
}

// Equal reports whether both configurations place every agent identically.
func (c Config) Equal(o Config) bool {
	if len(c) != len(o) {
		return false
	}
	for i := range c {
		if c[i] != o[i] {
			return false
		}
	}
	return true
}

// Solution is the sequence of configurations produced by a run. Index 0
// holds the starts; every later entry is one synchronized transition.
type Solution struct {
	Configs []Config
}

// NewSolution starts a solution at the given initial configuration.
func NewSolution(initial Config) *Solution {
	return &Solution{Configs: []Config{initial.Clone()}}
}

// Append records the next configuration.
func (s *Solution) Append(c Config) {
	s.Configs = append(s.Configs, c.Clone())
}

// Len returns the number of configurations, including the initial one.
func (s *Solution) Len() int {
	return len(s.Configs)
}

// Steps returns the number of transitions.
func (s *Solution) Steps() int {
	if len(s.Configs) == 0 {
		return 0
	}
	return len(s.Configs) - 1
}

// At returns the configuration at timestep t. Timesteps past the end
// return the final configuration, since agents rest after a run.
func (s *Solution) At(t int) Config {
	if len(s.Configs) == 0 {
		return nil
	}
	if t < 0 {
		t = 0
	}
	if t >= len(s.Configs) {
		t = len(s.Configs) - 1
	}
	return s.Configs[t]
}

// Final returns the last configuration.
func (s *Solution) Final() Config {
	return s.At(len(s.Configs) - 1)
}

// Path returns the cell sequence of one agent.
func (s *Solution) Path(agent AgentID) []Coord {
	path := make([]Coord, len(s.Configs))
	for t, cfg := range s.Configs {
		path[t] = cfg[agent]
	}
	return path
}

// ArrivalTimes returns, per agent, the first timestep after which the agent
// never leaves its goal again. Agents that end off-goal get Steps()+1.
func (s *Solution) ArrivalTimes(goals Config) []int {
	arrivals := make([]int, len(goals))
	for i, g := range goals {
		arrival := 0
		for t := len(s.Configs) - 1; t >= 0; t-- {
			if s.Configs[t][i] != g {
				arrival = t + 1
				break
			}
		}
		arrivals[i] = arrival
	}
	return arrivals
}

// Makespan returns the latest arrival time over all agents.
func (s *Solution) Makespan(goals Config) int {
	maxT := 0
	for _, t := range s.ArrivalTimes(goals) {
		if t > maxT {
			maxT = t
		}
	}
	return maxT
}

// SumOfCosts returns the sum of arrival times over all agents.
func (s *Solution) SumOfCosts(goals Config) int {
	sum := 0
	for _, t := range s.ArrivalTimes(goals) {
		sum += t
	}
	return sum
}

// WriteTo writes one line per timestep in the format read by the pypibt
// family of visualizers: "t:(x,y),(x,y),", where x is the column and y the
// row.
func (s *Solution) WriteTo(w io.Writer) (int64, error) {
	bw := bufio.NewWriter(w)
	var written int64
	var sb strings.Builder
	for t, cfg := range s.Configs {
		sb.Reset()
		fmt.Fprintf(&sb, "%d:", t)
		for _, c := range cfg {
			fmt.Fprintf(&sb, "(%d,%d),", c.Col, c.Row)
		}
		sb.WriteByte('\n')
		n, err := bw.WriteString(sb.String())
		written += int64(n)
		if err != nil {
			return written, err
		}
	}
	return written, bw.Flush()
}

type solutionJSON struct {
	Steps   int      `json:"steps"`
	Configs []Config `json:"configs"`
}

// MarshalJSON encodes the solution as {"steps": n, "configs": [...]}.
func (s *Solution) MarshalJSON() ([]byte, error) {
	return json.Marshal(solutionJSON{Steps: s.Steps(), Configs: s.Configs})
}

// UnmarshalJSON decodes the format written by MarshalJSON.
func (s *Solution) UnmarshalJSON(data []byte) error {
	var raw solutionJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if len(raw.Configs) == 0 {
		return fmt.Errorf("core: solution has no configurations")
	}
	n := len(raw.Configs[0])
	for t, cfg := range raw.Configs {
		if len(cfg) != n {
			return fmt.Errorf("core: configuration %d has %d agents, want %d", t, len(cfg), n)
		}
	}
	s.Configs = raw.Configs
	return nil
}

// ReadSolution decodes a JSON solution from r.
func ReadSolution(r io.Reader) (*Solution, error) {
	var s Solution
	if err := json.NewDecoder(r).Decode(&s); err != nil {
		return nil, fmt.Errorf("core: decode solution: %w", err)
	}
	return &s, nil
}
