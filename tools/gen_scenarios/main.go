// Package main generates random PIBT scenario files.
// Generation is deterministic for a given seed.
package main

import (
	"flag"
	"fmt"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/hcl/v2/hclwrite"
	"github.com/zclconf/go-cty/cty"

	"github.com/elektrokombinacija/mapf-pibt/internal/algo"
	"github.com/elektrokombinacija/mapf-pibt/internal/core"
)

// ScenarioParams defines parameters for scenario generation.
type ScenarioParams struct {
	Seed            int64
	NumAgents       int
	GridWidth       int
	GridHeight      int
	ObstacleDensity float64 // fraction of cells turned into obstacles
	MaxSteps        int
	TieBreak        string
}

// Name is the file stem used for the generated scenario.
func (p ScenarioParams) Name() string {
	return fmt.Sprintf("pibt_%d_%dx%d_%d", p.NumAgents, p.GridWidth, p.GridHeight, p.Seed)
}

// generated is a sampled scenario before serialization.
type generated struct {
	Params ScenarioParams
	Grid   *core.Grid
	Starts core.Config
	Goals  core.Config
}

// generate samples a grid and agent endpoints. Agents are placed in the
// largest connected region, and free cells outside it are walled off, so
// every goal is reachable from every start.
func generate(p ScenarioParams) (*generated, error) {
	rng := rand.New(rand.NewSource(p.Seed))

	var obstacles []core.Coord
	for r := 0; r < p.GridHeight; r++ {
		for c := 0; c < p.GridWidth; c++ {
			if rng.Float64() < p.ObstacleDensity {
				obstacles = append(obstacles, core.C(r, c))
			}
		}
	}
	g, err := core.NewGrid(p.GridHeight, p.GridWidth, obstacles)
	if err != nil {
		return nil, err
	}

	free := g.FreeCells()
	if len(free) == 0 {
		return nil, fmt.Errorf("no free cells at obstacle density %.2f", p.ObstacleDensity)
	}

	component := largestComponent(g, free)
	if len(component) < p.NumAgents {
		return nil, fmt.Errorf("only %d connected free cells for %d agents", len(component), p.NumAgents)
	}

	starts := make(core.Config, p.NumAgents)
	goals := make(core.Config, p.NumAgents)
	for i, idx := range rng.Perm(len(component))[:p.NumAgents] {
		starts[i] = component[idx]
	}
	for i, idx := range rng.Perm(len(component))[:p.NumAgents] {
		goals[i] = component[idx]
	}

	// Cells outside the component cannot be visited; write them as walls.
	inComponent := make(map[core.Coord]bool, len(component))
	for _, c := range component {
		inComponent[c] = true
	}
	for _, c := range free {
		if !inComponent[c] {
			obstacles = append(obstacles, c)
		}
	}
	if g, err = core.NewGrid(p.GridHeight, p.GridWidth, obstacles); err != nil {
		return nil, err
	}

	return &generated{Params: p, Grid: g, Starts: starts, Goals: goals}, nil
}

// largestComponent groups free cells by reachability and returns the
// biggest group.
func largestComponent(g *core.Grid, free []core.Coord) []core.Coord {
	seen := make(map[core.Coord]bool, len(free))
	var best []core.Coord
	for _, root := range free {
		if seen[root] {
			continue
		}
		oracle := algo.NewDistanceOracle(g, root)
		var comp []core.Coord
		for _, c := range free {
			if !seen[c] && oracle.Distance(c) != oracle.Unreachable() {
				seen[c] = true
				comp = append(comp, c)
			}
		}
		if len(comp) > len(best) {
			best = comp
		}
	}
	return best
}

// encode renders a generated scenario as HCL.
func encode(s *generated) []byte {
	f := hclwrite.NewEmptyFile()
	body := f.Body()
	body.SetAttributeValue("name", cty.StringVal(s.Params.Name()))
	body.SetAttributeValue("max_steps", cty.NumberIntVal(int64(s.Params.MaxSteps)))
	if s.Params.TieBreak != "" {
		body.SetAttributeValue("tie_break", cty.StringVal(s.Params.TieBreak))
	}
	body.SetAttributeValue("seed", cty.NumberIntVal(s.Params.Seed))
	body.AppendNewline()

	grid := body.AppendNewBlock("grid", nil).Body()
	rows := make([]cty.Value, s.Grid.Height())
	for r := range rows {
		var sb strings.Builder
		for c := 0; c < s.Grid.Width(); c++ {
			if s.Grid.Walkable(core.C(r, c)) {
				sb.WriteByte('.')
			} else {
				sb.WriteByte('@')
			}
		}
		rows[r] = cty.StringVal(sb.String())
	}
	grid.SetAttributeValue("rows", cty.ListVal(rows))

	for i := range s.Starts {
		body.AppendNewline()
		agent := body.AppendNewBlock("agent", []string{fmt.Sprintf("a%d", i)}).Body()
		agent.SetAttributeValue("start", coordVal(s.Starts[i]))
		agent.SetAttributeValue("goal", coordVal(s.Goals[i]))
	}
	return f.Bytes()
}

func coordVal(c core.Coord) cty.Value {
	return cty.TupleVal([]cty.Value{cty.NumberIntVal(int64(c.Row)), cty.NumberIntVal(int64(c.Col))})
}

func main() {
	seed := flag.Int64("seed", 42, "Random seed for deterministic generation")
	numAgents := flag.Int("agents", 10, "Number of agents")
	gridWidth := flag.Int("width", 16, "Grid width")
	gridHeight := flag.Int("height", 16, "Grid height")
	density := flag.Float64("obstacles", 0.1, "Obstacle density (0-1)")
	maxSteps := flag.Int("max-steps", 1000, "Step budget written to each scenario")
	tieBreak := flag.String("tie-break", "", "Tie-break rule: fixed or seeded")
	outputDir := flag.String("output", "testdata", "Output directory")
	scalingMode := flag.Bool("scaling", false, "Generate scaling scenarios (10, 50, 100, 200, 500 agents)")

	flag.Parse()

	if err := os.MkdirAll(*outputDir, 0755); err != nil {
		fmt.Fprintf(os.Stderr, "Error creating output directory: %v\n", err)
		os.Exit(1)
	}

	base := ScenarioParams{
		Seed:            *seed,
		NumAgents:       *numAgents,
		GridWidth:       *gridWidth,
		GridHeight:      *gridHeight,
		ObstacleDensity: *density,
		MaxSteps:        *maxSteps,
		TieBreak:        *tieBreak,
	}
	params := []ScenarioParams{base}
	if *scalingMode {
		params = params[:0]
		for _, size := range []int{10, 50, 100, 200, 500} {
			// Roughly 10% of the free cells end up occupied.
			side := max(int(math.Ceil(math.Sqrt(float64(size)*10))), 10)
			p := base
			p.NumAgents, p.GridWidth, p.GridHeight = size, side, side
			params = append(params, p)
		}
	}

	failed := false
	for _, p := range params {
		s, err := generate(p)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error generating %s: %v\n", p.Name(), err)
			failed = true
			continue
		}
		filename := filepath.Join(*outputDir, p.Name()+".hcl")
		if err := os.WriteFile(filename, encode(s), 0644); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing scenario %s: %v\n", filename, err)
			failed = true
			continue
		}
		fmt.Printf("Generated: %s (%d agents, %dx%d grid, %d obstacles)\n",
			filename, p.NumAgents, p.GridWidth, p.GridHeight, len(s.Grid.Obstacles()))
	}
	if failed {
		os.Exit(1)
	}
}
