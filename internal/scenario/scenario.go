// Package scenario loads PIBT run descriptions from HCL files.
//
// A scenario names a grid, a list of agents with start and goal cells, and
// the run settings handed to the scheduler. An optional mapd block turns the
// file into a pickup-and-delivery simulation instead.
//
//	name      = "warehouse"
//	max_steps = 500
//	tie_break = "seeded"
//	seed      = 7
//
//	grid {
//	  height    = 8
//	  width     = 8
//	  obstacles = [[3, 3], [3, 4]]
//	  area { from = [5, 1], to = [5, 4] }
//	}
//
//	agent "a0" {
//	  start = [0, 0]
//	  goal  = [height - 1, width - 1]
//	}
//
// Coordinates are [row, col]. The grid block is decoded first, and its
// height and width are then available as variables to agent and mapd
// blocks.
package scenario

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"

	"github.com/elektrokombinacija/mapf-pibt/internal/algo"
	"github.com/elektrokombinacija/mapf-pibt/internal/core"
	"github.com/elektrokombinacija/mapf-pibt/internal/ctxlog"
	"github.com/elektrokombinacija/mapf-pibt/internal/sim"
)

// ErrInvalidScenario is wrapped by every parse, decode and validation
// failure.
var ErrInvalidScenario = errors.New("scenario: invalid scenario")

// Scenario is a decoded scenario file.
type Scenario struct {
	Name       string
	Grid       *core.Grid
	AgentNames []string
	// Instance is nil when the file only describes a MAPD simulation.
	Instance *core.Instance
	Config   algo.Config
	// MAPD is nil unless the file has a mapd block.
	MAPD *sim.SimulationConfig
}

// fileRoot holds the top-level attributes and the grid block. Agent and mapd
// blocks stay in Remain until the grid dimensions are known.
type fileRoot struct {
	Name     string     `hcl:"name,optional"`
	MaxSteps *int       `hcl:"max_steps,optional" validate:"omitempty,min=1"`
	TieBreak string     `hcl:"tie_break,optional" validate:"omitempty,oneof=fixed seeded"`
	Seed     int64      `hcl:"seed,optional"`
	Grid     *gridBlock `hcl:"grid,block" validate:"required"`
	Remain   hcl.Body   `hcl:",remain" validate:"-"`
}

type gridBlock struct {
	Height    int          `hcl:"height,optional" validate:"gte=0"`
	Width     int          `hcl:"width,optional" validate:"gte=0"`
	Obstacles [][]int      `hcl:"obstacles,optional" validate:"dive,len=2"`
	Rows      []string     `hcl:"rows,optional"`
	Areas     []*areaBlock `hcl:"area,block" validate:"dive"`
}

type areaBlock struct {
	From []int `hcl:"from" validate:"len=2"`
	To   []int `hcl:"to" validate:"len=2"`
}

type bodyRoot struct {
	Agents []*agentBlock `hcl:"agent,block" validate:"dive"`
	MAPD   *mapdBlock    `hcl:"mapd,block"`
}

type agentBlock struct {
	Name  string `hcl:"name,label"`
	Start []int  `hcl:"start" validate:"len=2"`
	Goal  []int  `hcl:"goal" validate:"len=2"`
}

type mapdBlock struct {
	Agents        int     `hcl:"agents" validate:"min=1"`
	Ticks         int     `hcl:"ticks" validate:"min=1"`
	TaskFrequency float64 `hcl:"task_frequency" validate:"gte=0"`
	Pickups       [][]int `hcl:"pickups" validate:"min=1,dive,len=2"`
	Deliveries    [][]int `hcl:"deliveries" validate:"min=1,dive,len=2"`
	Seed          *int64  `hcl:"seed,optional"`
}

// Load reads and decodes the scenario file at path.
func Load(ctx context.Context, path string) (*Scenario, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("scenario: read %s: %w", path, err)
	}
	return Parse(ctx, src, path)
}

// Parse decodes scenario source. filename is used in diagnostics only.
func Parse(ctx context.Context, src []byte, filename string) (*Scenario, error) {
	logger := ctxlog.FromContext(ctx)
	validate := validator.New()

	file, diags := hclparse.NewParser().ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("%w: failed to parse %s: %w", ErrInvalidScenario, filename, diags)
	}

	var root fileRoot
	if diags := gohcl.DecodeBody(file.Body, nil, &root); diags.HasErrors() {
		return nil, fmt.Errorf("%w: failed to decode %s: %w", ErrInvalidScenario, filename, diags)
	}
	if err := validate.Struct(&root); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidScenario, filename, err)
	}

	grid, err := buildGrid(root.Grid)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidScenario, filename, err)
	}

	evalCtx := &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"height": cty.NumberIntVal(int64(grid.Height())),
			"width":  cty.NumberIntVal(int64(grid.Width())),
		},
	}
	var body bodyRoot
	if diags := gohcl.DecodeBody(root.Remain, evalCtx, &body); diags.HasErrors() {
		return nil, fmt.Errorf("%w: failed to decode %s: %w", ErrInvalidScenario, filename, diags)
	}
	if err := validate.Struct(&body); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidScenario, filename, err)
	}

	sc := &Scenario{
		Name:   root.Name,
		Grid:   grid,
		Config: algo.DefaultConfig(),
	}
	if root.MaxSteps != nil {
		sc.Config.MaxSteps = *root.MaxSteps
	}
	if sc.Config.TieBreak, err = algo.ParseTieBreak(root.TieBreak); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidScenario, filename, err)
	}
	sc.Config.Seed = root.Seed
	if err := sc.Config.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidScenario, filename, err)
	}

	if len(body.Agents) == 0 && body.MAPD == nil {
		return nil, fmt.Errorf("%w: %s: no agent or mapd blocks", ErrInvalidScenario, filename)
	}

	if len(body.Agents) > 0 {
		if err := sc.buildInstance(body.Agents); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrInvalidScenario, filename, err)
		}
	}
	if body.MAPD != nil {
		cfg := sim.SimulationConfig{
			Agents:        body.MAPD.Agents,
			Ticks:         body.MAPD.Ticks,
			TaskFrequency: body.MAPD.TaskFrequency,
			Pickups:       coords(body.MAPD.Pickups),
			Deliveries:    coords(body.MAPD.Deliveries),
			Seed:          root.Seed,
			TieBreak:      sc.Config.TieBreak,
		}
		if body.MAPD.Seed != nil {
			cfg.Seed = *body.MAPD.Seed
		}
		if err := cfg.Validate(grid); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrInvalidScenario, filename, err)
		}
		sc.MAPD = &cfg
	}

	logger.Debug("Scenario loaded", "file", filename, "name", sc.Name,
		"height", grid.Height(), "width", grid.Width(),
		"agents", len(sc.AgentNames), "mapd", sc.MAPD != nil)
	return sc, nil
}

// buildGrid merges ASCII rows, explicit obstacles and obstacle areas.
func buildGrid(b *gridBlock) (*core.Grid, error) {
	height, width := b.Height, b.Width
	var obstacles []core.Coord

	if len(b.Rows) > 0 {
		parsed, err := core.ParseGrid(b.Rows)
		if err != nil {
			return nil, err
		}
		if (height != 0 && height != parsed.Height()) || (width != 0 && width != parsed.Width()) {
			return nil, fmt.Errorf("grid rows are %dx%d but height/width say %dx%d",
				parsed.Height(), parsed.Width(), height, width)
		}
		height, width = parsed.Height(), parsed.Width()
		obstacles = parsed.Obstacles()
	}

	obstacles = append(obstacles, coords(b.Obstacles)...)
	areas := make([]core.Area, len(b.Areas))
	for i, a := range b.Areas {
		areas[i] = core.Area{From: coord(a.From), To: coord(a.To)}
	}
	obstacles = append(obstacles, core.ExpandAreas(areas)...)

	return core.NewGrid(height, width, obstacles)
}

func (sc *Scenario) buildInstance(agents []*agentBlock) error {
	starts := make(core.Config, len(agents))
	goals := make(core.Config, len(agents))
	seen := make(map[string]bool, len(agents))
	for i, a := range agents {
		if seen[a.Name] {
			return fmt.Errorf("duplicate agent %q", a.Name)
		}
		seen[a.Name] = true
		sc.AgentNames = append(sc.AgentNames, a.Name)
		starts[i] = coord(a.Start)
		goals[i] = coord(a.Goal)
	}

	inst, err := core.NewInstance(sc.Grid, starts, goals)
	if err != nil {
		return err
	}
	inst.Name = sc.Name
	sc.Instance = inst
	return nil
}

func coord(rc []int) core.Coord {
	return core.Coord{Row: rc[0], Col: rc[1]}
}

func coords(rcs [][]int) []core.Coord {
	out := make([]core.Coord, len(rcs))
	for i, rc := range rcs {
		out[i] = coord(rc)
	}
	return out
}
