// Command pibtvis opens a window that replays a PIBT run on its grid.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"gioui.org/app"
	"gioui.org/unit"

	"github.com/elektrokombinacija/mapf-pibt/internal/ctxlog"
	"github.com/elektrokombinacija/mapf-pibt/internal/scenario"
	"github.com/elektrokombinacija/mapf-pibt/internal/vis"
	"github.com/elektrokombinacija/mapf-pibt/internal/vis/state"
)

func main() {
	var src state.Source
	flag.StringVar(&src.SolutionPath, "solution", "", "Replay a JSON solution instead of solving.")
	flag.BoolVar(&src.Live, "live", false, "Step the scheduler from the window (key N).")
	flag.BoolVar(&src.MAPD, "mapd", false, "Replay the scenario's mapd simulation.")
	flag.IntVar(&src.MaxSteps, "max-steps", 0, "Override the scenario's step budget. 0 keeps it.")
	logLevel := flag.String("log-level", "info", "Logging level: debug, info, warn, error.")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: pibtvis [options] SCENARIO\n\nOptions:\n")
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	logger := ctxlog.New(*logLevel, "text", os.Stderr)
	ctx := ctxlog.WithLogger(context.Background(), logger)

	sc, err := scenario.Load(ctx, flag.Arg(0))
	if err != nil {
		logger.Error("Failed to load scenario", "error", err)
		os.Exit(1)
	}
	st, err := state.FromScenario(ctx, sc, src)
	if err != nil {
		logger.Error("Failed to prepare run", "error", err)
		os.Exit(1)
	}

	title := "PIBT"
	if sc.Name != "" {
		title += " - " + sc.Name
	}

	go func() {
		window := new(app.Window)
		window.Option(
			app.Title(title),
			app.Size(unit.Dp(1200), unit.Dp(800)),
		)

		if err := vis.NewApp(ctx, st).Run(window); err != nil {
			logger.Error("Window closed with error", "error", err)
			os.Exit(1)
		}
		os.Exit(0)
	}()
	app.Main()
}
