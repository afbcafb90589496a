// Command pibt solves a scenario with PIBT, validates the result, and
// exports the solution.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/elektrokombinacija/mapf-pibt/internal/algo"
	"github.com/elektrokombinacija/mapf-pibt/internal/cli"
	"github.com/elektrokombinacija/mapf-pibt/internal/core"
	"github.com/elektrokombinacija/mapf-pibt/internal/ctxlog"
	"github.com/elektrokombinacija/mapf-pibt/internal/scenario"
	"github.com/elektrokombinacija/mapf-pibt/internal/sim"
)

func main() {
	// Use a minimal logger until the full one is configured.
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	if err := run(context.Background(), os.Stdout, os.Stderr, os.Args[1:]); err != nil {
		var exitErr *cli.ExitError
		if errors.As(err, &exitErr) {
			fmt.Fprintln(os.Stderr, exitErr.Message)
			os.Exit(exitErr.Code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// run holds the runner logic; outW receives the report, logW the logs.
func run(ctx context.Context, outW, logW io.Writer, args []string) error {
	cfg, shouldExit, err := cli.Parse(args, outW)
	if err != nil {
		return err
	}
	if shouldExit {
		return nil
	}

	logger := ctxlog.New(cfg.LogLevel, cfg.LogFormat, logW)
	ctx = ctxlog.WithLogger(ctx, logger)

	sc, err := scenario.Load(ctx, cfg.ScenarioPath)
	if err != nil {
		return err
	}

	if sc.MAPD != nil && (cfg.MAPD || sc.Instance == nil) {
		return runMAPD(ctx, outW, cfg, sc)
	}
	return runOneShot(ctx, outW, cfg, sc)
}

func runOneShot(ctx context.Context, outW io.Writer, cfg *cli.Config, sc *scenario.Scenario) error {
	runCfg := sc.Config
	if cfg.MaxSteps > 0 {
		runCfg.MaxSteps = cfg.MaxSteps
	}
	solver := &algo.PIBT{Config: runCfg, Warm: cfg.Warm}

	res, err := solver.Solve(ctx, sc.Instance)
	if err != nil {
		return fmt.Errorf("%s: %w", solver.Name(), err)
	}
	if err := algo.CheckSolution(sc.Instance, res.Solution, res.Complete); err != nil {
		return err
	}

	status := "complete"
	if !res.Complete {
		status = "incomplete (step budget exhausted)"
	}
	fmt.Fprintf(outW, "scenario:     %s\n", sc.Name)
	fmt.Fprintf(outW, "solver:       %s (tie-break %s)\n", solver.Name(), runCfg.TieBreak)
	fmt.Fprintf(outW, "agents:       %d\n", sc.Instance.NumAgents())
	fmt.Fprintf(outW, "status:       %s\n", status)
	fmt.Fprintf(outW, "steps:        %d\n", res.Steps)
	fmt.Fprintf(outW, "makespan:     %d\n", res.Makespan)
	fmt.Fprintf(outW, "sum of costs: %d\n", res.SumOfCosts)
	fmt.Fprintf(outW, "elapsed:      %v\n", res.Elapsed)

	return writeSolution(cfg, res.Solution)
}

func runMAPD(ctx context.Context, outW io.Writer, cfg *cli.Config, sc *scenario.Scenario) error {
	simCfg := *sc.MAPD
	if cfg.MaxSteps > 0 {
		simCfg.Ticks = cfg.MaxSteps
	}
	simulator, err := sim.NewSimulator(sc.Grid, simCfg)
	if err != nil {
		return err
	}
	m, err := simulator.Run(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(outW, "scenario:         %s (mapd)\n", sc.Name)
	fmt.Fprintf(outW, "agents:           %d\n", simCfg.Agents)
	fmt.Fprintf(outW, "ticks:            %d\n", m.Ticks)
	fmt.Fprintf(outW, "tasks created:    %d\n", m.TasksCreated)
	fmt.Fprintf(outW, "tasks completed:  %d\n", m.TasksCompleted)
	fmt.Fprintf(outW, "tasks pending:    %d\n", m.TasksPending)
	fmt.Fprintf(outW, "avg service time: %.2f\n", m.AvgServiceTime)
	fmt.Fprintf(outW, "throughput:       %.3f\n", m.Throughput)

	if cfg.MetricsPath != "" {
		if err := simulator.ExportMetrics(cfg.MetricsPath); err != nil {
			return fmt.Errorf("write metrics: %w", err)
		}
	}
	return writeSolution(cfg, simulator.Solution())
}

func writeSolution(cfg *cli.Config, sol *core.Solution) error {
	if cfg.OutPath != "" {
		if err := writeFile(cfg.OutPath, func(w io.Writer) error {
			_, err := sol.WriteTo(w)
			return err
		}); err != nil {
			return fmt.Errorf("write solution: %w", err)
		}
	}
	if cfg.JSONPath != "" {
		if err := writeFile(cfg.JSONPath, func(w io.Writer) error {
			enc := json.NewEncoder(w)
			return enc.Encode(sol)
		}); err != nil {
			return fmt.Errorf("write solution json: %w", err)
		}
	}
	return nil
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
