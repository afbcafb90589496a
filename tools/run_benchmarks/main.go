// Package main runs PIBT over a directory of scenario files and collects
// metrics as CSV.
package main

import (
	"context"
	"encoding/csv"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/elektrokombinacija/mapf-pibt/internal/algo"
	"github.com/elektrokombinacija/mapf-pibt/internal/ctxlog"
	"github.com/elektrokombinacija/mapf-pibt/internal/scenario"
)

// BenchmarkResult stores results from a single run.
type BenchmarkResult struct {
	Timestamp  string
	CommitHash string
	GoVersion  string
	OS         string
	Arch       string
	Scenario   string
	NumAgents  int
	GridSize   string
	TieBreak   string
	RuntimeMs  float64
	Success    bool // run finished without error and passed validation
	Complete   bool // every agent reached its goal
	Steps      int
	Makespan   int
	SumOfCosts int
	Error      string
}

// TieBreakMetrics holds per-rule aggregated metrics.
type TieBreakMetrics struct {
	Name           string
	TotalRuns      int
	Completed      int
	TotalRuntimeMs float64
	TotalMakespan  int
	TotalSOC       int
}

type runEnv struct {
	commit    string
	timestamp string
}

func getGitCommit() string {
	cmd := exec.Command("git", "rev-parse", "--short", "HEAD")
	output, err := cmd.Output()
	if err != nil {
		return "unknown"
	}
	return strings.TrimSpace(string(output))
}

// runScenario solves sc once with the given tie-break rule.
func runScenario(ctx context.Context, env runEnv, name string, sc *scenario.Scenario, tie algo.TieBreak, timeout time.Duration) *BenchmarkResult {
	result := &BenchmarkResult{
		Timestamp:  env.timestamp,
		CommitHash: env.commit,
		GoVersion:  runtime.Version(),
		OS:         runtime.GOOS,
		Arch:       runtime.GOARCH,
		Scenario:   name,
		NumAgents:  sc.Instance.NumAgents(),
		GridSize:   fmt.Sprintf("%dx%d", sc.Grid.Width(), sc.Grid.Height()),
		TieBreak:   tie.String(),
	}

	cfg := sc.Config
	cfg.TieBreak = tie

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	started := time.Now()
	res, err := algo.NewPIBT(cfg).Solve(ctx, sc.Instance)
	result.RuntimeMs = float64(time.Since(started).Microseconds()) / 1000.0
	if err == nil {
		err = algo.CheckSolution(sc.Instance, res.Solution, res.Complete)
	}
	if err != nil {
		result.Error = err.Error()
		return result
	}

	result.Success = true
	result.Complete = res.Complete
	result.Steps = res.Steps
	result.Makespan = res.Makespan
	result.SumOfCosts = res.SumOfCosts
	return result
}

var csvHeader = []string{
	"timestamp", "commit_hash", "go_version", "os", "arch",
	"scenario", "num_agents", "grid_size", "tie_break",
	"runtime_ms", "success", "complete", "steps", "makespan", "sum_of_costs", "error",
}

func writeCSV(w io.Writer, results []*BenchmarkResult) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(csvHeader); err != nil {
		return err
	}
	for _, r := range results {
		row := []string{
			r.Timestamp, r.CommitHash, r.GoVersion, r.OS, r.Arch,
			r.Scenario, strconv.Itoa(r.NumAgents), r.GridSize, r.TieBreak,
			fmt.Sprintf("%.3f", r.RuntimeMs), strconv.FormatBool(r.Success), strconv.FormatBool(r.Complete),
			strconv.Itoa(r.Steps), strconv.Itoa(r.Makespan), strconv.Itoa(r.SumOfCosts), r.Error,
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func summarize(results []*BenchmarkResult) []*TieBreakMetrics {
	metrics := make(map[string]*TieBreakMetrics)
	for _, r := range results {
		m, ok := metrics[r.TieBreak]
		if !ok {
			m = &TieBreakMetrics{Name: r.TieBreak}
			metrics[r.TieBreak] = m
		}
		m.TotalRuns++
		if r.Success && r.Complete {
			m.Completed++
			m.TotalRuntimeMs += r.RuntimeMs
			m.TotalMakespan += r.Makespan
			m.TotalSOC += r.SumOfCosts
		}
	}

	out := make([]*TieBreakMetrics, 0, len(metrics))
	for _, m := range metrics {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func printSummary(w io.Writer, metrics []*TieBreakMetrics) {
	fmt.Fprintln(w, "\n=== BENCHMARK SUMMARY ===")
	fmt.Fprintf(w, "%-10s %6s %9s %12s %12s %12s\n",
		"TieBreak", "Runs", "Complete", "Avg Time(ms)", "AvgMakespan", "AvgSOC")
	fmt.Fprintln(w, strings.Repeat("-", 66))

	for _, m := range metrics {
		var avgTime, avgMakespan, avgSOC float64
		if m.Completed > 0 {
			n := float64(m.Completed)
			avgTime = m.TotalRuntimeMs / n
			avgMakespan = float64(m.TotalMakespan) / n
			avgSOC = float64(m.TotalSOC) / n
		}
		fmt.Fprintf(w, "%-10s %6d %9d %12.2f %12.2f %12.2f\n",
			m.Name, m.TotalRuns, m.Completed, avgTime, avgMakespan, avgSOC)
	}
}

func parseTieBreaks(s string) ([]algo.TieBreak, error) {
	var out []algo.TieBreak
	for _, name := range strings.Split(s, ",") {
		tb, err := algo.ParseTieBreak(strings.TrimSpace(name))
		if err != nil {
			return nil, err
		}
		out = append(out, tb)
	}
	return out, nil
}

// runAll loads every scenario in files and runs each tie-break rule on it,
// at most jobs runs at a time. Results keep file then rule order.
func runAll(ctx context.Context, env runEnv, files []string, ties []algo.TieBreak, timeout time.Duration, jobs int) ([]*BenchmarkResult, error) {
	logger := ctxlog.FromContext(ctx)

	type job struct {
		name string
		sc   *scenario.Scenario
	}
	var loaded []job
	for _, file := range files {
		sc, err := scenario.Load(ctx, file)
		if err != nil {
			logger.Warn("Skipping scenario", "file", file, "error", err)
			continue
		}
		if sc.Instance == nil {
			logger.Warn("Skipping scenario without agents", "file", file)
			continue
		}
		loaded = append(loaded, job{name: strings.TrimSuffix(filepath.Base(file), ".hcl"), sc: sc})
	}
	if len(loaded) == 0 {
		return nil, errors.New("no runnable scenarios")
	}

	results := make([]*BenchmarkResult, len(loaded)*len(ties))
	var mu sync.Mutex
	done := 0

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(jobs)
	for i, j := range loaded {
		for k, tie := range ties {
			i, j, k, tie := i, j, k, tie
			g.Go(func() error {
				r := runScenario(gctx, env, j.name, j.sc, tie, timeout)
				results[i*len(ties)+k] = r

				mu.Lock()
				done++
				logger.Info("Run finished", "progress", fmt.Sprintf("%d/%d", done, len(results)),
					"scenario", r.Scenario, "tie_break", r.TieBreak, "complete", r.Complete, "runtime_ms", r.RuntimeMs)
				mu.Unlock()
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, ctx.Err()
}

func main() {
	inputDir := flag.String("input", "testdata", "Directory containing .hcl scenario files")
	outputFile := flag.String("output", "evidence/benchmark_results.csv", "Output CSV file")
	timeout := flag.Duration("timeout", 5*time.Minute, "Timeout per run")
	tieFilter := flag.String("tie-break", "fixed,seeded", "Tie-break rules to run (comma-separated)")
	jobs := flag.Int("jobs", runtime.NumCPU(), "Runs in parallel")
	verbose := flag.Bool("verbose", false, "Log every run")

	flag.Parse()

	level := "warn"
	if *verbose {
		level = "info"
	}
	ctx := ctxlog.WithLogger(context.Background(), ctxlog.New(level, "text", os.Stderr))

	ties, err := parseTieBreaks(*tieFilter)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing tie-break list: %v\n", err)
		os.Exit(2)
	}

	files, err := filepath.Glob(filepath.Join(*inputDir, "*.hcl"))
	if err != nil || len(files) == 0 {
		fmt.Fprintf(os.Stderr, "No scenario files found in %s\n", *inputDir)
		fmt.Fprintf(os.Stderr, "Run gen_scenarios first: go run ./tools/gen_scenarios -scaling -output testdata\n")
		os.Exit(1)
	}

	if err := os.MkdirAll(filepath.Dir(*outputFile), 0755); err != nil {
		fmt.Fprintf(os.Stderr, "Error creating output directory: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Running benchmarks: %d scenarios x %d tie-break rules\n", len(files), len(ties))
	env := runEnv{commit: getGitCommit(), timestamp: time.Now().UTC().Format(time.RFC3339)}
	results, err := runAll(ctx, env, files, ties, *timeout, max(*jobs, 1))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error running benchmarks: %v\n", err)
		os.Exit(1)
	}

	f, err := os.Create(*outputFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error writing results: %v\n", err)
		os.Exit(1)
	}
	if err := writeCSV(f, results); err != nil {
		f.Close()
		fmt.Fprintf(os.Stderr, "Error writing results: %v\n", err)
		os.Exit(1)
	}
	if err := f.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing results: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Results written to: %s\n", *outputFile)

	printSummary(os.Stdout, summarize(results))
}
