package cli

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// Config is the runner configuration assembled from flags.
type Config struct {
	ScenarioPath string
	MaxSteps     int // 0 keeps the scenario's budget
	OutPath      string
	JSONPath     string
	MetricsPath  string
	MAPD         bool
	Warm         bool
	LogFormat    string
	LogLevel     string
}

// Parse processes command-line arguments. It returns a populated Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*Config, bool, error) {
	slog.Debug("CLI parser started.")
	flagSet := flag.NewFlagSet("pibt", flag.ContinueOnError)
	flagSet.SetOutput(output)

	flagSet.Usage = func() {
		fmt.Fprint(output, `
pibt - multi-agent path finding with priority inheritance and backtracking.

Usage:
  pibt [options] [SCENARIO]

Arguments:
  SCENARIO
    Path to an .hcl scenario file.

Options:
`)
		flagSet.PrintDefaults()
	}

	scenarioFlag := flagSet.String("scenario", "", "Path to the scenario file.")
	sFlag := flagSet.String("s", "", "Path to the scenario file (shorthand).")
	maxStepsFlag := flagSet.Int("max-steps", 0, "Override the scenario's step budget. 0 keeps it.")
	outFlag := flagSet.String("out", "", "Write the solution in visualizer text format to this file.")
	jsonFlag := flagSet.String("json", "", "Write the solution as JSON to this file.")
	metricsFlag := flagSet.String("metrics", "", "Write MAPD simulation metrics as JSON to this file.")
	mapdFlag := flagSet.Bool("mapd", false, "Run the scenario's mapd block even when it also lists agents.")
	warmFlag := flagSet.Bool("warm", false, "Warm distance oracles in parallel before the first step.")
	logFormatFlag := flagSet.String("log-format", "text", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	path := ""
	if *scenarioFlag != "" {
		path = *scenarioFlag
	} else if *sFlag != "" {
		path = *sFlag
	} else if flagSet.NArg() > 0 {
		path = flagSet.Arg(0)
	}

	if path == "" {
		slog.Debug("No scenario path provided, printing usage and exiting.")
		flagSet.Usage()
		return nil, true, nil
	}

	if *maxStepsFlag < 0 {
		return nil, false, &ExitError{Code: 2, Message: "invalid max-steps: must not be negative"}
	}

	logFormat := strings.ToLower(*logFormatFlag)
	if logFormat != "text" && logFormat != "json" {
		return nil, false, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}

	logLevel := strings.ToLower(*logLevelFlag)
	switch logLevel {
	case "debug", "info", "warn", "error":
	default:
		return nil, false, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}

	config := &Config{
		ScenarioPath: path,
		MaxSteps:     *maxStepsFlag,
		OutPath:      *outFlag,
		JSONPath:     *jsonFlag,
		MetricsPath:  *metricsFlag,
		MAPD:         *mapdFlag,
		Warm:         *warmFlag,
		LogFormat:    logFormat,
		LogLevel:     logLevel,
	}
	slog.Debug("CLI parser finished successfully.", "config", config)
	return config, false, nil
}
