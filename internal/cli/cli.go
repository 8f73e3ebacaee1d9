package cli

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/specialistvlad/bibixgo/internal/app"
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

// Parse processes command-line arguments. It returns a populated Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")
	flagSet := flag.NewFlagSet("bibix", flag.ContinueOnError)
	flagSet.SetOutput(output)

	// Custom usage/help text function
	flagSet.Usage = func() {
		fmt.Fprint(output, `
bibix - A build tool evaluating build scripts as a graph of cached rule invocations.

Usage:
  bibix [options] NAME... [-- ACTION_ARGS...]

Arguments:
  NAME
    A target or action of the main project, e.g. "app.jar" or "deploy".
  ACTION_ARGS
    Arguments passed to the requested actions.

Options:
`)
		flagSet.PrintDefaults()
	}

	projectFlag := flagSet.String("project", "", "Path to the main project directory.")
	pFlag := flagSet.String("p", "", "Path to the main project directory (shorthand).")
	scriptFlag := flagSet.String("script", "build.bbx", "Name of the build script inside the project directory.")
	logFormatFlag := flagSet.String("log-format", "text", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'. Defaults to min_log_level of the run configuration.")
	workersFlag := flagSet.Int("workers", 0, "Number of concurrent evaluation workers. 0 uses max_threads of the run configuration.")
	longRunningFlag := flagSet.Int("long-running-workers", 0, "Number of concurrent rule invocations. 0 uses the number of workers.")
	debugFlag := flagSet.Bool("debug", false, "Enable debug logging.")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	slog.Debug("Arguments parsed successfully.")

	names, actionArgs := splitArgs(flagSet.Args())
	if len(names) == 0 {
		slog.Debug("No names provided, printing usage and exiting.")
		flagSet.Usage()
		return nil, true, nil
	}

	projectDir := "."
	if *projectFlag != "" {
		projectDir = *projectFlag
	} else if *pFlag != "" {
		projectDir = *pFlag
	}
	slog.Debug("Project directory determined.", "path", projectDir)

	logFormat := strings.ToLower(*logFormatFlag)
	if logFormat != "text" && logFormat != "json" {
		return nil, false, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}

	logLevel := strings.ToLower(*logLevelFlag)
	switch logLevel {
	case "", "debug", "info", "warn", "error":
		// valid
	default:
		return nil, false, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}
	slog.Debug("CLI parameter validation complete.")

	config, err := app.NewConfig(app.Config{
		ProjectDir:         projectDir,
		ScriptName:         *scriptFlag,
		LogFormat:          logFormat,
		LogLevel:           logLevel,
		Debug:              *debugFlag,
		Workers:            *workersFlag,
		LongRunningWorkers: *longRunningFlag,
		Names:              names,
		ActionArgs:         actionArgs,
	})
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	slog.Debug("CLI parser finished successfully.", "config", config)
	return config, false, nil
}

// splitArgs separates requested names from the action arguments following
// "--".
func splitArgs(args []string) (names, actionArgs []string) {
	for i, arg := range args {
		if arg == "--" {
			return args[:i], args[i+1:]
		}
	}
	return args, nil
}
