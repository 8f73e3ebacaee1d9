package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/specialistvlad/bibixgo/internal/ctxlog"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/function/stdlib"
)

// FileName is the name of the run configuration file.
const FileName = "config.hcl"

// DefaultFile is written when no configuration file exists.
const DefaultFile = `# Run configuration of bibix builds in this directory.
max_threads         = 8
min_log_level       = "info"

# Reuse successful results of earlier runs whose inputs are unchanged and
# which are younger than the given duration. Left unset, every run invokes
# its rules again.
# target_result_reuse = "1h"
`

// Run is the decoded run configuration.
type Run struct {
	MaxThreads  int
	MinLogLevel slog.Level
	// TargetResultReuse is how long a successful result of a previous run
	// stays reusable. Nil disables reuse across runs and a negative duration
	// reuses results regardless of their age.
	TargetResultReuse *time.Duration
}

// Default returns the configuration described by DefaultFile.
func Default() *Run {
	return &Run{MaxThreads: 8, MinLogLevel: slog.LevelInfo}
}

type hclRunFile struct {
	MaxThreads        *int    `hcl:"max_threads,optional"`
	MinLogLevel       *string `hcl:"min_log_level,optional"`
	TargetResultReuse *string `hcl:"target_result_reuse,optional"`
}

// Load reads the configuration file from dir, writing DefaultFile first
// when there is none.
func Load(ctx context.Context, dir string) (*Run, error) {
	logger := ctxlog.FromContext(ctx)
	path := filepath.Join(dir, FileName)

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		logger.Debug("Writing default run configuration.", "path", path)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create %s: %w", dir, err)
		}
		if err := os.WriteFile(path, []byte(DefaultFile), 0o644); err != nil {
			return nil, fmt.Errorf("failed to write default configuration %s: %w", path, err)
		}
	}

	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration %s: %w", path, err)
	}
	run, err := Parse(src, path)
	if err != nil {
		return nil, err
	}
	logger.Debug("Loaded run configuration.", "path", path, "max_threads", run.MaxThreads, "min_log_level", run.MinLogLevel)
	return run, nil
}

// Parse decodes configuration source. filename is only used in messages.
func Parse(src []byte, filename string) (*Run, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse configuration %s: %w", filename, diags)
	}

	var parsed hclRunFile
	diags = gohcl.DecodeBody(file.Body, EvalContext(), &parsed)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode configuration %s: %w", filename, diags)
	}

	// Attributes left out of the file keep their default values.
	run := Default()
	if parsed.MaxThreads != nil {
		if *parsed.MaxThreads < 1 {
			return nil, fmt.Errorf("%s: max_threads must be at least 1, got %d", filename, *parsed.MaxThreads)
		}
		run.MaxThreads = *parsed.MaxThreads
	}
	if parsed.MinLogLevel != nil {
		level, err := ParseLevel(*parsed.MinLogLevel)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filename, err)
		}
		run.MinLogLevel = level
	}
	if parsed.TargetResultReuse != nil {
		d, err := time.ParseDuration(*parsed.TargetResultReuse)
		if err != nil {
			return nil, fmt.Errorf("%s: invalid target_result_reuse: %w", filename, err)
		}
		run.TargetResultReuse = &d
	}
	return run, nil
}

// ParseLevel maps a level name to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", s)
}

// EvalContext returns the evaluation context of configuration expressions.
func EvalContext() *hcl.EvalContext {
	return &hcl.EvalContext{
		Functions: map[string]function.Function{
			"env":   envFunc,
			"upper": stdlib.UpperFunc,
			"lower": stdlib.LowerFunc,
		},
	}
}

// envFunc returns the value of an environment variable, or "" when unset.
var envFunc = function.New(&function.Spec{
	Params: []function.Parameter{
		{Name: "name", Type: cty.String},
	},
	Type: function.StaticReturnType(cty.String),
	Impl: func(args []cty.Value, retType cty.Type) (cty.Value, error) {
		return cty.StringVal(os.Getenv(args[0].AsString())), nil
	},
})
