package app

import (
	"errors"
	"fmt"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	ProjectDir string // main project directory
	ScriptName string // build script inside ProjectDir, default build.bbx

	// LogLevel overrides min_log_level of the run configuration when set.
	LogLevel  string
	LogFormat string
	// Debug forces debug logging.
	Debug bool

	// Workers and LongRunningWorkers override max_threads when positive.
	Workers            int
	LongRunningWorkers int

	// Names are the targets and actions to build. ActionArgs are passed to
	// actions.
	Names      []string
	ActionArgs []string
}

func NewConfig(cfg Config) (*Config, error) {
	if cfg.ProjectDir == "" {
		return nil, errors.New("ProjectDir is a required configuration field and cannot be empty")
	}
	if cfg.Workers < 0 || cfg.LongRunningWorkers < 0 {
		return nil, fmt.Errorf("worker counts cannot be negative: workers=%d long-running-workers=%d", cfg.Workers, cfg.LongRunningWorkers)
	}
	switch cfg.LogFormat {
	case "", "text", "json":
	default:
		return nil, fmt.Errorf("invalid log format %q", cfg.LogFormat)
	}
	return &cfg, nil
}
