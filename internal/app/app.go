package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"github.com/specialistvlad/bibixgo/internal/config"
	"github.com/specialistvlad/bibixgo/internal/ctxlog"
	"github.com/specialistvlad/bibixgo/internal/evaluator"
	"github.com/specialistvlad/bibixgo/internal/executor"
	"github.com/specialistvlad/bibixgo/internal/graph"
	"github.com/specialistvlad/bibixgo/internal/inmemorystore"
	"github.com/specialistvlad/bibixgo/internal/objhash"
	"github.com/specialistvlad/bibixgo/internal/project"
	"github.com/specialistvlad/bibixgo/internal/registry"
	"github.com/specialistvlad/bibixgo/internal/repo"
	"github.com/specialistvlad/bibixgo/internal/scheduler"
)

// fileHashCacheSize bounds the per-run memo of file content hashes.
const fileHashCacheSize = 16384

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	logger    *slog.Logger
	config    *Config
	run       *config.Run
	registry  *registry.Registry
	graphs    *project.MultiGraph
	repo      *repo.Repo
	executor  *executor.Executor
	scheduler *scheduler.Scheduler
}

// NewApp is the constructor for the main application. It loads the plugin
// scripts, the run configuration and the main build script, and opens the
// repository of the main project. Without modules the core plugins are
// registered.
func NewApp(ctx context.Context, outW io.Writer, appConfig *Config, modules ...registry.Module) (*App, error) {
	loc, err := project.NewLocation(appConfig.ProjectDir, appConfig.ScriptName)
	if err != nil {
		return nil, fmt.Errorf("invalid project location: %w", err)
	}

	// The run configuration decides the log level, so it is read with a
	// bootstrap logger.
	bootstrap := newLogger(slog.LevelWarn, appConfig.LogFormat, outW)
	runCfg, err := config.Load(ctxlog.WithLogger(ctx, bootstrap), filepath.Join(loc.Root, repo.BuildDirName))
	if err != nil {
		return nil, err
	}

	level := runCfg.MinLogLevel
	if appConfig.LogLevel != "" {
		if level, err = config.ParseLevel(appConfig.LogLevel); err != nil {
			return nil, err
		}
	}
	if appConfig.Debug {
		level = slog.LevelDebug
	}
	runCfg.MinLogLevel = level
	logger := newLogger(level, appConfig.LogFormat, outW)
	ctx = ctxlog.WithLogger(ctx, logger)
	logger.Debug("Logger configured successfully.", "level", level)

	reg := registry.New()
	if len(modules) == 0 {
		modules = coreModules
	}
	for _, mod := range modules {
		mod.Register(reg)
	}
	logger.Debug("All Go modules registered.", "count", len(modules))

	loaded, err := reg.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load plugins: %w", err)
	}
	if err := reg.Validate(ctx, loaded); err != nil {
		return nil, err
	}
	logger.Debug("Registry validation passed.")

	load := scriptLoader(graph.Options{
		PreloadedPlugins: loaded.PluginNames(),
		PreludeNames:     loaded.PreludeNames(),
	})
	mainGraph, err := load(ctx, loc)
	if err != nil {
		return nil, err
	}
	graphs, err := project.New(mainGraph, loc, loaded.Prelude, loaded.Plugins, loaded.PluginOrder)
	if err != nil {
		return nil, err
	}

	rp, err := repo.Open(ctx, loc.Root, runCfg)
	if err != nil {
		return nil, err
	}
	files, err := objhash.NewFileHashStore(fileHashCacheSize)
	if err != nil {
		rp.Close()
		return nil, err
	}

	workers := runCfg.MaxThreads
	if appConfig.Workers > 0 {
		workers = appConfig.Workers
	}
	longRunning := workers
	if appConfig.LongRunningWorkers > 0 {
		longRunning = appConfig.LongRunningWorkers
	}
	exec := executor.New(workers, longRunning)
	eval := evaluator.New(evaluator.Config{
		Graphs:   graphs,
		Registry: reg,
		Repo:     rp,
		Files:    files,
		Load:     load,
	})
	logger.Info("Build initialized.", "project", loc.String(), "run_id", rp.RunID, "workers", workers, "long_running_workers", longRunning)

	return &App{
		logger:    logger,
		config:    appConfig,
		run:       runCfg,
		registry:  reg,
		graphs:    graphs,
		repo:      rp,
		executor:  exec,
		scheduler: scheduler.New(eval, exec, inmemorystore.New()),
	}, nil
}

// Registry returns the application's registry. This is primarily for testing.
func (a *App) Registry() *registry.Registry {
	return a.registry
}

// Repo returns the repository of the main project.
func (a *App) Repo() *repo.Repo {
	return a.repo
}

// Close waits for in-flight work and closes the repository.
func (a *App) Close() error {
	a.executor.Wait()
	return a.repo.Close()
}
