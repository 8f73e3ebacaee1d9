package app

import (
	"context"
	"fmt"
	"os"

	"github.com/specialistvlad/bibixgo/internal/ctxlog"
	"github.com/specialistvlad/bibixgo/internal/graph"
	"github.com/specialistvlad/bibixgo/internal/parser"
	"github.com/specialistvlad/bibixgo/internal/project"
)

// scriptLoader returns the loader building project scripts from disk. Every
// project sees the same preloaded plugins and prelude names.
func scriptLoader(opts graph.Options) project.Loader {
	return func(ctx context.Context, loc project.Location) (*graph.BuildGraph, error) {
		logger := ctxlog.FromContext(ctx)
		path := loc.ScriptPath()
		logger.Debug("Loading build script.", "path", path)

		src, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read build script: %w", err)
		}
		script, err := parser.Parse(string(src))
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
		g, err := graph.Build(script, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to build graph of %s: %w", path, err)
		}
		logger.Debug("Build script loaded.", "path", path, "package", g.PackageName, "targets", len(g.Targets), "rules", len(g.BuildRules))
		return g, nil
	}
}
