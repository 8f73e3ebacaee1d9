package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/specialistvlad/bibixgo/internal/ctxlog"
	"github.com/specialistvlad/bibixgo/internal/graph"
	"github.com/specialistvlad/bibixgo/internal/inmemorystore"
	"github.com/specialistvlad/bibixgo/internal/nodeid"
	"github.com/specialistvlad/bibixgo/internal/project"
	"github.com/specialistvlad/bibixgo/internal/scheduler"
	"github.com/specialistvlad/bibixgo/internal/task"
	"github.com/specialistvlad/bibixgo/internal/value"
	"golang.org/x/sync/errgroup"
)

// progressInterval is how often a running build reports its progress.
const progressInterval = 2 * time.Second

// errBuildFinished ends the progress reporter once the scheduler returns.
var errBuildFinished = errors.New("build finished")

// BuildResult is the outcome of one requested name.
type BuildResult struct {
	Value value.Value
	Err   error
}

// Build evaluates names of the main project. Targets yield their value,
// actions run with the configured action arguments and yield none.
func (a *App) Build(ctx context.Context, names []string) map[string]BuildResult {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	results := make(map[string]BuildResult, len(names))

	var tasks []task.Task
	var requested []string
	for _, name := range names {
		t, err := a.taskFor(name)
		if err != nil {
			results[name] = BuildResult{Err: err}
			continue
		}
		tasks = append(tasks, t)
		requested = append(requested, name)
	}
	if len(tasks) == 0 {
		return results
	}

	a.logger.Info("🚀 Starting build...", "names", requested)
	start := time.Now()

	// The scheduler runs on ctx so that a failing reporter never cancels
	// the build. Its sentinel error cancels gctx, which stops the reporter.
	var outcomes []scheduler.Outcome
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		outcomes = a.scheduler.RunTasks(ctx, tasks)
		return errBuildFinished
	})
	g.Go(func() error {
		return a.reportProgress(gctx)
	})
	if err := g.Wait(); !errors.Is(err, errBuildFinished) {
		a.logger.Warn("Build canceled.", "error", err)
	}

	failed := 0
	for i, o := range outcomes {
		r := BuildResult{Err: o.Err}
		if o.Err == nil {
			r.Value, r.Err = resultValue(o.Result)
		}
		if r.Err != nil {
			failed++
		}
		results[requested[i]] = r
	}
	a.logger.Info("🏁 Build finished.", "duration", time.Since(start), "requested", len(requested), "failed", failed)
	return results
}

// taskFor resolves a requested name in the main project.
func (a *App) taskFor(name string) (task.Task, error) {
	main := task.Where{Project: project.MainID}
	parsed, err := nodeid.Parse(name)
	if err != nil {
		return nil, err
	}
	tokens := parsed.Tokens()
	switch res := a.graphs.Main().Graph.Lookup(tokens).(type) {
	case graph.EntryFound:
		switch res.Entry.Kind {
		case graph.TargetEntry:
			return task.EvalTarget{Where: main, Name: res.Entry.Name}, nil
		case graph.ActionEntry:
			return task.ExecAction{Where: main, Name: res.Entry.Name, Args: a.config.ActionArgs}, nil
		}
		return task.EvalName{Where: main, Name: res.Entry.Name}, nil
	case graph.NotFound:
		return nil, &graph.NameNotFoundError{Tokens: tokens}
	}
	return task.EvalName{Where: main, Name: parsed}, nil
}

func resultValue(r task.Result) (value.Value, error) {
	switch r := r.(type) {
	case task.ValueResult:
		return r.Value, nil
	case task.TypeResult:
		return value.TypeValue{Type: r.Type}, nil
	}
	return nil, fmt.Errorf("%s is not a value", task.Describe(r))
}

// reportProgress logs the task counts of the memo until ctx is done and
// returns the reason it stopped.
func (a *App) reportProgress(ctx context.Context) error {
	ticker := time.NewTicker(progressInterval)
	defer ticker.Stop()
	memo := a.scheduler.Memo()
	for {
		select {
		case <-ctx.Done():
			return context.Cause(ctx)
		case <-ticker.C:
			a.logger.Info("Build in progress.",
				"running", memo.Count(inmemorystore.Running),
				"completed", memo.Count(inmemorystore.Completed),
				"failed", memo.Count(inmemorystore.Failed))
		}
	}
}
