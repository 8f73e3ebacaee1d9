package testutil

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/specialistvlad/bibixgo/internal/app"
	"github.com/specialistvlad/bibixgo/internal/registry"
	"github.com/specialistvlad/bibixgo/modules/file"
	"github.com/specialistvlad/bibixgo/modules/prelude"
	"github.com/stretchr/testify/require"
)

// SafeBuffer is a thread-safe buffer for capturing log output in tests.
type SafeBuffer struct {
	b  bytes.Buffer
	mu sync.Mutex
}

// Write implements the io.Writer interface for SafeBuffer.
func (b *SafeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.Write(p)
}

// String implements the fmt.Stringer interface for SafeBuffer.
func (b *SafeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.String()
}

// HarnessResult holds the outcomes of a build run.
type HarnessResult struct {
	Dir       string
	LogOutput string
	// Err is a startup error. Per-name failures are in Results.
	Err     error
	Results map[string]app.BuildResult
}

// WriteProject writes files, keyed by slash-separated paths, into a fresh
// temporary directory and returns it.
func WriteProject(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return dir
}

// RunBuild writes a project and builds names in it.
func RunBuild(t *testing.T, files map[string]string, names []string, modules ...registry.Module) *HarnessResult {
	t.Helper()
	return RunBuildIn(context.Background(), t, WriteProject(t, files), names, modules...)
}

// RunBuildIn builds names of the project in dir with debug logging. The
// prelude and file plugins are always registered next to modules.
func RunBuildIn(ctx context.Context, t *testing.T, dir string, names []string, modules ...registry.Module) *HarnessResult {
	t.Helper()

	cfg, err := app.NewConfig(app.Config{
		ProjectDir: dir,
		ScriptName: "build.bbx",
		LogFormat:  "text",
		Debug:      true,
		Workers:    4,
		Names:      names,
	})
	require.NoError(t, err)

	logBuffer := &SafeBuffer{}
	all := append([]registry.Module{&prelude.Module{}, &file.Module{}}, modules...)
	a, err := app.NewApp(ctx, logBuffer, cfg, all...)
	if err != nil {
		return &HarnessResult{Dir: dir, LogOutput: logBuffer.String(), Err: err}
	}
	results := a.Build(ctx, names)
	require.NoError(t, a.Close())

	if os.Getenv("BIBIX_TEST_LOGS") == "true" {
		t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), logBuffer.String())
	}
	return &HarnessResult{Dir: dir, LogOutput: logBuffer.String(), Results: results}
}
