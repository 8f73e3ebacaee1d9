package repo

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/specialistvlad/bibixgo/internal/config"
	"github.com/specialistvlad/bibixgo/internal/ctxlog"
	"github.com/specialistvlad/bibixgo/internal/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testContext() context.Context {
	return ctxlog.WithLogger(context.Background(), slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func openRepo(t *testing.T, dir string, reuse *time.Duration) *Repo {
	t.Helper()
	r, err := Open(testContext(), dir, &config.Run{MaxThreads: 1, MinLogLevel: slog.LevelInfo, TargetResultReuse: reuse})
	require.NoError(t, err)
	t.Cleanup(func() { r.Close() })
	return r
}

func durationPtr(d time.Duration) *time.Duration { return &d }

func TestOpen_CreatesLayout(t *testing.T) {
	dir := t.TempDir()
	r := openRepo(t, dir, nil)

	for _, sub := range []string{"objects", "outputs", "shared"} {
		info, err := os.Stat(filepath.Join(dir, BuildDirName, sub))
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}
	assert.NotEmpty(t, r.RunID)

	shared, err := r.SharedDirectory("git")
	require.NoError(t, err)
	assert.DirExists(t, shared)
}

func TestTargetLifecycle_SameRun(t *testing.T) {
	// --- Arrange ---
	ctx := testContext()
	r := openRepo(t, t.TempDir(), nil)

	// --- Act ---
	first, err := r.TargetStarted(ctx, "t1", []byte("data"), "h1", "o1")
	require.NoError(t, err)
	require.NoError(t, r.TargetSucceeded(ctx, "t1", value.String("out"), false))
	second, err := r.TargetStarted(ctx, "t1", []byte("data"), "h1", "o1")
	require.NoError(t, err)

	// --- Assert ---
	assert.False(t, first.Reused)
	assert.True(t, first.HashChanged)
	assert.Nil(t, first.Prev)

	assert.True(t, second.Reused, "results of the same run are always reused")
	require.NotNil(t, second.Prev)
	assert.Equal(t, value.String("out"), second.Prev.Value)

	data, err := r.TargetIDData(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, []byte("data"), data)
}

func TestTargetStarted_ReuseAcrossRuns(t *testing.T) {
	testCases := []struct {
		name        string
		reuse       *time.Duration
		age         time.Duration
		inputHash   string
		failAfter   bool
		transient   bool
		wantReused  bool
		wantChanged bool
	}{
		{name: "no reuse configured", reuse: nil, inputHash: "h1", wantReused: false, wantChanged: false},
		{name: "young result", reuse: durationPtr(time.Hour), age: time.Minute, inputHash: "h1", wantReused: true},
		{name: "old result", reuse: durationPtr(time.Hour), age: 2 * time.Hour, inputHash: "h1", wantReused: false},
		{name: "negative window", reuse: durationPtr(-time.Second), age: 1000 * time.Hour, inputHash: "h1", wantReused: true},
		{name: "inputs changed", reuse: durationPtr(-time.Second), inputHash: "h2", wantReused: false, wantChanged: true},
		{name: "latest attempt failed", reuse: durationPtr(-time.Second), inputHash: "h1", failAfter: true, wantReused: false},
		{name: "transient result", reuse: durationPtr(-time.Second), inputHash: "h1", transient: true, wantReused: false},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// --- Arrange ---
			ctx := testContext()
			dir := t.TempDir()
			built := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

			prevRun := openRepo(t, dir, tc.reuse)
			prevRun.now = func() time.Time { return built }
			_, err := prevRun.TargetStarted(ctx, "t1", []byte("d"), "h1", "o1")
			require.NoError(t, err)
			require.NoError(t, prevRun.TargetSucceeded(ctx, "t1", value.String("old"), tc.transient))
			if tc.failAfter {
				require.NoError(t, prevRun.TargetFailed(ctx, "t1", errors.New("boom")))
			}
			require.NoError(t, prevRun.Close())

			// --- Act ---
			next := openRepo(t, dir, tc.reuse)
			next.now = func() time.Time { return built.Add(tc.age) }
			start, err := next.TargetStarted(ctx, "t1", []byte("d"), tc.inputHash, "o2")

			// --- Assert ---
			require.NoError(t, err)
			assert.Equal(t, tc.wantReused, start.Reused)
			assert.Equal(t, tc.wantChanged, start.HashChanged)
			require.NotNil(t, start.Prev, "a failed attempt keeps the last successful result")
			assert.Equal(t, value.String("old"), start.Prev.Value)
			assert.Equal(t, tc.transient, start.Prev.Transient)
		})
	}
}

func TestTargetStarted_TransientReusedWithinRun(t *testing.T) {
	// --- Arrange ---
	ctx := testContext()
	r := openRepo(t, t.TempDir(), durationPtr(-time.Second))
	_, err := r.TargetStarted(ctx, "t1", []byte("d"), "h1", "o1")
	require.NoError(t, err)
	require.NoError(t, r.TargetSucceeded(ctx, "t1", value.String("now"), true))

	// --- Act ---
	start, err := r.TargetStarted(ctx, "t1", []byte("d"), "h1", "o1")

	// --- Assert ---
	require.NoError(t, err)
	assert.True(t, start.Reused)
}

func TestLinkOutputName(t *testing.T) {
	ctx := testContext()
	r := openRepo(t, t.TempDir(), nil)
	require.NoError(t, os.MkdirAll(r.ObjectDirectory("abc"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(r.ObjectDirectory("abc"), "out.txt"), []byte("x"), 0o644))

	require.NoError(t, r.LinkOutputName(ctx, "app", "abc"))
	// Relinking replaces the previous link.
	require.NoError(t, r.LinkOutputName(ctx, "app", "abc"))

	content, err := os.ReadFile(filepath.Join(r.BuildDir, "outputs", "app", "out.txt"))
	require.NoError(t, err)
	assert.Equal(t, "x", string(content))

	id, ok, err := r.OutputTarget(ctx, "app")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "abc", id)
}

func TestProgressLogger_FiltersByLevel(t *testing.T) {
	ctx := testContext()
	r := openRepo(t, t.TempDir(), nil)
	logger := r.ProgressLogger(ctx, "t1")

	logger.Debug("hidden")
	logger.Info("Compiling.", "files", 3)
	logger.Error("Failed.")

	lines, err := r.Logs(ctx, "t1")
	require.NoError(t, err)
	require.Len(t, lines, 2)
	assert.Equal(t, "Compiling. files=3", lines[0].Message)
	assert.Equal(t, slog.LevelError, lines[1].Level)
	assert.Equal(t, r.RunID, lines[0].RunID)
}

func TestDirectoryLocker_Serializes(t *testing.T) {
	l := NewDirectoryLocker()
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		inside  int
		maxSeen int
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := l.WithLock("/tmp/shared/./x", func() error {
				mu.Lock()
				inside++
				if inside > maxSeen {
					maxSeen = inside
				}
				mu.Unlock()
				time.Sleep(time.Millisecond)
				mu.Lock()
				inside--
				mu.Unlock()
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, maxSeen)
}
