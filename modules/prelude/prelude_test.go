package prelude

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/specialistvlad/bibixgo/internal/ctxlog"
	"github.com/specialistvlad/bibixgo/internal/plugin"
	"github.com/specialistvlad/bibixgo/internal/registry"
	"github.com/specialistvlad/bibixgo/internal/value"
)

type sharedDirs string

func (d sharedDirs) SharedDirectory(name string) (string, error) {
	dir := filepath.Join(string(d), name)
	return dir, os.MkdirAll(dir, 0o755)
}

func newContext(t *testing.T, base string, args map[string]value.Value) *plugin.BuildContext {
	t.Helper()
	return plugin.NewBuildContext(plugin.BuildContext{
		MainBaseDirectory:   base,
		CallerBaseDirectory: base,
		Arguments:           args,
		TargetID:            "0123abcd",
		Logger:              slog.New(slog.NewTextHandler(io.Discard, nil)),
	}, filepath.Join(t.TempDir(), "dest"), sharedDirs(t.TempDir()))
}

func writeFiles(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, name := range names {
		path := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(name), 0o644))
	}
}

func TestRegister_ValidatesAgainstScript(t *testing.T) {
	// --- Arrange ---
	ctx := ctxlog.WithLogger(context.Background(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	r := registry.New()
	(&Module{}).Register(r)

	// --- Act ---
	loaded, err := r.Load(ctx)
	require.NoError(t, err)
	err = r.Validate(ctx, loaded)

	// --- Assert ---
	require.NoError(t, err)
	assert.Equal(t, PackageName, loaded.Prelude.PackageName)
	names := loaded.PreludeNames()
	for _, name := range []string{"glob", "git", "env", "Env", "BibixProject", "Arch", "OS"} {
		assert.True(t, names[name], "prelude should export %s", name)
	}
}

func TestGlob(t *testing.T) {
	base := t.TempDir()
	writeFiles(t, base, "a.c", "b.c", "b.h", "sub/c.c", "sub/deep/d.c")

	testCases := []struct {
		name    string
		pattern value.Value
		want    []string
	}{
		{name: "single level", pattern: value.String("*.c"), want: []string{"a.c", "b.c"}},
		{name: "recursive", pattern: value.String("**/*.c"), want: []string{"a.c", "b.c", "sub/c.c", "sub/deep/d.c"}},
		{
			name:    "set of patterns is deduplicated",
			pattern: value.NewSet(value.String("*.h"), value.String("b.*")),
			want:    []string{"b.c", "b.h"},
		},
		{name: "no match", pattern: value.String("*.go"), want: nil},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// --- Arrange ---
			bc := newContext(t, base, map[string]value.Value{"pattern": tc.pattern})

			// --- Act ---
			ret, err := Glob(context.Background(), bc)

			// --- Assert ---
			require.NoError(t, err)
			got, ok := ret.(plugin.ValueReturn).Value.(value.Set)
			require.True(t, ok)
			var want []value.Value
			for _, name := range tc.want {
				want = append(want, value.File(filepath.Join(base, filepath.FromSlash(name))))
			}
			assert.ElementsMatch(t, want, got.Values)
		})
	}
}

func TestGlob_RejectsNonStringPattern(t *testing.T) {
	// --- Arrange ---
	bc := newContext(t, t.TempDir(), map[string]value.Value{"pattern": value.NewSet(value.Boolean(true))})

	// --- Act ---
	_, err := Glob(context.Background(), bc)

	// --- Assert ---
	require.Error(t, err)
	assert.Contains(t, err.Error(), "is not a string")
}

func TestCurrentEnv(t *testing.T) {
	testCases := []struct {
		goos, goarch string
		wantOS       string
		wantArch     string
	}{
		{"linux", "amd64", "linux", "x86_64"},
		{"darwin", "arm64", "osx", "aarch_64"},
		{"windows", "386", "windows", "x86"},
		{"plan9", "mips", "unknown", "unknown"},
	}

	for _, tc := range testCases {
		t.Run(tc.goos+"/"+tc.goarch, func(t *testing.T) {
			// --- Arrange ---
			bc := newContext(t, t.TempDir(), nil)
			bc.Env = plugin.BuildEnv{OS: tc.goos, Arch: tc.goarch}

			// --- Act ---
			ret, err := CurrentEnv(context.Background(), bc)

			// --- Assert ---
			require.NoError(t, err)
			inst := ret.(plugin.ValueReturn).Value.(value.NClassInstance)
			assert.Equal(t, []string{"Env"}, inst.NameTokens)
			assert.Equal(t, value.String(tc.wantOS), inst.Fields["os"])
			assert.Equal(t, value.String(tc.wantArch), inst.Fields["arch"])
		})
	}
}

func TestRefSpec(t *testing.T) {
	none := value.None
	testCases := []struct {
		name        string
		ref, branch value.Value
		tag         value.Value
		want        plumbing.ReferenceName
		wantErr     bool
	}{
		{name: "default branch", ref: none, branch: none, tag: none, want: "refs/heads/main"},
		{name: "ref", ref: value.String("refs/heads/dev"), branch: none, tag: none, want: "refs/heads/dev"},
		{name: "branch", ref: none, branch: value.String("dev"), tag: none, want: "refs/heads/dev"},
		{name: "tag", ref: none, branch: none, tag: value.String("v1"), want: "refs/tags/v1"},
		{name: "branch and tag", ref: none, branch: value.String("dev"), tag: value.String("v1"), wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// --- Arrange ---
			bc := newContext(t, t.TempDir(), map[string]value.Value{"ref": tc.ref, "branch": tc.branch, "tag": tc.tag})

			// --- Act ---
			got, err := refSpec(bc)

			// --- Assert ---
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

// initOrigin creates a git repository with one commit on master holding
// files, keyed by slash-separated paths.
func initOrigin(t *testing.T, files map[string]string) string {
	t.Helper()
	origin := t.TempDir()
	repo, err := git.PlainInit(origin, false)
	require.NoError(t, err)
	wt, err := repo.Worktree()
	require.NoError(t, err)
	for name, content := range files {
		path := filepath.Join(origin, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
		_, err = wt.Add(name)
		require.NoError(t, err)
	}
	_, err = wt.Commit("init", &git.CommitOptions{
		Author: &object.Signature{Name: "bibix", Email: "bibix@example.com", When: time.Now()},
	})
	require.NoError(t, err)
	return origin
}

func gitArgs(url, path string) map[string]value.Value {
	return map[string]value.Value{
		"url":        value.String(url),
		"ref":        value.None,
		"branch":     value.String("master"),
		"tag":        value.None,
		"path":       value.String(path),
		"scriptName": value.String("build.bbx"),
	}
}

// runGit runs Git including its locked step and returns the project root.
func runGit(t *testing.T, bc *plugin.BuildContext) value.NClassInstance {
	t.Helper()
	ret, err := Git(context.Background(), bc)
	require.NoError(t, err)
	lock, ok := ret.(plugin.WithDirectoryLock)
	require.True(t, ok)
	ret, err = lock.WithLock()
	require.NoError(t, err)
	return ret.(plugin.ValueReturn).Value.(value.NClassInstance)
}

func TestGit_ClonesThenFetches(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git is not installed")
	}

	// --- Arrange ---
	origin := initOrigin(t, map[string]string{"lib/build.bbx": "who = \"lib\""})
	bc := newContext(t, t.TempDir(), gitArgs(origin, "lib"))

	for _, attempt := range []string{"clone", "fetch"} {
		t.Run(attempt, func(t *testing.T) {
			// --- Act ---
			inst := runGit(t, bc)

			// --- Assert ---
			assert.Equal(t, []string{"BibixProject"}, inst.NameTokens)
			assert.Equal(t, value.String("build.bbx"), inst.Fields["scriptName"])
			root := string(inst.Fields["projectRoot"].(value.Directory))
			assert.FileExists(t, filepath.Join(root, "build.bbx"))
		})
	}
}

func TestGit_SeparatesRepositories(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git is not installed")
	}

	// --- Arrange ---
	shared := sharedDirs(t.TempDir())
	originA := initOrigin(t, map[string]string{"build.bbx": "who = \"A\""})
	originB := initOrigin(t, map[string]string{"build.bbx": "who = \"B\""})

	// Neither call has path arguments, so their input hashes agree.
	newGitContext := func(url, targetID string) *plugin.BuildContext {
		return plugin.NewBuildContext(plugin.BuildContext{
			Arguments:       gitArgs(url, "."),
			TargetID:        targetID,
			InputHashString: "no-inputs",
			Logger:          slog.New(slog.NewTextHandler(io.Discard, nil)),
		}, filepath.Join(t.TempDir(), "dest"), shared)
	}

	// --- Act ---
	instA := runGit(t, newGitContext(originA, "aaaa"))
	instB := runGit(t, newGitContext(originB, "bbbb"))

	// --- Assert ---
	rootA := string(instA.Fields["projectRoot"].(value.Directory))
	rootB := string(instB.Fields["projectRoot"].(value.Directory))
	assert.NotEqual(t, rootA, rootB)
	gotA, err := os.ReadFile(filepath.Join(rootA, "build.bbx"))
	require.NoError(t, err)
	gotB, err := os.ReadFile(filepath.Join(rootB, "build.bbx"))
	require.NoError(t, err)
	assert.Equal(t, `who = "A"`, string(gotA))
	assert.Equal(t, `who = "B"`, string(gotB))
}

func TestGit_RequiresTargetID(t *testing.T) {
	// --- Arrange ---
	bc := newContext(t, t.TempDir(), gitArgs("unused", "."))
	bc.TargetID = ""

	// --- Act ---
	_, err := Git(context.Background(), bc)

	// --- Assert ---
	require.Error(t, err)
	assert.Contains(t, err.Error(), "target id")
}
