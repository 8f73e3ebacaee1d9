package integration_tests

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/specialistvlad/bibixgo/internal/testutil"
	"github.com/specialistvlad/bibixgo/internal/value"
)

func TestActions(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name         string
		script       string
		wantRecorded []string
	}{
		{
			name:         "single call",
			script:       `action hello = kit.record(message: "hi")`,
			wantRecorded: []string{"hi"},
		},
		{
			name:         "statements run in order with let bindings",
			script:       `action a { let v = kit.echo(value: "first"); kit.record(message: v); kit.record(message: "second") }`,
			wantRecorded: []string{"first", "second"},
		},
		{
			name:         "action calling another action",
			script:       "action inner = kit.record(message: \"inner\")\naction a { inner(); kit.record(message: \"outer\") }",
			wantRecorded: []string{"inner", "outer"},
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			// --- Arrange ---
			kit := testutil.NewKitModule()
			name := "a"
			if tc.name == "single call" {
				name = "hello"
			}

			// --- Act ---
			result := testutil.RunBuild(t, map[string]string{"build.bbx": tc.script}, []string{name}, kit)

			// --- Assert ---
			testutil.AssertBuilt(t, result, name, value.None)
			assert.Equal(t, tc.wantRecorded, kit.Recorded())
		})
	}
}

func TestActions_FilePlugin(t *testing.T) {
	t.Parallel()
	// --- Arrange ---
	files := map[string]string{
		"build.bbx": `
action dist {
  file.makeDirectory(dest: "dist")
  file.copy(src: glob("src/*.txt"), dest: "dist")
}
`,
		"src/a.txt": "a",
		"src/b.txt": "b",
	}

	// --- Act ---
	result := testutil.RunBuild(t, files, []string{"dist"})

	// --- Assert ---
	testutil.AssertBuilt(t, result, "dist", value.None)
	for _, name := range []string{"a.txt", "b.txt"} {
		b, err := os.ReadFile(filepath.Join(result.Dir, "dist", name))
		require.NoError(t, err)
		assert.Equal(t, name[:1], string(b))
	}
}

func TestActions_ActionRuleIsNotAValue(t *testing.T) {
	t.Parallel()
	// --- Act ---
	result := testutil.RunBuild(t, map[string]string{"build.bbx": `x = kit.record(message: "m")`}, []string{"x"}, testutil.NewKitModule())

	// --- Assert ---
	testutil.AssertFailed(t, result, "x", "action")
}
