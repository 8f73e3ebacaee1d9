package integration_tests

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/specialistvlad/bibixgo/internal/testutil"
	"github.com/specialistvlad/bibixgo/internal/value"
	"github.com/specialistvlad/bibixgo/modules/prelude"
)

const libScript = `
var who: string = "world"
greet = "hello, $who"
`

func TestNameResolution(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name   string
		files  map[string]string
		target string
		want   value.Value
	}{
		{
			name:   "local name shadows the prelude",
			files:  map[string]string{"build.bbx": "glob = \"mine\"\nx = glob"},
			target: "x",
			want:   value.String("mine"),
		},
		{
			name:   "local name shadows a preloaded plugin",
			files:  map[string]string{"build.bbx": "kit = \"local\"\nx = kit"},
			target: "x",
			want:   value.String("local"),
		},
		{
			name:   "inner namespace shadows the outer scope",
			files:  map[string]string{"build.bbx": "a = \"outer\"\nnamespace n { a = \"inner\"\n b = a }\nx = n.b\ny = a"},
			target: "x",
			want:   value.String("inner"),
		},
		{
			name:   "enclosing scope is visible from a namespace",
			files:  map[string]string{"build.bbx": "a = \"outer\"\nnamespace n { b = a }\nx = n.b"},
			target: "x",
			want:   value.String("outer"),
		},
		{
			name:   "variable default",
			files:  map[string]string{"build.bbx": "var who: string = \"me\"\nx = who"},
			target: "x",
			want:   value.String("me"),
		},
		{
			name: "imported project",
			files: map[string]string{
				"build.bbx":     "import \"lib\" as lib\nx = lib.greet",
				"lib/build.bbx": libScript,
			},
			target: "x",
			want:   value.String("hello, world"),
		},
		{
			name: "variable redefined for an import",
			files: map[string]string{
				"build.bbx":     "import \"lib\" as lib\nvar lib.who = \"bibix\"\nx = lib.greet",
				"lib/build.bbx": libScript,
			},
			target: "x",
			want:   value.String("hello, bibix"),
		},
		{
			name: "from import",
			files: map[string]string{
				"build.bbx":     "import \"lib\" as lib\nfrom lib import greet\nx = greet",
				"lib/build.bbx": libScript,
			},
			target: "x",
			want:   value.String("hello, world"),
		},
		{
			name: "import of a project value",
			files: map[string]string{
				"build.bbx":     "import BibixProject(projectRoot: \"lib\", scriptName: \"other.bbx\") as lib\nx = lib.greet",
				"lib/other.bbx": libScript,
				"lib/build.bbx": "greet = \"wrong script\"",
			},
			target: "x",
			want:   value.String("hello, world"),
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			// --- Act ---
			result := testutil.RunBuild(t, tc.files, []string{tc.target}, testutil.NewKitModule())

			// --- Assert ---
			testutil.AssertBuilt(t, result, tc.target, tc.want)
		})
	}
}

// TestNameResolution_ImportInstancesAreIndependent validates that two
// imports of one project with different variable redefinitions evaluate
// separately.
func TestNameResolution_ImportInstancesAreIndependent(t *testing.T) {
	t.Parallel()
	// --- Arrange ---
	files := map[string]string{
		"build.bbx": `
import "lib" as a
import "lib" as b
var a.who = "A", b.who = "B"
x = a.greet
y = b.greet
`,
		"lib/build.bbx": libScript,
	}

	// --- Act ---
	result := testutil.RunBuild(t, files, []string{"x", "y"}, testutil.NewKitModule())

	// --- Assert ---
	testutil.AssertBuilt(t, result, "x", value.String("hello, A"))
	testutil.AssertBuilt(t, result, "y", value.String("hello, B"))
}

func TestNameResolution_PreludeEnv(t *testing.T) {
	t.Parallel()
	// --- Arrange ---
	files := map[string]string{"build.bbx": `x = env`}

	// --- Act ---
	result := testutil.RunBuild(t, files, []string{"x"})

	// --- Assert ---
	require.NoError(t, result.Err)
	r := result.Results["x"]
	require.NoError(t, r.Err)
	inst, ok := r.Value.(value.ClassInstance)
	require.True(t, ok, "env should be a class instance, got %s", r.Value)
	assert.Equal(t, prelude.PackageName, inst.Package)
	assert.Equal(t, "Env", inst.Class)
	assert.IsType(t, value.Enum{}, inst.Fields["os"])
	assert.IsType(t, value.Enum{}, inst.Fields["arch"])
}

func TestNameResolution_PreludeGlob(t *testing.T) {
	t.Parallel()
	// --- Arrange ---
	files := map[string]string{
		"build.bbx":  `srcs = glob("src/*.c")`,
		"src/a.c":    "a",
		"src/b.c":    "b",
		"src/skip.h": "h",
	}

	// --- Act ---
	result := testutil.RunBuild(t, files, []string{"srcs"})

	// --- Assert ---
	want := value.NewSet(
		value.File(filepath.Join(result.Dir, "src", "a.c")),
		value.File(filepath.Join(result.Dir, "src", "b.c")),
	)
	testutil.AssertBuilt(t, result, "srcs", want)
}

func TestNameResolution_UnknownName(t *testing.T) {
	t.Parallel()
	// --- Act ---
	result := testutil.RunBuild(t, map[string]string{"build.bbx": `x = "a"`}, []string{"nope"})

	// --- Assert ---
	testutil.AssertFailed(t, result, "nope", "name not found: nope")
}
