package objhash

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/specialistvlad/bibixgo/internal/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleData(args map[string]value.Value) *TargetIDData {
	return &TargetIDData{
		CallerSource: SourceID{Kind: MainSource},
		RuleSource:   SourceID{Kind: PreloadedSource, Name: "file"},
		RuleName:     "compile",
		ImplClass:    "Compile",
		ImplMethod:   "build",
		Args:         args,
	}
}

func TestTargetID_ArgumentOrderIndependent(t *testing.T) {
	// --- Arrange ---
	ab := map[string]value.Value{}
	ab["a"] = value.String("1")
	ab["b"] = value.String("2")
	ba := map[string]value.Value{}
	ba["b"] = value.String("2")
	ba["a"] = value.String("1")

	// --- Act ---
	dataAB, idAB := TargetID(sampleData(ab), "")
	dataBA, idBA := TargetID(sampleData(ba), "")

	// --- Assert ---
	assert.Equal(t, dataAB, dataBA)
	assert.Equal(t, idAB, idBA)
	assert.Len(t, idAB, 64)
}

func TestTargetID_Distinguishes(t *testing.T) {
	base := sampleData(map[string]value.Value{"a": value.String("1")})
	_, baseID := TargetID(base, "")

	testCases := []struct {
		name   string
		mutate func(d *TargetIDData)
	}{
		{"argument value", func(d *TargetIDData) { d.Args = map[string]value.Value{"a": value.String("2")} }},
		{"argument name", func(d *TargetIDData) { d.Args = map[string]value.Value{"b": value.String("1")} }},
		{"caller", func(d *TargetIDData) { d.CallerSource = SourceID{Kind: PreludeSource} }},
		{"rule source", func(d *TargetIDData) { d.RuleSource = SourceID{Kind: PreloadedSource, Name: "other"} }},
		{"method", func(d *TargetIDData) { d.ImplMethod = "other" }},
		{"implementation", func(d *TargetIDData) { d.ImplHash = ValueHash(value.String("impl")) }},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			d := sampleData(map[string]value.Value{"a": value.String("1")})
			tc.mutate(d)
			_, id := TargetID(d, "")
			assert.NotEqual(t, baseID, id)
		})
	}
}

func TestTargetID_PathsRelativeToMain(t *testing.T) {
	dataA, _ := TargetID(sampleData(map[string]value.Value{"src": value.File("/ws/a/src/x.c")}), "/ws/a")
	dataB, _ := TargetID(sampleData(map[string]value.Value{"src": value.File("/home/b/src/x.c")}), "/home/b")
	assert.Equal(t, dataA, dataB)
}

func TestRelativizePaths(t *testing.T) {
	testCases := []struct {
		name string
		in   value.Value
		want value.Value
	}{
		{"inside", value.File("/ws/src/a.c"), value.File("$main/src/a.c")},
		{"outside", value.Directory("/tmp/x"), value.Directory("/tmp/x")},
		{"nested", value.List{Values: []value.Value{value.Path("/ws/p")}}, value.List{Values: []value.Value{value.Path("$main/p")}}},
		{"other values", value.String("/ws/src"), value.String("/ws/src")},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, RelativizePaths(tc.in, "/ws"))
		})
	}
}

func TestFileHashStore_InputHashes(t *testing.T) {
	// --- Arrange ---
	dir := t.TempDir()
	file := filepath.Join(dir, "a.txt")
	require.NoError(t, os.WriteFile(file, []byte("one"), 0o644))
	sub := filepath.Join(dir, "sub")
	require.NoError(t, os.MkdirAll(sub, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(sub, "b.txt"), []byte("two"), 0o644))

	store, err := NewFileHashStore(16)
	require.NoError(t, err)
	args := map[string]value.Value{
		"file":    value.File(file),
		"dirs":    value.NewSet(value.Directory(sub)),
		"missing": value.Path(filepath.Join(dir, "nope")),
		"label":   value.String("ignored"),
	}

	// --- Act ---
	first, err := store.InputHashes(args, dir)
	require.NoError(t, err)
	again, err := store.InputHashes(args, dir)
	require.NoError(t, err)

	// --- Assert ---
	require.Len(t, first, 3)
	assert.Equal(t, first.String(), again.String())
	for _, h := range first {
		if h.Path == "$main/nope" {
			assert.Nil(t, h.Hash)
		} else {
			assert.Len(t, h.Hash, 32)
		}
	}

	// Changing a file inside the directory changes the input hash string.
	require.NoError(t, os.WriteFile(filepath.Join(sub, "b.txt"), []byte("three!"), 0o644))
	changed, err := store.InputHashes(args, dir)
	require.NoError(t, err)
	assert.NotEqual(t, first.String(), changed.String())
	assert.NotEqual(t, ObjectID([]byte("t"), first), ObjectID([]byte("t"), changed))
}

func TestFileHashStore_DirectoryWithLinks(t *testing.T) {
	// --- Arrange ---
	dir := t.TempDir()
	objects := filepath.Join(dir, "objects", "abc")
	require.NoError(t, os.MkdirAll(objects, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(objects, "out.txt"), []byte("x"), 0o644))
	outputs := filepath.Join(dir, "outputs")
	require.NoError(t, os.MkdirAll(outputs, 0o755))
	require.NoError(t, os.Symlink(objects, filepath.Join(outputs, "x")))
	require.NoError(t, os.Symlink(filepath.Join(dir, "gone"), filepath.Join(outputs, "dangling")))

	store, err := NewFileHashStore(16)
	require.NoError(t, err)

	// --- Act ---
	first, err := store.Hash(dir)
	require.NoError(t, err)
	require.NoError(t, os.Remove(filepath.Join(outputs, "x")))
	require.NoError(t, os.Symlink(filepath.Join(dir, "objects"), filepath.Join(outputs, "x")))
	retargeted, err := store.Hash(dir)
	require.NoError(t, err)

	// --- Assert ---
	assert.Len(t, first, 32)
	assert.NotEqual(t, first, retargeted, "changing a link target changes the directory hash")
}
