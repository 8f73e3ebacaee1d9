package prelude

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/specialistvlad/bibixgo/internal/plugin"
	"github.com/specialistvlad/bibixgo/internal/value"
)

// Glob matches one or more doublestar patterns against the files under the
// caller's base directory.
func Glob(ctx context.Context, bc *plugin.BuildContext) (plugin.Return, error) {
	arg, err := bc.Arg("pattern")
	if err != nil {
		return nil, err
	}
	var patterns []string
	switch p := arg.(type) {
	case value.String:
		patterns = []string{string(p)}
	case value.Set:
		for _, v := range p.Values {
			s, ok := v.(value.String)
			if !ok {
				return nil, fmt.Errorf("glob pattern %s is not a string", v)
			}
			patterns = append(patterns, string(s))
		}
	default:
		return nil, fmt.Errorf("unsupported glob pattern %s", arg)
	}

	base := bc.CallerBaseDirectory
	if base == "" {
		base = bc.MainBaseDirectory
	}
	matched, err := globFiles(base, patterns)
	if err != nil {
		return nil, err
	}
	bc.Logger.Debug("Glob matched.", "patterns", patterns, "files", len(matched))

	files := make([]value.Value, 0, len(matched))
	for _, f := range matched {
		files = append(files, value.File(f))
	}
	return plugin.TransientValue(value.NewSet(files...))
}

// globFiles returns the sorted absolute paths of the regular files matching
// any of the patterns. Relative patterns are matched below base.
func globFiles(base string, patterns []string) ([]string, error) {
	seen := map[string]bool{}
	var out []string
	for _, pattern := range patterns {
		var matches []string
		var err error
		if filepath.IsAbs(pattern) {
			matches, err = doublestar.FilepathGlob(pattern, doublestar.WithFilesOnly())
		} else {
			matches, err = doublestar.Glob(os.DirFS(base), filepath.ToSlash(pattern), doublestar.WithFilesOnly())
			for i, m := range matches {
				matches[i] = filepath.Join(base, filepath.FromSlash(m))
			}
		}
		if err != nil {
			return nil, fmt.Errorf("invalid glob pattern %q: %w", pattern, err)
		}
		for _, m := range matches {
			if !seen[m] {
				seen[m] = true
				out = append(out, m)
			}
		}
	}
	sort.Strings(out)
	return out, nil
}
