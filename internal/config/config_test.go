package config

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/specialistvlad/bibixgo/internal/ctxlog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_WritesDefaults(t *testing.T) {
	// --- Arrange ---
	ctx := ctxlog.WithLogger(context.Background(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	dir := filepath.Join(t.TempDir(), "bbxbuild")

	// --- Act ---
	run, err := Load(ctx, dir)

	// --- Assert ---
	require.NoError(t, err)
	assert.Equal(t, Default(), run)
	assert.Nil(t, run.TargetResultReuse, "the default file must not reuse results across runs")
	written, err := os.ReadFile(filepath.Join(dir, FileName))
	require.NoError(t, err)
	assert.Equal(t, DefaultFile, string(written))
}

func TestParse(t *testing.T) {
	t.Setenv("BIBIX_TEST_LEVEL", "warn")
	hour := time.Hour
	always := -time.Second

	testCases := []struct {
		name    string
		src     string
		want    *Run
		wantErr string
	}{
		{
			name: "empty file disables reuse",
			src:  "",
			want: &Run{MaxThreads: 8, MinLogLevel: slog.LevelInfo},
		},
		{
			name: "all fields",
			src:  "max_threads = 2\nmin_log_level = \"debug\"\ntarget_result_reuse = \"1h\"",
			want: &Run{MaxThreads: 2, MinLogLevel: slog.LevelDebug, TargetResultReuse: &hour},
		},
		{
			name: "negative reuse",
			src:  "target_result_reuse = \"-1s\"",
			want: &Run{MaxThreads: 8, MinLogLevel: slog.LevelInfo, TargetResultReuse: &always},
		},
		{
			name: "functions",
			src:  "min_log_level = lower(upper(env(\"BIBIX_TEST_LEVEL\")))",
			want: &Run{MaxThreads: 8, MinLogLevel: slog.LevelWarn},
		},
		{
			name:    "bad level",
			src:     "min_log_level = \"loud\"",
			wantErr: "invalid log level",
		},
		{
			name:    "bad threads",
			src:     "max_threads = 0",
			wantErr: "max_threads must be at least 1",
		},
		{
			name:    "bad duration",
			src:     "target_result_reuse = \"soon\"",
			wantErr: "invalid target_result_reuse",
		},
		{
			name:    "unknown attribute",
			src:     "colour = \"red\"",
			wantErr: "failed to decode",
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Parse([]byte(tc.src), "config.hcl")
			if tc.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}
