package cli

import (
	"bytes"
	"errors"
	"testing"

	"github.com/specialistvlad/bibixgo/internal/app"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	testCases := []struct {
		name       string
		args       []string
		want       *app.Config
		shouldExit bool
		errCode    int
	}{
		{
			name: "names with defaults",
			args: []string{"app", "lib.jar"},
			want: &app.Config{ProjectDir: ".", ScriptName: "build.bbx", LogFormat: "text", Names: []string{"app", "lib.jar"}},
		},
		{
			name: "shorthand project and action args",
			args: []string{"-p", "proj", "-workers", "3", "deploy", "--", "prod", "eu"},
			want: &app.Config{
				ProjectDir: "proj", ScriptName: "build.bbx", LogFormat: "text", Workers: 3,
				Names: []string{"deploy"}, ActionArgs: []string{"prod", "eu"},
			},
		},
		{
			name: "long flags win",
			args: []string{"-project", "a", "-p", "b", "-script", "x.bbx", "-log-format", "JSON", "-debug", "t"},
			want: &app.Config{ProjectDir: "a", ScriptName: "x.bbx", LogFormat: "json", Debug: true, Names: []string{"t"}},
		},
		{
			name:       "no names prints usage",
			args:       []string{"-p", "proj"},
			shouldExit: true,
		},
		{
			name:       "help",
			args:       []string{"-h"},
			shouldExit: true,
		},
		{
			name:    "invalid log level",
			args:    []string{"-log-level", "loud", "t"},
			errCode: 2,
		},
		{
			name:    "invalid log format",
			args:    []string{"-log-format", "xml", "t"},
			errCode: 2,
		},
		{
			name:    "negative workers",
			args:    []string{"-workers", "-1", "t"},
			errCode: 2,
		},
		{
			name:    "unknown flag",
			args:    []string{"-nope"},
			errCode: 2,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// --- Arrange ---
			out := &bytes.Buffer{}

			// --- Act ---
			cfg, shouldExit, err := Parse(tc.args, out)

			// --- Assert ---
			if tc.errCode != 0 {
				var exitErr *ExitError
				require.True(t, errors.As(err, &exitErr), "expected an ExitError, got %v", err)
				assert.Equal(t, tc.errCode, exitErr.Code)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.shouldExit, shouldExit)
			if tc.shouldExit {
				assert.Contains(t, out.String(), "Usage:")
				return
			}
			assert.Equal(t, tc.want, cfg)
		})
	}
}
