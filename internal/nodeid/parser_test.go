// internal/nodeid/parser_test.go
package nodeid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	testCases := []struct {
		name        string
		input       string
		expected    Name
		expectError bool
	}{
		{name: "single token", input: "compile", expected: "compile"},
		{name: "dotted", input: "tools.jvm.compile", expected: "tools.jvm.compile"},
		{name: "spaces are trimmed", input: "a . b", expected: "a.b"},
		{name: "digits after first char", input: "x86_64", expected: "x86_64"},
		{name: "empty", input: "", expectError: true},
		{name: "empty token", input: "a..b", expectError: true},
		{name: "leading digit", input: "1abc", expectError: true},
		{name: "dash", input: "http-client", expectError: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			n, err := Parse(tc.input)
			if tc.expectError {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, n)
		})
	}
}

func TestMustParse_Panics(t *testing.T) {
	assert.Panics(t, func() { MustParse("not valid!") })
	assert.NotPanics(t, func() { MustParse("valid.name") })
}
