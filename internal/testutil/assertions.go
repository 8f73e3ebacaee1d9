package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/specialistvlad/bibixgo/internal/value"
)

// AssertBuilt checks that name was built without error into want.
func AssertBuilt(t *testing.T, result *HarnessResult, name string, want value.Value) {
	t.Helper()
	require.NoError(t, result.Err, "build should start")
	r, ok := result.Results[name]
	require.True(t, ok, "no result for %s", name)
	require.NoError(t, r.Err, "%s should build", name)
	assert.True(t, value.Equal(want, r.Value), "%s: want %s, got %s", name, want, r.Value)
}

// AssertFailed checks that building name failed with an error mentioning
// substr.
func AssertFailed(t *testing.T, result *HarnessResult, name, substr string) {
	t.Helper()
	require.NoError(t, result.Err, "build should start")
	r, ok := result.Results[name]
	require.True(t, ok, "no result for %s", name)
	require.Error(t, r.Err, "%s should fail", name)
	assert.Contains(t, r.Err.Error(), substr)
}
