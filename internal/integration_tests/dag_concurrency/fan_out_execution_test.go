package integration_tests

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/specialistvlad/bibixgo/internal/testutil"
	"github.com/specialistvlad/bibixgo/internal/value"
)

// TestDagConcurrency_FanOutExecutionTest validates that independent rule
// invocations run concurrently once their shared dependency completed.
func TestDagConcurrency_FanOutExecutionTest(t *testing.T) {
	t.Parallel()
	// --- Arrange ---
	files := map[string]string{"build.bbx": `
a = sleeper.sleep(id: "A")
b = sleeper.sleep(id: a + "B")
c = sleeper.sleep(id: a + "C")
d = sleeper.sleep(id: a + "D")
`}
	mockModule := testutil.NewMockSleeperModule(100 * time.Millisecond)

	// --- Act ---
	result := testutil.RunBuild(t, files, []string{"b", "c", "d"}, mockModule)

	// --- Assert ---
	testutil.AssertBuilt(t, result, "b", value.String("AB"))
	testutil.AssertBuilt(t, result, "c", value.String("AC"))
	testutil.AssertBuilt(t, result, "d", value.String("AD"))

	recordA, ok := mockModule.Record("A")
	require.True(t, ok)
	var fanned []*testutil.ExecutionRecord
	for _, id := range []string{"AB", "AC", "AD"} {
		r, ok := mockModule.Record(id)
		require.True(t, ok, "expected an execution record for %s", id)
		require.False(t, r.Start.Before(recordA.End), "%s should start after A finished", id)
		fanned = append(fanned, r)
	}
	require.True(t, fanned[0].Overlaps(fanned[1]), "AB and AC should run concurrently")
	require.True(t, fanned[1].Overlaps(fanned[2]), "AC and AD should run concurrently")
}
