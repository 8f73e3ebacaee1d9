package inmemorystore

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/specialistvlad/bibixgo/internal/task"
	"github.com/specialistvlad/bibixgo/internal/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatus_DefaultsToPending(t *testing.T) {
	s := New()

	assert.Equal(t, Pending, s.Status("target:1/0:x"))

	s.SetStatus("target:1/0:x", Running)
	assert.Equal(t, Running, s.Status("target:1/0:x"))
}

func TestCompleteAndFail(t *testing.T) {
	s := New()

	s.Complete("a", task.ValueResult{Value: value.String("ab")})
	result, ok := s.Result("a")
	require.True(t, ok)
	assert.Equal(t, task.ValueResult{Value: value.String("ab")}, result)
	assert.Equal(t, Completed, s.Status("a"))
	assert.NoError(t, s.Err("a"))

	boom := errors.New("boom")
	s.Fail("b", boom)
	_, ok = s.Result("b")
	assert.False(t, ok)
	assert.Equal(t, Failed, s.Status("b"))
	assert.ErrorIs(t, s.Err("b"), boom)
}

func TestForget_KeepsTerminalStates(t *testing.T) {
	s := New()
	s.SetStatus("running", Running)
	s.Complete("done", task.ValueResult{Value: value.None})

	s.Forget("running")
	s.Forget("done")

	assert.Equal(t, Pending, s.Status("running"))
	assert.Equal(t, Completed, s.Status("done"))
}

// TestStore_ConcurrentAccess verifies that the store can be safely accessed by
// multiple goroutines simultaneously without data races or lost writes.
func TestStore_ConcurrentAccess(t *testing.T) {
	s := New()
	numGoroutines := 100
	var wg sync.WaitGroup

	wg.Add(numGoroutines)
	for i := 0; i < numGoroutines; i++ {
		go func(i int) {
			defer wg.Done()
			key := fmt.Sprintf("expr:1/0:e%d", i)
			if i%2 == 0 {
				s.Complete(key, task.ValueResult{Value: value.String(fmt.Sprint(i))})
			} else {
				s.Fail(key, fmt.Errorf("error for task %d", i))
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, numGoroutines/2, s.Count(Completed))
	assert.Equal(t, numGoroutines/2, s.Count(Failed))
	for i := 0; i < numGoroutines; i++ {
		key := fmt.Sprintf("expr:1/0:e%d", i)
		if i%2 == 0 {
			result, ok := s.Result(key)
			require.True(t, ok)
			assert.Equal(t, task.ValueResult{Value: value.String(fmt.Sprint(i))}, result)
		} else {
			assert.EqualError(t, s.Err(key), fmt.Sprintf("error for task %d", i))
		}
	}
}
