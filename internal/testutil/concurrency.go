package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/specialistvlad/bibixgo/internal/plugin"
	"github.com/specialistvlad/bibixgo/internal/registry"
	"github.com/specialistvlad/bibixgo/internal/value"
)

// SleeperPackage is the package of the sleeper plugin.
const SleeperPackage = "bibix.testsleeper"

// MockSleeperModule is a shared, self-contained plugin for concurrency
// tests, preloaded as "sleeper". It records the execution time of every
// sleep call by id.
type MockSleeperModule struct {
	ExecutionTimes map[string]*ExecutionRecord
	mu             sync.Mutex
	sleepDuration  time.Duration
}

// NewMockSleeperModule creates a new sleeper module for testing.
func NewMockSleeperModule(sleep time.Duration) *MockSleeperModule {
	return &MockSleeperModule{
		ExecutionTimes: make(map[string]*ExecutionRecord),
		sleepDuration:  sleep,
	}
}

// Record returns the execution record of id.
func (m *MockSleeperModule) Record(id string) (*ExecutionRecord, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.ExecutionTimes[id]
	return r, ok
}

// Register registers the sleeper script and its rule.
func (m *MockSleeperModule) Register(r *registry.Registry) {
	r.RegisterPlugin(&registry.Plugin{
		Name:   "sleeper",
		Script: "package bibix.testsleeper\n\ndef sleep(id: string): string = native:Sleep\n",
	})
	r.RegisterRule(registry.Capability{Module: SleeperPackage, Class: "Sleep"}, func(ctx context.Context, bc *plugin.BuildContext) (plugin.Return, error) {
		id, err := bc.StringArg("id")
		if err != nil {
			return nil, err
		}

		startTime := time.Now()
		select {
		case <-time.After(m.sleepDuration):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		endTime := time.Now()

		m.mu.Lock()
		m.ExecutionTimes[id] = &ExecutionRecord{Start: startTime, End: endTime}
		m.mu.Unlock()
		return plugin.Value(value.String(id))
	})
}
