package health

import (
	"context"
	"sort"
	"sync"
	"time"
)

// CheckFunc computes the current status of a component.
type CheckFunc func(ctx context.Context) Status

// Monitor runs named health checks and aggregates their results.
type Monitor struct {
	mu     sync.RWMutex
	system string
	checks map[string]CheckFunc
}

// NewMonitor creates a monitor reporting under the system name.
func NewMonitor(system string) *Monitor {
	return &Monitor{
		system: system,
		checks: make(map[string]CheckFunc),
	}
}

// Register adds or replaces the check for name.
func (m *Monitor) Register(name string, check CheckFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checks[name] = check
}

// Names returns the registered check names, sorted.
func (m *Monitor) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.checks))
	for name := range m.checks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Check runs every check in name order and aggregates the results.
func (m *Monitor) Check(ctx context.Context) Status {
	m.mu.RLock()
	checks := make(map[string]CheckFunc, len(m.checks))
	for name, check := range m.checks {
		checks[name] = check
	}
	m.mu.RUnlock()

	names := make([]string, 0, len(checks))
	for name := range checks {
		names = append(names, name)
	}
	sort.Strings(names)

	subStatuses := make([]Status, 0, len(names))
	for _, name := range names {
		status := checks[name](ctx)
		status.Component = name
		if status.Timestamp.IsZero() {
			status.Timestamp = time.Now()
		}
		subStatuses = append(subStatuses, status)
	}
	return Aggregate(m.system, subStatuses)
}
