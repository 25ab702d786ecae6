package health

import (
	"sync"
	"time"

	logger "github.com/sirupsen/logrus"
)

// Status is the coarse health of one component.
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

// Report is what a component's probe returns: its status plus a summary of
// recent errors.
type Report struct {
	Status       Status    `json:"status"`
	RecentErrors []string  `json:"recent_errors,omitempty"`
	CheckedAt    time.Time `json:"checked_at"`
}

// Probe is the accessor a component exposes deliberately as part of its
// health contract. Probes must not reach into other components.
type Probe func() Report

// Manager is an explicitly constructed health registry. It is created by the
// orchestrator and injected into whoever needs to consult it; there is no
// process-wide singleton.
type Manager struct {
	mu     sync.RWMutex
	probes map[string]Probe
}

func NewManager() *Manager {
	return &Manager{probes: make(map[string]Probe)}
}

// Register adds or replaces the probe for a named component.
func (m *Manager) Register(name string, probe Probe) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.probes[name] = probe

	logger.WithField("component", name).Debug("health probe registered")
}

// Check runs the probe for one component. Unknown components are unhealthy:
// a component that never registered cannot be trusted.
func (m *Manager) Check(name string) Report {
	m.mu.RLock()
	probe, ok := m.probes[name]
	m.mu.RUnlock()

	if !ok {
		return Report{
			Status:       StatusUnhealthy,
			RecentErrors: []string{"no probe registered for " + name},
			CheckedAt:    time.Now().UTC(),
		}
	}
	return probe()
}

// Overall runs every registered probe and returns the reports by component.
func (m *Manager) Overall() map[string]Report {
	m.mu.RLock()
	names := make([]string, 0, len(m.probes))
	for name := range m.probes {
		names = append(names, name)
	}
	m.mu.RUnlock()

	out := make(map[string]Report, len(names))
	for _, name := range names {
		out[name] = m.Check(name)
	}
	return out
}

// Tracker is a small helper components embed to implement their probe:
// it keeps a bounded ring of recent error messages.
type Tracker struct {
	mu     sync.Mutex
	errs   []string
	limit  int
	failed bool
}

func NewTracker(limit int) *Tracker {
	if limit <= 0 {
		limit = 10
	}
	return &Tracker{limit: limit}
}

// RecordError appends an error message, evicting the oldest beyond the limit.
func (t *Tracker) RecordError(msg string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.errs = append(t.errs, msg)
	if len(t.errs) > t.limit {
		t.errs = t.errs[len(t.errs)-t.limit:]
	}
}

// MarkFailed pins the tracker to unhealthy until the process restarts.
// Used for unrecoverable conditions like ledger corruption.
func (t *Tracker) MarkFailed(msg string) {
	t.mu.Lock()
	t.failed = true
	t.mu.Unlock()
	t.RecordError(msg)
}

// Report builds the probe report: unhealthy when pinned, degraded when there
// are recent errors, healthy otherwise.
func (t *Tracker) Report() Report {
	t.mu.Lock()
	defer t.mu.Unlock()

	status := StatusHealthy
	if len(t.errs) > 0 {
		status = StatusDegraded
	}
	if t.failed {
		status = StatusUnhealthy
	}
	errs := make([]string, len(t.errs))
	copy(errs, t.errs)

	return Report{
		Status:       status,
		RecentErrors: errs,
		CheckedAt:    time.Now().UTC(),
	}
}
