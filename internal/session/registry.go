package session

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"
)

// ErrRunActive is returned when a run is already active for the same key.
var ErrRunActive = errors.New("a run is already active for this key")

// RunStatus is the lifecycle state of a registered run.
type RunStatus string

const (
	StatusRunning  RunStatus = "running"
	StatusFinished RunStatus = "finished"
)

// Run is a registry entry. Report is filled when the run finishes; while it
// is running the live session is reported instead.
type Run struct {
	ID        string    `json:"id"`
	Key       string    `json:"key"`
	Status    RunStatus `json:"status"`
	StartedAt time.Time `json:"started_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Report    *Report   `json:"report,omitempty"`

	session *Session
}

// Registry tracks the runs handled by one process. Each key
// (e.g. "owner/repo#123") may have at most one active run.
type Registry struct {
	mu     sync.RWMutex
	runs   map[string]*Run
	active map[string]string // key -> run ID
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		runs:   make(map[string]*Run),
		active: make(map[string]string),
	}
}

// Start creates a session and registers it under key.
func (r *Registry) Start(key, id, seed string, opts Options) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if running, ok := r.active[key]; ok {
		return nil, fmt.Errorf("%w: %s (run %s)", ErrRunActive, key, running)
	}
	if _, ok := r.runs[id]; ok {
		return nil, fmt.Errorf("run %s already exists", id)
	}

	s := New(id, seed, opts)
	now := time.Now()
	r.runs[id] = &Run{
		ID:        id,
		Key:       key,
		Status:    StatusRunning,
		StartedAt: now,
		UpdatedAt: now,
		session:   s,
	}
	r.active[key] = id
	return s, nil
}

// Session returns the live session of a running run.
func (r *Registry) Session(id string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	run, ok := r.runs[id]
	if !ok || run.session == nil {
		return nil, false
	}
	return run.session, true
}

// Finish stores the run's final report and releases its key. Finishing an
// unknown or already finished run is a no-op.
func (r *Registry) Finish(id string) (Report, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	run, ok := r.runs[id]
	if !ok {
		return Report{}, false
	}
	if run.session == nil {
		return *run.Report, true
	}

	report := run.session.Report()
	run.Report = &report
	run.Status = StatusFinished
	run.UpdatedAt = time.Now()
	run.session = nil
	if r.active[run.Key] == id {
		delete(r.active, run.Key)
	}
	return report, true
}

// Report returns a snapshot of one run.
func (r *Registry) Report(id string) (Run, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	run, ok := r.runs[id]
	if !ok {
		return Run{}, false
	}
	return snapshot(run), true
}

// Reports returns snapshots of all runs, newest first.
func (r *Registry) Reports() []Run {
	r.mu.RLock()
	defer r.mu.RUnlock()
	runs := make([]Run, 0, len(r.runs))
	for _, run := range r.runs {
		runs = append(runs, snapshot(run))
	}
	sort.Slice(runs, func(i, j int) bool {
		if runs[i].StartedAt.Equal(runs[j].StartedAt) {
			return runs[i].ID < runs[j].ID
		}
		return runs[i].StartedAt.After(runs[j].StartedAt)
	})
	return runs
}

func snapshot(run *Run) Run {
	out := *run
	out.session = nil
	if run.session != nil {
		live := run.session.Report()
		out.Report = &live
	}
	return out
}
