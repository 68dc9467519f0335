package registry

import (
	"sync"
	"time"
)

// Status is one state in a tree's run-state machine: idle -> indexing ->
// (indexed | error).
type Status string

const (
	StatusIdle     Status = "idle"
	StatusIndexing Status = "indexing"
	StatusIndexed  Status = "indexed"
	StatusError    Status = "error"
)

// RunState is an immutable snapshot of one tree's indexing state.
type RunState struct {
	Status             Status
	Progress           int
	ProgressMessage    string
	TotalFiles         int
	TotalChunks        int
	LastIndexed        time.Time
	UnknownLastIndexed bool // true when hydrated without a real timestamp
	Error              string
}

// StateMap is the process-wide, in-memory map of normalized tree path ->
// RunState. Safe for concurrent use.
type StateMap struct {
	mu     sync.RWMutex
	states map[string]RunState
}

// NewStateMap returns an empty StateMap.
func NewStateMap() *StateMap {
	return &StateMap{states: make(map[string]RunState)}
}

// Get returns the current state for a tree, or (zero, false) if unknown.
func (m *StateMap) Get(normalizedPath string) (RunState, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.states[normalizedPath]
	return s, ok
}

// SetIndexing transitions a tree into the indexing state at progress 0.
func (m *StateMap) SetIndexing(normalizedPath string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states[normalizedPath] = RunState{Status: StatusIndexing, Progress: 0}
}

// UpdateProgress updates the progress percentage and message for a tree
// currently indexing. pct must be non-decreasing within a run;
// this method does not itself enforce that — callers (the indexer
// dispatcher) are the single writer per run and already guarantee it.
func (m *StateMap) UpdateProgress(normalizedPath string, pct int, msg string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.states[normalizedPath]
	s.Status = StatusIndexing
	s.Progress = pct
	s.ProgressMessage = msg
	m.states[normalizedPath] = s
}

// SetIndexed transitions a tree to indexed with the given totals and the
// current time as LastIndexed.
func (m *StateMap) SetIndexed(normalizedPath string, totalFiles, totalChunks int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states[normalizedPath] = RunState{
		Status:      StatusIndexed,
		Progress:    100,
		TotalFiles:  totalFiles,
		TotalChunks: totalChunks,
		LastIndexed: time.Now(),
	}
}

// SetError transitions a tree to the error state carrying message.
func (m *StateMap) SetError(normalizedPath string, message string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.states[normalizedPath]
	s.Status = StatusError
	s.Error = message
	m.states[normalizedPath] = s
}

// Remove drops all state for a tree (used by clear_index).
func (m *StateMap) Remove(normalizedPath string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.states, normalizedPath)
}

// HydrateIndexed marks a tree "indexed" with an unknown timestamp unless
// state for it already exists. Called at startup for every registered
// project whose collection exists in the store.
func (m *StateMap) HydrateIndexed(normalizedPath string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.states[normalizedPath]; exists {
		return
	}
	m.states[normalizedPath] = RunState{
		Status:             StatusIndexed,
		Progress:           100,
		UnknownLastIndexed: true,
	}
}
