package watch

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/Sriram-PR/md-navbar/pkg/utils"
)

const stateFileName = "watch_state.json"

// DocState is the last observed state of one watched document
type DocState struct {
	LastCheck    time.Time `json:"last_check"`
	LastChange   time.Time `json:"last_change"`
	ContentHash  string    `json:"content_hash"`
	HeadingCount int       `json:"heading_count"`
	ErrorMessage string    `json:"error_message,omitempty"`
}

// WatchState is the file persisted between watch runs
type WatchState struct {
	Documents map[string]DocState `json:"documents"`
	UpdatedAt time.Time           `json:"updated_at"`
}

// StateManager loads and saves WatchState as JSON under the state directory
type StateManager struct {
	stateDir  string
	statePath string
	state     WatchState
	mu        sync.RWMutex
}

// NewStateManager creates a state manager for stateDir. Nothing is read until Load.
func NewStateManager(stateDir string) *StateManager {
	return &StateManager{
		stateDir:  stateDir,
		statePath: filepath.Join(stateDir, stateFileName),
		state:     WatchState{Documents: make(map[string]DocState)},
	}
}

// Load reads the state file. A missing file means a fresh start.
func (m *StateManager) Load() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, err := os.ReadFile(m.statePath)
	if err != nil {
		if os.IsNotExist(err) {
			m.state = WatchState{Documents: make(map[string]DocState)}
			return nil
		}
		return fmt.Errorf("%w: reading watch state: %w", utils.ErrFilesystem, err)
	}
	if err := json.Unmarshal(data, &m.state); err != nil {
		return fmt.Errorf("%w: watch state JSON: %w", utils.ErrParsing, err)
	}
	if m.state.Documents == nil {
		m.state.Documents = make(map[string]DocState)
	}
	return nil
}

// Save writes the state file, creating the state directory if needed
func (m *StateManager) Save() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.state.UpdatedAt = time.Now()
	if err := os.MkdirAll(m.stateDir, 0755); err != nil {
		return fmt.Errorf("%w: creating state directory: %w", utils.ErrFilesystem, err)
	}
	data, err := json.MarshalIndent(m.state, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: marshal watch state: %w", utils.ErrParsing, err)
	}
	if err := os.WriteFile(m.statePath, data, 0644); err != nil {
		return fmt.Errorf("%w: writing watch state: %w", utils.ErrFilesystem, err)
	}
	return nil
}

// Get returns the state of docKey
func (m *StateManager) Get(docKey string) (DocState, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	state, ok := m.state.Documents[docKey]
	return state, ok
}

// RecordCheck stores the outcome of one poll. It reports whether the content changed
// since the previous successful poll; the first successful poll counts as a change.
func (m *StateManager) RecordCheck(docKey, contentHash string, headingCount int, checkErr error) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	state := m.state.Documents[docKey]
	state.LastCheck = now
	if checkErr != nil {
		state.ErrorMessage = checkErr.Error()
		m.state.Documents[docKey] = state
		return false
	}
	state.ErrorMessage = ""
	changed := state.ContentHash != contentHash
	if changed {
		state.ContentHash = contentHash
		state.HeadingCount = headingCount
		state.LastChange = now
	}
	m.state.Documents[docKey] = state
	return changed
}

// All returns a copy of every document state
func (m *StateManager) All() map[string]DocState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make(map[string]DocState, len(m.state.Documents))
	for k, v := range m.state.Documents {
		result[k] = v
	}
	return result
}
