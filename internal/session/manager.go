package session

import (
	"errors"
	"sync"

	"clubconsole/internal/apiclient"
)

var (
	// ErrNoSession means an operation needed an open session.
	ErrNoSession = errors.New("no open attendance session")
	// ErrSubmitInFlight enforces at-most-one in-flight submission.
	ErrSubmitInFlight = errors.New("submission already in progress")
)

// Manager guards the single open session behind the console. Handlers
// run on concurrent requests, so every access goes through the lock;
// the submitting flag is the only mutual exclusion the workflow needs.
type Manager struct {
	mu         sync.Mutex
	current    *Session
	submitting bool
}

func NewManager() *Manager {
	return &Manager{}
}

// Open replaces any existing session with a fresh one. Sessions never
// merge: switching club or reference starts over from all-Unmarked.
func (m *Manager) Open(kind apiclient.RecordKind, clubID, referenceID string, roster []apiclient.Member) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = Open(kind, clubID, referenceID, roster)
	return m.current
}

// Install replaces any existing session with one built by the caller.
func (m *Manager) Install(s *Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = s
}

// Close drops the open session, as when the operator abandons it.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = nil
}

// With runs fn against the open session under the lock.
func (m *Manager) With(fn func(*Session) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return ErrNoSession
	}
	return fn(m.current)
}

// BeginSubmit claims the submission slot. Callers must pair a nil
// return with EndSubmit once the attempt settles.
func (m *Manager) BeginSubmit() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return ErrNoSession
	}
	if m.submitting {
		return ErrSubmitInFlight
	}
	m.submitting = true
	return nil
}

// EndSubmit releases the submission slot.
func (m *Manager) EndSubmit() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.submitting = false
}
