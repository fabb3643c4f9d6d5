package testutil

import (
	"context"
	"os"
	"sync"
)

// FakeEditor records edited paths. When Append is set it is appended to the
// file, imitating an operator's change.
type FakeEditor struct {
	mu     sync.Mutex
	Err    error
	Append string
	paths  []string
}

func (e *FakeEditor) Edit(_ context.Context, path string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.paths = append(e.paths, path)
	if e.Err != nil {
		return e.Err
	}
	if e.Append == "" {
		return nil
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	if _, err := f.WriteString(e.Append); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Paths returns the paths passed to Edit.
func (e *FakeEditor) Paths() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.paths...)
}

// StubPrivilege reports a fixed privilege level.
type StubPrivilege bool

func (p StubPrivilege) IsPrivileged() bool { return bool(p) }

// MemoryMarkerStore keeps the GC marker in memory.
type MemoryMarkerStore struct {
	mu       sync.Mutex
	last     int64
	ReadErr  error
	WriteErr error
}

// NewMemoryMarkerStore creates a store holding last; 0 means GC never ran.
func NewMemoryMarkerStore(last int64) *MemoryMarkerStore {
	return &MemoryMarkerStore{last: last}
}

func (m *MemoryMarkerStore) ReadLastRun() (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ReadErr != nil {
		return 0, m.ReadErr
	}
	return m.last, nil
}

func (m *MemoryMarkerStore) WriteLastRun(epochSeconds int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.WriteErr != nil {
		return m.WriteErr
	}
	m.last = epochSeconds
	return nil
}

// Last returns the stored marker.
func (m *MemoryMarkerStore) Last() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.last
}
