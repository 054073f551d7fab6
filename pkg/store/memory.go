package store

import (
	"sort"
	"sync"
	"time"

	"github.com/devicelab-dev/screen-crawler/pkg/core"
)

// Memory is an in-process Store, used by tests and dry runs.
type Memory struct {
	mu          sync.Mutex
	screens     map[string]core.Screen
	transitions []core.Transition
	nextID      int64

	// WriteErr, when set, is returned by every insert.
	WriteErr error
	// ReadErr, when set, is returned by every read.
	ReadErr error
}

// NewMemory creates an empty Memory store.
func NewMemory() *Memory {
	return &Memory{screens: make(map[string]core.Screen), nextID: 1}
}

// InsertScreen implements Writer.
func (m *Memory) InsertScreen(s core.Screen) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.WriteErr != nil {
		return core.ErrPersistence.WithCause(m.WriteErr)
	}
	if _, ok := m.screens[s.CompositeHash]; ok {
		return nil
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now()
	}
	m.screens[s.CompositeHash] = s
	return nil
}

// InsertTransition implements Writer.
func (m *Memory) InsertTransition(t core.Transition) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.WriteErr != nil {
		return 0, core.ErrPersistence.WithCause(m.WriteErr)
	}
	t.ID = m.nextID
	m.nextID++
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}
	m.transitions = append(m.transitions, t)
	return t.ID, nil
}

// Screens implements Reader.
func (m *Memory) Screens() ([]core.Screen, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ReadErr != nil {
		return nil, m.ReadErr
	}
	out := make([]core.Screen, 0, len(m.screens))
	for _, s := range m.screens {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Transitions implements Reader.
func (m *Memory) Transitions() ([]core.Transition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ReadErr != nil {
		return nil, m.ReadErr
	}
	out := make([]core.Transition, len(m.transitions))
	copy(out, m.transitions)
	return out, nil
}

// CountScreens implements Reader.
func (m *Memory) CountScreens() (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ReadErr != nil {
		return 0, m.ReadErr
	}
	return len(m.screens), nil
}

// CountTransitions implements Reader.
func (m *Memory) CountTransitions() (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ReadErr != nil {
		return 0, m.ReadErr
	}
	return len(m.transitions), nil
}

// Reset implements Store.
func (m *Memory) Reset() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.screens = make(map[string]core.Screen)
	m.transitions = nil
	return nil
}
