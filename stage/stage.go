// Package stage tracks the lifecycle of the server.
package stage

import (
	"sync"
	"sync/atomic"
)

type Stage string

const (
	Init         Stage = "Init"         // The default stage
	Starting     Stage = "Starting"     // Start was called, the server is not accepting players yet
	Running      Stage = "Running"      // The tick loop is running
	ShuttingDown Stage = "ShuttingDown" // A shutdown signal was received
	ShutDown     Stage = "ShutDown"     // Every component has stopped
)

type Manager struct {
	current *atomic.Value

	mu      sync.Mutex
	waiters map[Stage][]chan struct{}
}

func NewManager() *Manager {
	m := &Manager{
		current: &atomic.Value{},
		waiters: map[Stage][]chan struct{}{},
	}
	m.current.Store(Init)
	return m
}

func (m *Manager) CompareAndSwap(oldStage, newStage Stage) (swapped bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.current.CompareAndSwap(oldStage, newStage) {
		return false
	}
	m.notify(newStage)
	return true
}

func (m *Manager) Current() Stage {
	return m.current.Load().(Stage)
}

func (m *Manager) Store(val Stage) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current.Store(val)
	m.notify(val)
}

func (m *Manager) Swap(newStage Stage) (oldStage Stage) {
	m.mu.Lock()
	defer m.mu.Unlock()
	oldStage = m.current.Swap(newStage).(Stage)
	m.notify(newStage)
	return oldStage
}

// NotifyOnStage returns a channel that is closed once the manager enters the given stage. If the manager is
// already in that stage the channel is closed immediately.
func (m *Manager) NotifyOnStage(s Stage) <-chan struct{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	ch := make(chan struct{})
	if m.Current() == s {
		close(ch)
		return ch
	}
	m.waiters[s] = append(m.waiters[s], ch)
	return ch
}

// must hold mu.
func (m *Manager) notify(s Stage) {
	for _, ch := range m.waiters[s] {
		close(ch)
	}
	delete(m.waiters, s)
}
