package session

import (
	"sync"

	"github.com/TomasB/hostgeo/internal/tab"
)

// View receives state transitions. The orchestrator calls it while holding its
// lock, so implementations must not call back into the orchestrator.
type View interface {
	Render(id tab.ID, s State)
	Clear(id tab.ID)
}

// Board is a View that keeps the current state of every tab in memory.
type Board struct {
	mu     sync.RWMutex
	states map[tab.ID]State
}

// NewBoard creates an empty board.
func NewBoard() *Board {
	return &Board{states: make(map[tab.ID]State)}
}

// Render replaces the state of id.
func (b *Board) Render(id tab.ID, s State) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.states[id] = s
}

// Clear drops the state of id.
func (b *Board) Clear(id tab.ID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.states, id)
}

// Get returns the current state of id.
func (b *Board) Get(id tab.ID) (State, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	s, ok := b.states[id]
	return s, ok
}
