package icon

import (
	"sync"

	"github.com/TomasB/hostgeo/internal/tab"
)

// Setter sets the toolbar icon of a tab.
type Setter interface {
	// SetIcon stores icon for id unless gen was superseded by a close.
	SetIcon(id tab.ID, gen uint64, icon Icon) bool
}

// Store is a Setter that keeps the latest icon of each tab in memory.
//
// Every tab with pending or stored icons has a generation. Remove ends it, so
// pipelines started before a close cannot write their icon back.
type Store struct {
	mu    sync.RWMutex
	next  uint64
	gens  map[tab.ID]uint64
	icons map[tab.ID]Icon
}

// NewStore creates an empty icon store.
func NewStore() *Store {
	return &Store{
		gens:  make(map[tab.ID]uint64),
		icons: make(map[tab.ID]Icon),
	}
}

// Begin returns the current generation of id, starting a new one if the tab
// has none.
func (s *Store) Begin(id tab.ID) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen, ok := s.gens[id]; ok {
		return gen
	}
	s.next++
	s.gens[id] = s.next
	return s.next
}

// SetIcon replaces the icon of id if gen is still its current generation.
func (s *Store) SetIcon(id tab.ID, gen uint64, icon Icon) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.gens[id]; !ok || cur != gen {
		return false
	}
	s.icons[id] = icon
	return true
}

// Get returns the icon of id.
func (s *Store) Get(id tab.ID) (Icon, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	icon, ok := s.icons[id]
	return icon, ok
}

// Remove drops the icon of id and ends its generation.
func (s *Store) Remove(id tab.ID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.gens, id)
	delete(s.icons, id)
}

// Len returns the number of tabs with a live generation.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.gens)
}
