package tab

import (
	"fmt"
	"net"
	"strconv"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultMaxTabs is the store bound used when none is configured.
const DefaultMaxTabs = 1024

// ID identifies a browser tab. It is assigned by the browser and lives as long as the tab.
type ID int

// ParseID parses a decimal tab identifier.
func ParseID(s string) (ID, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid tab id %q: %w", s, err)
	}
	return ID(n), nil
}

func (id ID) String() string {
	return strconv.Itoa(int(id))
}

// Store keeps the most recently observed connection IP for each open tab.
//
// Entries are overwritten on every captured top-level response and removed when
// the tab closes. The store is bounded: once it holds max entries, recording a new
// tab evicts the least recently used one.
type Store struct {
	cache *lru.Cache[ID, net.IP]
}

// NewStore creates a store holding at most max tabs.
func NewStore(max int) (*Store, error) {
	if max <= 0 {
		max = DefaultMaxTabs
	}
	cache, err := lru.New[ID, net.IP](max)
	if err != nil {
		return nil, fmt.Errorf("failed to create tab store: %w", err)
	}
	return &Store{cache: cache}, nil
}

// Record unconditionally overwrites the IP captured for id.
func (s *Store) Record(id ID, ip net.IP) {
	s.cache.Add(id, ip)
}

// Get returns the IP captured for id, if any.
func (s *Store) Get(id ID) (net.IP, bool) {
	return s.cache.Get(id)
}

// Remove drops the entry for id. Removing an absent tab is a no-op.
func (s *Store) Remove(id ID) {
	s.cache.Remove(id)
}

// Len returns the number of tabs with a captured IP.
func (s *Store) Len() int {
	return s.cache.Len()
}
