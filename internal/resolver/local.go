package resolver

import (
	"context"
	"errors"
	"net"

	"github.com/TomasB/hostgeo/internal/tab"
)

// ErrNotCaptured means no connection IP has been observed for the tab yet.
// Its text is shown verbatim in the popup.
var ErrNotCaptured = errors.New("Could not capture local IP. Try refreshing the page.")

// IPGetter reads captured tab IPs. *tab.Store implements it.
type IPGetter interface {
	Get(id tab.ID) (net.IP, bool)
}

// LocalStrategy answers with the IP the browser connected to for the tab's
// main document, ignoring the hostname.
type LocalStrategy struct {
	tabs IPGetter
}

// NewLocalStrategy creates a LocalStrategy reading from tabs.
func NewLocalStrategy(tabs IPGetter) *LocalStrategy {
	return &LocalStrategy{tabs: tabs}
}

// Resolve returns the captured IP for q.TabID or ErrNotCaptured.
func (s *LocalStrategy) Resolve(_ context.Context, q Query) (net.IP, error) {
	ip, ok := s.tabs.Get(q.TabID)
	if !ok || ip == nil {
		return nil, ErrNotCaptured
	}
	return ip, nil
}
