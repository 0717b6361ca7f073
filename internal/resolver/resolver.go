// Package resolver turns a hostname into an IPv4 address using one of several
// interchangeable sources.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/TomasB/hostgeo/internal/tab"
)

// Source names a resolution strategy selectable by the user.
type Source string

const (
	// Local uses the IP the browser actually connected to for the tab.
	Local Source = "local"
	// AliDNS queries the AliDNS DNS-over-HTTPS endpoint.
	AliDNS Source = "alidns"
	// Google queries the Google DNS-over-HTTPS endpoint.
	Google Source = "google"
)

// ErrUnknownSource is returned for a source name with no registered strategy.
// Its text is shown verbatim in the popup.
var ErrUnknownSource = errors.New("Unknown source")

// ParseSource validates a user supplied source name.
func ParseSource(s string) (Source, error) {
	switch src := Source(strings.ToLower(strings.TrimSpace(s))); src {
	case Local, AliDNS, Google:
		return src, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownSource, s)
	}
}

// Query is the input of a single resolution.
type Query struct {
	Hostname string
	TabID    tab.ID
}

// Strategy resolves an IPv4 address for a hostname.
type Strategy interface {
	Resolve(ctx context.Context, q Query) (net.IP, error)
}

// StrategyFunc adapts a function to the Strategy interface.
type StrategyFunc func(ctx context.Context, q Query) (net.IP, error)

// Resolve calls f.
func (f StrategyFunc) Resolve(ctx context.Context, q Query) (net.IP, error) {
	return f(ctx, q)
}

// Registry maps sources to strategies.
type Registry struct {
	strategies map[Source]Strategy
}

// NewRegistry creates a registry from the given strategies.
func NewRegistry(strategies map[Source]Strategy) *Registry {
	r := &Registry{strategies: make(map[Source]Strategy, len(strategies))}
	for src, s := range strategies {
		r.strategies[src] = s
	}
	return r
}

// Lookup returns the strategy registered for src.
func (r *Registry) Lookup(src Source) (Strategy, error) {
	s, ok := r.strategies[src]
	if !ok {
		return nil, ErrUnknownSource
	}
	return s, nil
}

// Resolve dispatches q to the strategy registered for src.
func (r *Registry) Resolve(ctx context.Context, src Source, q Query) (net.IP, error) {
	s, err := r.Lookup(src)
	if err != nil {
		return nil, err
	}
	return s.Resolve(ctx, q)
}
