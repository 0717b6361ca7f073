// Package session drives the per-tab resolution pipeline: resolve the page's
// hostname to an IP, look the IP up, and show the result, discarding results
// of requests that were superseded while in flight.
package session

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/TomasB/hostgeo/internal/geo"
	"github.com/TomasB/hostgeo/internal/metrics"
	"github.com/TomasB/hostgeo/internal/resolver"
	"github.com/TomasB/hostgeo/internal/tab"
)

// ErrNotOpened is returned when switching the source of a tab whose page was never opened.
var ErrNotOpened = errors.New("tab has no opened page")

// SourceResolver resolves a hostname with a named strategy. *resolver.Registry implements it.
type SourceResolver interface {
	Resolve(ctx context.Context, src resolver.Source, q resolver.Query) (net.IP, error)
}

// Request is one resolution issued for a tab. It is never mutated; a newer
// request for the same tab supersedes it.
type Request struct {
	Hostname string
	Source   resolver.Source
	TabID    tab.ID
}

type tabEntry struct {
	latest   uint64
	hostname string
}

// Orchestrator runs resolution requests and applies their results to a View.
//
// Sequence numbers come from a single counter, so a number is never reused even
// when a closed tab's id is handed out again.
type Orchestrator struct {
	resolvers SourceResolver
	lookup    geo.Lookup
	view      View

	mu   sync.Mutex
	seq  uint64
	tabs map[tab.ID]*tabEntry
}

// New creates an orchestrator.
func New(resolvers SourceResolver, lookup geo.Lookup, view View) *Orchestrator {
	return &Orchestrator{
		resolvers: resolvers,
		lookup:    lookup,
		view:      view,
		tabs:      make(map[tab.ID]*tabEntry),
	}
}

// Open handles the popup opening on rawURL. Pages without a resolvable host
// are shown as nothing-to-show and the returned error says why; otherwise the
// hostname is remembered for later source switches and a request is issued.
func (o *Orchestrator) Open(id tab.ID, rawURL string, src resolver.Source) (Request, uint64, error) {
	host, err := Hostname(rawURL)
	if err != nil {
		o.mu.Lock()
		seq := o.supersede(id, "")
		o.view.Render(id, State{Kind: KindNothingToShow, Seq: seq, Message: err.Error()})
		o.mu.Unlock()
		return Request{}, seq, err
	}

	req := Request{Hostname: host, Source: src, TabID: id}
	return req, o.Issue(req), nil
}

// Switch issues a request for the remembered hostname of id using src.
func (o *Orchestrator) Switch(id tab.ID, src resolver.Source) (Request, uint64, error) {
	o.mu.Lock()
	e, ok := o.tabs[id]
	if !ok || e.hostname == "" {
		o.mu.Unlock()
		return Request{}, 0, ErrNotOpened
	}
	host := e.hostname
	o.mu.Unlock()

	req := Request{Hostname: host, Source: src, TabID: id}
	return req, o.Issue(req), nil
}

// Issue makes req the latest request of its tab and shows the loading state.
func (o *Orchestrator) Issue(req Request) uint64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	seq := o.supersede(req.TabID, req.Hostname)
	o.view.Render(req.TabID, State{
		Kind:     KindLoading,
		Seq:      seq,
		Hostname: req.Hostname,
		Source:   req.Source,
	})
	return seq
}

// supersede allocates the next sequence number for id. Must hold o.mu.
func (o *Orchestrator) supersede(id tab.ID, hostname string) uint64 {
	o.seq++
	e, ok := o.tabs[id]
	if !ok {
		e = &tabEntry{}
		o.tabs[id] = e
	}
	e.latest = o.seq
	e.hostname = hostname
	return o.seq
}

// Run executes an issued request: strategy, then geo lookup. The final state is
// applied only if seq is still the latest request of the tab. Run returns the
// state it computed and whether it was applied.
func (o *Orchestrator) Run(ctx context.Context, req Request, seq uint64) (State, bool) {
	start := time.Now()
	st := o.compute(ctx, req, seq)
	applied := o.apply(req.TabID, seq, st)

	outcome := metrics.OutcomeContent
	switch {
	case !applied:
		outcome = metrics.OutcomeStale
	case st.Kind == KindError:
		outcome = metrics.OutcomeError
	case st.Geo == nil:
		outcome = metrics.OutcomeNoGeo
	}
	metrics.Resolutions.WithLabelValues(string(req.Source), outcome).Inc()
	metrics.ResolutionDuration.WithLabelValues(string(req.Source)).Observe(time.Since(start).Seconds())

	if !applied {
		slog.Debug("discarding stale result", "tab", req.TabID, "seq", seq, "source", req.Source)
	}
	return st, applied
}

// Resolve issues req and runs it to completion.
func (o *Orchestrator) Resolve(ctx context.Context, req Request) (State, bool) {
	return o.Run(ctx, req, o.Issue(req))
}

func (o *Orchestrator) compute(ctx context.Context, req Request, seq uint64) State {
	base := State{Seq: seq, Hostname: req.Hostname, Source: req.Source}

	ip, err := o.resolvers.Resolve(ctx, req.Source, resolver.Query{Hostname: req.Hostname, TabID: req.TabID})
	if err != nil {
		slog.Debug("resolution failed", "tab", req.TabID, "host", req.Hostname, "source", req.Source, "error", err)
		base.Kind = KindError
		base.Message = err.Error()
		return base
	}

	rec, err := o.lookup.Lookup(ctx, ip)
	if err != nil {
		slog.Debug("geo lookup failed", "tab", req.TabID, "ip", ip.String(), "error", err)
		base.Kind = KindError
		base.Message = err.Error()
		return base
	}

	base.Kind = KindContent
	base.IP = ip.String()
	base.Geo = rec
	base.Display = NewDisplay(base.IP, rec)
	return base
}

// apply renders st if seq is the latest request of id.
func (o *Orchestrator) apply(id tab.ID, seq uint64, st State) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	e, ok := o.tabs[id]
	if !ok || e.latest != seq {
		return false
	}
	o.view.Render(id, st)
	return true
}

// Latest returns the sequence number of the latest request of id.
func (o *Orchestrator) Latest(id tab.ID) (uint64, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	e, ok := o.tabs[id]
	if !ok {
		return 0, false
	}
	return e.latest, true
}

// Forget drops everything known about id. Requests still in flight for it are
// discarded when they complete.
func (o *Orchestrator) Forget(id tab.ID) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.tabs, id)
	o.view.Clear(id)
}
