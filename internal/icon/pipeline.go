// Package icon updates a tab's toolbar icon with the flag of the country its
// page is served from.
package icon

import (
	"context"
	"errors"
	"log/slog"

	"github.com/TomasB/hostgeo/internal/geo"
	"github.com/TomasB/hostgeo/internal/metrics"
	"github.com/TomasB/hostgeo/internal/resolver"
	"github.com/TomasB/hostgeo/internal/session"
	"github.com/TomasB/hostgeo/internal/tab"
)

// ErrNoCountry means the page's IP has no known country, so no flag applies.
var ErrNoCountry = errors.New("no country for IP")

// ErrTabClosed means the tab was closed while its icon was being prepared.
var ErrTabClosed = errors.New("tab closed")

// Pipeline resolves a page with a single strategy, looks up its country and
// sets the tab icon to that country's flag. The last completed run wins.
type Pipeline struct {
	strategy resolver.Strategy
	lookup   geo.Lookup
	flags    *FlagFetcher
	setter   Setter
}

// NewPipeline creates an icon pipeline.
func NewPipeline(strategy resolver.Strategy, lookup geo.Lookup, flags *FlagFetcher, setter Setter) *Pipeline {
	return &Pipeline{strategy: strategy, lookup: lookup, flags: flags, setter: setter}
}

// Run updates the icon of id for the page at rawURL. gen is the tab's icon
// generation when the navigation was seen; a result for a closed tab is
// dropped with ErrTabClosed.
func (p *Pipeline) Run(ctx context.Context, id tab.ID, gen uint64, rawURL string) error {
	host, err := session.Hostname(rawURL)
	if err != nil {
		return err
	}

	ip, err := p.strategy.Resolve(ctx, resolver.Query{Hostname: host, TabID: id})
	if err != nil {
		return err
	}

	rec, err := p.lookup.Lookup(ctx, ip)
	if err != nil {
		return err
	}
	if rec == nil || rec.CountryCode == "" {
		return ErrNoCountry
	}

	icon, err := p.flags.Fetch(ctx, rec.CountryCode)
	if err != nil {
		return err
	}
	if !p.setter.SetIcon(id, gen, icon) {
		return ErrTabClosed
	}
	return nil
}

// Update runs the pipeline and swallows its failure; a missing icon is not
// worth reporting beyond the log.
func (p *Pipeline) Update(ctx context.Context, id tab.ID, gen uint64, rawURL string) {
	err := p.Run(ctx, id, gen, rawURL)
	switch {
	case err == nil:
		metrics.IconUpdates.WithLabelValues(metrics.IconSet).Inc()
	case errors.Is(err, session.ErrNotWebPage), errors.Is(err, ErrNoCountry), errors.Is(err, ErrTabClosed):
		metrics.IconUpdates.WithLabelValues(metrics.IconSkipped).Inc()
		slog.Debug("icon update skipped", "tab", id, "reason", err)
	default:
		metrics.IconUpdates.WithLabelValues(metrics.IconError).Inc()
		slog.Warn("icon update failed", "tab", id, "url", rawURL, "error", err)
	}
}
