/*

This file contains the collateral registry: which assets the engine accepts
and which oracle feed prices each of them. The registry is populated once at
construction and read-only afterwards.

*/

package engine

import (
	"github.com/meridian-protocol/sce/internal/types"
)

// CollateralRegistry maps collateral denoms to oracle feed identifiers and
// keeps the insertion-ordered denom list. Iteration order matters when a
// user's total collateral value is summed, so the list is kept verbatim:
// insertion order, duplicates not filtered.
type CollateralRegistry struct {
	denoms []string
	feeds  map[string]string
}

// NewCollateralRegistry wires denoms to feeds positionally. The two lists
// must have equal length or construction fails before any state is created.
func NewCollateralRegistry(cfg types.RegistryConfig) (*CollateralRegistry, error) {
	if len(cfg.Denoms) != len(cfg.FeedIDs) {
		return nil, ErrMismatchedFeeds
	}
	r := &CollateralRegistry{
		denoms: append([]string(nil), cfg.Denoms...),
		feeds:  make(map[string]string, len(cfg.Denoms)),
	}
	for i, denom := range cfg.Denoms {
		r.feeds[denom] = cfg.FeedIDs[i]
	}
	return r, nil
}

// IsAllowed reports whether denom has a registered feed.
func (r *CollateralRegistry) IsAllowed(denom string) bool {
	_, ok := r.feeds[denom]
	return ok
}

// FeedID returns the oracle feed for denom.
func (r *CollateralRegistry) FeedID(denom string) (string, bool) {
	feed, ok := r.feeds[denom]
	return feed, ok
}

// Denoms returns the registered denom list in insertion order.
func (r *CollateralRegistry) Denoms() []string {
	return append([]string(nil), r.denoms...)
}

// Assets returns the registered assets with their feed wiring, in insertion
// order.
func (r *CollateralRegistry) Assets() []types.Asset {
	assets := make([]types.Asset, 0, len(r.denoms))
	for _, denom := range r.denoms {
		assets = append(assets, types.Asset{
			Denom:     denom,
			FeedID:    r.feeds[denom],
			Precision: 18,
		})
	}
	return assets
}
