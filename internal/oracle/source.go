/*

This file defines the price source capability the engine depends on, plus a
deterministic in-memory implementation used by tests and simulation mode.

Prices follow the 8-decimal USD feed convention: $2000.00 is 2000 * 1e8.

*/

package oracle

import (
	"errors"
	"sync"
	"time"

	sdkmath "cosmossdk.io/math"
)

// FeedDecimals is the fixed decimal precision of every price feed.
const FeedDecimals = 8

var (
	ErrUnknownFeed = errors.New("oracle: unknown feed identifier")
	ErrStalePrice  = errors.New("oracle: price is stale")
)

// PriceSource returns the latest USD price for a feed. Implementations are
// synchronous; any failure is a hard failure of the enclosing operation and
// retries, if wanted, belong to the caller.
type PriceSource interface {
	// LatestPrice returns the 8-decimal price and its observation time.
	// The price is signed: a malfunctioning feed may report zero or less,
	// and the valuation layer decides how to treat that.
	LatestPrice(feedID string) (sdkmath.Int, time.Time, error)
}

// StaticSource is a settable in-memory price source. It never fails for a
// registered feed, which makes engine behaviour fully deterministic in tests.
type StaticSource struct {
	mu     sync.RWMutex
	prices map[string]sdkmath.Int
	times  map[string]time.Time
}

// NewStaticSource builds an empty static source.
func NewStaticSource() *StaticSource {
	return &StaticSource{
		prices: make(map[string]sdkmath.Int),
		times:  make(map[string]time.Time),
	}
}

// SetPrice records the 8-decimal price for a feed, stamped now.
func (s *StaticSource) SetPrice(feedID string, price sdkmath.Int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prices[feedID] = price
	s.times[feedID] = time.Now()
}

// SetUSDPrice records a whole-dollar price, handling the 8-decimal scaling.
func (s *StaticSource) SetUSDPrice(feedID string, dollars int64) {
	s.SetPrice(feedID, sdkmath.NewInt(dollars).MulRaw(100_000_000))
}

// LatestPrice implements PriceSource.
func (s *StaticSource) LatestPrice(feedID string) (sdkmath.Int, time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	price, ok := s.prices[feedID]
	if !ok {
		return sdkmath.ZeroInt(), time.Time{}, ErrUnknownFeed
	}
	return price, s.times[feedID], nil
}
