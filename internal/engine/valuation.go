/*

This file contains the valuation layer: converting (asset, quantity) pairs to
the engine's 18-decimal USD unit and back, using the per-asset oracle feed.

The two directions deliberately disagree on a malfunctioning feed. A zero or
negative price makes UsdValue count the collateral as worth nothing, while
AssetAmountFromUsd fails outright because the inverse would divide by zero.

*/

package engine

import (
	"fmt"

	sdkmath "cosmossdk.io/math"

	"github.com/meridian-protocol/sce/internal/oracle"
)

var (
	// precision is the 18-decimal fixed-point unit every USD, debt and
	// health-factor quantity is expressed in.
	precision = sdkmath.NewIntWithDecimal(1, 18)

	// additionalFeedPrecision lifts the 8-decimal feed prices to 18 decimals.
	additionalFeedPrecision = sdkmath.NewIntWithDecimal(1, 10)
)

// ValuationEngine prices collateral through the oracle. It holds no state of
// its own beyond its wiring.
type ValuationEngine struct {
	registry *CollateralRegistry
	prices   oracle.PriceSource
	accounts *AccountingStore
}

// NewValuationEngine wires the registry, price source and ledger together.
func NewValuationEngine(registry *CollateralRegistry, prices oracle.PriceSource, accounts *AccountingStore) *ValuationEngine {
	return &ValuationEngine{registry: registry, prices: prices, accounts: accounts}
}

// UsdValue returns the 18-decimal USD value of amount units of denom. A
// non-positive oracle price values the collateral at zero rather than
// failing: a broken feed means "this collateral currently contributes
// nothing", not a dead engine.
func (v *ValuationEngine) UsdValue(denom string, amount sdkmath.Int) (sdkmath.Int, error) {
	feedID, ok := v.registry.FeedID(denom)
	if !ok {
		return sdkmath.ZeroInt(), fmt.Errorf("%w: %s", ErrCollateralNotAllowed, denom)
	}
	price, _, err := v.prices.LatestPrice(feedID)
	if err != nil {
		return sdkmath.ZeroInt(), fmt.Errorf("price lookup for %s: %w", denom, err)
	}
	if !price.IsPositive() {
		return sdkmath.ZeroInt(), nil
	}
	// price * additionalFeedPrecision * amount / precision, in exactly that
	// order so truncation matches across every call site.
	return price.Mul(additionalFeedPrecision).Mul(amount).Quo(precision), nil
}

// AssetAmountFromUsd returns how many units of denom are worth usdAmount.
// The algebraic inverse of UsdValue; fails on a non-positive price.
func (v *ValuationEngine) AssetAmountFromUsd(denom string, usdAmount sdkmath.Int) (sdkmath.Int, error) {
	feedID, ok := v.registry.FeedID(denom)
	if !ok {
		return sdkmath.ZeroInt(), fmt.Errorf("%w: %s", ErrCollateralNotAllowed, denom)
	}
	price, _, err := v.prices.LatestPrice(feedID)
	if err != nil {
		return sdkmath.ZeroInt(), fmt.Errorf("price lookup for %s: %w", denom, err)
	}
	if !price.IsPositive() {
		return sdkmath.ZeroInt(), fmt.Errorf("%w: %s reported %s", ErrNonPositivePrice, feedID, price)
	}
	return usdAmount.Mul(precision).Quo(price.Mul(additionalFeedPrecision)), nil
}

// AccountCollateralValue sums the USD value of every registered asset the
// user has deposited, in registry order. A user with no deposits is worth
// zero, not an error.
func (v *ValuationEngine) AccountCollateralValue(user string) (sdkmath.Int, error) {
	total := sdkmath.ZeroInt()
	for _, denom := range v.registry.denoms {
		amount := v.accounts.Collateral(user, denom)
		if amount.IsZero() {
			continue
		}
		value, err := v.UsdValue(denom, amount)
		if err != nil {
			return sdkmath.ZeroInt(), err
		}
		total = total.Add(value)
	}
	return total, nil
}
