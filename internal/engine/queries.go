/*

This file contains the engine's read-only queries. None of them mutate state;
repeated calls with no intervening mutation return identical results.

*/

package engine

import (
	sdkmath "cosmossdk.io/math"
	sdktypes "github.com/cosmos/cosmos-sdk/types"

	"github.com/meridian-protocol/sce/internal/types"
)

// GetUsdValue prices amount units of denom in 18-decimal USD.
func (e *CoreEngine) GetUsdValue(denom string, amount sdkmath.Int) (sdkmath.Int, error) {
	return e.valuation.UsdValue(denom, amount)
}

// GetTokenAmountFromUsd converts an 18-decimal USD amount to denom units.
func (e *CoreEngine) GetTokenAmountFromUsd(denom string, usdAmount sdkmath.Int) (sdkmath.Int, error) {
	return e.valuation.AssetAmountFromUsd(denom, usdAmount)
}

// GetAccountCollateralValue sums the USD value of everything user deposited.
func (e *CoreEngine) GetAccountCollateralValue(user string) (sdkmath.Int, error) {
	return e.valuation.AccountCollateralValue(user)
}

// GetHealthFactor returns user's solvency ratio.
func (e *CoreEngine) GetHealthFactor(user string) (sdkmath.Int, error) {
	return e.health.HealthFactor(user)
}

// GetCollateralBalance returns user's deposited quantity of denom.
func (e *CoreEngine) GetCollateralBalance(user, denom string) sdkmath.Int {
	return e.accounts.Collateral(user, denom)
}

// GetDebt returns user's outstanding minted debt.
func (e *CoreEngine) GetDebt(user string) sdkmath.Int {
	return e.accounts.Debt(user)
}

// GetTotalDebt sums the debt of every account; the stable token's total
// supply must match it at all times.
func (e *CoreEngine) GetTotalDebt() sdkmath.Int {
	return e.accounts.TotalDebt()
}

// RegisteredDenoms returns the collateral denoms in registry order.
func (e *CoreEngine) RegisteredDenoms() []string {
	return e.registry.Denoms()
}

// RegisteredAssets returns the collateral assets with their feed wiring.
func (e *CoreEngine) RegisteredAssets() []types.Asset {
	return e.registry.Assets()
}

// RiskParameters returns the active parameter set.
func (e *CoreEngine) RiskParameters() types.RiskParameters {
	return e.params
}

// AccountSummary assembles the full solvency picture for user: every
// collateral position with its USD value, total value, debt and health
// factor.
func (e *CoreEngine) AccountSummary(user string) (types.AccountSummary, error) {
	summary := types.AccountSummary{
		Address: user,
		Debt:    e.accounts.Debt(user),
	}

	total := sdkmath.ZeroInt()
	for _, denom := range e.registry.Denoms() {
		amount := e.accounts.Collateral(user, denom)
		if amount.IsZero() {
			continue
		}
		value, err := e.valuation.UsdValue(denom, amount)
		if err != nil {
			return types.AccountSummary{}, err
		}
		summary.Collateral = append(summary.Collateral, types.CollateralPosition{
			Coin:     sdktypes.NewCoin(denom, amount),
			ValueUSD: value,
		})
		total = total.Add(value)
	}
	summary.CollateralValueUSD = total

	hf, err := e.health.HealthFactor(user)
	if err != nil {
		return types.AccountSummary{}, err
	}
	summary.HealthFactor = hf
	summary.Liquidatable = summary.Debt.IsPositive() && hf.LT(e.params.MinHealthFactor)
	return summary, nil
}
