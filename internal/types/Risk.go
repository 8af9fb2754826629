/*

This file contains the risk parameter set governing solvency checks and
liquidation incentives. Parameters are versioned and persisted so a running
deployment can be inspected and audited; defaults live in the config package.

*/

package types

import (
	sdkmath "cosmossdk.io/math"
)

// RiskParameters groups the protocol safety limits. All ratios are expressed
// as integer numerators over LiquidationPrecision, health factors at the
// engine's 18-decimal fixed-point scale.
type RiskParameters struct {
	// LiquidationThreshold is the share of raw collateral value counted toward
	// backing debt. 50 over a precision of 100 yields the 200% minimum
	// collateralization ratio.
	LiquidationThreshold sdkmath.Int `json:"liquidation_threshold"`

	// LiquidationPrecision is the denominator for threshold and bonus.
	LiquidationPrecision sdkmath.Int `json:"liquidation_precision"`

	// LiquidationBonus is the extra collateral share awarded to a liquidator,
	// over LiquidationPrecision.
	LiquidationBonus sdkmath.Int `json:"liquidation_bonus"`

	// MinHealthFactor is the solvency floor, 18-decimal fixed point. An
	// account at or above it cannot be liquidated.
	MinHealthFactor sdkmath.Int `json:"min_health_factor"`
}

// Validate rejects parameter sets that would break the solvency math.
func (p RiskParameters) Validate() error {
	switch {
	case p.LiquidationPrecision.IsNil() || !p.LiquidationPrecision.IsPositive():
		return ErrRiskParamsInvalid
	case p.LiquidationThreshold.IsNil() || !p.LiquidationThreshold.IsPositive():
		return ErrRiskParamsInvalid
	case p.LiquidationThreshold.GT(p.LiquidationPrecision):
		return ErrRiskParamsInvalid
	case p.LiquidationBonus.IsNil() || p.LiquidationBonus.IsNegative():
		return ErrRiskParamsInvalid
	case p.MinHealthFactor.IsNil() || !p.MinHealthFactor.IsPositive():
		return ErrRiskParamsInvalid
	}
	return nil
}
