/*

This file contains the default risk parameters for the engine.

These values define the protocol's solvency envelope. They are seeded into
the database on first start and loaded back as the active set afterwards, so
a deployment's effective parameters are always inspectable.

*/

package config

import (
	sdkmath "cosmossdk.io/math"

	"github.com/meridian-protocol/sce/internal/types"
)

// DefaultRiskParameters provides the baseline risk parameter set. These are
// used if no active parameters are found in the database during
// initialization.
var DefaultRiskParameters = types.RiskParameters{
	// Only 50% of raw collateral value counts toward backing debt. Over a
	// precision of 100 this is a 200% minimum collateralization ratio:
	// every stable unit minted must be backed by two units of collateral
	// value, giving liquidators room to act before the position is
	// underwater in raw terms.
	LiquidationThreshold: sdkmath.NewInt(50),

	// Denominator for threshold and bonus.
	LiquidationPrecision: sdkmath.NewInt(100),

	// Liquidators receive 10% extra collateral on top of the debt-equivalent
	// quantity they cover. Large enough to make liquidation profitable after
	// costs, small enough that a liquidated user is not wiped out.
	LiquidationBonus: sdkmath.NewInt(10),

	// 1.0 at 18-decimal scale. At or above this an account is solvent and
	// untouchable; below it anyone may liquidate.
	MinHealthFactor: sdkmath.NewIntWithDecimal(1, 18),
}
