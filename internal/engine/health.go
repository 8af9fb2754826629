/*

This file contains the health factor engine: the solvency ratio every
mutating operation is gated on.

*/

package engine

import (
	"fmt"
	"math/big"

	sdkmath "cosmossdk.io/math"

	"github.com/meridian-protocol/sce/internal/types"
)

// maxHealthFactor is returned for accounts with zero debt: infinite solvency
// without a divide-by-zero.
var maxHealthFactor = sdkmath.NewIntFromBigInt(new(big.Int).Sub(
	new(big.Int).Lsh(big.NewInt(1), 255), big.NewInt(1)))

// HealthFactorEngine computes per-user solvency from the accounting ledger
// and the valuation layer.
type HealthFactorEngine struct {
	accounts  *AccountingStore
	valuation *ValuationEngine
	params    types.RiskParameters
}

// NewHealthFactorEngine wires the solvency math to the ledger and valuation.
func NewHealthFactorEngine(accounts *AccountingStore, valuation *ValuationEngine, params types.RiskParameters) *HealthFactorEngine {
	return &HealthFactorEngine{accounts: accounts, valuation: valuation, params: params}
}

// HealthFactor returns the user's solvency ratio at 18-decimal scale. Only
// the threshold share of collateral value counts toward backing debt.
func (h *HealthFactorEngine) HealthFactor(user string) (sdkmath.Int, error) {
	debt := h.accounts.Debt(user)
	if debt.IsZero() {
		return maxHealthFactor, nil
	}
	collateralValue, err := h.valuation.AccountCollateralValue(user)
	if err != nil {
		return sdkmath.ZeroInt(), err
	}
	adjusted := collateralValue.Mul(h.params.LiquidationThreshold).Quo(h.params.LiquidationPrecision)
	return adjusted.Mul(precision).Quo(debt), nil
}

// AssertHealthy fails with ErrHealthFactorTooLow when the user's health
// factor is below the minimum. Accounts with zero debt are never checked, so
// an all-collateral position can never spuriously fail.
func (h *HealthFactorEngine) AssertHealthy(user string) error {
	if h.accounts.Debt(user).IsZero() {
		return nil
	}
	hf, err := h.HealthFactor(user)
	if err != nil {
		return err
	}
	if hf.LT(h.params.MinHealthFactor) {
		return fmt.Errorf("%w: %s at %s", ErrHealthFactorTooLow, user, hf)
	}
	return nil
}
