/*

This file contains the read-model types for user positions. These are what the
web API and the receipt store see; the engine keeps its own internal ledger.

*/

package types

import (
	sdkmath "cosmossdk.io/math"
	sdktypes "github.com/cosmos/cosmos-sdk/types"
)

// CollateralPosition is a single (asset, quantity) entry of a user's deposits.
type CollateralPosition struct {
	Coin           sdktypes.Coin `json:"coin"`
	ValueUSD       sdkmath.Int   `json:"value_usd"`       // 18-decimal fixed point
	EstimatedValue float64       `json:"estimated_value"` // display only, populated by the web layer
}

// AccountSummary is the full solvency picture for one account.
type AccountSummary struct {
	Address             string               `json:"address"`
	Collateral          []CollateralPosition `json:"collateral"`
	CollateralValueUSD  sdkmath.Int          `json:"collateral_value_usd"`
	Debt                sdkmath.Int          `json:"debt"`
	HealthFactor        sdkmath.Int          `json:"health_factor"`
	Liquidatable        bool                 `json:"liquidatable"`
}
