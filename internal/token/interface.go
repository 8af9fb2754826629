/*

This file defines the token capabilities the engine consumes. The engine never
holds balances itself; the stable token and every collateral asset are external
ledgers reached through these interfaces, and every movement's success must be
checked by the caller.

*/

package token

import (
	sdkmath "cosmossdk.io/math"
)

// StableToken is the mintable/burnable USD-pegged token. Mint and Burn are
// restricted to a single authorized minter, the core engine.
type StableToken interface {
	// Mint creates amount units on to's balance. Fails unless the caller is
	// the authorized minter.
	Mint(caller, to string, amount sdkmath.Int) error

	// Burn destroys amount units held by from. Fails unless the caller is the
	// authorized minter.
	Burn(caller, from string, amount sdkmath.Int) error

	TransferFrom(spender, from, to string, amount sdkmath.Int) error
	Transfer(from, to string, amount sdkmath.Int) error
	BalanceOf(holder string) sdkmath.Int
	TotalSupply() sdkmath.Int
}

// CollateralAsset is the fungible-token surface of one collateral asset.
// Deposits pull the asset from the user into engine custody; redemptions and
// liquidations push it back out.
type CollateralAsset interface {
	TransferFrom(spender, from, to string, amount sdkmath.Int) error
	Transfer(from, to string, amount sdkmath.Int) error
	BalanceOf(holder string) sdkmath.Int
}
